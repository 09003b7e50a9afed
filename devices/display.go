package devices

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/mobile-next/edgenav/types"
	"github.com/mobile-next/edgenav/utils"
)

const baselineDensity = 160.0

var (
	wmSizeRe          = regexp.MustCompile(`(Physical|Override) size:\s*(\d+)x(\d+)`)
	wmDensityRe       = regexp.MustCompile(`(Physical|Override) density:\s*(\d+)`)
	surfaceOrientRe   = regexp.MustCompile(`SurfaceOrientation:\s*(\d)`)
	currentRotationRe = regexp.MustCompile(`mCurrentRotation=(?:ROTATION_)?(\d+)`)
)

// DisplayInfo reads size, density and rotation of the default display.
func (d *AndroidDevice) DisplayInfo(ctx context.Context) (*types.DisplayInfo, error) {
	sizeOut, err := d.shell(ctx, "wm", "size")
	if err != nil {
		return nil, err
	}
	size, err := parseWmSize(sizeOut)
	if err != nil {
		return nil, err
	}

	densityOut, err := d.shell(ctx, "wm", "density")
	if err != nil {
		return nil, err
	}
	density, err := parseWmDensity(densityOut)
	if err != nil {
		return nil, err
	}

	rotation, err := d.Rotation(ctx)
	if err != nil {
		utils.Verbose("failed to read rotation of %s, assuming natural: %v", d.id, err)
		rotation = 0
	}

	return &types.DisplayInfo{
		Natural:  size,
		Density:  density,
		Rotation: rotation,
	}, nil
}

// Rotation returns the current display rotation code (0-3).
func (d *AndroidDevice) Rotation(ctx context.Context) (int, error) {
	inputOut, err := d.shell(ctx, "dumpsys", "input")
	if err == nil {
		if rotation, ok := parseSurfaceOrientation(inputOut); ok {
			return rotation, nil
		}
	}

	windowOut, err := d.shell(ctx, "dumpsys", "window", "displays")
	if err != nil {
		return 0, err
	}
	if rotation, ok := parseCurrentRotation(windowOut); ok {
		return rotation, nil
	}
	return 0, fmt.Errorf("rotation not found in dumpsys output")
}

// parseWmSize prefers the override size, which is what apps are laid out in.
func parseWmSize(output string) (types.Size, error) {
	var size types.Size
	found := false
	for _, m := range wmSizeRe.FindAllStringSubmatch(output, -1) {
		w, _ := strconv.Atoi(m[2])
		h, _ := strconv.Atoi(m[3])
		if !found || m[1] == "Override" {
			size = types.Size{Width: w, Height: h}
			found = true
		}
	}
	if !found {
		return types.Size{}, fmt.Errorf("unexpected 'wm size' output: %q", strings.TrimSpace(output))
	}
	return size, nil
}

func parseWmDensity(output string) (float64, error) {
	dpi := 0
	for _, m := range wmDensityRe.FindAllStringSubmatch(output, -1) {
		v, _ := strconv.Atoi(m[2])
		if dpi == 0 || m[1] == "Override" {
			dpi = v
		}
	}
	if dpi <= 0 {
		return 0, fmt.Errorf("unexpected 'wm density' output: %q", strings.TrimSpace(output))
	}
	return float64(dpi) / baselineDensity, nil
}

func parseSurfaceOrientation(output string) (int, bool) {
	m := surfaceOrientRe.FindStringSubmatch(output)
	if m == nil {
		return 0, false
	}
	v, err := strconv.Atoi(m[1])
	if err != nil || v > 3 {
		return 0, false
	}
	return v, true
}

// parseCurrentRotation accepts both "ROTATION_90" and bare rotation codes.
func parseCurrentRotation(output string) (int, bool) {
	m := currentRotationRe.FindStringSubmatch(output)
	if m == nil {
		return 0, false
	}
	v, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}
	switch {
	case v <= 3:
		return v, true
	case v%90 == 0 && v <= 270:
		return v / 90, true
	}
	return 0, false
}
