package commands

import (
	"fmt"

	"github.com/mobile-next/edgenav/gesture"
	"github.com/mobile-next/edgenav/types"
)

// StatusResponse describes the running recognizer.
type StatusResponse struct {
	DeviceID string            `json:"deviceId,omitempty"`
	Display  types.DisplayInfo `json:"display"`
	gesture.Status
}

// ThresholdsSetRequest is a settings push. The swipe length is in dp and is
// converted with the display density at the time of the update.
type ThresholdsSetRequest struct {
	TriggerTimeoutMs int  `json:"triggerTimeoutMs"`
	MinSwipeLengthDp int  `json:"minSwipeLengthDp"`
	MoveTolerancePx  *int `json:"moveTolerancePx,omitempty"`
}

// GeometrySetRequest reports a display configuration change.
type GeometrySetRequest struct {
	Width    int     `json:"width"`
	Height   int     `json:"height"`
	Rotation int     `json:"rotation"`
	Density  float64 `json:"density,omitempty"`
}

// GeometryResponse is the screen model after an update.
type GeometryResponse struct {
	Edge     string           `json:"edge"`
	Geometry gesture.Geometry `json:"geometry"`
}

// FeedRequest injects pointer events, in order, as if they came from the touchscreen.
type FeedRequest struct {
	Events []gesture.PointerEvent `json:"events"`
}

// StatusCommand reports the recognizer state and counters.
func StatusCommand() *CommandResponse {
	e, err := requireEngine()
	if err != nil {
		return NewErrorResponse(err)
	}

	return NewSuccessResponse(StatusResponse{
		DeviceID: e.DeviceID(),
		Display:  e.Display(),
		Status:   e.Recognizer().Status(),
	})
}

// ThresholdsGetCommand returns the thresholds new sessions will capture.
func ThresholdsGetCommand() *CommandResponse {
	e, err := requireEngine()
	if err != nil {
		return NewErrorResponse(err)
	}
	return NewSuccessResponse(e.Recognizer().Thresholds().Snapshot())
}

// ThresholdsSetCommand replaces the thresholds. A session in flight keeps the
// values it captured at DOWN.
func ThresholdsSetCommand(req ThresholdsSetRequest) *CommandResponse {
	e, err := requireEngine()
	if err != nil {
		return NewErrorResponse(err)
	}

	if req.MoveTolerancePx != nil {
		if *req.MoveTolerancePx < 0 {
			return NewErrorResponse(fmt.Errorf("move tolerance must not be negative, got %d", *req.MoveTolerancePx))
		}
	}

	next, err := e.ApplySettings(req.TriggerTimeoutMs, req.MinSwipeLengthDp)
	if err != nil {
		return NewErrorResponse(fmt.Errorf("invalid thresholds: %w", err))
	}

	if req.MoveTolerancePx != nil {
		next.MoveTolerancePx = *req.MoveTolerancePx
		e.Recognizer().Thresholds().Store(next)
	}

	return NewSuccessResponse(next)
}

// GeometrySetCommand recalibrates the recognizer for a display change.
func GeometrySetCommand(req GeometrySetRequest) *CommandResponse {
	e, err := requireEngine()
	if err != nil {
		return NewErrorResponse(err)
	}

	// width and height arrive as currently displayed, the engine keeps them
	// in natural orientation
	natural := types.Size{Width: req.Width, Height: req.Height}
	if req.Rotation%2 == 1 {
		natural = types.Size{Width: req.Height, Height: req.Width}
	}

	edge, err := e.SetDisplay(types.DisplayInfo{
		Natural:  natural,
		Density:  req.Density,
		Rotation: req.Rotation,
	})
	if err != nil {
		return NewErrorResponse(err)
	}

	return NewSuccessResponse(GeometryResponse{
		Edge:     edge.String(),
		Geometry: e.Recognizer().Geometry(),
	})
}

// FeedCommand runs events through the recognizer and reports its state afterwards.
func FeedCommand(req FeedRequest) *CommandResponse {
	e, err := requireEngine()
	if err != nil {
		return NewErrorResponse(err)
	}
	if len(req.Events) == 0 {
		return NewErrorResponse(fmt.Errorf("'events' must not be empty"))
	}

	for _, ev := range req.Events {
		e.Feed(ev)
	}

	return NewSuccessResponse(map[string]interface{}{
		"accepted": len(req.Events),
		"status":   e.Recognizer().Status(),
	})
}
