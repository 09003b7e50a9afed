package types

// Size represents width and height dimensions.
type Size struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// DisplayInfo describes the default display as the window manager sees it.
// Natural is the size in the device's natural (portrait) orientation.
type DisplayInfo struct {
	Natural  Size    `json:"natural"`
	Density  float64 `json:"density"`
	Rotation int     `json:"rotation"`
}

// Current returns the display size for the current rotation.
func (d DisplayInfo) Current() Size {
	if d.Rotation%2 == 1 {
		return Size{Width: d.Natural.Height, Height: d.Natural.Width}
	}
	return d.Natural
}
