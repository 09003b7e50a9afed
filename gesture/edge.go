package gesture

import "fmt"

// NavigationEdge is the screen edge the navigation band sits on.
type NavigationEdge int

const (
	EdgeBottom NavigationEdge = iota
	EdgeLeft
	EdgeRight
)

func (e NavigationEdge) String() string {
	switch e {
	case EdgeBottom:
		return "bottom"
	case EdgeLeft:
		return "left"
	case EdgeRight:
		return "right"
	default:
		return fmt.Sprintf("edge(%d)", int(e))
	}
}

// MarshalText keeps the edge readable in status payloads.
func (e NavigationEdge) MarshalText() ([]byte, error) {
	return []byte(e.String()), nil
}

// Rotation mirrors the display rotation codes reported by the window manager.
type Rotation int

const (
	Rotation0 Rotation = iota
	Rotation90
	Rotation180
	Rotation270
)

// DefaultBandWidthPx is the thickness of the edge band a DOWN must land in.
const DefaultBandWidthPx = 20

// UpdateEdge derives the navigation edge from the display size and rotation.
// Landscape yields Right for the reversed landscape rotation and Left
// otherwise; portrait always uses the bottom. See IsInEdgeBand for where each
// band lies in rotated coordinates.
func UpdateEdge(displayWidth, displayHeight int, rotation Rotation) NavigationEdge {
	if displayWidth > displayHeight {
		if rotation == Rotation270 {
			return EdgeRight
		}
		return EdgeLeft
	}
	return EdgeBottom
}

// IsInEdgeBand hit-tests a point against the band of the given edge.
// Coordinates are in the rotated frame, so the Left edge (rotation 90) puts
// the strip at the far end of x and the Right edge (rotation 270) at x=0.
func IsInEdgeBand(x, y float64, edge NavigationEdge, bandWidthPx, screenShortSide, screenLongSide int) bool {
	switch edge {
	case EdgeBottom:
		return y >= float64(screenLongSide-bandWidthPx)
	case EdgeLeft:
		return x >= float64(screenLongSide-bandWidthPx)
	case EdgeRight:
		return x <= float64(bandWidthPx)
	default:
		return false
	}
}

// Geometry is the screen model the recognizer classifies touches against.
// ShortSide and LongSide are independent of rotation.
type Geometry struct {
	ShortSide   int            `json:"shortSide"`
	LongSide    int            `json:"longSide"`
	BandWidthPx int            `json:"bandWidth"`
	Edge        NavigationEdge `json:"edge"`
}

// NewGeometry builds a portrait geometry for a display of the given size.
func NewGeometry(displayWidth, displayHeight, bandWidthPx int) Geometry {
	g := Geometry{BandWidthPx: bandWidthPx}
	g.setSides(displayWidth, displayHeight)
	return g
}

func (g *Geometry) setSides(w, h int) {
	g.ShortSide = min(w, h)
	g.LongSide = max(w, h)
}

// Update applies a rotation/configuration change and returns the new edge.
func (g *Geometry) Update(displayWidth, displayHeight int, rotation Rotation) NavigationEdge {
	g.setSides(displayWidth, displayHeight)
	g.Edge = UpdateEdge(displayWidth, displayHeight, rotation)
	return g.Edge
}

// InBand reports whether a DOWN at (x, y) qualifies as a navigation gesture.
func (g Geometry) InBand(x, y float64) bool {
	return IsInEdgeBand(x, y, g.Edge, g.BandWidthPx, g.ShortSide, g.LongSide)
}

// crossAxis returns the coordinate along the band, used for zone selection.
func (g Geometry) crossAxis(x, y float64) float64 {
	if g.Edge == EdgeBottom {
		return x
	}
	return y
}

// swipeAxis returns the coordinate perpendicular to the band.
func (g Geometry) swipeAxis(x, y float64) float64 {
	if g.Edge == EdgeBottom {
		return y
	}
	return x
}

// PrepareAction splits the short side into thirds: the outer two pick Back,
// the middle one Home.
func (g Geometry) PrepareAction(x, y float64) KeyCode {
	pos := g.crossAxis(x, y)
	lower := float64(g.ShortSide / 3)
	upper := float64(g.ShortSide * 2 / 3)
	if pos < lower || pos > upper {
		return KeyBack
	}
	return KeyHome
}
