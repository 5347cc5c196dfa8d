package l4geometry

import (
	"fmt"
	"math"

	"github.com/banshee-data/crt.report/internal/config"
	"github.com/banshee-data/crt.report/internal/crt/l1hits"
	"gonum.org/v1/gonum/spatial/r3"
)

// Axis names a coordinate axis.
type Axis uint8

const (
	AxisX Axis = iota
	AxisY
	AxisZ
)

func (a Axis) String() string {
	switch a {
	case AxisX:
		return "x"
	case AxisY:
		return "y"
	case AxisZ:
		return "z"
	default:
		return fmt.Sprintf("axis(%d)", uint8(a))
	}
}

// component returns v's coordinate along a.
func component(v r3.Vec, a Axis) float64 {
	switch a {
	case AxisX:
		return v.X
	case AxisY:
		return v.Y
	default:
		return v.Z
	}
}

// AxisBand is the open interval of position errors that marks the axis a
// panel measures precisely. The error on a panel's thin axis is a fixed
// detector constant, so a hit whose error on some axis falls inside the
// band lies on a plane normal to that axis.
type AxisBand struct {
	Min float64
	Max float64
}

// DefaultAxisBand returns the band for the default detector constants.
func DefaultAxisBand() AxisBand {
	return AxisBandFromTuning(config.EmptyTuningConfig())
}

// AxisBandFromTuning builds an AxisBand from a loaded TuningConfig.
func AxisBandFromTuning(cfg *config.TuningConfig) AxisBand {
	return AxisBand{Min: cfg.GetThinAxisErrMin(), Max: cfg.GetThinAxisErrMax()}
}

// Validate checks that the band is a non-empty interval.
func (b AxisBand) Validate() error {
	if math.IsNaN(b.Min) || math.IsNaN(b.Max) || b.Min >= b.Max {
		return fmt.Errorf("invalid thin-axis band (%v, %v)", b.Min, b.Max)
	}
	return nil
}

// Contains reports whether err lies strictly inside the band.
func (b AxisBand) Contains(err float64) bool {
	return err > b.Min && err < b.Max
}

// Calculator intersects track lines with panel planes.
type Calculator struct {
	Band AxisBand
}

// NewCalculator creates a Calculator, rejecting an invalid band.
func NewCalculator(band AxisBand) (*Calculator, error) {
	if err := band.Validate(); err != nil {
		return nil, err
	}
	return &Calculator{Band: band}, nil
}

// ThinAxis returns the axis the hit's panel measures precisely, checking X,
// then Y, then Z. ok is false when no axis error lies in the band.
func (c *Calculator) ThinAxis(hit l1hits.Hit) (axis Axis, ok bool) {
	switch {
	case c.Band.Contains(hit.XErr):
		return AxisX, true
	case c.Band.Contains(hit.YErr):
		return AxisY, true
	case c.Band.Contains(hit.ZErr):
		return AxisZ, true
	}
	return 0, false
}

// CrossPoint returns where the line start + t·diff crosses the plane of the
// hit's panel. The coordinate along the thin axis is the hit's own; the other
// two are interpolated along the line. ok is false when the hit has no thin
// axis or the line runs parallel to the plane.
func (c *Calculator) CrossPoint(hit l1hits.Hit, start, diff r3.Vec) (cross r3.Vec, ok bool) {
	axis, ok := c.ThinAxis(hit)
	if !ok {
		return r3.Vec{}, false
	}

	d := component(diff, axis)
	if d == 0 {
		return r3.Vec{}, false
	}

	plane := component(hit.Pos(), axis)
	t := (plane - component(start, axis)) / d
	cross = r3.Add(start, r3.Scale(t, diff))

	// Pin the thin coordinate exactly rather than trusting the interpolation.
	switch axis {
	case AxisX:
		cross.X = plane
	case AxisY:
		cross.Y = plane
	case AxisZ:
		cross.Z = plane
	}
	return cross, true
}

// Distance returns how far the hit lies from the line's crossing with its
// panel plane. ok is false when CrossPoint is undefined for the hit.
func (c *Calculator) Distance(hit l1hits.Hit, start, diff r3.Vec) (float64, bool) {
	cross, ok := c.CrossPoint(hit, start, diff)
	if !ok {
		return 0, false
	}
	return r3.Norm(r3.Sub(cross, hit.Pos())), true
}
