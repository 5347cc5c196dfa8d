package l5tracks

import (
	"math"

	"github.com/banshee-data/crt.report/internal/crt/l1hits"
	"gonum.org/v1/gonum/spatial/r3"
)

// Track is a straight line between two anchor hits. The per-anchor fields are
// copies taken when the track is filled.
type Track struct {
	Ts0Sec    float64 `json:"ts0_s"`     // Mean of the anchors' seconds
	Ts0SecErr float64 `json:"ts0_s_err"` // Half the seconds difference

	Ts0NsH1    float64 `json:"ts0_ns_h1"`
	Ts0NsErrH1 float64 `json:"ts0_ns_err_h1"`
	Ts0NsH2    float64 `json:"ts0_ns_h2"`
	Ts0NsErrH2 float64 `json:"ts0_ns_err_h2"`

	Ts0Ns    float64 `json:"ts0_ns"`
	Ts0NsErr float64 `json:"ts0_ns_err"`
	Ts1Ns    float64 `json:"ts1_ns"`
	Ts1NsErr float64 `json:"ts1_ns_err"`

	PESHit float64 `json:"peshit"` // Summed anchor charge

	X1    float64 `json:"x1_pos"`
	X1Err float64 `json:"x1_err"`
	Y1    float64 `json:"y1_pos"`
	Y1Err float64 `json:"y1_err"`
	Z1    float64 `json:"z1_pos"`
	Z1Err float64 `json:"z1_err"`
	X2    float64 `json:"x2_pos"`
	X2Err float64 `json:"x2_err"`
	Y2    float64 `json:"y2_pos"`
	Y2Err float64 `json:"y2_err"`
	Z2    float64 `json:"z2_pos"`
	Z2Err float64 `json:"z2_err"`

	Length  float64 `json:"length"`
	ThetaXY float64 `json:"thetaxy"` // atan2(Δx, Δy)
	PhiZY   float64 `json:"phizy"`   // atan2(Δz, Δy)

	Plane1 int `json:"plane1"`
	Plane2 int `json:"plane2"`

	// Complete is false for a track seen only on the two top taggers,
	// which is treated as a stopping track.
	Complete bool `json:"complete"`
}

// Start returns the first anchor position.
func (t Track) Start() r3.Vec {
	return r3.Vec{X: t.X1, Y: t.Y1, Z: t.Z1}
}

// End returns the second anchor position.
func (t Track) End() r3.Vec {
	return r3.Vec{X: t.X2, Y: t.Y2, Z: t.Z2}
}

// TrackWithIDs is a selected track with the ids of every original hit that
// contributed to any of its hits.
type TrackWithIDs struct {
	Track       Track   `json:"track"`
	IDs         []int   `json:"ids"`
	HitIndices  []int   `json:"hit_indices"`  // Anchors first, then supports; indices into the builder input
	NHits       int     `json:"n_hits"`       // Anchors plus supports
	DepthFactor float64 `json:"depth_factor"` // Position along a 1D bottom hit; 1 when no scan ran
}

// FillTrack builds a Track from two anchor hits.
func FillTrack(hit1, hit2 l1hits.Hit, complete bool) Track {
	delta := r3.Sub(hit1.Pos(), hit2.Pos())
	nsErr := math.Sqrt(hit1.Ts0NsCorr*hit1.Ts0NsCorr+hit2.Ts0NsCorr*hit2.Ts0NsCorr) / 2

	return Track{
		Ts0Sec:     (float64(hit1.Ts0Sec) + float64(hit2.Ts0Sec)) / 2,
		Ts0SecErr:  math.Abs(float64(hit1.Ts0Sec)-float64(hit2.Ts0Sec)) / 2,
		Ts0NsH1:    hit1.Ts0Ns,
		Ts0NsErrH1: hit1.Ts0NsCorr,
		Ts0NsH2:    hit2.Ts0Ns,
		Ts0NsErrH2: hit2.Ts0NsCorr,
		Ts0Ns:      (hit1.Ts0Ns + hit2.Ts0Ns) / 2,
		Ts0NsErr:   nsErr,
		Ts1Ns:      (hit1.Ts1Ns + hit2.Ts1Ns) / 2,
		Ts1NsErr:   nsErr,
		PESHit:     hit1.PESHit + hit2.PESHit,
		X1:         hit1.X,
		X1Err:      hit1.XErr,
		Y1:         hit1.Y,
		Y1Err:      hit1.YErr,
		Z1:         hit1.Z,
		Z1Err:      hit1.ZErr,
		X2:         hit2.X,
		X2Err:      hit2.XErr,
		Y2:         hit2.Y,
		Y2Err:      hit2.YErr,
		Z2:         hit2.Z,
		Z2Err:      hit2.ZErr,
		Length:     r3.Norm(delta),
		ThetaXY:    math.Atan2(delta.X, delta.Y),
		PhiZY:      math.Atan2(delta.Z, delta.Y),
		Plane1:     hit1.Plane,
		Plane2:     hit2.Plane,
		Complete:   complete,
	}
}
