package l1hits

import "gonum.org/v1/gonum/spatial/r3"

// ChannelPE is the charge seen by one SiPM channel, in photoelectrons.
type ChannelPE struct {
	Channel int     `json:"channel"`
	PE      float64 `json:"pe"`
}

// Hit is a reconstructed CRT hit as delivered by upstream hit reconstruction.
// Positions and errors are in cm. Hits are values: the reconstruction layers
// never mutate a caller's hit.
type Hit struct {
	FEBID  []uint8               `json:"feb_id,omitempty"` // Front-end boards contributing to the hit
	PESMap map[uint8][]ChannelPE `json:"pesmap,omitempty"` // FEB → per-channel charge
	PESHit float64               `json:"peshit"`           // Total charge (PE)

	Ts0Sec     uint64  `json:"ts0_s"`       // Seconds since epoch
	Ts0SecCorr int8    `json:"ts0_s_corr"`  // Correction on Ts0Sec
	Ts0Ns      float64 `json:"ts0_ns"`      // Sub-second T0 (ns)
	Ts0NsCorr  float64 `json:"ts0_ns_corr"` // Correction / uncertainty on Ts0Ns (ns)
	Ts1Ns      float64 `json:"ts1_ns"`      // T1 relative to the beam gate (ns)

	Plane int `json:"plane"`

	X    float64 `json:"x_pos"`
	XErr float64 `json:"x_err"`
	Y    float64 `json:"y_pos"`
	YErr float64 `json:"y_err"`
	Z    float64 `json:"z_pos"`
	ZErr float64 `json:"z_err"`

	Tagger string `json:"tagger"` // Physical panel name, e.g. "volTaggerBot_0"
}

// Pos returns the hit position as a vector.
func (h Hit) Pos() r3.Vec {
	return r3.Vec{X: h.X, Y: h.Y, Z: h.Z}
}

// Err returns the per-axis position errors as a vector.
func (h Hit) Err() r3.Vec {
	return r3.Vec{X: h.XErr, Y: h.YErr, Z: h.ZErr}
}

// Event is one readout window worth of hits.
type Event struct {
	ID   string `json:"event_id"`
	Hits []Hit  `json:"hits"`
}
