package l3average

import (
	"fmt"
	"math"
	"slices"

	"github.com/banshee-data/crt.report/internal/config"
	"github.com/banshee-data/crt.report/internal/crt/l1hits"
	"github.com/banshee-data/crt.report/internal/units"
	"gonum.org/v1/gonum/spatial/r3"
)

// Params holds configuration for hit averaging.
type Params struct {
	AverageHitDistance float64 // Radius around the seed hit (cm)
}

// DefaultParams returns the default averaging parameters.
func DefaultParams() Params {
	return ParamsFromTuning(config.EmptyTuningConfig())
}

// ParamsFromTuning builds Params from a loaded TuningConfig.
func ParamsFromTuning(cfg *config.TuningConfig) Params {
	return Params{AverageHitDistance: cfg.GetAverageHitDistance()}
}

// Validate checks that the parameters are usable.
func (p Params) Validate() error {
	if math.IsNaN(p.AverageHitDistance) || p.AverageHitDistance <= 0 {
		return fmt.Errorf("average hit distance must be positive, got %v", p.AverageHitDistance)
	}
	return nil
}

// AveragedHit is a composite hit together with the ids of the original hits
// merged into it.
type AveragedHit struct {
	Hit l1hits.Hit `json:"hit"`
	IDs []int      `json:"ids"`
}

// Averager merges nearby hits. It holds no per-call state and is safe for
// concurrent use.
type Averager struct {
	params Params
}

// NewAverager creates an Averager, rejecting invalid parameters.
func NewAverager(params Params) (*Averager, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	return &Averager{params: params}, nil
}

// Params returns the averaging parameters.
func (a *Averager) Params() Params {
	return a.params
}

// Average merges hits into composites. ids runs parallel to hits and names
// each original hit; a nil ids names hits by their index.
//
// The first remaining hit is the seed. Every remaining hit closer than the
// averaging distance to the seed's position (the seed included) is merged
// into one composite, and the rest are processed again the same way until
// none remain. Each id therefore appears in exactly one composite.
//
// Average panics if ids is non-nil and its length differs from hits.
func (a *Averager) Average(hits []l1hits.Hit, ids []int) []AveragedHit {
	if len(hits) == 0 {
		return nil
	}
	if ids != nil && len(ids) != len(hits) {
		panic(fmt.Sprintf("l3average: %d ids for %d hits", len(ids), len(hits)))
	}

	var out []AveragedHit
	for _, group := range a.groups(hits) {
		members := make([]l1hits.Hit, len(group))
		groupIDs := make([]int, len(group))
		for i, k := range group {
			members[i] = hits[k]
			if ids == nil {
				groupIDs[i] = k
			} else {
				groupIDs[i] = ids[k]
			}
		}
		out = append(out, AveragedHit{Hit: DoAverage(members), IDs: groupIDs})
	}
	return out
}

// AverageHits merges hits into composites without keeping contributor ids.
func (a *Averager) AverageHits(hits []l1hits.Hit) []l1hits.Hit {
	if len(hits) == 0 {
		return nil
	}

	groups := a.groups(hits)
	out := make([]l1hits.Hit, len(groups))
	for i, group := range groups {
		members := make([]l1hits.Hit, len(group))
		for j, k := range group {
			members[j] = hits[k]
		}
		out[i] = DoAverage(members)
	}
	return out
}

// groups partitions hit indices into averaging groups using a worklist of
// the indices still to be placed.
func (a *Averager) groups(hits []l1hits.Hit) [][]int {
	remaining := make([]int, len(hits))
	for i := range remaining {
		remaining[i] = i
	}

	var groups [][]int
	for len(remaining) > 0 {
		seed := hits[remaining[0]].Pos()
		near := []int{remaining[0]}
		var spare []int

		for _, k := range remaining[1:] {
			if r3.Norm(r3.Sub(hits[k].Pos(), seed)) < a.params.AverageHitDistance {
				near = append(near, k)
			} else {
				spare = append(spare, k)
			}
		}

		groups = append(groups, near)
		remaining = spare
	}
	return groups
}

// DoAverage combines hits into one. Position and time fields are the mean of
// the inputs, with Ts0Ns and Ts1Ns scaled by 1e-3 into µs. The error on each
// axis is half the span of the union of the input error envelopes. Charge,
// board, plane, tagger and time corrections are taken from the first hit; a
// group is assumed to lie on a single panel.
func DoAverage(hits []l1hits.Hit) l1hits.Hit {
	if len(hits) == 0 {
		return l1hits.Hit{}
	}

	first := hits[0]
	n := float64(len(hits))

	var sum r3.Vec
	var ts0Sec, ts0Ns, ts1Ns float64
	lo := r3.Vec{X: math.Inf(1), Y: math.Inf(1), Z: math.Inf(1)}
	hi := r3.Vec{X: math.Inf(-1), Y: math.Inf(-1), Z: math.Inf(-1)}

	for _, h := range hits {
		p, e := h.Pos(), h.Err()
		sum = r3.Add(sum, p)
		ts0Sec += float64(h.Ts0Sec)
		ts0Ns += h.Ts0Ns
		ts1Ns += h.Ts1Ns

		up, down := r3.Add(p, e), r3.Sub(p, e)
		hi = r3.Vec{X: math.Max(hi.X, up.X), Y: math.Max(hi.Y, up.Y), Z: math.Max(hi.Z, up.Z)}
		lo = r3.Vec{X: math.Min(lo.X, down.X), Y: math.Min(lo.Y, down.Y), Z: math.Min(lo.Z, down.Z)}
	}

	mean := r3.Scale(1/n, sum)
	halfSpan := r3.Scale(0.5, r3.Sub(hi, lo))

	return l1hits.Hit{
		FEBID:      slices.Clone(first.FEBID),
		PESMap:     clonePESMap(first.PESMap),
		PESHit:     first.PESHit,
		Ts0Sec:     uint64(ts0Sec / n),
		Ts0SecCorr: first.Ts0SecCorr,
		Ts0Ns:      units.NanosToMicros(ts0Ns / n),
		Ts0NsCorr:  first.Ts0NsCorr,
		Ts1Ns:      units.NanosToMicros(ts1Ns / n),
		Plane:      first.Plane,
		X:          mean.X,
		XErr:       halfSpan.X,
		Y:          mean.Y,
		YErr:       halfSpan.Y,
		Z:          mean.Z,
		ZErr:       halfSpan.Z,
		Tagger:     first.Tagger,
	}
}

func clonePESMap(m map[uint8][]l1hits.ChannelPE) map[uint8][]l1hits.ChannelPE {
	if m == nil {
		return nil
	}
	out := make(map[uint8][]l1hits.ChannelPE, len(m))
	for feb, chans := range m {
		out[feb] = slices.Clone(chans)
	}
	return out
}
