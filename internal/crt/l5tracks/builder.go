package l5tracks

import (
	"fmt"
	"math"
	"sort"

	"github.com/banshee-data/crt.report/internal/config"
	"github.com/banshee-data/crt.report/internal/crt/l1hits"
	"github.com/banshee-data/crt.report/internal/crt/l3average"
	"github.com/banshee-data/crt.report/internal/crt/l4geometry"
	"gonum.org/v1/gonum/spatial/r3"
)

// The free-axis scan of a 1D bottom hit steps the depth factor from 0 to
// DepthScanSteps-1 times DepthScanStep.
const (
	DepthScanSteps = 21
	DepthScanStep  = 0.1
)

// Params holds configuration for track building.
type Params struct {
	DistanceLimit    float64             // Max distance from a hit to the line crossing for support (cm)
	OneDErrThreshold float64             // X or Z error above which a bottom hit is 1D (cm)
	Band             l4geometry.AxisBand // Thin-axis error band used by the crossing calculation
	Roles            l1hits.RoleMap      // Tagger → role
}

// DefaultParams returns the default track building parameters.
func DefaultParams() Params {
	cfg := config.EmptyTuningConfig()
	return Params{
		DistanceLimit:    cfg.GetDistanceLimit(),
		OneDErrThreshold: cfg.GetOneDErrThreshold(),
		Band:             l4geometry.AxisBandFromTuning(cfg),
		Roles:            l1hits.DefaultRoleMap(),
	}
}

// ParamsFromTuning builds Params from a loaded TuningConfig. It fails when
// the tagger names do not give three distinct, non-empty roles.
func ParamsFromTuning(cfg *config.TuningConfig) (Params, error) {
	roles, err := l1hits.NewRoleMap(cfg.GetBottomTagger(), cfg.GetTopHighTagger(), cfg.GetTopLowTagger())
	if err != nil {
		return Params{}, fmt.Errorf("panel roles: %w", err)
	}
	return Params{
		DistanceLimit:    cfg.GetDistanceLimit(),
		OneDErrThreshold: cfg.GetOneDErrThreshold(),
		Band:             l4geometry.AxisBandFromTuning(cfg),
		Roles:            roles,
	}, nil
}

// Validate checks that the parameters are usable.
func (p Params) Validate() error {
	if math.IsNaN(p.DistanceLimit) || p.DistanceLimit < 0 {
		return fmt.Errorf("distance limit must be non-negative, got %v", p.DistanceLimit)
	}
	if math.IsNaN(p.OneDErrThreshold) || p.OneDErrThreshold < 0 {
		return fmt.Errorf("1D error threshold must be non-negative, got %v", p.OneDErrThreshold)
	}
	return p.Band.Validate()
}

// Builder assembles tracks from averaged hits. It holds no per-call state and
// is safe for concurrent use.
type Builder struct {
	params Params
	calc   *l4geometry.Calculator
}

// NewBuilder creates a Builder, rejecting invalid parameters.
func NewBuilder(params Params) (*Builder, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	calc, err := l4geometry.NewCalculator(params.Band)
	if err != nil {
		return nil, err
	}
	return &Builder{params: params, calc: calc}, nil
}

// Params returns the track building parameters.
func (b *Builder) Params() Params {
	return b.params
}

// CreateTracks builds tracks from averaged hits. Each track carries the
// concatenated ids of all of its hits, in candidate order.
func (b *Builder) CreateTracks(hits []l3average.AveragedHit) []TrackWithIDs {
	plain := make([]l1hits.Hit, len(hits))
	for i, h := range hits {
		plain[i] = h.Hit
	}

	selected := b.build(plain)
	if len(selected) == 0 {
		return nil
	}

	out := make([]TrackWithIDs, len(selected))
	for i, s := range selected {
		var ids []int
		for _, k := range s.cand.hits {
			ids = append(ids, hits[k].IDs...)
		}
		out[i] = TrackWithIDs{
			Track:       s.track,
			IDs:         ids,
			HitIndices:  append([]int(nil), s.cand.hits...),
			NHits:       len(s.cand.hits),
			DepthFactor: s.cand.depth,
		}
	}
	return out
}

// CreateTracksFromHits builds tracks from plain hits, without id bookkeeping.
func (b *Builder) CreateTracksFromHits(hits []l1hits.Hit) []Track {
	selected := b.build(hits)
	if len(selected) == 0 {
		return nil
	}

	out := make([]Track, len(selected))
	for i, s := range selected {
		out[i] = s.track
	}
	return out
}

// hitPair is two hits on different taggers and the distance between them.
type hitPair struct {
	i, j int
	dist float64
}

// candidate is a track hypothesis: the bottom-first anchor pair, then the
// supporting hits, plus the depth factor along a 1D bottom anchor.
type candidate struct {
	hits  []int
	depth float64
}

type selection struct {
	cand  candidate
	track Track
}

// event caches per-call lookups so the inner loops compare small integers
// rather than tagger names.
type event struct {
	hits   []l1hits.Hit
	panels []int
	roles  []l1hits.PanelRole
}

func (b *Builder) newEvent(hits []l1hits.Hit) *event {
	ev := &event{
		hits:   hits,
		panels: make([]int, len(hits)),
		roles:  make([]l1hits.PanelRole, len(hits)),
	}
	ids := map[string]int{}
	for i, h := range hits {
		id, ok := ids[h.Tagger]
		if !ok {
			id = len(ids)
			ids[h.Tagger] = id
		}
		ev.panels[i] = id
		ev.roles[i] = b.params.Roles.Role(h.Tagger)
	}
	return ev
}

func (b *Builder) build(hits []l1hits.Hit) []selection {
	if len(hits) < 2 {
		return nil
	}

	ev := b.newEvent(hits)
	pairs := ev.pairs()
	if len(pairs) == 0 {
		return nil
	}

	cands := make([]candidate, len(pairs))
	for n, p := range pairs {
		cands[n] = b.assemble(ev, p.i, p.j)
	}

	return b.selectTracks(ev, cands)
}

// pairs lists every pair of hits on different taggers once, longest first.
// Equal distances keep generation order.
func (ev *event) pairs() []hitPair {
	var pairs []hitPair
	for i := range ev.hits {
		for j := i + 1; j < len(ev.hits); j++ {
			if ev.panels[i] == ev.panels[j] {
				continue
			}
			pairs = append(pairs, hitPair{
				i:    i,
				j:    j,
				dist: r3.Norm(r3.Sub(ev.hits[i].Pos(), ev.hits[j].Pos())),
			})
		}
	}
	sort.SliceStable(pairs, func(a, c int) bool {
		return pairs[a].dist > pairs[c].dist
	})
	return pairs
}

// isOneD reports whether the hit's X or Z position is unconstrained.
func (b *Builder) isOneD(h l1hits.Hit) bool {
	return h.XErr > b.params.OneDErrThreshold || h.ZErr > b.params.OneDErrThreshold
}

// shiftAlongStrip moves a hit by (1-f) of its X and Z errors toward lower
// coordinates. f=1 leaves it in place; f=0 and f=2 reach the two edges of
// its envelope.
func shiftAlongStrip(h l1hits.Hit, f float64) r3.Vec {
	return r3.Vec{
		X: h.X - (1-f)*h.XErr,
		Y: h.Y,
		Z: h.Z - (1-f)*h.ZErr,
	}
}

// assemble turns an anchor pair into a candidate. The bottom tagger's hit,
// when present, becomes the first anchor.
func (b *Builder) assemble(ev *event, i, j int) candidate {
	if ev.roles[j] == l1hits.RoleBottom {
		i, j = j, i
	}
	bottom, top := ev.hits[i], ev.hits[j]

	if !b.isOneD(bottom) {
		supports, _ := b.supports(ev, i, j, bottom.Pos(), top.Pos())
		return candidate{hits: append([]int{i, j}, supports...), depth: 1}
	}

	// Scan the free axis and keep the depth with the most supports, then the
	// lowest mean support distance. Exact ties keep the earlier depth; with no
	// supports anywhere the anchor stays where it was measured.
	best := struct {
		supports []int
		meanDist float64
		depth    float64
	}{meanDist: math.Inf(1), depth: 1}

	for step := 0; step < DepthScanSteps; step++ {
		f := float64(step) * DepthScanStep
		supports, total := b.supports(ev, i, j, shiftAlongStrip(bottom, f), top.Pos())

		meanDist := math.Inf(1)
		if len(supports) > 0 {
			meanDist = total / float64(len(supports))
		}

		if len(supports) > len(best.supports) ||
			(len(supports) == len(best.supports) && meanDist < best.meanDist) {
			best.supports = supports
			best.meanDist = meanDist
			best.depth = f
		}
	}

	return candidate{hits: append([]int{i, j}, best.supports...), depth: best.depth}
}

// supports returns the hits, off both anchor taggers, whose crossing with the
// line from start to end lies within the distance limit, along with the
// summed distance. Hits without a defined crossing are skipped.
func (b *Builder) supports(ev *event, i, j int, start, end r3.Vec) ([]int, float64) {
	diff := r3.Sub(start, end)

	var found []int
	total := 0.0
	for k, h := range ev.hits {
		if k == i || k == j || ev.panels[k] == ev.panels[i] || ev.panels[k] == ev.panels[j] {
			continue
		}
		dist, ok := b.calc.Distance(h, start, diff)
		if !ok {
			continue
		}
		if dist < b.params.DistanceLimit {
			found = append(found, k)
			total += dist
		}
	}
	return found, total
}

// selectTracks ranks candidates by hit count and accepts, in order, every
// candidate that shares no hit with an earlier accepted candidate of more
// than two hits. Two-hit tracks never claim their hits, so competing
// pairings may share anchors.
func (b *Builder) selectTracks(ev *event, cands []candidate) []selection {
	sort.SliceStable(cands, func(a, c int) bool {
		return len(cands[a].hits) > len(cands[c].hits)
	})

	used := make([]bool, len(ev.hits))
	var out []selection

	for _, c := range cands {
		if anyUsed(used, c.hits) {
			continue
		}

		bottomIdx, otherIdx := c.hits[0], c.hits[1]
		bottom := ev.hits[bottomIdx]
		corrected := shiftAlongStrip(bottom, c.depth)
		bottom.X, bottom.Z = corrected.X, corrected.Z

		idx1, idx2 := bottomIdx, otherIdx
		hit1, hit2 := bottom, ev.hits[otherIdx]
		if ev.roles[idx2] == l1hits.RoleTopHigh {
			idx1, idx2 = idx2, idx1
			hit1, hit2 = hit2, hit1
		}

		stopping := len(c.hits) == 2 &&
			ev.roles[idx1] == l1hits.RoleTopHigh &&
			ev.roles[idx2] == l1hits.RoleTopLow

		out = append(out, selection{cand: c, track: FillTrack(hit1, hit2, !stopping)})

		if len(c.hits) > 2 {
			for _, k := range c.hits {
				used[k] = true
			}
		}
	}
	return out
}

func anyUsed(used []bool, hits []int) bool {
	for _, k := range hits {
		if used[k] {
			return true
		}
	}
	return false
}
