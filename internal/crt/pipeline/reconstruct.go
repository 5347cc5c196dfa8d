package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/banshee-data/crt.report/internal/config"
	"github.com/banshee-data/crt.report/internal/crt/l1hits"
	"github.com/banshee-data/crt.report/internal/crt/l2tzero"
	"github.com/banshee-data/crt.report/internal/crt/l3average"
	"github.com/banshee-data/crt.report/internal/crt/l5tracks"
	"github.com/banshee-data/crt.report/internal/monitoring"
	"github.com/banshee-data/crt.report/internal/timeutil"
)

var logf = monitoring.Componentf("CRTPipeline")

// Config bundles the parameters of every reconstruction stage.
type Config struct {
	Tzero   l2tzero.Params
	Average l3average.Params
	Tracks  l5tracks.Params
}

// DefaultConfig returns the default stage parameters.
func DefaultConfig() Config {
	return Config{
		Tzero:   l2tzero.DefaultParams(),
		Average: l3average.DefaultParams(),
		Tracks:  l5tracks.DefaultParams(),
	}
}

// ConfigFromTuning builds a Config from a loaded TuningConfig.
func ConfigFromTuning(cfg *config.TuningConfig) (Config, error) {
	tracks, err := l5tracks.ParamsFromTuning(cfg)
	if err != nil {
		return Config{}, fmt.Errorf("track building: %w", err)
	}
	return Config{
		Tzero:   l2tzero.ParamsFromTuning(cfg),
		Average: l3average.ParamsFromTuning(cfg),
		Tracks:  tracks,
	}, nil
}

// ClusterResult holds the outputs for one Tzero cluster. Averaged hit ids
// and track ids index the event's Hits.
type ClusterResult struct {
	Index      int                     `json:"index"`
	HitIndices []int                   `json:"hit_indices"`
	Averaged   []l3average.AveragedHit `json:"averaged_hits"`
	Tracks     []l5tracks.TrackWithIDs `json:"tracks"`
}

// EventResult is the reconstruction of one event.
type EventResult struct {
	EventID        string          `json:"event_id"`
	NHits          int             `json:"n_hits"`
	NAveraged      int             `json:"n_averaged"`
	NTracks        int             `json:"n_tracks"`
	Clusters       []ClusterResult `json:"clusters"`
	ProcessingTime time.Duration   `json:"processing_ns"`
}

// Tracks returns every track of the event, ordered by cluster and then by
// selection order.
func (r *EventResult) Tracks() []l5tracks.TrackWithIDs {
	out := make([]l5tracks.TrackWithIDs, 0, r.NTracks)
	for _, c := range r.Clusters {
		out = append(out, c.Tracks...)
	}
	return out
}

// Reconstructor runs events through the reconstruction stages. It holds no
// per-event state and is safe for concurrent use.
type Reconstructor struct {
	clusterer *l2tzero.Clusterer
	averager  *l3average.Averager
	builder   *l5tracks.Builder
	metrics   *Metrics
	clock     timeutil.Clock
}

// NewReconstructor creates a Reconstructor. metrics may be nil.
func NewReconstructor(cfg Config, metrics *Metrics) (*Reconstructor, error) {
	clusterer, err := l2tzero.NewClusterer(cfg.Tzero)
	if err != nil {
		return nil, fmt.Errorf("tzero clustering: %w", err)
	}
	averager, err := l3average.NewAverager(cfg.Average)
	if err != nil {
		return nil, fmt.Errorf("hit averaging: %w", err)
	}
	builder, err := l5tracks.NewBuilder(cfg.Tracks)
	if err != nil {
		return nil, fmt.Errorf("track building: %w", err)
	}
	return &Reconstructor{
		clusterer: clusterer,
		averager:  averager,
		builder:   builder,
		metrics:   metrics,
		clock:     timeutil.RealClock{},
	}, nil
}

// Reconstruct clusters, averages and builds tracks for one event. The
// context is checked before each cluster.
func (r *Reconstructor) Reconstruct(ctx context.Context, ev l1hits.Event) (*EventResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("event %s: %w", ev.ID, err)
	}

	start := r.clock.Now()
	res := &EventResult{EventID: ev.ID, NHits: len(ev.Hits)}

	for ci, indices := range r.clusterer.ClusterIndices(ev.Hits) {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("event %s: %w", ev.ID, err)
		}

		hits := make([]l1hits.Hit, len(indices))
		for k, idx := range indices {
			hits[k] = ev.Hits[idx]
		}

		averaged := r.averager.Average(hits, indices)
		tracks := r.builder.CreateTracks(averaged)

		res.Clusters = append(res.Clusters, ClusterResult{
			Index:      ci,
			HitIndices: indices,
			Averaged:   averaged,
			Tracks:     tracks,
		})
		res.NAveraged += len(averaged)
		res.NTracks += len(tracks)
	}

	res.ProcessingTime = r.clock.Since(start)
	r.metrics.observe(res)

	logf("event %s: %d hits, %d clusters, %d averaged hits, %d tracks in %v",
		ev.ID, res.NHits, len(res.Clusters), res.NAveraged, res.NTracks, res.ProcessingTime)

	return res, nil
}

// ReconstructAll reconstructs events in order. On error it returns the
// results completed so far.
func (r *Reconstructor) ReconstructAll(ctx context.Context, events []l1hits.Event) ([]*EventResult, error) {
	results := make([]*EventResult, 0, len(events))
	for _, ev := range events {
		res, err := r.Reconstruct(ctx, ev)
		if err != nil {
			return results, err
		}
		results = append(results, res)
	}
	return results, nil
}
