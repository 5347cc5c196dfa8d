package l2tzero

import (
	"fmt"
	"math"
	"sort"

	"github.com/banshee-data/crt.report/internal/config"
	"github.com/banshee-data/crt.report/internal/crt/l1hits"
	"github.com/banshee-data/crt.report/internal/units"
)

// Params holds configuration for Tzero clustering.
type Params struct {
	TimeLimitUs float64 // Coincidence window against the seed hit (µs)
}

// DefaultParams returns the default clustering parameters.
func DefaultParams() Params {
	return ParamsFromTuning(config.EmptyTuningConfig())
}

// ParamsFromTuning builds Params from a loaded TuningConfig.
func ParamsFromTuning(cfg *config.TuningConfig) Params {
	return Params{TimeLimitUs: cfg.GetTimeLimitUs()}
}

// Validate checks that the parameters are usable.
func (p Params) Validate() error {
	if math.IsNaN(p.TimeLimitUs) || p.TimeLimitUs < 0 {
		return fmt.Errorf("time limit must be non-negative, got %v µs", p.TimeLimitUs)
	}
	return nil
}

// Clusterer groups hits into Tzero clusters. It holds no per-call state and
// is safe for concurrent use.
type Clusterer struct {
	params Params
}

// NewClusterer creates a Clusterer, rejecting invalid parameters.
func NewClusterer(params Params) (*Clusterer, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	return &Clusterer{params: params}, nil
}

// Params returns the clustering parameters.
func (c *Clusterer) Params() Params {
	return c.params
}

// ClusterIndices partitions hits into Tzero clusters and returns each
// cluster as indices into hits.
//
// Hits are visited in ascending Ts0Ns order (ties keep input order). The
// earliest unused hit seeds a cluster and absorbs every later unused hit
// within the time limit of the seed. Absorbed hits never seed or extend the
// window themselves, so clusters are anchored on their seed and are not a
// transitive closure. Every input index appears in exactly one cluster.
func (c *Clusterer) ClusterIndices(hits []l1hits.Hit) [][]int {
	if len(hits) == 0 {
		return nil
	}

	order := make([]int, len(hits))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return hits[order[a]].Ts0Ns < hits[order[b]].Ts0Ns
	})

	used := make([]bool, len(order))
	var clusters [][]int

	for i := 0; i < len(order); i++ {
		if used[i] {
			continue
		}
		used[i] = true
		seedTime := hits[order[i]].Ts0Ns
		cluster := []int{order[i]}

		for j := i + 1; j < len(order); j++ {
			if used[j] {
				continue
			}
			diff := units.NanosToMicros(math.Abs(hits[order[j]].Ts0Ns - seedTime))
			if diff < c.params.TimeLimitUs {
				used[j] = true
				cluster = append(cluster, order[j])
			}
		}

		clusters = append(clusters, cluster)
	}

	return clusters
}

// Cluster partitions hits into Tzero clusters, returning copies of the hits
// grouped per cluster.
func (c *Clusterer) Cluster(hits []l1hits.Hit) [][]l1hits.Hit {
	idx := c.ClusterIndices(hits)
	if idx == nil {
		return nil
	}

	clusters := make([][]l1hits.Hit, len(idx))
	for i, members := range idx {
		group := make([]l1hits.Hit, len(members))
		for j, k := range members {
			group[j] = hits[k]
		}
		clusters[i] = group
	}
	return clusters
}
