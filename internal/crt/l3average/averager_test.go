package l3average

import (
	"math/rand"
	"sort"
	"testing"

	"github.com/banshee-data/crt.report/internal/crt/l1hits"
	"github.com/banshee-data/crt.report/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const tol = 1e-9

func mustAverager(t *testing.T, dist float64) *Averager {
	t.Helper()
	a, err := NewAverager(Params{AverageHitDistance: dist})
	require.NoError(t, err)
	return a
}

func TestNewAveragerValidation(t *testing.T) {
	for _, d := range []float64{0, -3} {
		_, err := NewAverager(Params{AverageHitDistance: d})
		assert.Error(t, err, "distance %v", d)
	}

	a, err := NewAverager(DefaultParams())
	require.NoError(t, err)
	assert.Equal(t, 20.0, a.Params().AverageHitDistance)
}

func TestAverageEmpty(t *testing.T) {
	a := mustAverager(t, 20)
	assert.Empty(t, a.Average(nil, nil))
	assert.Empty(t, a.AverageHits(nil))
	assert.Equal(t, l1hits.Hit{}, DoAverage(nil))
}

// Three hits all within the averaging distance of the first collapse into
// one composite listing all three contributors.
func TestAverageMergesNearbyHits(t *testing.T) {
	a := mustAverager(t, 20)
	hits := []l1hits.Hit{
		testutil.NewHit(testutil.TaggerTopHigh).At(0, 100, 0).Time(1000).Build(),
		testutil.NewHit(testutil.TaggerTopHigh).At(6, 100, 0).Time(1010).Build(),
		testutil.NewHit(testutil.TaggerTopHigh).At(0, 100, 9).Time(1020).Build(),
	}

	out := a.Average(hits, []int{11, 12, 13})
	require.Len(t, out, 1)
	assert.Equal(t, []int{11, 12, 13}, out[0].IDs)

	h := out[0].Hit
	assert.InDelta(t, 2.0, h.X, tol)
	assert.InDelta(t, 100.0, h.Y, tol)
	assert.InDelta(t, 3.0, h.Z, tol)
	assert.InDelta(t, 1.010, h.Ts0Ns, tol, "mean time scaled to µs")
}

func TestAverageEnvelopeErrors(t *testing.T) {
	hits := []l1hits.Hit{
		testutil.NewHit(testutil.TaggerBottom).At(0, 0, 0).Errors(1, 0.4, 2).Build(),
		testutil.NewHit(testutil.TaggerBottom).At(10, 0, 4).Errors(3, 0.4, 1).Build(),
	}

	h := DoAverage(hits)
	// X envelope: [0-1, 10+3] → half span 7; Z envelope: [0-2, 4+1] → 3.5.
	assert.InDelta(t, 7.0, h.XErr, tol)
	assert.InDelta(t, 0.4, h.YErr, tol)
	assert.InDelta(t, 3.5, h.ZErr, tol)
	assert.InDelta(t, 5.0, h.X, tol)
	assert.InDelta(t, 2.0, h.Z, tol)
}

func TestAverageCopiesMetadataFromFirstHit(t *testing.T) {
	first := testutil.NewHit(testutil.TaggerSideN).At(0, 0, 0).Charge(55).Plane(3).Build()
	first.Ts0SecCorr = 2
	first.Ts0NsCorr = 7
	second := testutil.NewHit("volTaggerOther").At(1, 1, 1).Charge(99).Plane(9).Build()

	h := DoAverage([]l1hits.Hit{first, second})
	assert.Equal(t, testutil.TaggerSideN, h.Tagger)
	assert.Equal(t, 55.0, h.PESHit)
	assert.Equal(t, 3, h.Plane)
	assert.Equal(t, int8(2), h.Ts0SecCorr)
	assert.Equal(t, 7.0, h.Ts0NsCorr)
	assert.Equal(t, first.PESMap, h.PESMap)

	// The composite does not alias the input's charge map.
	h.PESMap[1][0].PE = -1
	assert.Equal(t, 10.0, first.PESMap[1][0].PE)
}

func TestAverageSingleHitIsUnchanged(t *testing.T) {
	in := testutil.NewHit(testutil.TaggerTopLow).At(12.5, -340, 77).Errors(4.5, 0.4, 150).
		Time(2000).Seconds(1700000000).Charge(21).Plane(2).Build()

	out := mustAverager(t, 20).Average([]l1hits.Hit{in}, []int{5})
	require.Len(t, out, 1)
	assert.Equal(t, []int{5}, out[0].IDs)

	h := out[0].Hit
	assert.InDelta(t, in.X, h.X, tol)
	assert.InDelta(t, in.Y, h.Y, tol)
	assert.InDelta(t, in.Z, h.Z, tol)
	assert.InDelta(t, in.XErr, h.XErr, tol)
	assert.InDelta(t, in.YErr, h.YErr, tol)
	assert.InDelta(t, in.ZErr, h.ZErr, tol)
	assert.Equal(t, in.Ts0Sec, h.Ts0Sec)
	assert.Equal(t, in.Tagger, h.Tagger)
	assert.Equal(t, in.PESHit, h.PESHit)
	assert.Equal(t, in.Plane, h.Plane)
	assert.InDelta(t, in.Ts0Ns*1e-3, h.Ts0Ns, tol)
	assert.InDelta(t, in.Ts1Ns*1e-3, h.Ts1Ns, tol)
}

// The seed is the literal first remaining hit, not a running centroid: a hit
// within range of the group's mean but not of the seed is left for a later
// group.
func TestAverageSeedIsFirstHit(t *testing.T) {
	a := mustAverager(t, 20)
	hits := []l1hits.Hit{
		testutil.NewHit(testutil.TaggerBottom).At(0, 0, 0).Build(),
		testutil.NewHit(testutil.TaggerBottom).At(15, 0, 0).Build(),
		testutil.NewHit(testutil.TaggerBottom).At(25, 0, 0).Build(),
		testutil.NewHit(testutil.TaggerBottom).At(1, 0, 0).Build(),
	}

	out := a.Average(hits, nil)
	require.Len(t, out, 2)
	assert.Equal(t, []int{0, 1, 3}, out[0].IDs)
	assert.Equal(t, []int{2}, out[1].IDs)
	assert.InDelta(t, 25.0, out[1].Hit.X, tol)
}

func TestAverageHitsWithoutIDs(t *testing.T) {
	a := mustAverager(t, 20)
	hits := []l1hits.Hit{
		testutil.NewHit(testutil.TaggerBottom).At(0, 0, 0).Build(),
		testutil.NewHit(testutil.TaggerBottom).At(100, 0, 0).Build(),
		testutil.NewHit(testutil.TaggerBottom).At(10, 0, 0).Build(),
	}

	out := a.AverageHits(hits)
	require.Len(t, out, 2)
	assert.InDelta(t, 5.0, out[0].X, tol)
	assert.InDelta(t, 100.0, out[1].X, tol)
}

func TestAveragePanicsOnMismatchedIDs(t *testing.T) {
	a := mustAverager(t, 20)
	hits := testutil.TimedHits(0, 1)
	assert.PanicsWithValue(t, "l3average: 1 ids for 2 hits", func() { a.Average(hits, []int{1}) })
	assert.NotPanics(t, func() { a.Average(hits, nil) })
}

func TestAveragePartitionProperty(t *testing.T) {
	rng := rand.New(rand.NewSource(11))

	for trial := 0; trial < 50; trial++ {
		n := 1 + rng.Intn(80)
		hits := make([]l1hits.Hit, n)
		ids := make([]int, n)
		for i := range hits {
			hits[i] = testutil.NewHit(testutil.TaggerBottom).
				At(rng.Float64()*200, rng.Float64()*200, rng.Float64()*200).Build()
			ids[i] = 1000 + i
		}

		a := mustAverager(t, 5+rng.Float64()*60)
		var got []int
		for _, ah := range a.Average(hits, ids) {
			require.NotEmpty(t, ah.IDs)
			got = append(got, ah.IDs...)
		}
		sort.Ints(got)
		require.Equal(t, ids, got, "trial %d", trial)
	}
}

// A long chain of isolated hits produces one composite per hit without deep
// call stacks.
func TestAverageManyIsolatedHits(t *testing.T) {
	a := mustAverager(t, 1)
	n := 3000
	hits := make([]l1hits.Hit, n)
	for i := range hits {
		hits[i] = testutil.NewHit(testutil.TaggerBottom).At(float64(i)*10, 0, 0).Build()
	}

	out := a.Average(hits, nil)
	require.Len(t, out, n)
	assert.Equal(t, []int{n - 1}, out[n-1].IDs)
}

func TestAverageDoesNotMutateInput(t *testing.T) {
	a := mustAverager(t, 20)
	hits := []l1hits.Hit{
		testutil.NewHit(testutil.TaggerBottom).At(0, 0, 0).Build(),
		testutil.NewHit(testutil.TaggerBottom).At(3, 0, 0).Build(),
	}
	before := []l1hits.Hit{hits[0], hits[1]}

	a.Average(hits, nil)
	assert.Equal(t, before, hits)
}
