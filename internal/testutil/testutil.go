// Package testutil provides shared test utilities and CRT hit fixtures.
//
// Fixtures follow the detector convention that a panel measures one axis
// precisely (error 0.4 cm) and the other two to within the strip width.
package testutil

import (
	"testing"

	"github.com/banshee-data/crt.report/internal/crt/l1hits"
)

// Common tagger names used across tests.
const (
	TaggerBottom  = "volTaggerBot_0"
	TaggerTopHigh = "volTaggerTopHigh_0"
	TaggerTopLow  = "volTaggerTopLow_0"
	TaggerSideN   = "volTaggerNorth_0"
	TaggerSideS   = "volTaggerSouth_0"
	TaggerSideE   = "volTaggerEast_0"
)

const (
	// ThinErr is the error on the precisely measured axis.
	ThinErr = 0.4
	// StripErr is the error on the two in-plane axes of a 2D hit.
	StripErr = 5.0
)

// HitBuilder assembles a Hit fixture.
type HitBuilder struct {
	h l1hits.Hit
}

// NewHit starts a hit on the given tagger at the origin, with a thin Y axis.
func NewHit(tagger string) *HitBuilder {
	return &HitBuilder{h: l1hits.Hit{
		Tagger: tagger,
		XErr:   StripErr,
		YErr:   ThinErr,
		ZErr:   StripErr,
		PESHit: 10,
		PESMap: map[uint8][]l1hits.ChannelPE{1: {{Channel: 0, PE: 10}}},
		FEBID:  []uint8{1},
	}}
}

// At sets the hit position.
func (b *HitBuilder) At(x, y, z float64) *HitBuilder {
	b.h.X, b.h.Y, b.h.Z = x, y, z
	return b
}

// Errors sets the per-axis errors.
func (b *HitBuilder) Errors(ex, ey, ez float64) *HitBuilder {
	b.h.XErr, b.h.YErr, b.h.ZErr = ex, ey, ez
	return b
}

// ThinX makes X the precisely measured axis (a vertical panel facing X).
func (b *HitBuilder) ThinX() *HitBuilder {
	return b.Errors(ThinErr, StripErr, StripErr)
}

// ThinZ makes Z the precisely measured axis (a vertical panel facing Z).
func (b *HitBuilder) ThinZ() *HitBuilder {
	return b.Errors(StripErr, StripErr, ThinErr)
}

// Time sets Ts0Ns and Ts1Ns.
func (b *HitBuilder) Time(ns float64) *HitBuilder {
	b.h.Ts0Ns = ns
	b.h.Ts1Ns = ns
	return b
}

// Seconds sets Ts0Sec.
func (b *HitBuilder) Seconds(s uint64) *HitBuilder {
	b.h.Ts0Sec = s
	return b
}

// Charge sets PESHit.
func (b *HitBuilder) Charge(pe float64) *HitBuilder {
	b.h.PESHit = pe
	return b
}

// Plane sets the plane identifier.
func (b *HitBuilder) Plane(p int) *HitBuilder {
	b.h.Plane = p
	return b
}

// Build returns the hit.
func (b *HitBuilder) Build() l1hits.Hit {
	return b.h
}

// TimedHits returns one bottom-panel hit per timestamp, spaced 1000 cm apart
// in X so that no two are spatially close.
func TimedHits(times ...float64) []l1hits.Hit {
	hits := make([]l1hits.Hit, len(times))
	for i, ts := range times {
		hits[i] = NewHit(TaggerBottom).At(float64(i)*1000, 0, 0).Time(ts).Build()
	}
	return hits
}

// AssertNoError fails the test if err is not nil.
func AssertNoError(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// AssertError fails the test if err is nil.
func AssertError(t *testing.T, err error) {
	t.Helper()
	if err == nil {
		t.Fatal("expected error, got nil")
	}
}

// AssertStatusCode checks that the response status code matches expected.
func AssertStatusCode(t *testing.T, got, want int) {
	t.Helper()
	if got != want {
		t.Errorf("status code = %d, want %d", got, want)
	}
}
