package testutil

import (
	"errors"
	"net/http"
	"testing"
)

func TestHitBuilder(t *testing.T) {
	t.Parallel()

	h := NewHit(TaggerTopLow).At(1, 2, 3).ThinZ().Time(250).Seconds(7).Charge(33).Plane(4).Build()

	if h.Tagger != TaggerTopLow {
		t.Errorf("Tagger = %q, want %q", h.Tagger, TaggerTopLow)
	}
	if h.X != 1 || h.Y != 2 || h.Z != 3 {
		t.Errorf("position = (%v, %v, %v), want (1, 2, 3)", h.X, h.Y, h.Z)
	}
	if h.ZErr != ThinErr || h.XErr != StripErr {
		t.Errorf("errors = (%v, %v, %v), want thin Z", h.XErr, h.YErr, h.ZErr)
	}
	if h.Ts0Ns != 250 || h.Ts1Ns != 250 || h.Ts0Sec != 7 {
		t.Errorf("times = (%v, %v, %v)", h.Ts0Sec, h.Ts0Ns, h.Ts1Ns)
	}
	if h.PESHit != 33 || h.Plane != 4 {
		t.Errorf("charge/plane = (%v, %v)", h.PESHit, h.Plane)
	}
}

func TestHitBuilderDefaultsToThinY(t *testing.T) {
	t.Parallel()

	h := NewHit(TaggerBottom).Build()
	if h.YErr != ThinErr {
		t.Errorf("YErr = %v, want %v", h.YErr, ThinErr)
	}

	x := NewHit(TaggerSideN).ThinX().Build()
	if x.XErr != ThinErr || x.YErr != StripErr {
		t.Errorf("ThinX errors = (%v, %v, %v)", x.XErr, x.YErr, x.ZErr)
	}
}

func TestTimedHits(t *testing.T) {
	t.Parallel()

	hits := TimedHits(30, 10, 20)
	if len(hits) != 3 {
		t.Fatalf("len = %d, want 3", len(hits))
	}
	if hits[1].Ts0Ns != 10 || hits[2].X != 2000 {
		t.Errorf("unexpected fixture: %+v", hits)
	}
}

func TestAssertHelpersPassingPaths(t *testing.T) {
	t.Parallel()

	fakeT := &testing.T{}
	AssertStatusCode(fakeT, http.StatusOK, http.StatusOK)
	AssertNoError(fakeT, nil)
	AssertError(fakeT, errors.New("boom"))
	if fakeT.Failed() {
		t.Error("expected no failure on passing assertions")
	}
}
