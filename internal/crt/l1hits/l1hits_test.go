package l1hits

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHitVectors(t *testing.T) {
	h := Hit{X: 1, XErr: 0.4, Y: 2, YErr: 150, Z: 3, ZErr: 5}

	p := h.Pos()
	assert.Equal(t, 1.0, p.X)
	assert.Equal(t, 2.0, p.Y)
	assert.Equal(t, 3.0, p.Z)

	e := h.Err()
	assert.Equal(t, 0.4, e.X)
	assert.Equal(t, 150.0, e.Y)
	assert.Equal(t, 5.0, e.Z)
}

func TestRoleMap(t *testing.T) {
	m := DefaultRoleMap()

	assert.Equal(t, RoleBottom, m.Role("volTaggerBot_0"))
	assert.Equal(t, RoleTopHigh, m.Role("volTaggerTopHigh_0"))
	assert.Equal(t, RoleTopLow, m.Role("volTaggerTopLow_0"))
	assert.Equal(t, RoleOther, m.Role("volTaggerSideRight_0"))
	assert.Equal(t, RoleOther, RoleMap(nil).Role("volTaggerBot_0"))
}

func TestNewRoleMap(t *testing.T) {
	m, err := NewRoleMap("bot", "high", "low")
	require.NoError(t, err)
	assert.Equal(t, RoleBottom, m.Role("bot"))
	assert.Equal(t, RoleTopLow, m.Role("low"))

	_, err = NewRoleMap("", "high", "low")
	assert.Error(t, err)

	_, err = NewRoleMap("bot", "bot", "low")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "both")
}

func TestPanelRoleString(t *testing.T) {
	assert.Equal(t, "bottom", RoleBottom.String())
	assert.Equal(t, "top-high", RoleTopHigh.String())
	assert.Equal(t, "top-low", RoleTopLow.String())
	assert.Equal(t, "other", RoleOther.String())
}

func TestDecodeEvents(t *testing.T) {
	t.Run("object layout", func(t *testing.T) {
		in := `{"events": [{"event_id": "run1-ev7", "hits": [
			{"x_pos": 1.5, "x_err": 0.4, "y_pos": 2, "y_err": 3, "z_pos": 4, "z_err": 5,
			 "ts0_ns": 1200, "tagger": "volTaggerBot_0", "peshit": 42.5,
			 "pesmap": {"3": [{"channel": 7, "pe": 21.25}]}}
		]}]}`

		events, err := DecodeEvents(strings.NewReader(in))
		require.NoError(t, err)
		require.Len(t, events, 1)
		assert.Equal(t, "run1-ev7", events[0].ID)
		require.Len(t, events[0].Hits, 1)

		h := events[0].Hits[0]
		assert.Equal(t, 1.5, h.X)
		assert.Equal(t, 1200.0, h.Ts0Ns)
		assert.Equal(t, "volTaggerBot_0", h.Tagger)
		require.Len(t, h.PESMap[3], 1)
		assert.Equal(t, 7, h.PESMap[3][0].Channel)
	})

	t.Run("array layout names events by position", func(t *testing.T) {
		in := `[{"hits": []}, {"event_id": "b", "hits": []}]`
		events, err := DecodeEvents(strings.NewReader(in))
		require.NoError(t, err)
		require.Len(t, events, 2)
		assert.Equal(t, "0", events[0].ID)
		assert.Equal(t, "b", events[1].ID)
	})

	t.Run("empty input", func(t *testing.T) {
		events, err := DecodeEvents(strings.NewReader("  \n"))
		require.NoError(t, err)
		assert.Empty(t, events)
	})

	t.Run("rejects scalars", func(t *testing.T) {
		_, err := DecodeEvents(strings.NewReader(`42`))
		assert.Error(t, err)
	})

	t.Run("rejects malformed json", func(t *testing.T) {
		_, err := DecodeEvents(strings.NewReader(`{"events": [`))
		assert.Error(t, err)
	})
}

func TestEncodeEventsRoundTrip(t *testing.T) {
	events := []Event{{
		ID: "ev-1",
		Hits: []Hit{
			{X: 1, Y: 2, Z: 3, Tagger: "volTaggerTopHigh_0", Ts0Sec: 1700000000, Ts0Ns: 55},
		},
	}}

	var buf bytes.Buffer
	require.NoError(t, EncodeEvents(&buf, events))

	got, err := DecodeEvents(&buf)
	require.NoError(t, err)
	assert.Equal(t, events, got)
}
