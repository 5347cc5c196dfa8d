package monitor

import (
	"bytes"
	"errors"
	"fmt"
	"math"
	"net/http"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/banshee-data/crt.report/internal/crt/l5tracks"
	"github.com/banshee-data/crt.report/internal/crt/storage/sqlite"
	"github.com/banshee-data/crt.report/internal/httputil"
)

const echartsAssetsPrefix = "https://go-echarts.github.io/go-echarts-assets/assets/"

// trackSamples is the number of points drawn along each track in the
// scatter views.
const trackSamples = 21

// projection maps a detector position onto chart axes.
type projection struct {
	name   string
	xLabel string
	yLabel string
	xy     func(v r3.Vec) (float64, float64)
}

var projections = []projection{
	{name: "XY", xLabel: "X (cm)", yLabel: "Y (cm)", xy: func(v r3.Vec) (float64, float64) { return v.X, v.Y }},
	{name: "ZY", xLabel: "Z (cm)", yLabel: "Y (cm)", xy: func(v r3.Vec) (float64, float64) { return v.Z, v.Y }},
}

// eventView is what the displays draw for one event.
type eventView struct {
	title  string
	hits   []r3.Vec
	tracks []l5tracks.Track
}

// handleEventChart renders XY and ZY projections of one event as HTML using
// go-echarts. Recently reconstructed events show their averaged hits; events
// loaded from the store show tracks only.
// Query params:
//   - event_id (required)
func (ws *WebServer) handleEventChart(w http.ResponseWriter, r *http.Request) {
	if !httputil.RequireMethod(w, r, http.MethodGet) {
		return
	}
	eventID := r.URL.Query().Get("event_id")
	if eventID == "" {
		httputil.WriteError(w, http.StatusBadRequest, "missing 'event_id' parameter")
		return
	}

	view, err := ws.lookupView(r, eventID)
	if errors.Is(err, sqlite.ErrNotFound) {
		httputil.WriteError(w, http.StatusNotFound, "event %s not found", eventID)
		return
	}
	if err != nil {
		httputil.WriteError(w, http.StatusInternalServerError, "load event: %v", err)
		return
	}

	page := components.NewPage()
	page.SetAssetsHost(echartsAssetsPrefix)
	for _, proj := range projections {
		page.AddCharts(eventScatter(view, proj))
	}

	var buf bytes.Buffer
	if err := page.Render(&buf); err != nil {
		httputil.WriteError(w, http.StatusInternalServerError, "failed to render chart: %v", err)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(buf.Bytes())
}

func (ws *WebServer) lookupView(r *http.Request, eventID string) (eventView, error) {
	if res, ok := ws.recent.get(eventID); ok {
		return viewFromResult(res), nil
	}
	if ws.store == nil {
		return eventView{}, sqlite.ErrNotFound
	}

	ev, err := ws.store.GetEvent(r.Context(), eventID)
	if err != nil {
		return eventView{}, err
	}
	records, err := ws.store.ListTracks(r.Context(), eventID)
	if err != nil {
		return eventView{}, err
	}

	view := eventView{title: ev.SourceEvent}
	for _, rec := range records {
		view.tracks = append(view.tracks, rec.Track)
	}
	return view, nil
}

func eventScatter(view eventView, proj projection) *charts.Scatter {
	lo, hi := math.Inf(1), math.Inf(-1)
	extend := func(a, b float64) {
		lo = math.Min(lo, math.Min(a, b))
		hi = math.Max(hi, math.Max(a, b))
	}

	hitData := make([]opts.ScatterData, 0, len(view.hits))
	for _, h := range view.hits {
		x, y := proj.xy(h)
		extend(x, y)
		hitData = append(hitData, opts.ScatterData{Value: []interface{}{x, y}})
	}

	trackData := make([][]opts.ScatterData, len(view.tracks))
	for i, t := range view.tracks {
		start, end := t.Start(), t.End()
		for k := 0; k < trackSamples; k++ {
			f := float64(k) / float64(trackSamples-1)
			x, y := proj.xy(r3.Add(start, r3.Scale(f, r3.Sub(end, start))))
			extend(x, y)
			trackData[i] = append(trackData[i], opts.ScatterData{Value: []interface{}{x, y}})
		}
	}

	// Both axes share one range so the projection keeps its aspect.
	if math.IsInf(lo, 1) {
		lo, hi = -1, 1
	}
	pad := 0.05 * (hi - lo)
	if pad == 0 {
		pad = 1
	}

	scatter := charts.NewScatter()
	scatter.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "CRT event " + view.title, Width: "720px", Height: "720px", AssetsHost: echartsAssetsPrefix}),
		charts.WithTitleOpts(opts.Title{Title: proj.name + " projection", Subtitle: fmt.Sprintf("event=%s hits=%d tracks=%d", view.title, len(view.hits), len(view.tracks))}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Min: lo - pad, Max: hi + pad, Name: proj.xLabel, NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Min: lo - pad, Max: hi + pad, Name: proj.yLabel, NameLocation: "middle", NameGap: 35}),
	)

	scatter.AddSeries("hits", hitData, charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 10}))
	for i, data := range trackData {
		scatter.AddSeries(fmt.Sprintf("track %d", i), data, charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 3}))
	}
	return scatter
}
