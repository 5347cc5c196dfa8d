package monitor

import (
	"errors"
	"net/http"

	"github.com/google/uuid"

	"github.com/banshee-data/crt.report/internal/crt/l1hits"
	"github.com/banshee-data/crt.report/internal/crt/pipeline"
	"github.com/banshee-data/crt.report/internal/crt/storage/sqlite"
	"github.com/banshee-data/crt.report/internal/httputil"
)

// ReconstructedEvent is one entry of a reconstruct response. ID names the
// event for the tracks and display routes.
type ReconstructedEvent struct {
	ID     string                `json:"id"`
	Stored bool                  `json:"stored"`
	Result *pipeline.EventResult `json:"result"`
}

// ReconstructResponse is the body returned by POST /api/crt/reconstruct.
type ReconstructResponse struct {
	Events []ReconstructedEvent `json:"events"`
}

// EventsResponse is the body returned by GET /api/crt/events.
type EventsResponse struct {
	Events []sqlite.EventRecord `json:"events"`
}

// TracksResponse is the body returned by GET /api/crt/tracks.
type TracksResponse struct {
	EventID string               `json:"event_id"`
	Tracks  []sqlite.TrackRecord `json:"tracks"`
}

func (ws *WebServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (ws *WebServer) handleReconstruct(w http.ResponseWriter, r *http.Request) {
	if !httputil.RequireMethod(w, r, http.MethodPost) {
		return
	}

	events, err := l1hits.DecodeEvents(httputil.LimitBody(w, r, maxRequestBytes))
	if err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "invalid hit file: %v", err)
		return
	}
	if len(events) == 0 {
		httputil.WriteError(w, http.StatusBadRequest, "hit file contains no events")
		return
	}

	resp := ReconstructResponse{Events: make([]ReconstructedEvent, 0, len(events))}
	for _, ev := range events {
		res, err := ws.recon.Reconstruct(r.Context(), ev)
		if err != nil {
			httputil.WriteError(w, http.StatusInternalServerError, "reconstruct %s: %v", ev.ID, err)
			return
		}

		out := ReconstructedEvent{Result: res}
		if ws.store != nil {
			id, err := ws.store.SaveEvent(r.Context(), res)
			if err != nil {
				httputil.WriteError(w, http.StatusInternalServerError, "store %s: %v", ev.ID, err)
				return
			}
			out.ID, out.Stored = id, true
		} else {
			out.ID = uuid.NewString()
		}

		ws.recent.put(out.ID, res)
		resp.Events = append(resp.Events, out)
	}

	httputil.WriteJSON(w, http.StatusOK, resp)
}

func (ws *WebServer) handleEvents(w http.ResponseWriter, r *http.Request) {
	if !httputil.RequireMethod(w, r, http.MethodGet) {
		return
	}
	if ws.store == nil {
		httputil.WriteError(w, http.StatusServiceUnavailable, "no track store configured")
		return
	}

	limit, err := httputil.QueryInt(r, "limit", sqlite.DefaultListLimit, 1, 1000)
	if err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "%v", err)
		return
	}

	events, err := ws.store.ListEvents(r.Context(), limit)
	if err != nil {
		httputil.WriteError(w, http.StatusInternalServerError, "list events: %v", err)
		return
	}
	if events == nil {
		events = []sqlite.EventRecord{}
	}
	httputil.WriteJSON(w, http.StatusOK, EventsResponse{Events: events})
}

func (ws *WebServer) handleTracks(w http.ResponseWriter, r *http.Request) {
	if !httputil.RequireMethod(w, r, http.MethodGet) {
		return
	}
	eventID := r.URL.Query().Get("event_id")
	if eventID == "" {
		httputil.WriteError(w, http.StatusBadRequest, "missing 'event_id' parameter")
		return
	}

	tracks, err := ws.lookupTracks(r, eventID)
	if errors.Is(err, sqlite.ErrNotFound) {
		httputil.WriteError(w, http.StatusNotFound, "event %s not found", eventID)
		return
	}
	if err != nil {
		httputil.WriteError(w, http.StatusInternalServerError, "list tracks: %v", err)
		return
	}
	if tracks == nil {
		tracks = []sqlite.TrackRecord{}
	}
	httputil.WriteJSON(w, http.StatusOK, TracksResponse{EventID: eventID, Tracks: tracks})
}

// lookupTracks prefers the store and falls back to recently reconstructed
// events.
func (ws *WebServer) lookupTracks(r *http.Request, eventID string) ([]sqlite.TrackRecord, error) {
	if ws.store != nil {
		if _, err := ws.store.GetEvent(r.Context(), eventID); err != nil {
			return nil, err
		}
		return ws.store.ListTracks(r.Context(), eventID)
	}

	res, ok := ws.recent.get(eventID)
	if !ok {
		return nil, sqlite.ErrNotFound
	}
	return trackRecords(eventID, res), nil
}

// trackRecords flattens an in-memory result into the stored row shape.
func trackRecords(eventID string, res *pipeline.EventResult) []sqlite.TrackRecord {
	var out []sqlite.TrackRecord
	for _, c := range res.Clusters {
		for _, t := range c.Tracks {
			out = append(out, sqlite.TrackRecord{
				ID:           int64(len(out) + 1),
				EventID:      eventID,
				ClusterIndex: c.Index,
				Track:        t.Track,
				NHits:        t.NHits,
				DepthFactor:  t.DepthFactor,
				HitIDs:       t.IDs,
			})
		}
	}
	return out
}
