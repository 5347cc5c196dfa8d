package monitor

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/banshee-data/crt.report/internal/crt/pipeline"
	"github.com/banshee-data/crt.report/internal/crt/storage/sqlite"
	"github.com/banshee-data/crt.report/internal/monitoring"
)

var logf = monitoring.Componentf("CRTMonitor")

// DefaultRecentLimit is how many reconstructed events the server keeps in
// memory for the event display.
const DefaultRecentLimit = 64

// maxRequestBytes caps a reconstruct request body.
const maxRequestBytes = 16 << 20

// EventStore persists reconstructed events. *sqlite.Store implements it.
type EventStore interface {
	SaveEvent(ctx context.Context, res *pipeline.EventResult) (string, error)
	ListEvents(ctx context.Context, limit int) ([]sqlite.EventRecord, error)
	GetEvent(ctx context.Context, eventID string) (*sqlite.EventRecord, error)
	ListTracks(ctx context.Context, eventID string) ([]sqlite.TrackRecord, error)
}

// adminRouter is implemented by stores that expose debug routes.
type adminRouter interface {
	AttachAdminRoutes(mux *http.ServeMux) error
}

// WebServerConfig contains configuration options for the web server.
type WebServerConfig struct {
	Address       string
	Reconstructor *pipeline.Reconstructor
	Store         EventStore          // Optional: persistence and event listing
	Gatherer      prometheus.Gatherer // Optional: serves /metrics
	RecentLimit   int                 // Events kept in memory; DefaultRecentLimit when zero
}

// WebServer handles the HTTP interface for CRT reconstruction.
type WebServer struct {
	address string
	recon   *pipeline.Reconstructor
	store   EventStore
	recent  *recentResults
	server  *http.Server
}

// NewWebServer creates a web server with the provided configuration.
func NewWebServer(config WebServerConfig) (*WebServer, error) {
	if config.Reconstructor == nil {
		return nil, errors.New("web server needs a reconstructor")
	}
	limit := config.RecentLimit
	if limit <= 0 {
		limit = DefaultRecentLimit
	}

	ws := &WebServer{
		address: config.Address,
		recon:   config.Reconstructor,
		store:   config.Store,
		recent:  newRecentResults(limit),
	}

	mux, err := ws.setupRoutes(config.Gatherer)
	if err != nil {
		return nil, err
	}
	ws.server = &http.Server{
		Addr:              ws.address,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return ws, nil
}

// Handler returns the server's route multiplexer.
func (ws *WebServer) Handler() http.Handler {
	return ws.server.Handler
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (ws *WebServer) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		logf("Starting HTTP server on %s", ws.address)
		if err := ws.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("failed to start server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logf("shutting down HTTP server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := ws.server.Shutdown(shutdownCtx); err != nil {
		logf("HTTP server shutdown error: %v", err)
		if err := ws.server.Close(); err != nil {
			logf("HTTP server force close error: %v", err)
		}
	}

	logf("HTTP server routine stopped")
	return nil
}

func (ws *WebServer) setupRoutes(gatherer prometheus.Gatherer) (*http.ServeMux, error) {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", ws.handleHealth)
	mux.HandleFunc("/api/crt/reconstruct", ws.handleReconstruct)
	mux.HandleFunc("/api/crt/events", ws.handleEvents)
	mux.HandleFunc("/api/crt/tracks", ws.handleTracks)
	mux.HandleFunc("/debug/crt/event", ws.handleEventChart)

	if gatherer != nil {
		mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}

	if admin, ok := ws.store.(adminRouter); ok {
		if err := admin.AttachAdminRoutes(mux); err != nil {
			return nil, fmt.Errorf("attach admin routes: %w", err)
		}
	}

	return mux, nil
}

// recentResults is a bounded, insertion-ordered map of reconstructed events.
type recentResults struct {
	mu    sync.Mutex
	limit int
	order []string
	byID  map[string]*pipeline.EventResult
}

func newRecentResults(limit int) *recentResults {
	return &recentResults{limit: limit, byID: make(map[string]*pipeline.EventResult)}
}

func (c *recentResults) put(id string, res *pipeline.EventResult) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.byID[id]; !ok {
		c.order = append(c.order, id)
	}
	c.byID[id] = res

	for len(c.order) > c.limit {
		delete(c.byID, c.order[0])
		c.order = c.order[1:]
	}
}

func (c *recentResults) get(id string) (*pipeline.EventResult, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	res, ok := c.byID[id]
	return res, ok
}
