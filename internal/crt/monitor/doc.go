// Package monitor serves CRT reconstruction over HTTP and renders event
// displays.
//
// Routes:
//
//	POST /api/crt/reconstruct      hit file in, reconstructed events out
//	GET  /api/crt/events           stored events, newest first
//	GET  /api/crt/tracks           tracks of one event (event_id=)
//	GET  /debug/crt/event          go-echarts XY and ZY projections (event_id=)
//	GET  /metrics                  Prometheus metrics
//	GET  /health                   liveness
//	GET  /debug/                   tsweb index, tailsql and backup (sqlite store only)
//
// PlotEvent writes the same projections as PNG files with gonum/plot.
//
// HealthServer answers grpc.health.v1 checks on a separate listener.
package monitor
