package monitor

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

// Health service names reported by HealthServer. The empty name is the
// overall status.
const (
	ReconstructorService = "crt.Reconstructor"
	StoreService         = "crt.Store"
)

// HealthServer reports readiness over the standard gRPC health protocol on
// its own listener. Every service starts NOT_SERVING.
type HealthServer struct {
	address string
	server  *grpc.Server
	health  *health.Server

	mu       sync.Mutex
	listener net.Listener
}

// NewHealthServer creates a health server for address. Nothing is bound
// until Listen or Start.
func NewHealthServer(address string) *HealthServer {
	hs := &HealthServer{
		address: address,
		server:  grpc.NewServer(),
		health:  health.NewServer(),
	}
	healthpb.RegisterHealthServer(hs.server, hs.health)
	reflection.Register(hs.server)

	for _, svc := range []string{"", ReconstructorService, StoreService} {
		hs.health.SetServingStatus(svc, healthpb.HealthCheckResponse_NOT_SERVING)
	}
	return hs
}

// SetServing updates the status of one service.
func (hs *HealthServer) SetServing(service string, serving bool) {
	status := healthpb.HealthCheckResponse_NOT_SERVING
	if serving {
		status = healthpb.HealthCheckResponse_SERVING
	}
	hs.health.SetServingStatus(service, status)
}

// Listen binds the server's address. Start calls it when needed.
func (hs *HealthServer) Listen() error {
	hs.mu.Lock()
	defer hs.mu.Unlock()
	if hs.listener != nil {
		return nil
	}

	lis, err := net.Listen("tcp", hs.address)
	if err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}
	hs.listener = lis
	return nil
}

// Addr returns the bound address, or nil before Listen.
func (hs *HealthServer) Addr() net.Addr {
	hs.mu.Lock()
	defer hs.mu.Unlock()
	if hs.listener == nil {
		return nil
	}
	return hs.listener.Addr()
}

// Start serves until ctx is cancelled, then marks every service
// NOT_SERVING and stops gracefully.
func (hs *HealthServer) Start(ctx context.Context) error {
	if err := hs.Listen(); err != nil {
		return err
	}
	hs.mu.Lock()
	lis := hs.listener
	hs.mu.Unlock()

	errCh := make(chan error, 1)
	go func() {
		logf("gRPC health server listening on %s", lis.Addr())
		if err := hs.server.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("gRPC health server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	hs.health.Shutdown()
	hs.server.GracefulStop()
	logf("gRPC health server stopped")
	return nil
}
