package monitor

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
)

func startHealthServer(t *testing.T) (*HealthServer, healthpb.HealthClient) {
	t.Helper()
	hs := NewHealthServer("127.0.0.1:0")
	require.NoError(t, hs.Listen())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- hs.Start(ctx) }()
	t.Cleanup(func() {
		cancel()
		assert.NoError(t, <-done)
	})

	conn, err := grpc.NewClient(hs.Addr().String(), grpc.WithTransportCredentials(insecure.NewCredentials()))
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return hs, healthpb.NewHealthClient(conn)
}

func checkHealth(t *testing.T, client healthpb.HealthClient, service string) healthpb.HealthCheckResponse_ServingStatus {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	resp, err := client.Check(ctx, &healthpb.HealthCheckRequest{Service: service})
	require.NoError(t, err)
	return resp.GetStatus()
}

func TestHealthServerStartsNotServing(t *testing.T) {
	_, client := startHealthServer(t)

	for _, svc := range []string{"", ReconstructorService, StoreService} {
		assert.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, checkHealth(t, client, svc), "service %q", svc)
	}
}

func TestHealthServerSetServing(t *testing.T) {
	hs, client := startHealthServer(t)

	hs.SetServing(ReconstructorService, true)
	hs.SetServing("", true)
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, checkHealth(t, client, ""))
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, checkHealth(t, client, ReconstructorService))
	assert.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, checkHealth(t, client, StoreService))

	hs.SetServing(ReconstructorService, false)
	assert.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, checkHealth(t, client, ReconstructorService))
}

func TestHealthServerUnknownService(t *testing.T) {
	_, client := startHealthServer(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_, err := client.Check(ctx, &healthpb.HealthCheckRequest{Service: "crt.Unknown"})
	require.Error(t, err)
	assert.Equal(t, codes.NotFound, status.Code(err))
}

func TestHealthServerAddrBeforeListen(t *testing.T) {
	hs := NewHealthServer("127.0.0.1:0")
	assert.Nil(t, hs.Addr())
}
