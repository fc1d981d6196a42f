package health

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/atomic"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	rpc "google.golang.org/grpc/health/grpc_health_v1"
)

func TestServer(t *testing.T) {
	s, err := New("127.0.0.1:0")
	require.NoError(t, err)

	var serving atomic.Bool
	stop := make(chan struct{})
	done := make(chan error, 1)
	go func() { done <- s.Run(stop, Status(serving.Load)) }()

	conn, err := grpc.NewClient(s.Addr().String(), grpc.WithTransportCredentials(insecure.NewCredentials()))
	require.NoError(t, err)
	defer conn.Close()
	client := rpc.NewHealthClient(conn)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	res, err := client.Check(ctx, &rpc.HealthCheckRequest{})
	require.NoError(t, err)
	assert.Equal(t, rpc.HealthCheckResponse_NOT_SERVING, res.GetStatus())

	serving.Store(true)
	res, err = client.Check(ctx, &rpc.HealthCheckRequest{})
	require.NoError(t, err)
	assert.Equal(t, rpc.HealthCheckResponse_SERVING, res.GetStatus())

	close(stop)
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}
