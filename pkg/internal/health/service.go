// Package health serves the GRPC health check service
// (https://godoc.org/google.golang.org/grpc/health/grpc_health_v1)
// for use with probes like grpc-health-probe.
package health

import (
	"context"
	"net"
	"time"

	"google.golang.org/grpc"
	rpc "google.golang.org/grpc/health/grpc_health_v1"
)

// CheckFn reports the current health.
type CheckFn func(ctx context.Context) (*rpc.HealthCheckResponse, error)

// Server is a health check server bound to a listener.
type Server struct {
	ln net.Listener
}

// New listens on addr. The server is started with Run.
func New(addr string) (*Server, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	return &Server{ln: ln}, nil
}

// Addr returns the address the server listens on.
func (s *Server) Addr() net.Addr { return s.ln.Addr() }

// Run serves health checks answered by checkFn until stop is closed.
func (s *Server) Run(stop <-chan struct{}, checkFn CheckFn) error {
	srv := grpc.NewServer(grpc.ConnectionTimeout(time.Second * 3))
	rpc.RegisterHealthServer(srv, &server{checkFn: checkFn})
	go func() {
		<-stop
		srv.Stop()
	}()
	return srv.Serve(s.ln)
}

// Status returns a CheckFn reporting SERVING while serving returns true.
func Status(serving func() bool) CheckFn {
	return func(context.Context) (*rpc.HealthCheckResponse, error) {
		status := rpc.HealthCheckResponse_NOT_SERVING
		if serving() {
			status = rpc.HealthCheckResponse_SERVING
		}
		return &rpc.HealthCheckResponse{Status: status}, nil
	}
}

type server struct {
	rpc.UnimplementedHealthServer
	checkFn CheckFn
}

func (s *server) Check(ctx context.Context, _ *rpc.HealthCheckRequest) (*rpc.HealthCheckResponse, error) {
	return s.checkFn(ctx)
}
