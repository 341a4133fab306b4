package database

import (
	"context"
	"fmt"
	"net"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"voicelink_service/pkg/logger"
)

// HealthServer gRPC health service fed by a readiness probe
type HealthServer struct {
	server *grpc.Server
	health *health.Server
	name   string
}

// NewHealthServer create a grpc server that only exposes grpc.health.v1
func NewHealthServer(serviceName string) *HealthServer {
	s := grpc.NewServer()
	h := health.NewServer()
	healthpb.RegisterHealthServer(s, h)
	return &HealthServer{server: s, health: h, name: serviceName}
}

// Serve listen on addr, blocks until Stop
func (h *HealthServer) Serve(addr string) error {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("grpc health listen %s: %w", addr, err)
	}
	logger.Log.Info("gRPC health server listening", zap.String("addr", lis.Addr().String()))
	return h.server.Serve(lis)
}

// SetServing update status for the service name and the overall server
func (h *HealthServer) SetServing(serving bool) {
	status := healthpb.HealthCheckResponse_NOT_SERVING
	if serving {
		status = healthpb.HealthCheckResponse_SERVING
	}
	h.health.SetServingStatus("", status)
	h.health.SetServingStatus(h.name, status)
}

// Watch 每隔 interval 執行 probe 更新狀態，直到 ctx 結束
func (h *HealthServer) Watch(ctx context.Context, interval time.Duration, probe func(ctx context.Context) error) {
	check := func() {
		pctx, cancel := context.WithTimeout(ctx, interval/2)
		defer cancel()
		err := probe(pctx)
		if err != nil {
			logger.Log.Warn("readiness probe failed", zap.Error(err))
		}
		h.SetServing(err == nil)
	}

	check()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			check()
		}
	}
}

// Stop graceful stop
func (h *HealthServer) Stop() {
	h.health.Shutdown()
	h.server.GracefulStop()
}
