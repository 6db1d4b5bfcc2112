package grpc_server

import (
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// ServiceName is the health service name reported alongside the overall ("") status.
const ServiceName = "sensor_watchdog.SensorWatch"

// Health publishes the watchdog serving status over the standard gRPC health protocol.
type Health struct {
	hs *health.Server
}

func NewHealth() *Health {
	h := &Health{hs: health.NewServer()}
	h.SetServing(false)
	return h
}

func (h *Health) Register(s *grpc.Server) {
	healthpb.RegisterHealthServer(s, h.hs)
}

// SetServing reports SERVING while the sensor transport is connected and NOT_SERVING otherwise.
func (h *Health) SetServing(serving bool) {
	st := healthpb.HealthCheckResponse_NOT_SERVING
	if serving {
		st = healthpb.HealthCheckResponse_SERVING
	}
	h.hs.SetServingStatus("", st)
	h.hs.SetServingStatus(ServiceName, st)
}

// Shutdown flips every service to NOT_SERVING and ignores later updates.
func (h *Health) Shutdown() {
	h.hs.Shutdown()
}
