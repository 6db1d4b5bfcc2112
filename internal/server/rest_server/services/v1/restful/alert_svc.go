package restful

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/okieraised/sensor-watchdog/internal/agent/sensor_watch"
	"github.com/okieraised/sensor-watchdog/internal/api_response"
	"github.com/okieraised/sensor-watchdog/internal/cerrors"
	"github.com/pkg/errors"
	"go.opentelemetry.io/otel/trace"
)

// AlertReader is the read model of the alert rules.
type AlertReader interface {
	Alerts() []sensor_watch.AlertView
	Alert(sensor string) ([]sensor_watch.AlertView, error)
}

type IAlertService interface {
	ListAlerts(ctx *gin.Context, input *AlertInput) (*api_response.BaseOutput, *cerrors.AppError)
	GetAlert(ctx *gin.Context, input *AlertInput) (*api_response.BaseOutput, *cerrors.AppError)
}

type AlertService struct {
	reader AlertReader
}

func NewAlertService(options ...func(*AlertService)) *AlertService {
	svc := &AlertService{}
	for _, opt := range options {
		opt(svc)
	}
	return svc
}

func WithAlertReader(reader AlertReader) func(*AlertService) {
	return func(s *AlertService) {
		s.reader = reader
	}
}

type AlertInput struct {
	TracerCtx context.Context
	Tracer    trace.Tracer
	Sensor    string
}

func (svc *AlertService) ListAlerts(_ *gin.Context, input *AlertInput) (*api_response.BaseOutput, *cerrors.AppError) {
	_, span := input.Tracer.Start(input.TracerCtx, "list-alerts")
	defer span.End()

	alerts := svc.reader.Alerts()
	return &api_response.BaseOutput{
		Code:    cerrors.OK.Code,
		Message: cerrors.OK.Message,
		Data:    alerts,
		Count:   len(alerts),
	}, nil
}

func (svc *AlertService) GetAlert(_ *gin.Context, input *AlertInput) (*api_response.BaseOutput, *cerrors.AppError) {
	_, span := input.Tracer.Start(input.TracerCtx, "get-alert")
	defer span.End()

	alerts, err := svc.reader.Alert(input.Sensor)
	if err != nil {
		if errors.Is(err, sensor_watch.ErrNoRule) {
			return nil, cerrors.ErrAlertNotFound.WithCause(err)
		}
		return nil, cerrors.ErrGenericInternalServer.WithCause(err)
	}

	return &api_response.BaseOutput{
		Code:    cerrors.OK.Code,
		Message: cerrors.OK.Message,
		Data:    alerts,
		Count:   len(alerts),
	}, nil
}
