package restful

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/okieraised/sensor-watchdog/internal/agent/sensor_watch"
	"github.com/okieraised/sensor-watchdog/internal/agent/state_store"
	"github.com/okieraised/sensor-watchdog/internal/api_response"
	"github.com/okieraised/sensor-watchdog/internal/cerrors"
	"github.com/okieraised/sensor-watchdog/internal/constants"
	"github.com/okieraised/sensor-watchdog/internal/infrastructure/log"
	"github.com/pkg/errors"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// SensorReader is the read model of the sensor state store.
type SensorReader interface {
	Sensors() []sensor_watch.SensorView
	Sensor(sensor string) (sensor_watch.SensorView, error)
}

type ISensorService interface {
	ListSensors(ctx *gin.Context, input *SensorInput) (*api_response.BaseOutput, *cerrors.AppError)
	GetSensor(ctx *gin.Context, input *SensorInput) (*api_response.BaseOutput, *cerrors.AppError)
}

type SensorService struct {
	reader SensorReader
	logger *log.Logger
}

func NewSensorService(options ...func(*SensorService)) *SensorService {
	svc := &SensorService{}
	for _, opt := range options {
		opt(svc)
	}
	if svc.logger == nil {
		svc.logger = log.Default()
	}
	return svc
}

func WithSensorReader(reader SensorReader) func(*SensorService) {
	return func(s *SensorService) {
		s.reader = reader
	}
}

func WithSensorLogger(logger *log.Logger) func(*SensorService) {
	return func(s *SensorService) {
		s.logger = logger
	}
}

type SensorInput struct {
	TracerCtx context.Context
	Tracer    trace.Tracer
	Sensor    string
}

func (svc *SensorService) ListSensors(ctx *gin.Context, input *SensorInput) (*api_response.BaseOutput, *cerrors.AppError) {
	_, span := input.Tracer.Start(input.TracerCtx, "list-sensors")
	defer span.End()

	sensors := svc.reader.Sensors()
	return &api_response.BaseOutput{
		Code:    cerrors.OK.Code,
		Message: cerrors.OK.Message,
		Data:    sensors,
		Count:   len(sensors),
	}, nil
}

func (svc *SensorService) GetSensor(ctx *gin.Context, input *SensorInput) (*api_response.BaseOutput, *cerrors.AppError) {
	_, span := input.Tracer.Start(input.TracerCtx, "get-sensor")
	defer span.End()

	view, err := svc.reader.Sensor(input.Sensor)
	if err != nil {
		if errors.Is(err, state_store.ErrNotFound) {
			return nil, cerrors.ErrSensorNotFound.WithCause(err)
		}
		svc.logger.Error("Failed to read sensor",
			zap.String(constants.APIFieldRequestID, ctx.GetString(constants.APIFieldRequestID)),
			zap.String("sensor", input.Sensor),
			zap.Error(err),
		)
		return nil, cerrors.ErrGenericInternalServer.WithCause(err)
	}

	return &api_response.BaseOutput{
		Code:    cerrors.OK.Code,
		Message: cerrors.OK.Message,
		Data:    view,
	}, nil
}
