package restful

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/okieraised/sensor-watchdog/internal/api_response"
	"github.com/okieraised/sensor-watchdog/internal/constants"
	"github.com/okieraised/sensor-watchdog/internal/infrastructure/log"
	"github.com/okieraised/sensor-watchdog/internal/infrastructure/tracer_client"
	"github.com/okieraised/sensor-watchdog/internal/server/rest_server/services/v1/restful"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type SensorRouter struct {
	svc    restful.ISensorService
	logger *log.Logger
	tracer trace.Tracer
}

func NewSensorRouter(svc restful.ISensorService) *SensorRouter {
	return &SensorRouter{
		svc:    svc,
		logger: log.Default(),
		tracer: tracer_client.Tracer("sensors"),
	}
}

func (r *SensorRouter) Routes(engine *gin.RouterGroup) {
	routes := engine.Group("/sensors")
	routes.GET("", r.listSensors)
	routes.GET("/:sensor", r.getSensor)
}

func (r *SensorRouter) listSensors(ctx *gin.Context) {
	rootCtx, span := r.tracer.Start(ctx, ctx.Request.URL.Path, trace.WithAttributes(attribute.KeyValue{
		Key:   constants.APIFieldRequestID,
		Value: attribute.StringValue(ctx.GetString(constants.APIFieldRequestID)),
	}))
	defer span.End()

	resp := api_response.New[any](ctx)
	result, appErr := r.svc.ListSensors(ctx, &restful.SensorInput{
		TracerCtx: rootCtx,
		Tracer:    r.tracer,
	})
	if appErr != nil {
		resp.Populate(appErr.Code, appErr.Message, nil, 0)
		ctx.JSON(appErr.HTTPStatus, resp)
		return
	}

	resp.Populate(result.Code, result.Message, result.Data, result.Count)
	ctx.JSON(http.StatusOK, resp)
}

func (r *SensorRouter) getSensor(ctx *gin.Context) {
	rootCtx, span := r.tracer.Start(ctx, ctx.Request.URL.Path, trace.WithAttributes(attribute.KeyValue{
		Key:   constants.APIFieldRequestID,
		Value: attribute.StringValue(ctx.GetString(constants.APIFieldRequestID)),
	}))
	defer span.End()

	resp := api_response.New[any](ctx)
	sensor := ctx.Param("sensor")
	result, appErr := r.svc.GetSensor(ctx, &restful.SensorInput{
		TracerCtx: rootCtx,
		Tracer:    r.tracer,
		Sensor:    sensor,
	})
	if appErr != nil {
		r.logger.Debug("Sensor lookup failed",
			zap.String(constants.APIFieldRequestID, ctx.GetString(constants.APIFieldRequestID)),
			zap.String("sensor", sensor),
			zap.String("code", appErr.Code),
		)
		resp.Populate(appErr.Code, appErr.Message, nil, 0)
		ctx.JSON(appErr.HTTPStatus, resp)
		return
	}

	resp.Populate(result.Code, result.Message, result.Data, 0)
	ctx.JSON(http.StatusOK, resp)
}
