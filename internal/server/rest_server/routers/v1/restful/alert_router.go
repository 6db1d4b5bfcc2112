package restful

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/okieraised/sensor-watchdog/internal/api_response"
	"github.com/okieraised/sensor-watchdog/internal/constants"
	"github.com/okieraised/sensor-watchdog/internal/infrastructure/tracer_client"
	"github.com/okieraised/sensor-watchdog/internal/server/rest_server/services/v1/restful"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

type AlertRouter struct {
	svc    restful.IAlertService
	tracer trace.Tracer
}

func NewAlertRouter(svc restful.IAlertService) *AlertRouter {
	return &AlertRouter{
		svc:    svc,
		tracer: tracer_client.Tracer("alerts"),
	}
}

func (r *AlertRouter) Routes(engine *gin.RouterGroup) {
	routes := engine.Group("/alerts")
	routes.GET("", r.listAlerts)
	routes.GET("/:sensor", r.getAlert)
}

func (r *AlertRouter) listAlerts(ctx *gin.Context) {
	rootCtx, span := r.tracer.Start(ctx, ctx.Request.URL.Path, trace.WithAttributes(attribute.KeyValue{
		Key:   constants.APIFieldRequestID,
		Value: attribute.StringValue(ctx.GetString(constants.APIFieldRequestID)),
	}))
	defer span.End()

	resp := api_response.New[any](ctx)
	result, appErr := r.svc.ListAlerts(ctx, &restful.AlertInput{
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

func (r *AlertRouter) getAlert(ctx *gin.Context) {
	rootCtx, span := r.tracer.Start(ctx, ctx.Request.URL.Path, trace.WithAttributes(attribute.KeyValue{
		Key:   constants.APIFieldRequestID,
		Value: attribute.StringValue(ctx.GetString(constants.APIFieldRequestID)),
	}))
	defer span.End()

	resp := api_response.New[any](ctx)
	result, appErr := r.svc.GetAlert(ctx, &restful.AlertInput{
		TracerCtx: rootCtx,
		Tracer:    r.tracer,
		Sensor:    ctx.Param("sensor"),
	})
	if appErr != nil {
		resp.Populate(appErr.Code, appErr.Message, nil, 0)
		ctx.JSON(appErr.HTTPStatus, resp)
		return
	}

	resp.Populate(result.Code, result.Message, result.Data, result.Count)
	ctx.JSON(http.StatusOK, resp)
}
