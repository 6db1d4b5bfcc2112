package ws

import (
	"github.com/gin-gonic/gin"
	"github.com/okieraised/sensor-watchdog/internal/api_response"
	"github.com/okieraised/sensor-watchdog/internal/constants"
	"github.com/okieraised/sensor-watchdog/internal/infrastructure/log"
	"github.com/okieraised/sensor-watchdog/internal/infrastructure/tracer_client"
	"github.com/okieraised/sensor-watchdog/internal/server/rest_server/services/v1/ws"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type WebsocketRouter struct {
	svc    ws.IWebsocketService
	logger *log.Logger
	tracer trace.Tracer
}

func NewWebsocketRouter(svc ws.IWebsocketService) *WebsocketRouter {
	return &WebsocketRouter{
		svc:    svc,
		logger: log.Default(),
		tracer: tracer_client.Tracer("websocket_router"),
	}
}

func (r *WebsocketRouter) Routes(engine *gin.RouterGroup) {
	routes := engine.Group("")
	routes.GET("", r.exchange)
}

func (r *WebsocketRouter) exchange(ctx *gin.Context) {
	rootCtx, span := r.tracer.Start(ctx, ctx.Request.URL.Path, trace.WithAttributes(attribute.KeyValue{
		Key:   constants.APIFieldRequestID,
		Value: attribute.StringValue(ctx.GetString(constants.APIFieldRequestID)),
	}))
	defer span.End()

	r.logger.With(
		zap.String(constants.APIFieldRequestID, ctx.GetString(constants.APIFieldRequestID)),
	).Debug("Received new websocket handshake for the alert stream")

	_, cSpan := r.tracer.Start(rootCtx, "handler")
	defer cSpan.End()
	_, err := r.svc.Exchange(ctx, rootCtx, r.tracer)
	if err != nil {
		r.logger.Error(err.Error())
		// a failed upgrade has already replied
		if ctx.Writer.Written() {
			return
		}
		resp := api_response.New[any](ctx)
		resp.Populate(err.Code, err.Message, nil, 0)
		ctx.JSON(err.HTTPStatus, resp)
	}
}
