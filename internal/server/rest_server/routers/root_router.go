package routers

import (
	"github.com/gin-gonic/gin"
	"github.com/okieraised/sensor-watchdog/internal/server/rest_server/routers/v1/restful"
	"github.com/okieraised/sensor-watchdog/internal/server/rest_server/routers/v1/ws"
)

type RootRouter struct {
	appState *AppState
}

func NewRootRouter(appState *AppState) *RootRouter {
	return &RootRouter{
		appState: appState,
	}
}

func (rr *RootRouter) InitRouters(engine *gin.Engine) {
	// http
	rootAPIRouter := engine.Group("/api")
	v1Router := rootAPIRouter.Group("/v1")
	{
		v1State := rr.appState.GetV1RestState()

		healthcheckRouter := restful.NewHealthcheckRouter(v1State.GetHealthcheckService())
		healthcheckRouter.Routes(v1Router)

		sensorRouter := restful.NewSensorRouter(v1State.GetSensorService())
		sensorRouter.Routes(v1Router)

		alertRouter := restful.NewAlertRouter(v1State.GetAlertService())
		alertRouter.Routes(v1Router)
	}

	// websocket
	if wsState := rr.appState.GetWebsocketState(); wsState != nil && wsState.GetWebsocketService() != nil {
		rootWSRouter := engine.Group("/ws")
		websocketRouter := ws.NewWebsocketRouter(wsState.GetWebsocketService())
		websocketRouter.Routes(rootWSRouter)
	}
}
