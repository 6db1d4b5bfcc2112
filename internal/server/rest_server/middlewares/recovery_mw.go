package middlewares

import (
	"fmt"
	"runtime/debug"

	"github.com/gin-gonic/gin"
	"github.com/okieraised/sensor-watchdog/internal/api_response"
	"github.com/okieraised/sensor-watchdog/internal/cerrors"
	"github.com/okieraised/sensor-watchdog/internal/infrastructure/log"
)

func RecoveryMW() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				resp := api_response.New[any](ctx)
				log.Default().Error(fmt.Sprintf("panic recovered: %v\n%s", err, debug.Stack()))
				resp.Populate(cerrors.ErrGenericInternalServer.Code, cerrors.ErrGenericInternalServer.Message, nil, 0)
				ctx.AbortWithStatusJSON(cerrors.ErrGenericInternalServer.HTTPStatus, resp)
				return
			}
		}()
		ctx.Next()
	}
}
