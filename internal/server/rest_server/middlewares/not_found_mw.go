package middlewares

import (
	"github.com/gin-gonic/gin"
	"github.com/okieraised/sensor-watchdog/internal/api_response"
	"github.com/okieraised/sensor-watchdog/internal/cerrors"
)

func NoRouteMW() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		resp := api_response.New[any](ctx)
		resp.Populate(cerrors.ErrGenericUnknownAPIPath.Code, cerrors.ErrGenericUnknownAPIPath.Message, nil, 0)
		ctx.AbortWithStatusJSON(cerrors.ErrGenericUnknownAPIPath.HTTPStatus, resp)
		return
	}
}
