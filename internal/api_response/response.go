package api_response

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/okieraised/sensor-watchdog/internal/constants"
)

type Response[T any] struct {
	RequestID     string `json:"request_id"`
	Code          string `json:"code"`
	Message       string `json:"message"`
	ServerTime    int64  `json:"server_time"`
	ServerTimeISO string `json:"server_time_iso"`
	Count         int    `json:"count,omitempty"`
	Data          T      `json:"data"`
}

// BaseOutput is what services hand back to routers.
type BaseOutput struct {
	Code    string
	Message string
	Data    any
	Count   int
}

func New[T any](ctx context.Context) *Response[T] {
	now := time.Now()
	return &Response[T]{
		RequestID:     requestIDFromContext(ctx),
		ServerTime:    now.Unix(),
		ServerTimeISO: now.Format(time.RFC3339),
	}
}

// Populate fills the body. A zero count is omitted from the JSON.
func (r *Response[T]) Populate(code, message string, data T, count int) *Response[T] {
	r.Code = code
	r.Message = message
	r.Data = data
	r.Count = count
	return r
}

func requestIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return uuid.New().String()
	}

	if v := ctx.Value(constants.APIFieldRequestID); v != nil {
		return fmt.Sprint(v)
	}
	return uuid.New().String()
}
