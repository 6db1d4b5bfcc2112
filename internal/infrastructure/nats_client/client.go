package nats_client

import (
	"context"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/okieraised/sensor-watchdog/internal/constants"
	"github.com/okieraised/sensor-watchdog/internal/infrastructure/log"
	"github.com/okieraised/sensor-watchdog/internal/utilities"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

type Options struct {
	Name          string
	ReconnectWait time.Duration
	MaxBackoff    time.Duration
	MaxAttempts   int
	OnConnection  func(connected bool)
}

type Option func(*Options)

func WithName(name string) Option {
	return func(o *Options) { o.Name = name }
}

func WithReconnectWait(d time.Duration) Option {
	return func(o *Options) { o.ReconnectWait = d }
}

// WithMaxAttempts bounds the initial connect loop; 0 retries until ctx is done.
func WithMaxAttempts(n int) Option {
	return func(o *Options) { o.MaxAttempts = n }
}

func WithMaxBackoff(d time.Duration) Option {
	return func(o *Options) { o.MaxBackoff = d }
}

// WithConnectionHandler is told about disconnects and reconnects.
func WithConnectionHandler(fn func(connected bool)) Option {
	return func(o *Options) { o.OnConnection = fn }
}

var (
	mu   sync.Mutex
	conn *nats.Conn
)

// NewNATSClient connects to url, retrying with exponential backoff until it succeeds,
// the attempt budget runs out, or ctx is done. Once connected the client reconnects forever.
func NewNATSClient(ctx context.Context, url string, optFns ...Option) error {
	mu.Lock()
	defer mu.Unlock()
	if conn != nil {
		return nil
	}

	conf := Options{
		Name:          constants.NatsDefaultClientName,
		ReconnectWait: constants.NatsDefaultReconnectWait,
		MaxBackoff:    constants.NatsMaxConnectBackoff,
		OnConnection:  func(bool) {},
	}
	for _, fn := range optFns {
		if fn != nil {
			fn(&conf)
		}
	}

	lg := log.Default().With(zap.String("nats_url", url))
	var nc *nats.Conn
	err := utilities.RetryWithBackoff(ctx, func() error {
		var cErr error
		nc, cErr = nats.Connect(
			url,
			nats.Name(conf.Name),
			nats.MaxReconnects(-1),
			nats.ReconnectWait(conf.ReconnectWait),
			nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
				lg.Warn("NATS disconnected", zap.Error(err))
				conf.OnConnection(false)
			}),
			nats.ReconnectHandler(func(_ *nats.Conn) {
				lg.Info("NATS reconnected")
				conf.OnConnection(true)
			}),
			nats.ClosedHandler(func(_ *nats.Conn) {
				lg.Info("NATS connection closed")
				conf.OnConnection(false)
			}),
		)
		return cErr
	}, conf.MaxAttempts, time.Second, conf.MaxBackoff, func(attempt int, err error, wait time.Duration) {
		lg.Error("Failed to connect to NATS",
			zap.Error(err),
			zap.Int("attempt", attempt),
			zap.Duration("retry_in", wait),
		)
	})
	if err != nil {
		return errors.Wrap(err, "failed to connect to nats")
	}

	conn = nc
	conf.OnConnection(true)
	return nil
}

func Client() *nats.Conn {
	mu.Lock()
	defer mu.Unlock()
	if conn == nil {
		panic("nats client not initialized; call NewNATSClient first")
	}
	return conn
}

func IsConnected() bool {
	mu.Lock()
	defer mu.Unlock()
	return conn != nil && conn.IsConnected()
}

// Close drains subscriptions and closes the connection.
func Close() error {
	mu.Lock()
	defer mu.Unlock()
	if conn == nil {
		return nil
	}
	err := conn.Drain()
	conn = nil
	return err
}
