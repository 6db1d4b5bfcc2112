package local_cache

import (
	"sync"

	"github.com/dgraph-io/ristretto"
	"github.com/pkg/errors"
)

type Options struct {
	NumCounters            int64 // number of counters (10x your max items is a good start)
	MaxCost                int64 // total cost capacity (sum of item costs)
	BufferItems            int64 // number of keys per Get buffer
	TtlTickerDurationInSec int64
	IgnoreInternalCost     bool
	Metrics                bool
	OnEvict                func(item *ristretto.Item)
	OnReject               func(item *ristretto.Item)
	OnExit                 func(val interface{})
	KeyToHash              func(key interface{}) (uint64, uint64)
	Cost                   func(value interface{}) int64
}

type Option func(*Options)

func WithNumCounters(n int64) Option {
	return func(o *Options) {
		o.NumCounters = n
	}
}

func WithMaxCost(c int64) Option {
	return func(o *Options) {
		o.MaxCost = c
	}
}

func WithBufferItems(n int64) Option {
	return func(o *Options) {
		o.BufferItems = n
	}
}

func WithTtlTickerDurationInSec(d int64) Option {
	return func(o *Options) {
		o.TtlTickerDurationInSec = d
	}
}

func WithIgnoreInternalCost(ignore bool) Option {
	return func(o *Options) {
		o.IgnoreInternalCost = ignore
	}
}

// defaultOptions set default values
func defaultOptions() Options {
	return Options{
		NumCounters: 100_000,
		MaxCost:     10_000,
		BufferItems: 64,
		Metrics:     false,
	}
}

var (
	once    sync.Once
	cache   *ristretto.Cache
	initErr error
)

// New builds an independent cache.
func New(opts ...Option) (*ristretto.Cache, error) {
	conf := defaultOptions()
	for _, fn := range opts {
		fn(&conf)
	}

	cfg := &ristretto.Config{
		NumCounters:            conf.NumCounters,
		MaxCost:                conf.MaxCost,
		BufferItems:            conf.BufferItems,
		Metrics:                conf.Metrics,
		OnEvict:                conf.OnEvict,
		OnReject:               conf.OnReject,
		OnExit:                 conf.OnExit,
		KeyToHash:              conf.KeyToHash,
		Cost:                   conf.Cost,
		IgnoreInternalCost:     conf.IgnoreInternalCost,
		TtlTickerDurationInSec: conf.TtlTickerDurationInSec,
	}
	c, err := ristretto.NewCache(cfg)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create local cache")
	}
	return c, nil
}

// NewLocalCache builds the process-wide cache. The first call fixes config.
func NewLocalCache(opts ...Option) error {
	once.Do(func() {
		cache, initErr = New(opts...)
	})
	return initErr
}

func Cache() *ristretto.Cache {
	if cache == nil {
		panic("local cache not initialized; call NewLocalCache first")
	}
	return cache
}
