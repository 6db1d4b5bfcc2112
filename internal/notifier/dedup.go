package notifier

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/dgraph-io/ristretto"
)

// Dedup suppresses an event identical in kind, sensor and value to one the same
// sink delivered within window. Suppressed events return nil. Keys carry the sink
// name so several Dedup values can share one cache.
type Dedup struct {
	next   Notifier
	cache  *ristretto.Cache
	window time.Duration

	mu sync.Mutex
}

func NewDedup(next Notifier, cache *ristretto.Cache, window time.Duration) Notifier {
	if window <= 0 || cache == nil {
		return next
	}
	return &Dedup{next: next, cache: cache, window: window}
}

func (d *Dedup) Name() string { return d.next.Name() }

func (d *Dedup) Notify(ctx context.Context, evt Event) error {
	key := fmt.Sprintf("notify|%s|%s|%s|%v", d.next.Name(), evt.Kind, evt.Sensor, evt.Value)

	d.mu.Lock()
	if _, seen := d.cache.Get(key); seen {
		d.mu.Unlock()
		return nil
	}
	d.cache.SetWithTTL(key, struct{}{}, 1, d.window)
	d.cache.Wait()
	d.mu.Unlock()

	return d.next.Notify(ctx, evt)
}
