package client

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/singleflight"
)

// errProducerPanic is returned to every subscriber of a call whose producer panicked.
var errProducerPanic = errors.New("coalesced call panicked")

// coalescer keeps at most one producer running per key. Callers arriving
// while it runs subscribe to its result instead of starting their own.
//
// The producer runs detached from the cancellation of whichever caller
// started it, so one subscriber giving up never aborts the shared call
// for the others. A subscriber whose ctx ends stops waiting and gets
// ErrorClassCancelled; the call still completes and fills the cache.
type coalescer[V any] struct {
	group singleflight.Group
}

// Do runs produce for key unless a call for key is already in flight.
// shared is true when the result was delivered to more than one caller.
func (c *coalescer[V]) Do(ctx context.Context, key string, produce func(context.Context) (V, error)) (v V, shared bool, err error) {
	detached := context.WithoutCancel(ctx)

	// singleflight removes the key exactly once when produce returns,
	// before results are delivered. A producer panic reaches every
	// subscriber as an error matching errProducerPanic.
	ch := c.group.DoChan(key, func() (val any, err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("%w: %v", errProducerPanic, r)
			}
		}()
		return produce(detached)
	})

	select {
	case res := <-ch:
		if res.Shared {
			coalescedTotal.Inc()
		}
		if res.Err != nil {
			return v, res.Shared, res.Err
		}
		return res.Val.(V), res.Shared, nil
	case <-ctx.Done():
		return v, false, &RequestError{
			Class: ErrorClassCancelled,
			Err:   ctx.Err(),
		}
	}
}
