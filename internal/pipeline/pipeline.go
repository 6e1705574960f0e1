// Package pipeline runs the producer/worker/writer construction shared
// by the distance and similarity engines: one producer tags units with
// monotonically increasing ids, a fixed worker pool computes results,
// and one writer restores producer order through a reorder buffer. The
// bounded channels give backpressure; the first failure anywhere cancels
// the rest and surfaces as the returned error.
package pipeline

import (
	"context"

	"golang.org/x/sync/errgroup"
)

type unit[T any] struct {
	id  uint64
	val T
}

// Run executes one pipeline.
//
// produce is called once; it calls emit for every unit, in order.
// work maps a unit to its result and may run on any of the workers.
// write receives results strictly in emit order.
//
// Each unit is processed at most once. Output for any worker count is
// identical to workers == 1.
func Run[I, O any](ctx context.Context, workers int,
	produce func(emit func(I) error) error,
	work func(I) (O, error),
	write func(O) error,
) error {
	if workers < 1 {
		workers = 1
	}
	g, ctx := errgroup.WithContext(ctx)

	in := make(chan unit[I], workers*2)
	out := make(chan unit[O], workers*2)

	g.Go(func() error {
		defer close(in)
		var next uint64
		return produce(func(v I) error {
			u := unit[I]{id: next, val: v}
			next++
			select {
			case in <- u:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		})
	})

	wg, wctx := errgroup.WithContext(ctx)
	for i := 0; i < workers; i++ {
		wg.Go(func() error {
			for u := range in {
				res, err := work(u.val)
				if err != nil {
					return err
				}
				select {
				case out <- unit[O]{id: u.id, val: res}:
				case <-wctx.Done():
					return wctx.Err()
				}
			}
			return nil
		})
	}
	g.Go(func() error {
		defer close(out)
		return wg.Wait()
	})

	g.Go(func() error {
		pending := make(map[uint64]O)
		var next uint64
		for u := range out {
			pending[u.id] = u.val
			for {
				res, ok := pending[next]
				if !ok {
					break
				}
				delete(pending, next)
				next++
				if err := write(res); err != nil {
					return err
				}
			}
		}
		return nil
	})

	return g.Wait()
}
