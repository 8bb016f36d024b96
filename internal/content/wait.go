package content

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// Wait suspends until op completes or ctx is done. It returns ctx.Err() on
// cancellation and nil otherwise; the operation's own failure stays on op.
func Wait(ctx context.Context, op Operation) error {
	select {
	case <-op.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// WaitAll suspends until every operation completes or ctx is done. Operations
// may complete in any order. Like Wait it reports only cancellation.
func WaitAll[T Operation](ctx context.Context, ops ...T) error {
	var g errgroup.Group
	for _, op := range ops {
		g.Go(func() error {
			return Wait(ctx, op)
		})
	}
	return g.Wait()
}
