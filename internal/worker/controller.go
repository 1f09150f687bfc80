package worker

import (
	"context"
	"fmt"

	"github.com/agnosticeng/panicsafe"
	slogctx "github.com/veqryn/slog-context"
	"golang.org/x/sync/errgroup"
)

type WorkerFactoryFunc func(ctx context.Context, i int) func() error
type OnExitFunc func()

// Controller runs numWorkers workers and waits for all of them. The first
// worker error cancels the context of the others and is returned. A worker
// panic is returned as an error.
func Controller(
	ctx context.Context,
	numWorkers int,
	f WorkerFactoryFunc,
	onExit OnExitFunc,
) error {
	defer func() {
		if onExit != nil {
			onExit()
		}
	}()

	if numWorkers <= 0 {
		numWorkers = 1
	}

	var group, groupctx = errgroup.WithContext(ctx)

	for i := 0; i < numWorkers; i++ {
		var workerCtx = slogctx.With(groupctx, "worker", i)

		group.Go(func() error {
			if err := panicsafe.Recover(f(workerCtx, i)); err != nil {
				return fmt.Errorf("worker %d: %w", i, err)
			}

			return nil
		})
	}

	return group.Wait()
}
