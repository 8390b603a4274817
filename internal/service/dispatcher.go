package service

import (
	"context"
	"errors"
	"sync/atomic"

	"github.com/alitto/pond/v2"
	"go.uber.org/zap"
)

// Report summarizes one fan-out batch.
type Report struct {
	Processed int64
	Failed    int64
}

// UpdateList applies fn to every id, on the caller's goroutine when threads
// is below two, otherwise over a bounded worker pool. One failing id is
// counted and logged, the rest of the batch keeps going; only cancellation
// stops the batch early.
func UpdateList(ctx context.Context, ids []uint64, threads int, log *zap.Logger, fn func(context.Context, uint64) error) Report {
	var processed, failed atomic.Int64

	run := func(id uint64) {
		if err := fn(ctx, id); err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			failed.Add(1)
			log.Warn("entity update failed", zap.Uint64("id", id), zap.Error(err))
		}
		processed.Add(1)
	}

	if threads < 2 {
		for _, id := range ids {
			if ctx.Err() != nil {
				break
			}
			run(id)
		}
		return Report{Processed: processed.Load(), Failed: failed.Load()}
	}

	pool := pond.NewPool(threads, pond.WithContext(ctx))
	group := pool.NewGroup()
	for _, id := range ids {
		id := id
		group.Submit(func() {
			run(id)
		})
	}
	if err := group.Wait(); err != nil &&
		!errors.Is(err, context.Canceled) && !errors.Is(err, pond.ErrGroupStopped) {
		log.Warn("update batch ended early", zap.Error(err))
	}
	pool.StopAndWait()
	return Report{Processed: processed.Load(), Failed: failed.Load()}
}
