package wait

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/ringflow/ringcore"
)

// WithTimeout wraps any Strategy with a deadline, returning
// ringcore.ErrTimeout instead of waiting forever (spec §4.4, "Timeout
// wrap").
type WithTimeout struct {
	Inner   Strategy
	Timeout time.Duration
}

func (w WithTimeout) WaitFor(ctx context.Context, target uint64, current func() uint64, shutdown *atomic.Bool) (uint64, error) {
	deadlineCtx, cancel := context.WithTimeout(withBackground(ctx), w.Timeout)
	defer cancel()

	c, err := w.Inner.WaitFor(deadlineCtx, target, current, shutdown)
	if err != nil && deadlineCtx.Err() != nil && ctxErrIsDeadline(deadlineCtx) {
		return 0, ringcore.ErrTimeout
	}
	return c, err
}

func withBackground(ctx context.Context) context.Context {
	if ctx == nil {
		return context.Background()
	}
	return ctx
}

func ctxErrIsDeadline(ctx context.Context) bool {
	return ctx.Err() == context.DeadlineExceeded
}
