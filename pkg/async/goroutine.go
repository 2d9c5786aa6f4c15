package async

import (
	"context"
	"time"

	"github.com/pulseboard/pulse/pkg/observability"
)

// SafeGo executes a function in a goroutine with context cancellation,
// panic recovery, timeout enforcement, and error logging.
//
// Use this instead of bare `go func()` for best-effort side effects so a
// panic in a subordinate path never crashes the serving process.
//
//	async.SafeGo(ctx, logger, 2*time.Second, "recent-cache push", func(ctx context.Context) error {
//	    return recent.Push(ctx, tenantID, ev)
//	})
func SafeGo(parentCtx context.Context, logger *observability.Logger, timeout time.Duration, taskName string, fn func(context.Context) error) {
	go func() {
		ctx, cancel := context.WithTimeout(parentCtx, timeout)
		defer cancel()

		defer observability.RecoverPanic(logger, taskName)

		if err := fn(ctx); err != nil {
			logger.WithError(err).WithField("task", taskName).Warn("background task failed")
		}
	}()
}

// SafeGoDetached is SafeGo with a context that survives the parent's
// cancellation. Use it for side effects that must outlive the request that
// triggered them, such as cache pushes and fan-out after the ingestion
// response has been written.
func SafeGoDetached(parentCtx context.Context, logger *observability.Logger, timeout time.Duration, taskName string, fn func(context.Context) error) {
	SafeGo(context.WithoutCancel(parentCtx), logger, timeout, taskName, fn)
}
