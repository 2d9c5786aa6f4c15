package async

import (
	"context"
	"errors"
	"io"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pulseboard/pulse/pkg/observability"
)

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met in time")
}

func TestSafeGoRuns(t *testing.T) {
	logger := observability.NewLogger(observability.ErrorLevel, io.Discard)
	var ran atomic.Bool
	SafeGo(context.Background(), logger, time.Second, "test", func(ctx context.Context) error {
		ran.Store(true)
		return nil
	})
	waitFor(t, ran.Load)
}

func TestSafeGoSwallowsPanicsAndErrors(t *testing.T) {
	logger := observability.NewLogger(observability.ErrorLevel, io.Discard)
	var after atomic.Bool

	SafeGo(context.Background(), logger, time.Second, "panics", func(ctx context.Context) error {
		panic("boom")
	})
	SafeGo(context.Background(), logger, time.Second, "errors", func(ctx context.Context) error {
		return errors.New("fail")
	})
	SafeGo(context.Background(), logger, time.Second, "after", func(ctx context.Context) error {
		after.Store(true)
		return nil
	})
	waitFor(t, after.Load)
}

func TestSafeGoDetachedSurvivesParentCancel(t *testing.T) {
	logger := observability.NewLogger(observability.ErrorLevel, io.Discard)
	parent, cancel := context.WithCancel(context.Background())
	cancel()

	var sawLiveCtx atomic.Bool
	SafeGoDetached(parent, logger, time.Second, "detached", func(ctx context.Context) error {
		sawLiveCtx.Store(ctx.Err() == nil)
		return nil
	})
	waitFor(t, sawLiveCtx.Load)
}

func TestSafeGoTimeoutPropagates(t *testing.T) {
	logger := observability.NewLogger(observability.ErrorLevel, io.Discard)
	var expired atomic.Bool
	SafeGo(context.Background(), logger, 10*time.Millisecond, "slow", func(ctx context.Context) error {
		<-ctx.Done()
		expired.Store(true)
		return ctx.Err()
	})
	waitFor(t, expired.Load)
}
