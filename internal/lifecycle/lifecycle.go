// Package lifecycle holds the process shutdown flag and runs the ordered shutdown sequence.
package lifecycle

import (
	"context"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

var shuttingDown atomic.Bool

// SetShuttingDown sets the shutdown flag. Health returns 503 shutting-down while true.
func SetShuttingDown(v bool) {
	shuttingDown.Store(v)
}

// IsShuttingDown returns true if the process is draining and should not receive new traffic.
func IsShuttingDown() bool {
	return shuttingDown.Load()
}

// Step is one stage of shutdown. Timeout bounds Run; zero means no per-step deadline.
type Step struct {
	Name    string
	Timeout time.Duration
	Run     func(ctx context.Context) error
}

// Shutdown sets the shutdown flag and runs steps in order. A failing step is logged and
// the remaining steps still run. Returns the number of failed steps.
func Shutdown(ctx context.Context, logger *zap.Logger, steps ...Step) int {
	if logger == nil {
		logger = zap.NewNop()
	}
	SetShuttingDown(true)
	failed := 0
	for _, step := range steps {
		stepCtx, cancel := ctx, context.CancelFunc(func() {})
		if step.Timeout > 0 {
			stepCtx, cancel = context.WithTimeout(ctx, step.Timeout)
		}
		start := time.Now()
		err := step.Run(stepCtx)
		cancel()
		if err != nil {
			failed++
			logger.Error("shutdown step failed", zap.String("step", step.Name), zap.Error(err))
			continue
		}
		logger.Debug("shutdown step done", zap.String("step", step.Name), zap.Duration("took", time.Since(start)))
	}
	return failed
}
