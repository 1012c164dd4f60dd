package lifecycle

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestIsShuttingDown_DefaultFalse(t *testing.T) {
	SetShuttingDown(false)
	if IsShuttingDown() {
		t.Error("IsShuttingDown() = true, want false by default")
	}
}

func TestSetShuttingDown_Toggle(t *testing.T) {
	SetShuttingDown(true)
	if !IsShuttingDown() {
		t.Error("IsShuttingDown() = false after SetShuttingDown(true), want true")
	}
	SetShuttingDown(false)
	if IsShuttingDown() {
		t.Error("IsShuttingDown() = true after SetShuttingDown(false), want false")
	}
}

// TestShutdown_RunsStepsInOrder verifies every step runs in order even after a failure.
func TestShutdown_RunsStepsInOrder(t *testing.T) {
	defer SetShuttingDown(false)
	core, logs := observer.New(zapcore.DebugLevel)
	var order []string
	step := func(name string, err error) Step {
		return Step{Name: name, Run: func(ctx context.Context) error {
			if !IsShuttingDown() {
				t.Errorf("step %s ran before the shutdown flag was set", name)
			}
			order = append(order, name)
			return err
		}}
	}

	failed := Shutdown(context.Background(), zap.New(core),
		step("http", nil),
		step("drain", errors.New("2 requests still running")),
		step("storage", nil),
	)

	if failed != 1 {
		t.Errorf("failed = %d, want 1", failed)
	}
	if got := len(order); got != 3 || order[0] != "http" || order[1] != "drain" || order[2] != "storage" {
		t.Errorf("order = %v, want [http drain storage]", order)
	}
	errLogs := logs.FilterMessage("shutdown step failed").All()
	if len(errLogs) != 1 || errLogs[0].ContextMap()["step"] != "drain" {
		t.Errorf("failure logs = %v, want one for drain", errLogs)
	}
}

// TestShutdown_StepTimeout bounds a step that blocks on its context.
func TestShutdown_StepTimeout(t *testing.T) {
	defer SetShuttingDown(false)
	start := time.Now()

	failed := Shutdown(context.Background(), nil, Step{
		Name:    "slow",
		Timeout: 20 * time.Millisecond,
		Run: func(ctx context.Context) error {
			<-ctx.Done()
			return ctx.Err()
		},
	})

	if failed != 1 {
		t.Errorf("failed = %d, want 1", failed)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("Shutdown took %v, want the step cut off near 20ms", elapsed)
	}
}
