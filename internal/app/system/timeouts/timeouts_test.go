package timeouts_test

import (
	"context"
	"testing"
	"time"

	"github.com/dalemusser/depensify/internal/app/system/timeouts"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestDefaults(t *testing.T) {
	timeouts.Reset()
	if timeouts.Ping() != timeouts.DefaultPing {
		t.Errorf("Ping: got %v", timeouts.Ping())
	}
	if timeouts.Short() != timeouts.DefaultShort {
		t.Errorf("Short: got %v", timeouts.Short())
	}
	if timeouts.Medium() != timeouts.DefaultMedium {
		t.Errorf("Medium: got %v", timeouts.Medium())
	}
	if timeouts.Long() != timeouts.DefaultLong {
		t.Errorf("Long: got %v", timeouts.Long())
	}
}

func TestConfigure_IgnoresZero(t *testing.T) {
	defer timeouts.Reset()

	timeouts.Configure(timeouts.Config{Short: 7 * time.Second})

	cur := timeouts.Current()
	if cur.Short != 7*time.Second {
		t.Errorf("Short: got %v, want 7s", cur.Short)
	}
	if cur.Medium != timeouts.DefaultMedium {
		t.Errorf("Medium should keep default, got %v", cur.Medium)
	}
}

func TestWithTimeout_LogsOnDeadline(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	log := zap.New(core)

	ctx, cancel := timeouts.WithTimeout(context.Background(), time.Millisecond, log, "slow op")
	<-ctx.Done()
	cancel()

	if logs.Len() != 1 {
		t.Fatalf("expected 1 warning, got %d", logs.Len())
	}
	if got := logs.All()[0].ContextMap()["operation"]; got != "slow op" {
		t.Errorf("operation field: got %v", got)
	}
}

func TestWithTimeout_SilentWhenFast(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)

	_, cancel := timeouts.WithTimeout(context.Background(), time.Minute, zap.New(core), "fast op")
	cancel()

	if logs.Len() != 0 {
		t.Errorf("expected no warnings, got %d", logs.Len())
	}
}
