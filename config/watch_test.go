package config

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatcherReloadsOnWrite(t *testing.T) {
	path := writeTempConfig(t, "env: dev\nlog:\n  level: info\n")

	var mu sync.Mutex
	var levels []string
	w := NewWatcher(path, func(cfg AppConfig) {
		mu.Lock()
		levels = append(levels, cfg.Log.Level)
		mu.Unlock()
	})
	w.Cooldown = 10 * time.Millisecond
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	require.Eventually(t, func() bool {
		_ = os.WriteFile(path, []byte("env: dev\nlog:\n  level: debug\n"), 0o644)
		mu.Lock()
		defer mu.Unlock()
		return len(levels) > 0 && levels[len(levels)-1] == "debug"
	}, 2*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("watcher did not stop")
	}
}

func TestWatcherReportsInvalidConfig(t *testing.T) {
	path := writeTempConfig(t, "env: dev\n")
	errs := make(chan error, 16)
	w := NewWatcher(path, func(AppConfig) { t.Error("invalid config must not be applied") })
	w.Cooldown = 0
	w.OnError = func(err error) {
		select {
		case errs <- err:
		default:
		}
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = w.Run(ctx) }()

	require.Eventually(t, func() bool {
		_ = os.WriteFile(path, []byte("env: dev\nsource:\n  kind: kafka\n"), 0o644)
		return len(errs) > 0
	}, 2*time.Second, 20*time.Millisecond)
	assert.Equal(t, 0, w.Reloads())
}

func TestWatcherCoalescesWithinCooldown(t *testing.T) {
	path := writeTempConfig(t, "env: dev\n")
	w := NewWatcher(path, nil)
	w.Cooldown = time.Hour
	w.lastReload = time.Now()
	assert.Greater(t, w.remainingCooldown(), 59*time.Minute)
	w.Cooldown = 0
	assert.LessOrEqual(t, w.remainingCooldown(), time.Duration(0))
}

func TestWatcherMissingDir(t *testing.T) {
	w := NewWatcher("/nonexistent-dir-for-test/cfg.yaml", nil)
	assert.Error(t, w.Run(context.Background()))
}
