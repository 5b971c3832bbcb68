package config

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultCooldown 两次重载之间的最小间隔。
const DefaultCooldown = time.Second

// Watcher 基于 fsnotify 监听配置文件，变化后重新加载并回调。
// 冷却期内的变化不会丢失，而是在冷却结束时合并为一次重载。
type Watcher struct {
	Path     string
	Cooldown time.Duration
	OnReload func(AppConfig)
	OnError  func(error)

	mu         sync.Mutex
	lastReload time.Time
	reloads    int
}

// NewWatcher 创建监听器。
func NewWatcher(path string, onReload func(AppConfig)) *Watcher {
	return &Watcher{Path: path, Cooldown: DefaultCooldown, OnReload: onReload}
}

// Reloads 成功重载次数。
func (w *Watcher) Reloads() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.reloads
}

// Run 阻塞直到 ctx 取消。监听所在目录，兼容编辑器的替换式保存。
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer fw.Close()
	target := filepath.Clean(w.Path)
	if err := fw.Add(filepath.Dir(target)); err != nil {
		return fmt.Errorf("watch config dir: %w", err)
	}

	var (
		timer   *time.Timer
		timerC  <-chan time.Time
		pending bool
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != target {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
				continue
			}
			if pending {
				continue
			}
			if wait := w.remainingCooldown(); wait > 0 {
				pending = true
				timer = time.NewTimer(wait)
				timerC = timer.C
				continue
			}
			w.reload()

		case <-timerC:
			pending = false
			timerC = nil
			w.reload()

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.fail(fmt.Errorf("watcher: %w", err))
		}
	}
}

func (w *Watcher) remainingCooldown() time.Duration {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.lastReload.IsZero() {
		return 0
	}
	return w.Cooldown - time.Since(w.lastReload)
}

func (w *Watcher) reload() {
	cfg, err := LoadWithEnvOverrides(w.Path)
	w.mu.Lock()
	w.lastReload = time.Now()
	if err == nil {
		w.reloads++
	}
	w.mu.Unlock()
	if err != nil {
		w.fail(fmt.Errorf("reload config: %w", err))
		return
	}
	if w.OnReload != nil {
		w.OnReload(cfg)
	}
}

func (w *Watcher) fail(err error) {
	if w.OnError != nil {
		w.OnError(err)
	}
}
