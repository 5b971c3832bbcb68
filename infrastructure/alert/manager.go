// Package alert 把控制器上报的失败事件转换为限流后的告警。
package alert

import (
	"fmt"
	"sync"
	"time"
)

// Level 告警级别
type Level string

const (
	LevelInfo     Level = "INFO"
	LevelWarning  Level = "WARNING"
	LevelError    Level = "ERROR"
	LevelCritical Level = "CRITICAL"
)

// Alert 告警信息
type Alert struct {
	Level     Level
	Key       string // 限流键，空时使用 Level:Message
	Message   string
	Timestamp time.Time
	Fields    map[string]interface{}
}

// Channel 告警通道接口
type Channel interface {
	Send(alert Alert) error
	Name() string
}

// Throttler 告警限流器：同一 key 在 interval 内只放行一次
type Throttler struct {
	lastSent map[string]time.Time
	interval time.Duration
	now      func() time.Time
	mu       sync.Mutex
}

// NewThrottler 创建限流器
func NewThrottler(interval time.Duration) *Throttler {
	return &Throttler{
		lastSent: make(map[string]time.Time),
		interval: interval,
		now:      time.Now,
	}
}

// Allow 检查是否允许发送
func (t *Throttler) Allow(key string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	last, exists := t.lastSent[key]
	if !exists || now.Sub(last) >= t.interval {
		t.lastSent[key] = now
		return true
	}
	return false
}

// Clear 清空所有限流记录
func (t *Throttler) Clear() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.lastSent = make(map[string]time.Time)
}

// Manager 告警管理器
type Manager struct {
	channels   []Channel
	throttle   *Throttler
	mu         sync.RWMutex
	sent       int
	suppressed int
}

// NewManager 创建告警管理器
func NewManager(channels []Channel, throttleInterval time.Duration) *Manager {
	return &Manager{
		channels: channels,
		throttle: NewThrottler(throttleInterval),
	}
}

// Send 发送告警；被限流时静默返回 nil，全部通道失败时返回最后一个错误
func (m *Manager) Send(a Alert) error {
	if a.Timestamp.IsZero() {
		a.Timestamp = time.Now()
	}
	key := a.Key
	if key == "" {
		key = fmt.Sprintf("%s:%s", a.Level, a.Message)
	}

	m.mu.Lock()
	if !m.throttle.Allow(key) {
		m.suppressed++
		m.mu.Unlock()
		return nil
	}
	m.sent++
	channels := append([]Channel(nil), m.channels...)
	m.mu.Unlock()

	var lastErr error
	ok := 0
	for _, ch := range channels {
		if err := ch.Send(a); err != nil {
			lastErr = fmt.Errorf("channel %s failed: %w", ch.Name(), err)
			continue
		}
		ok++
	}
	if ok == 0 && lastErr != nil {
		return lastErr
	}
	return nil
}

// AddChannel 添加告警通道
func (m *Manager) AddChannel(ch Channel) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.channels = append(m.channels, ch)
}

// Channels 获取所有通道名
func (m *Manager) Channels() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	names := make([]string, 0, len(m.channels))
	for _, ch := range m.channels {
		names = append(names, ch.Name())
	}
	return names
}

// Stats 已发送与被限流的告警数
func (m *Manager) Stats() (sent, suppressed int) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.sent, m.suppressed
}

// ResetThrottle 重置限流器
func (m *Manager) ResetThrottle() {
	m.throttle.Clear()
}
