package alert

import (
	"errors"
	"sync"

	"go.uber.org/zap"

	"quote-chart-go/infrastructure/logger"
)

// LogChannel 通过结构化日志输出告警
type LogChannel struct {
	logger *logger.Logger
	name   string
}

// NewLogChannel 创建日志告警通道
func NewLogChannel(name string, l *logger.Logger) *LogChannel {
	return &LogChannel{logger: l, name: name}
}

// Send 按级别写入日志
func (c *LogChannel) Send(a Alert) error {
	fields := []zap.Field{
		zap.String("alert_level", string(a.Level)),
		zap.Time("alert_ts", a.Timestamp),
	}
	for k, v := range a.Fields {
		fields = append(fields, zap.Any(k, v))
	}
	switch a.Level {
	case LevelInfo:
		c.logger.Info(a.Message, fields...)
	case LevelWarning:
		c.logger.Warn(a.Message, fields...)
	default:
		c.logger.Error(a.Message, fields...)
	}
	return nil
}

// Name 返回通道名称
func (c *LogChannel) Name() string {
	return c.name
}

// MemoryChannel 在内存中保留最近的告警，供 /status 与测试读取
type MemoryChannel struct {
	name   string
	limit  int
	mu     sync.Mutex
	alerts []Alert
	fail   bool
}

// NewMemoryChannel limit <= 0 表示不限
func NewMemoryChannel(name string, limit int) *MemoryChannel {
	return &MemoryChannel{name: name, limit: limit}
}

func (c *MemoryChannel) Send(a Alert) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fail {
		return errors.New("memory channel disabled")
	}
	c.alerts = append(c.alerts, a)
	if c.limit > 0 && len(c.alerts) > c.limit {
		c.alerts = c.alerts[len(c.alerts)-c.limit:]
	}
	return nil
}

func (c *MemoryChannel) Name() string { return c.name }

// Alerts 返回副本
func (c *MemoryChannel) Alerts() []Alert {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Alert(nil), c.alerts...)
}

// SetFailing 测试中模拟通道失败
func (c *MemoryChannel) SetFailing(fail bool) {
	c.mu.Lock()
	c.fail = fail
	c.mu.Unlock()
}
