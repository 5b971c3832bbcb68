package stream

import (
	"fmt"
	"time"
)

// Overlap 在途抓取的并发策略。
type Overlap string

const (
	// OverlapAllow 每个 tick 都发起抓取，多个抓取可同时在途，完成顺序不保证。
	OverlapAllow Overlap = "allow"
	// OverlapSerialize 至多一个在途抓取；期间到达的 tick 合并为一个待发槽位。
	// 因此抓取次数至多为 MaxTicks，而不是恰好 MaxTicks；被合并的 tick 计入 Status.Coalesced。
	OverlapSerialize Overlap = "serialize"
)

const (
	DefaultPollInterval = 100 * time.Millisecond
	DefaultMaxTicks     = 1000
	// DefaultFetchTimeout 未配置时单次抓取的超时上限。
	DefaultFetchTimeout = 10 * time.Second
)

// Config 控制器参数。
type Config struct {
	PollInterval time.Duration
	MaxTicks     int
	FetchTimeout time.Duration // 0 时使用 DefaultFetchTimeout
	Overlap      Overlap
}

// DefaultConfig 参考行为：100ms 周期，1000 次后停止，允许重叠。
func DefaultConfig() Config {
	return Config{
		PollInterval: DefaultPollInterval,
		MaxTicks:     DefaultMaxTicks,
		FetchTimeout: DefaultFetchTimeout,
		Overlap:      OverlapAllow,
	}
}

// Validate 检查参数合法性。
func (c Config) Validate() error {
	if c.PollInterval < 0 {
		return fmt.Errorf("poll interval must be >= 0, got %s", c.PollInterval)
	}
	if c.MaxTicks < 0 {
		return fmt.Errorf("max ticks must be >= 0, got %d", c.MaxTicks)
	}
	if c.FetchTimeout < 0 {
		return fmt.Errorf("fetch timeout must be >= 0, got %s", c.FetchTimeout)
	}
	switch c.Overlap {
	case "", OverlapAllow, OverlapSerialize:
	default:
		return fmt.Errorf("unknown overlap policy %q", c.Overlap)
	}
	return nil
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.PollInterval <= 0 {
		c.PollInterval = d.PollInterval
	}
	if c.MaxTicks <= 0 {
		c.MaxTicks = d.MaxTicks
	}
	if c.FetchTimeout <= 0 {
		c.FetchTimeout = d.FetchTimeout
	}
	if c.Overlap == "" {
		c.Overlap = d.Overlap
	}
	return c
}
