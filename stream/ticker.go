package stream

import "time"

// Ticker 抽象周期定时器便于测试。
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

type realTicker struct{ t *time.Ticker }

func (r realTicker) C() <-chan time.Time { return r.t.C }
func (r realTicker) Stop()               { r.t.Stop() }

// NewTicker 默认使用 time.Ticker。
func NewTicker(d time.Duration) Ticker {
	return realTicker{t: time.NewTicker(d)}
}
