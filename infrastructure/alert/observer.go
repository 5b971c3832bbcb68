package alert

import (
	"sync"

	"quote-chart-go/stream"
)

// DefaultFailureThreshold 连续抓取失败达到该次数时升级为 ERROR
const DefaultFailureThreshold = 10

// StreamObserver 实现 stream.Observer：失败与丢弃事件转为告警
type StreamObserver struct {
	manager   *Manager
	threshold int

	mu          sync.Mutex
	consecutive int
	lastBatches int
}

// NewStreamObserver threshold <= 0 时使用默认值
func NewStreamObserver(m *Manager, threshold int) *StreamObserver {
	if threshold <= 0 {
		threshold = DefaultFailureThreshold
	}
	return &StreamObserver{manager: m, threshold: threshold}
}

// OnStatus 在控制器事件循环中同步调用
func (o *StreamObserver) OnStatus(e stream.Event) {
	switch e.Kind {
	case stream.EventFetchFailed:
		o.mu.Lock()
		// 两次失败之间有成功投递则重新计数
		if e.Status.Batches != o.lastBatches {
			o.lastBatches = e.Status.Batches
			o.consecutive = 0
		}
		o.consecutive++
		n := o.consecutive
		o.mu.Unlock()
		level, key := LevelWarning, "fetch_failed"
		if n >= o.threshold {
			level, key = LevelError, "fetch_failing"
		}
		o.send(Alert{
			Level:   level,
			Key:     key,
			Message: "record source fetch failed",
			Fields:  map[string]interface{}{"tick": e.Tick, "error": errText(e.Err), "consecutive": n},
		})
	case stream.EventBatchDropped:
		o.resetFailures()
		o.send(Alert{
			Level:   LevelError,
			Key:     "batch_dropped",
			Message: "columnar store unavailable, rows dropped",
			Fields:  map[string]interface{}{"tick": e.Tick, "rows": e.Rows, "total_dropped": e.Status.RowsDropped},
		})
	case stream.EventBatchRejected:
		o.resetFailures()
		o.send(Alert{
			Level:   LevelError,
			Key:     "batch_rejected",
			Message: "batch rejected by columnar store",
			Fields:  map[string]interface{}{"tick": e.Tick, "rows": e.Rows, "error": errText(e.Err)},
		})
	case stream.EventVisible:
		o.resetFailures()
	case stream.EventStopped:
		o.send(Alert{
			Level:   LevelInfo,
			Key:     "stopped",
			Message: "stream session finished",
			Fields: map[string]interface{}{
				"state":          string(e.Status.State),
				"ticks":          e.Status.Ticks,
				"rows_applied":   e.Status.RowsApplied,
				"fetch_failures": e.Status.FetchFailures,
			},
		})
	}
}

// ConsecutiveFailures 当前连续失败次数
func (o *StreamObserver) ConsecutiveFailures() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.consecutive
}

func (o *StreamObserver) resetFailures() {
	o.mu.Lock()
	o.consecutive = 0
	o.mu.Unlock()
}

func (o *StreamObserver) send(a Alert) {
	_ = o.manager.Send(a)
}

func errText(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
