package stream

import "time"

// State 会话状态。
type State string

const (
	StateIdle      State = "idle"
	StateRunning   State = "running"
	StateStopped   State = "stopped"
	StateCancelled State = "cancelled"
)

// Status 控制器健康快照。
type Status struct {
	SessionID        string    `json:"session_id,omitempty"`
	State            State     `json:"state"`
	Ticks            int       `json:"ticks"`
	MaxTicks         int       `json:"max_ticks"`
	Fetches          int       `json:"fetches"`
	Coalesced        int       `json:"coalesced"`
	InFlight         int       `json:"in_flight"`
	Batches          int       `json:"batches"`
	RowsApplied      int       `json:"rows_applied"`
	RowsDropped      int       `json:"rows_dropped"`
	FetchFailures    int       `json:"fetch_failures"`
	ApplyFailures    int       `json:"apply_failures"`
	MalformedRows    int       `json:"malformed_rows"`
	Visible          bool      `json:"visible"`
	LastError        string    `json:"last_error,omitempty"`
	StartedAt        time.Time `json:"started_at,omitempty"`
	StoppedAt        time.Time `json:"stopped_at,omitempty"`
	LastDeliveryAt   time.Time `json:"last_delivery_at,omitempty"`
	LastDeliveryTick int       `json:"last_delivery_tick,omitempty"`
}

// EventKind 状态事件类型。
type EventKind string

const (
	EventFetchFailed   EventKind = "fetch_failed"
	EventBatchDropped  EventKind = "batch_dropped"
	EventBatchRejected EventKind = "batch_rejected"
	EventVisible       EventKind = "visible"
	EventStopped       EventKind = "stopped"
)

// Event 以显式值上报的失败与状态变化。
type Event struct {
	Kind   EventKind
	Tick   int
	Rows   int
	Err    error
	Status Status
}

// Observer 状态观察者，在控制器的事件循环中同步调用。
type Observer interface {
	OnStatus(Event)
}

// ObserverFunc 函数适配器。
type ObserverFunc func(Event)

func (f ObserverFunc) OnStatus(e Event) { f(e) }

// Metrics 控制器埋点，由 infrastructure/monitor.Monitor 实现。
type Metrics interface {
	RecordTick()
	RecordFetch(latency time.Duration, err error)
	RecordBatch(applied, dropped int)
	RecordMalformed(problem string)
	SetInFlight(n int)
	SetVisible(visible bool)
}

type noopMetrics struct{}

func (noopMetrics) RecordTick()                      {}
func (noopMetrics) RecordFetch(time.Duration, error) {}
func (noopMetrics) RecordBatch(int, int)             {}
func (noopMetrics) RecordMalformed(string)           {}
func (noopMetrics) SetInFlight(int)                  {}
func (noopMetrics) SetVisible(bool)                  {}
