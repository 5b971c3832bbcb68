// Package stream 驱动周期性抓取：定时器 -> 数据源 -> Reshape -> 列式表。
package stream

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"quote-chart-go/record"
)

var (
	ErrAlreadyStarted = errors.New("stream already started")
	ErrNoSource       = errors.New("stream has no record source")
	ErrNoStore        = errors.New("stream has no store")
)

// Source 外部记录源，每次调用返回零或多条原始记录。
type Source interface {
	GetData(ctx context.Context) ([]record.Raw, error)
}

// SourceFunc 函数适配器。
type SourceFunc func(ctx context.Context) ([]record.Raw, error)

func (f SourceFunc) GetData(ctx context.Context) ([]record.Raw, error) { return f(ctx) }

// Store 接收规范化批次的列式表句柄（graph.Graph）。
type Store interface {
	ApplyBatch(batch []record.Canonical) (int, error)
}

// EventSink 结构化事件输出。
type EventSink func(string, map[string]interface{})

// Option 配置 Streamer。
type Option func(*Streamer)

func WithObserver(o Observer) Option      { return func(s *Streamer) { s.observer = o } }
func WithMetrics(m Metrics) Option        { return func(s *Streamer) { s.metrics = m } }
func WithEventSink(sink EventSink) Option { return func(s *Streamer) { s.sink = sink } }

// WithVisibilityListener 首次成功投递时调用一次（空批次也算），在该批次写入之前。
func WithVisibilityListener(fn func()) Option {
	return func(s *Streamer) { s.onVisible = fn }
}

// WithTicker 替换定时器工厂（测试用）。
func WithTicker(factory func(time.Duration) Ticker) Option {
	return func(s *Streamer) { s.newTicker = factory }
}

// Streamer 流式控制器。一次会话：Start 只能调用一次，tick 计数与表不会重置。
type Streamer struct {
	cfg       Config
	source    Source
	store     Store
	observer  Observer
	metrics   Metrics
	sink      EventSink
	onVisible func()
	newTicker func(time.Duration) Ticker

	mu      sync.RWMutex
	status  Status
	started bool
	done    chan struct{}
}

type fetchResult struct {
	tick    int
	raw     []record.Raw
	err     error
	latency time.Duration
}

// New 创建控制器；零值参数回退为默认值。
func New(cfg Config, src Source, store Store, opts ...Option) *Streamer {
	cfg = cfg.withDefaults()
	s := &Streamer{
		cfg:       cfg,
		source:    src,
		store:     store,
		metrics:   noopMetrics{},
		newTicker: NewTicker,
		done:      make(chan struct{}),
		status:    Status{State: StateIdle, MaxTicks: cfg.MaxTicks},
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.metrics == nil {
		s.metrics = noopMetrics{}
	}
	return s
}

// Config 生效的参数。
func (s *Streamer) Config() Config { return s.cfg }

// Start 启动周期定时器并立即返回；重复调用返回 ErrAlreadyStarted。
func (s *Streamer) Start(ctx context.Context) error {
	if s.source == nil {
		return ErrNoSource
	}
	if s.store == nil {
		return ErrNoStore
	}
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return ErrAlreadyStarted
	}
	s.started = true
	s.status.State = StateRunning
	s.status.SessionID = uuid.NewString()
	s.status.StartedAt = time.Now()
	session := s.status.SessionID
	s.mu.Unlock()

	s.logEvent("stream_started", map[string]interface{}{
		"session":    session,
		"intervalMs": s.cfg.PollInterval.Milliseconds(),
		"maxTicks":   s.cfg.MaxTicks,
		"overlap":    string(s.cfg.Overlap),
	})
	go s.run(ctx)
	return nil
}

// Done 事件循环退出后关闭。
func (s *Streamer) Done() <-chan struct{} { return s.done }

// Wait 等待会话结束或 ctx 取消。
func (s *Streamer) Wait(ctx context.Context) error {
	select {
	case <-s.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Status 返回状态快照。
func (s *Streamer) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status
}

// Visible 图表是否已可见。
func (s *Streamer) Visible() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status.Visible
}

// run 是单一事件循环：tick、派发与投递都在这里串行处理。
func (s *Streamer) run(ctx context.Context) {
	defer close(s.done)

	ticker := s.newTicker(s.cfg.PollInterval)
	tickC := ticker.C()
	stopTimer := func() {
		if tickC != nil {
			ticker.Stop()
			tickC = nil
		}
	}
	defer stopTimer()

	results := make(chan fetchResult)
	quit := make(chan struct{})
	defer close(quit)

	var (
		ticks       int
		inFlight    int
		pending     bool
		pendingTick int
	)
	for {
		if tickC == nil && inFlight == 0 {
			s.finish(StateStopped, nil)
			return
		}
		select {
		case <-ctx.Done():
			stopTimer()
			s.finish(StateCancelled, ctx.Err())
			return

		case <-tickC:
			ticks++
			s.metrics.RecordTick()
			if s.cfg.Overlap == OverlapSerialize && inFlight > 0 {
				pending = true
				pendingTick = ticks
				s.update(func(st *Status) { st.Coalesced++ })
			} else {
				s.dispatch(ctx, ticks, results, quit)
				inFlight++
			}
			current := inFlight
			s.update(func(st *Status) {
				st.Ticks = ticks
				st.InFlight = current
			})
			s.metrics.SetInFlight(inFlight)
			if ticks >= s.cfg.MaxTicks {
				stopTimer()
				s.logEvent("timer_stopped", map[string]interface{}{"ticks": ticks, "inFlight": inFlight})
			}

		case res := <-results:
			inFlight--
			s.deliver(res)
			if pending {
				pending = false
				s.dispatch(ctx, pendingTick, results, quit)
				inFlight++
			}
			current := inFlight
			s.update(func(st *Status) { st.InFlight = current })
			s.metrics.SetInFlight(inFlight)
		}
	}
}

func (s *Streamer) dispatch(ctx context.Context, tick int, results chan<- fetchResult, quit <-chan struct{}) {
	s.update(func(st *Status) { st.Fetches++ })
	go func() {
		fctx, cancel := context.WithTimeout(ctx, s.cfg.FetchTimeout)
		defer cancel()
		start := time.Now()
		raw, err := s.source.GetData(fctx)
		res := fetchResult{tick: tick, raw: raw, err: err, latency: time.Since(start)}
		select {
		case results <- res:
		case <-quit:
		}
	}()
}

// deliver 处理一次抓取完成：失败只记录；成功（空批次也算）则 Reshape、首次成功时揭示图表、再追加到表。
func (s *Streamer) deliver(res fetchResult) {
	s.metrics.RecordFetch(res.latency, res.err)
	if res.err != nil {
		s.update(func(st *Status) {
			st.FetchFailures++
			st.LastError = res.err.Error()
		})
		s.logEvent("fetch_error", map[string]interface{}{
			"tick":      res.tick,
			"error":     res.err.Error(),
			"latencyMs": res.latency.Milliseconds(),
		})
		s.notify(Event{Kind: EventFetchFailed, Tick: res.tick, Err: res.err})
		return
	}

	batch := record.ReshapeAll(res.raw)
	s.flagMalformed(res.tick, batch)

	if !s.Visible() {
		s.reveal(res.tick)
	}

	applied, err := s.store.ApplyBatch(batch)
	if err != nil {
		s.update(func(st *Status) {
			st.ApplyFailures++
			st.RowsDropped += len(batch)
			st.LastError = err.Error()
		})
		s.metrics.RecordBatch(0, len(batch))
		s.logEvent("apply_error", map[string]interface{}{"tick": res.tick, "rows": len(batch), "error": err.Error()})
		s.notify(Event{Kind: EventBatchRejected, Tick: res.tick, Rows: len(batch), Err: err})
		return
	}
	dropped := len(batch) - applied
	now := time.Now()
	s.update(func(st *Status) {
		st.Batches++
		st.RowsApplied += applied
		st.RowsDropped += dropped
		st.LastDeliveryAt = now
		st.LastDeliveryTick = res.tick
	})
	s.metrics.RecordBatch(applied, dropped)
	s.logEvent("batch_applied", map[string]interface{}{
		"tick":      res.tick,
		"rows":      len(batch),
		"applied":   applied,
		"latencyMs": res.latency.Milliseconds(),
	})
	if dropped > 0 {
		s.notify(Event{Kind: EventBatchDropped, Tick: res.tick, Rows: dropped})
	}
}

func (s *Streamer) reveal(tick int) {
	s.update(func(st *Status) { st.Visible = true })
	s.metrics.SetVisible(true)
	s.logEvent("graph_visible", map[string]interface{}{"tick": tick})
	if s.onVisible != nil {
		s.onVisible()
	}
	s.notify(Event{Kind: EventVisible, Tick: tick})
}

func (s *Streamer) flagMalformed(tick int, batch []record.Canonical) {
	counts := make(map[record.Problem]int)
	bad := 0
	for _, c := range batch {
		problems := record.Inspect(c)
		if len(problems) == 0 {
			continue
		}
		bad++
		for _, p := range problems {
			counts[p]++
			s.metrics.RecordMalformed(string(p))
		}
	}
	if bad == 0 {
		return
	}
	s.update(func(st *Status) { st.MalformedRows += bad })
	names := make([]string, 0, len(counts))
	for p := range counts {
		names = append(names, string(p))
	}
	sort.Strings(names)
	s.logEvent("malformed_record", map[string]interface{}{
		"tick":     tick,
		"count":    bad,
		"problems": names,
	})
}

func (s *Streamer) finish(state State, err error) {
	now := time.Now()
	s.update(func(st *Status) {
		st.State = state
		st.StoppedAt = now
		st.InFlight = 0
		if err != nil {
			st.LastError = err.Error()
		}
	})
	s.metrics.SetInFlight(0)
	st := s.Status()
	s.logEvent("stream_stopped", map[string]interface{}{
		"session":  st.SessionID,
		"state":    string(st.State),
		"ticks":    st.Ticks,
		"fetches":  st.Fetches,
		"rows":     st.RowsApplied,
		"failures": st.FetchFailures,
	})
	s.notify(Event{Kind: EventStopped, Tick: st.Ticks, Err: err})
}

func (s *Streamer) update(fn func(*Status)) {
	s.mu.Lock()
	fn(&s.status)
	s.mu.Unlock()
}

func (s *Streamer) notify(e Event) {
	if s.observer == nil {
		return
	}
	e.Status = s.Status()
	s.observer.OnStatus(e)
}

func (s *Streamer) logEvent(event string, fields map[string]interface{}) {
	if s == nil || s.sink == nil {
		return
	}
	s.sink(event, fields)
}
