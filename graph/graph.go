// Package graph 持有唯一的列式表句柄，负责建表、挂载视图与合并批次。
package graph

import (
	"errors"
	"fmt"
	"sync"

	"quote-chart-go/record"
	"quote-chart-go/table"
	"quote-chart-go/view"
)

var (
	ErrRuntimeUnavailable = errors.New("table runtime unavailable")
	ErrNotReady           = errors.New("table not created")
	ErrViewAttached       = errors.New("view already attached")
	ErrNoViewer           = errors.New("no rendering surface")
)

// Worker 建表能力；为 nil 表示运行环境不具备该能力。
type Worker interface {
	Table(schema table.Schema) (*table.Table, error)
}

// Viewer 渲染表面元素。
type Viewer interface {
	Load(t *table.Table) error
	SetAttribute(name, value string) error
}

// State 表的就绪状态。
type State int

const (
	StateUncreated State = iota
	StateReady
)

func (s State) String() string {
	if s == StateReady {
		return "ready"
	}
	return "uncreated"
}

// EventSink 结构化事件输出。
type EventSink func(string, map[string]interface{})

// Graph 列式表的唯一所有者。
type Graph struct {
	worker Worker
	viewer Viewer
	schema table.Schema
	sink   EventSink

	mu       sync.RWMutex
	state    State
	tbl      *table.Table
	loaded   bool
	attached bool
	dropped  int
}

// Option 配置 Graph。
type Option func(*Graph)

// WithEventSink 设置事件输出。
func WithEventSink(sink EventSink) Option {
	return func(g *Graph) { g.sink = sink }
}

// WithSchema 覆盖默认的报价 schema。
func WithSchema(s table.Schema) Option {
	return func(g *Graph) { g.schema = s }
}

// New 创建未建表的 Graph。worker 或 viewer 可为 nil。
func New(worker Worker, viewer Viewer, opts ...Option) *Graph {
	g := &Graph{
		worker: worker,
		viewer: viewer,
		schema: record.Schema(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// State 当前状态。
func (g *Graph) State() State {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.state
}

// Table 返回表句柄，未建表时为 nil。
func (g *Graph) Table() *table.Table {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.tbl
}

// Dropped 建表前被丢弃的行数。
func (g *Graph) Dropped() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.dropped
}

// EnsureCreated 建表；已就绪时为空操作。运行环境缺失时保持 UNCREATED 并返回 ErrRuntimeUnavailable，
// 下一次挂载时会重试。created 仅在本次调用真正建表时为 true。
func (g *Graph) EnsureCreated() (created bool, err error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.state == StateReady {
		return false, nil
	}
	if g.worker == nil {
		g.logEvent("store_unavailable", map[string]interface{}{"reason": ErrRuntimeUnavailable.Error()})
		return false, ErrRuntimeUnavailable
	}
	tbl, err := g.worker.Table(g.schema)
	if err != nil {
		g.logEvent("store_unavailable", map[string]interface{}{"reason": err.Error()})
		return false, fmt.Errorf("%w: %v", ErrRuntimeUnavailable, err)
	}
	g.tbl = tbl
	g.state = StateReady
	g.logEvent("store_created", map[string]interface{}{"columns": g.schema.Names()})
	return true, nil
}

// AttachView 校验规格并写入渲染元素属性，仅允许一次。
func (g *Graph) AttachView(spec view.Spec) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.state != StateReady {
		return ErrNotReady
	}
	if g.attached {
		return ErrViewAttached
	}
	if g.viewer == nil {
		return ErrNoViewer
	}
	if err := spec.Validate(g.schema); err != nil {
		return fmt.Errorf("attach view: %w", err)
	}
	attrs, err := spec.Attributes()
	if err != nil {
		return fmt.Errorf("encode view: %w", err)
	}
	for _, a := range attrs {
		if err := g.viewer.SetAttribute(a.Name, a.Value); err != nil {
			return fmt.Errorf("set attribute %s: %w", a.Name, err)
		}
	}
	g.attached = true
	g.logEvent("view_attached", map[string]interface{}{
		"view":    string(spec.Plugin),
		"columns": spec.Columns,
	})
	return nil
}

// Mount 渲染表面挂载后调用：建表、加载到元素、挂载固定图表规格。
// 每一步成功后记下；任一步失败时下次 Mount 从缺失的那一步重试，属性整体重写。
func (g *Graph) Mount() error {
	if g.viewer == nil {
		return ErrNoViewer
	}
	if _, err := g.EnsureCreated(); err != nil {
		return err
	}
	g.mu.RLock()
	tbl, loaded, attached := g.tbl, g.loaded, g.attached
	g.mu.RUnlock()

	if !loaded {
		if err := g.viewer.Load(tbl); err != nil {
			g.logEvent("mount_failed", map[string]interface{}{"step": "load", "error": err.Error()})
			return fmt.Errorf("load table: %w", err)
		}
		g.mu.Lock()
		g.loaded = true
		g.mu.Unlock()
	}
	if attached {
		return nil
	}
	if err := g.AttachView(view.Chart()); err != nil {
		g.logEvent("mount_failed", map[string]interface{}{"step": "attach_view", "error": err.Error()})
		return err
	}
	return nil
}

// Mounted 表已加载到元素且视图已挂载。
func (g *Graph) Mounted() bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.loaded && g.attached
}

// ApplyBatch 以追加语义合并一批记录，返回写入行数。建表前为空操作（非错误），行被计入丢弃数。
func (g *Graph) ApplyBatch(batch []record.Canonical) (int, error) {
	if len(batch) == 0 {
		return 0, nil
	}
	g.mu.Lock()
	tbl := g.tbl
	if tbl == nil {
		g.dropped += len(batch)
		g.mu.Unlock()
		return 0, nil
	}
	g.mu.Unlock()
	if err := tbl.Update(record.Rows(batch)); err != nil {
		return 0, fmt.Errorf("apply batch: %w", err)
	}
	return len(batch), nil
}

func (g *Graph) logEvent(event string, fields map[string]interface{}) {
	if g == nil || g.sink == nil {
		return
	}
	g.sink(event, fields)
}
