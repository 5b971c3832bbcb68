// Package viewer 渲染面的内存实现：装载列式表、接收字符串属性，按属性投影出网格。
package viewer

import (
	"encoding/json"
	"errors"
	"net/http"
	"sync"

	"quote-chart-go/table"
	"quote-chart-go/view"
)

var (
	ErrNotLoaded = errors.New("viewer has no table loaded")
	ErrNilTable  = errors.New("viewer: nil table")
)

// Element 实现 graph.Viewer。属性写入前会被解析校验，非法值不落地。
type Element struct {
	mu       sync.RWMutex
	tbl      *table.Table
	attrs    map[string]string
	order    []string
	spec     view.Spec
	revision int64
	loads    int
}

// Rendered 一次渲染结果。
type Rendered struct {
	view.Grid
	Revision int64 `json:"revision"`
}

// New 创建空元素。
func New() *Element {
	return &Element{attrs: make(map[string]string)}
}

// Load 装载表；之后表的每次追加都会推进 revision。
func (e *Element) Load(t *table.Table) error {
	if t == nil {
		return ErrNilTable
	}
	e.mu.Lock()
	e.tbl = t
	e.loads++
	e.revision++
	e.mu.Unlock()
	t.OnUpdate(func(int) {
		e.mu.Lock()
		if e.tbl == t {
			e.revision++
		}
		e.mu.Unlock()
	})
	return nil
}

// SetAttribute 解析并记录一个属性。
func (e *Element) SetAttribute(name, value string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	next := e.spec
	if err := next.SetAttribute(name, value); err != nil {
		return err
	}
	e.spec = next
	if _, ok := e.attrs[name]; !ok {
		e.order = append(e.order, name)
	}
	e.attrs[name] = value
	e.revision++
	return nil
}

// Attribute 返回属性原值。
func (e *Element) Attribute(name string) (string, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	v, ok := e.attrs[name]
	return v, ok
}

// Attributes 按首次设置的顺序返回全部属性。
func (e *Element) Attributes() []view.Attribute {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]view.Attribute, 0, len(e.order))
	for _, name := range e.order {
		out = append(out, view.Attribute{Name: name, Value: e.attrs[name]})
	}
	return out
}

// Spec 当前生效的展示规格。
func (e *Element) Spec() view.Spec {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.spec
}

// Loaded 是否已装载表。
func (e *Element) Loaded() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.tbl != nil
}

// Revision 装载、属性或数据变化的累计次数。
func (e *Element) Revision() int64 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.revision
}

// Render 对当前快照投影。未设置 view 时按数据网格展示全部列。
func (e *Element) Render() (Rendered, error) {
	e.mu.RLock()
	tbl, spec, rev := e.tbl, e.spec, e.revision
	e.mu.RUnlock()
	if tbl == nil {
		return Rendered{}, ErrNotLoaded
	}
	frame := tbl.Snapshot()
	if spec.Plugin == "" {
		spec.Plugin = view.PluginDatagrid
	}
	if len(spec.Columns) == 0 {
		spec.Columns = frame.Schema().Names()
	}
	grid, err := view.Project(frame, spec)
	if err != nil {
		return Rendered{}, err
	}
	return Rendered{Grid: grid, Revision: rev}, nil
}

// ServeHTTP 以 JSON 输出渲染结果。
func (e *Element) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	out, err := e.Render()
	switch {
	case errors.Is(err, ErrNotLoaded):
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": err.Error()})
	case err != nil:
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": err.Error()})
	default:
		writeJSON(w, http.StatusOK, out)
	}
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
