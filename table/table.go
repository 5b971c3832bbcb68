// Package table 实现一个按 schema 定型、只追加的内存列式表。
package table

import (
	"fmt"
	"sync"
)

// Row 一行数据，键必须与 schema 列名完全一致。
type Row map[string]interface{}

// Table 列式存储；列类型在构造时确定且永不改变，数据只追加、不淘汰。
type Table struct {
	schema Schema

	mu        sync.RWMutex
	columns   []column
	size      int
	listeners []func(added int)
}

// New 按 schema 创建空表。
func New(schema Schema) (*Table, error) {
	if err := schema.Validate(); err != nil {
		return nil, err
	}
	s := schema.clone()
	cols := make([]column, len(s))
	for i, f := range s {
		cols[i] = newColumn(f.Type, 256)
	}
	return &Table{schema: s, columns: cols}, nil
}

// Schema 返回 schema 副本。
func (t *Table) Schema() Schema {
	return t.schema.clone()
}

// Size 当前行数。
func (t *Table) Size() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.size
}

// OnUpdate 注册更新回调，每次成功追加后以新增行数调用（在写锁之外）。
func (t *Table) OnUpdate(fn func(added int)) {
	if fn == nil {
		return
	}
	t.mu.Lock()
	t.listeners = append(t.listeners, fn)
	t.mu.Unlock()
}

// Update 以追加语义合并一批行。整批先完整校验，任意一行违反 schema 则整批拒绝，表不变。
func (t *Table) Update(rows []Row) error {
	if len(rows) == 0 {
		return nil
	}
	staged := make([][]interface{}, len(t.schema))
	for i := range staged {
		staged[i] = make([]interface{}, len(rows))
	}
	for r, row := range rows {
		if len(row) != len(t.schema) {
			for name := range row {
				if _, ok := t.schema.Index(name); !ok {
					return &SchemaError{Row: r, Column: name, Reason: ErrUnknownColumn.Error()}
				}
			}
		}
		for c, f := range t.schema {
			v, ok := row[f.Name]
			if !ok {
				return &SchemaError{Row: r, Column: f.Name, Reason: "missing field"}
			}
			if v == nil {
				return &SchemaError{Row: r, Column: f.Name, Reason: "null value"}
			}
			native, ok := t.columns[c].coerce(v)
			if !ok {
				return &SchemaError{Row: r, Column: f.Name, Reason: fmt.Sprintf("%s: want %s, got %T", ErrTypeMismatch, f.Type, v)}
			}
			staged[c][r] = native
		}
	}

	t.mu.Lock()
	for c := range t.columns {
		t.columns[c].appendAll(staged[c])
	}
	t.size += len(rows)
	listeners := append([]func(int){}, t.listeners...)
	t.mu.Unlock()

	for _, fn := range listeners {
		fn(len(rows))
	}
	return nil
}

// Snapshot 返回当前数据的只读视图。列只追加，因此前缀切片在之后的更新中保持不变。
func (t *Table) Snapshot() Frame {
	t.mu.RLock()
	defer t.mu.RUnlock()
	cols := make([]column, len(t.columns))
	for i, c := range t.columns {
		cols[i] = c.prefix(t.size)
	}
	return Frame{schema: t.schema, size: t.size, columns: cols}
}

// Worker 是建表能力的提供者，对应渲染环境中的 worker().table(schema)。
type Worker struct{}

// Table 创建新表。
func (Worker) Table(schema Schema) (*Table, error) {
	return New(schema)
}
