package table

import (
	"fmt"
	"time"
)

// Frame 是 Table 某一时刻的不可变快照。
type Frame struct {
	schema  Schema
	size    int
	columns []column
}

// Size 快照行数。
func (f Frame) Size() int { return f.size }

// Schema 快照的 schema。
func (f Frame) Schema() Schema { return f.schema.clone() }

// Value 返回第 row 行 name 列的值。
func (f Frame) Value(name string, row int) (interface{}, error) {
	i, ok := f.schema.Index(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownColumn, name)
	}
	if row < 0 || row >= f.size {
		return nil, fmt.Errorf("row %d out of range [0,%d)", row, f.size)
	}
	return f.columns[i].value(row), nil
}

// At 按列位置取值，调用方保证下标合法。
func (f Frame) At(col, row int) interface{} {
	return f.columns[col].value(row)
}

// Strings 返回 string 列。
func (f Frame) Strings(name string) ([]string, error) {
	c, err := f.column(name)
	if err != nil {
		return nil, err
	}
	sc, ok := c.(*stringColumn)
	if !ok {
		return nil, fmt.Errorf("%w: %s is not string", ErrTypeMismatch, name)
	}
	return sc.vals, nil
}

// Floats 返回 float 列。
func (f Frame) Floats(name string) ([]float64, error) {
	c, err := f.column(name)
	if err != nil {
		return nil, err
	}
	fc, ok := c.(*floatColumn)
	if !ok {
		return nil, fmt.Errorf("%w: %s is not float", ErrTypeMismatch, name)
	}
	return fc.vals, nil
}

// Times 返回 date/datetime 列。
func (f Frame) Times(name string) ([]time.Time, error) {
	c, err := f.column(name)
	if err != nil {
		return nil, err
	}
	tc, ok := c.(*timeColumn)
	if !ok {
		return nil, fmt.Errorf("%w: %s is not temporal", ErrTypeMismatch, name)
	}
	return tc.vals, nil
}

func (f Frame) column(name string) (column, error) {
	i, ok := f.schema.Index(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownColumn, name)
	}
	return f.columns[i], nil
}
