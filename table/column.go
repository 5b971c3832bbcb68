package table

import (
	"math"
	"time"
)

// column 是单列的类型化存储，只追加。
type column interface {
	coerce(v interface{}) (interface{}, bool)
	appendAll(vals []interface{})
	value(i int) interface{}
	prefix(n int) column
	len() int
}

func newColumn(t Type, capacity int) column {
	switch t {
	case TypeString:
		return &stringColumn{vals: make([]string, 0, capacity)}
	case TypeFloat:
		return &floatColumn{vals: make([]float64, 0, capacity)}
	case TypeInteger:
		return &intColumn{vals: make([]int64, 0, capacity)}
	case TypeBoolean:
		return &boolColumn{vals: make([]bool, 0, capacity)}
	case TypeDate, TypeDatetime:
		return &timeColumn{vals: make([]time.Time, 0, capacity)}
	}
	return nil
}

type stringColumn struct{ vals []string }

func (c *stringColumn) coerce(v interface{}) (interface{}, bool) {
	s, ok := v.(string)
	return s, ok
}

func (c *stringColumn) appendAll(vals []interface{}) {
	for _, v := range vals {
		c.vals = append(c.vals, v.(string))
	}
}

func (c *stringColumn) value(i int) interface{} { return c.vals[i] }
func (c *stringColumn) prefix(n int) column     { return &stringColumn{vals: c.vals[:n:n]} }
func (c *stringColumn) len() int                { return len(c.vals) }

type floatColumn struct{ vals []float64 }

func (c *floatColumn) coerce(v interface{}) (interface{}, bool) {
	f, ok := toFloat(v)
	if !ok || math.IsNaN(f) {
		return nil, false
	}
	return f, true
}

func (c *floatColumn) appendAll(vals []interface{}) {
	for _, v := range vals {
		c.vals = append(c.vals, v.(float64))
	}
}

func (c *floatColumn) value(i int) interface{} { return c.vals[i] }
func (c *floatColumn) prefix(n int) column     { return &floatColumn{vals: c.vals[:n:n]} }
func (c *floatColumn) len() int                { return len(c.vals) }

type intColumn struct{ vals []int64 }

func (c *intColumn) coerce(v interface{}) (interface{}, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int8:
		return int64(n), true
	case int16:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	case uint:
		return int64(n), true
	case uint8:
		return int64(n), true
	case uint16:
		return int64(n), true
	case uint32:
		return int64(n), true
	case float64:
		if n == math.Trunc(n) {
			return int64(n), true
		}
	}
	return nil, false
}

func (c *intColumn) appendAll(vals []interface{}) {
	for _, v := range vals {
		c.vals = append(c.vals, v.(int64))
	}
}

func (c *intColumn) value(i int) interface{} { return c.vals[i] }
func (c *intColumn) prefix(n int) column     { return &intColumn{vals: c.vals[:n:n]} }
func (c *intColumn) len() int                { return len(c.vals) }

type boolColumn struct{ vals []bool }

func (c *boolColumn) coerce(v interface{}) (interface{}, bool) {
	b, ok := v.(bool)
	return b, ok
}

func (c *boolColumn) appendAll(vals []interface{}) {
	for _, v := range vals {
		c.vals = append(c.vals, v.(bool))
	}
}

func (c *boolColumn) value(i int) interface{} { return c.vals[i] }
func (c *boolColumn) prefix(n int) column     { return &boolColumn{vals: c.vals[:n:n]} }
func (c *boolColumn) len() int                { return len(c.vals) }

type timeColumn struct{ vals []time.Time }

func (c *timeColumn) coerce(v interface{}) (interface{}, bool) {
	t, ok := v.(time.Time)
	return t, ok
}

func (c *timeColumn) appendAll(vals []interface{}) {
	for _, v := range vals {
		c.vals = append(c.vals, v.(time.Time))
	}
}

func (c *timeColumn) value(i int) interface{} { return c.vals[i] }
func (c *timeColumn) prefix(n int) column     { return &timeColumn{vals: c.vals[:n:n]} }
func (c *timeColumn) len() int                { return len(c.vals) }

func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	}
	return 0, false
}
