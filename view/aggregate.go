package view

import (
	"fmt"
	"time"

	"quote-chart-go/table"
)

// Aggregate 多行折叠为一个透视单元时使用的归约函数。
type Aggregate string

const (
	AggAvg           Aggregate = "avg"
	AggSum           Aggregate = "sum"
	AggCount         Aggregate = "count"
	AggDistinctCount Aggregate = "distinct count"
	AggMin           Aggregate = "min"
	AggMax           Aggregate = "max"
	AggFirst         Aggregate = "first by index"
	AggLast          Aggregate = "last by index"
)

func (a Aggregate) supports(t table.Type) error {
	switch a {
	case AggCount, AggDistinctCount:
		return nil
	case AggAvg, AggSum:
		if t.Numeric() {
			return nil
		}
	case AggMin, AggMax, AggFirst, AggLast:
		if t.Numeric() || t.Temporal() {
			return nil
		}
	default:
		return fmt.Errorf("%w: %q", ErrUnknownAggregate, string(a))
	}
	return fmt.Errorf("aggregate %q not supported for %s column", string(a), t)
}

// reducer 单元格累加器。
type reducer interface {
	add(v interface{})
	result() (float64, bool)
}

func newReducer(a Aggregate) reducer {
	switch a {
	case AggAvg:
		return &avgReducer{}
	case AggSum:
		return &sumReducer{}
	case AggCount:
		return &countReducer{}
	case AggDistinctCount:
		return &distinctReducer{seen: make(map[interface{}]struct{})}
	case AggMin:
		return &extremeReducer{less: true}
	case AggMax:
		return &extremeReducer{}
	case AggFirst:
		return &firstReducer{}
	case AggLast:
		return &lastReducer{}
	}
	return &countReducer{}
}

// numeric 将数值/时间统一为 float64，时间取 Unix 毫秒。
func numeric(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int64:
		return float64(n), true
	case time.Time:
		return float64(n.UnixMilli()), true
	case bool:
		if n {
			return 1, true
		}
		return 0, true
	}
	return 0, false
}

type avgReducer struct {
	sum float64
	n   int
}

func (r *avgReducer) add(v interface{}) {
	if f, ok := numeric(v); ok {
		r.sum += f
		r.n++
	}
}

func (r *avgReducer) result() (float64, bool) {
	if r.n == 0 {
		return 0, false
	}
	return r.sum / float64(r.n), true
}

type sumReducer struct {
	sum float64
	n   int
}

func (r *sumReducer) add(v interface{}) {
	if f, ok := numeric(v); ok {
		r.sum += f
		r.n++
	}
}

func (r *sumReducer) result() (float64, bool) { return r.sum, r.n > 0 }

type countReducer struct{ n int }

func (r *countReducer) add(interface{})         { r.n++ }
func (r *countReducer) result() (float64, bool) { return float64(r.n), r.n > 0 }

type distinctReducer struct {
	seen map[interface{}]struct{}
}

func (r *distinctReducer) add(v interface{}) {
	if t, ok := v.(time.Time); ok {
		// time.Time 含时区指针，按纳秒比较
		v = t.UnixNano()
	}
	r.seen[v] = struct{}{}
}

func (r *distinctReducer) result() (float64, bool) {
	return float64(len(r.seen)), len(r.seen) > 0
}

type extremeReducer struct {
	less bool
	val  float64
	set  bool
}

func (r *extremeReducer) add(v interface{}) {
	f, ok := numeric(v)
	if !ok {
		return
	}
	if !r.set || (r.less && f < r.val) || (!r.less && f > r.val) {
		r.val = f
		r.set = true
	}
}

func (r *extremeReducer) result() (float64, bool) { return r.val, r.set }

type firstReducer struct {
	val float64
	set bool
}

func (r *firstReducer) add(v interface{}) {
	if r.set {
		return
	}
	if f, ok := numeric(v); ok {
		r.val = f
		r.set = true
	}
}

func (r *firstReducer) result() (float64, bool) { return r.val, r.set }

type lastReducer struct {
	val float64
	set bool
}

func (r *lastReducer) add(v interface{}) {
	if f, ok := numeric(v); ok {
		r.val = f
		r.set = true
	}
}

func (r *lastReducer) result() (float64, bool) { return r.val, r.set }
