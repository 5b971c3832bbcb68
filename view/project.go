package view

import (
	"sort"
	"strconv"
	"strings"
	"time"

	"quote-chart-go/table"
)

// GridColumn 透视结果的一列：列透视组合 + 被选列。
type GridColumn struct {
	Path      []string  `json:"path"`
	Column    string    `json:"column"`
	Aggregate Aggregate `json:"aggregate"`
}

// GridRow 一个行透视键及其各列聚合值，nil 表示该单元无数据。
type GridRow struct {
	Key    []string   `json:"key"`
	Values []*float64 `json:"values"`
}

// Grid 透视投影结果。
type Grid struct {
	Plugin       Plugin       `json:"plugin"`
	RowPivots    []string     `json:"row_pivots"`
	ColumnPivots []string     `json:"column_pivots"`
	Columns      []GridColumn `json:"columns"`
	Rows         []GridRow    `json:"rows"`
	Size         int          `json:"size"`
}

type groupKey struct {
	vals []interface{}
	enc  string
}

type rowGroup struct {
	key   groupKey
	cells map[string][]reducer
}

// Project 按 spec 对快照做行/列透视并聚合。
func Project(f table.Frame, spec Spec) (Grid, error) {
	schema := f.Schema()
	if err := spec.Validate(schema); err != nil {
		return Grid{}, err
	}
	rowIdx := indexes(schema, spec.RowPivots)
	colIdx := indexes(schema, spec.ColumnPivots)
	valIdx := indexes(schema, spec.Columns)
	aggs := make([]Aggregate, len(valIdx))
	for i, c := range valIdx {
		aggs[i] = spec.AggregateFor(schema[c])
	}

	rows := make(map[string]*rowGroup)
	combos := make(map[string]groupKey)
	for r := 0; r < f.Size(); r++ {
		rk := makeKey(f, rowIdx, r)
		ck := makeKey(f, colIdx, r)
		g, ok := rows[rk.enc]
		if !ok {
			g = &rowGroup{key: rk, cells: make(map[string][]reducer)}
			rows[rk.enc] = g
		}
		if _, ok := combos[ck.enc]; !ok {
			combos[ck.enc] = ck
		}
		cell, ok := g.cells[ck.enc]
		if !ok {
			cell = make([]reducer, len(valIdx))
			for i, a := range aggs {
				cell[i] = newReducer(a)
			}
			g.cells[ck.enc] = cell
		}
		for i, c := range valIdx {
			cell[i].add(f.At(c, r))
		}
	}

	comboList := make([]groupKey, 0, len(combos))
	for _, k := range combos {
		comboList = append(comboList, k)
	}
	sortKeys(comboList)

	grid := Grid{
		Plugin:       spec.Plugin,
		RowPivots:    append([]string(nil), spec.RowPivots...),
		ColumnPivots: append([]string(nil), spec.ColumnPivots...),
		Size:         f.Size(),
	}
	for _, ck := range comboList {
		path := displayKey(ck)
		for i, c := range valIdx {
			grid.Columns = append(grid.Columns, GridColumn{Path: path, Column: schema[c].Name, Aggregate: aggs[i]})
		}
	}

	rowKeys := make([]groupKey, 0, len(rows))
	for _, g := range rows {
		rowKeys = append(rowKeys, g.key)
	}
	sortKeys(rowKeys)
	for _, rk := range rowKeys {
		g := rows[rk.enc]
		out := GridRow{Key: displayKey(rk), Values: make([]*float64, 0, len(grid.Columns))}
		for _, ck := range comboList {
			cell := g.cells[ck.enc]
			for i := range valIdx {
				if cell == nil {
					out.Values = append(out.Values, nil)
					continue
				}
				if v, ok := cell[i].result(); ok {
					out.Values = append(out.Values, &v)
				} else {
					out.Values = append(out.Values, nil)
				}
			}
		}
		grid.Rows = append(grid.Rows, out)
	}
	return grid, nil
}

func indexes(schema table.Schema, names []string) []int {
	out := make([]int, len(names))
	for i, n := range names {
		out[i], _ = schema.Index(n)
	}
	return out
}

func makeKey(f table.Frame, cols []int, row int) groupKey {
	k := groupKey{vals: make([]interface{}, len(cols))}
	parts := make([]string, len(cols))
	for i, c := range cols {
		v := f.At(c, row)
		k.vals[i] = v
		parts[i] = encodeValue(v)
	}
	k.enc = strings.Join(parts, "\x00")
	return k
}

func encodeValue(v interface{}) string {
	if t, ok := v.(time.Time); ok {
		return strconv.FormatInt(t.UnixNano(), 10)
	}
	return formatValue(v)
}

func formatValue(v interface{}) string {
	switch n := v.(type) {
	case string:
		return n
	case float64:
		return strconv.FormatFloat(n, 'f', -1, 64)
	case int64:
		return strconv.FormatInt(n, 10)
	case bool:
		return strconv.FormatBool(n)
	case time.Time:
		return n.Format("2006-01-02 15:04:05.999999")
	}
	return ""
}

func displayKey(k groupKey) []string {
	out := make([]string, len(k.vals))
	for i, v := range k.vals {
		out[i] = formatValue(v)
	}
	return out
}

func sortKeys(keys []groupKey) {
	sort.SliceStable(keys, func(i, j int) bool {
		a, b := keys[i].vals, keys[j].vals
		for n := 0; n < len(a) && n < len(b); n++ {
			if c := compareValues(a[n], b[n]); c != 0 {
				return c < 0
			}
		}
		return len(a) < len(b)
	})
}

func compareValues(a, b interface{}) int {
	switch x := a.(type) {
	case time.Time:
		if y, ok := b.(time.Time); ok {
			return x.Compare(y)
		}
	case float64:
		if y, ok := b.(float64); ok {
			return compareOrdered(x, y)
		}
	case int64:
		if y, ok := b.(int64); ok {
			return compareOrdered(x, y)
		}
	case string:
		if y, ok := b.(string); ok {
			return strings.Compare(x, y)
		}
	case bool:
		if y, ok := b.(bool); ok {
			switch {
			case x == y:
				return 0
			case !x:
				return -1
			}
			return 1
		}
	}
	return strings.Compare(formatValue(a), formatValue(b))
}

func compareOrdered[T float64 | int64](x, y T) int {
	switch {
	case x < y:
		return -1
	case x > y:
		return 1
	}
	return 0
}
