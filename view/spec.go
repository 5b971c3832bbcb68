// Package view 描述列式表的展示投影（透视、聚合、列选择）并计算透视结果。
package view

import (
	"errors"
	"fmt"

	"quote-chart-go/table"
)

// Plugin 图表类型。
type Plugin string

const (
	PluginYLine    Plugin = "y_line"
	PluginYBar     Plugin = "y_bar"
	PluginXBar     Plugin = "x_bar"
	PluginYScatter Plugin = "y_scatter"
	PluginDatagrid Plugin = "datagrid"
)

func (p Plugin) valid() bool {
	switch p {
	case PluginYLine, PluginYBar, PluginXBar, PluginYScatter, PluginDatagrid:
		return true
	}
	return false
}

var (
	ErrUnknownPlugin    = errors.New("unknown view plugin")
	ErrUnknownAggregate = errors.New("unknown aggregate")
	ErrNoColumns        = errors.New("view selects no columns")
)

// Spec 声明式的展示规格；首次渲染时设置一次，之后只有数据变化。
type Spec struct {
	Plugin       Plugin               `json:"view"`
	RowPivots    []string             `json:"row-pivots"`
	ColumnPivots []string             `json:"column-pivots"`
	Columns      []string             `json:"columns"`
	Aggregates   map[string]Aggregate `json:"aggregates"`
}

// Chart 返回报价图的固定规格。
func Chart() Spec {
	return Spec{
		Plugin:       PluginYLine,
		ColumnPivots: []string{"stock"},
		RowPivots:    []string{"timestamp"},
		Columns:      []string{"top_ask_price"},
		Aggregates: map[string]Aggregate{
			"stock":         AggDistinctCount,
			"top_ask_price": AggAvg,
			"top_bid_price": AggAvg,
			"timestamp":     AggDistinctCount,
		},
	}
}

// Validate 检查规格引用的列都在 schema 中，且聚合与列类型兼容。
func (s Spec) Validate(schema table.Schema) error {
	if !s.Plugin.valid() {
		return fmt.Errorf("%w: %q", ErrUnknownPlugin, s.Plugin)
	}
	if len(s.Columns) == 0 {
		return ErrNoColumns
	}
	check := func(kind string, names []string) error {
		for _, n := range names {
			if _, ok := schema.Lookup(n); !ok {
				return fmt.Errorf("%s: %w: %s", kind, table.ErrUnknownColumn, n)
			}
		}
		return nil
	}
	if err := check("row-pivots", s.RowPivots); err != nil {
		return err
	}
	if err := check("column-pivots", s.ColumnPivots); err != nil {
		return err
	}
	if err := check("columns", s.Columns); err != nil {
		return err
	}
	for col, agg := range s.Aggregates {
		f, ok := schema.Lookup(col)
		if !ok {
			return fmt.Errorf("aggregates: %w: %s", table.ErrUnknownColumn, col)
		}
		if err := agg.supports(f.Type); err != nil {
			return fmt.Errorf("aggregates[%s]: %w", col, err)
		}
	}
	return nil
}

// AggregateFor 返回列的聚合方式；未设置时数值列 sum、其余 count。
func (s Spec) AggregateFor(f table.Field) Aggregate {
	if agg, ok := s.Aggregates[f.Name]; ok {
		return agg
	}
	if f.Type.Numeric() {
		return AggSum
	}
	return AggCount
}
