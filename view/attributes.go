package view

import (
	"encoding/json"
	"fmt"
)

// 渲染元素上的属性名。
const (
	AttrView         = "view"
	AttrColumnPivots = "column-pivots"
	AttrRowPivots    = "row-pivots"
	AttrColumns      = "columns"
	AttrAggregates   = "aggregates"
)

// Attribute 一个待设置的元素属性，值为字符串（列表/映射使用 JSON 编码）。
type Attribute struct {
	Name  string
	Value string
}

// Attributes 按固定顺序编码规格。
func (s Spec) Attributes() ([]Attribute, error) {
	encode := func(v interface{}) (string, error) {
		b, err := json.Marshal(v)
		return string(b), err
	}
	out := []Attribute{{Name: AttrView, Value: string(s.Plugin)}}
	lists := []struct {
		name string
		vals []string
	}{
		{AttrColumnPivots, s.ColumnPivots},
		{AttrRowPivots, s.RowPivots},
		{AttrColumns, s.Columns},
	}
	for _, l := range lists {
		vals := l.vals
		if vals == nil {
			vals = []string{}
		}
		v, err := encode(vals)
		if err != nil {
			return nil, err
		}
		out = append(out, Attribute{Name: l.name, Value: v})
	}
	aggs := s.Aggregates
	if aggs == nil {
		aggs = map[string]Aggregate{}
	}
	v, err := encode(aggs)
	if err != nil {
		return nil, err
	}
	return append(out, Attribute{Name: AttrAggregates, Value: v}), nil
}

// SetAttribute 解析单个属性写回规格。
func (s *Spec) SetAttribute(name, value string) error {
	switch name {
	case AttrView:
		s.Plugin = Plugin(value)
	case AttrColumnPivots:
		return decodeList(name, value, &s.ColumnPivots)
	case AttrRowPivots:
		return decodeList(name, value, &s.RowPivots)
	case AttrColumns:
		return decodeList(name, value, &s.Columns)
	case AttrAggregates:
		var aggs map[string]Aggregate
		if err := json.Unmarshal([]byte(value), &aggs); err != nil {
			return fmt.Errorf("attribute %s: %w", name, err)
		}
		s.Aggregates = aggs
	default:
		return fmt.Errorf("unknown attribute %q", name)
	}
	return nil
}

func decodeList(name, value string, dst *[]string) error {
	var vals []string
	if err := json.Unmarshal([]byte(value), &vals); err != nil {
		return fmt.Errorf("attribute %s: %w", name, err)
	}
	*dst = vals
	return nil
}
