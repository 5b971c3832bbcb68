package table

import (
	"fmt"
	"strings"
)

// Type 列类型，构造后不可变。
type Type string

const (
	TypeString   Type = "string"
	TypeFloat    Type = "float"
	TypeInteger  Type = "integer"
	TypeBoolean  Type = "boolean"
	TypeDate     Type = "date"
	TypeDatetime Type = "datetime"
)

// Valid 判断是否为已知列类型。
func (t Type) Valid() bool {
	switch t {
	case TypeString, TypeFloat, TypeInteger, TypeBoolean, TypeDate, TypeDatetime:
		return true
	}
	return false
}

// Numeric 数值列（float/integer）。
func (t Type) Numeric() bool {
	return t == TypeFloat || t == TypeInteger
}

// Temporal 时间列（date/datetime）。
func (t Type) Temporal() bool {
	return t == TypeDate || t == TypeDatetime
}

// Field 一列的名称与类型。
type Field struct {
	Name string `json:"name" yaml:"name"`
	Type Type   `json:"type" yaml:"type"`
}

// Schema 有序字段列表。
type Schema []Field

// Validate 检查字段非空、名称唯一、类型已知。
func (s Schema) Validate() error {
	if len(s) == 0 {
		return fmt.Errorf("schema has no fields")
	}
	seen := make(map[string]struct{}, len(s))
	for _, f := range s {
		if strings.TrimSpace(f.Name) == "" {
			return fmt.Errorf("schema field name is empty")
		}
		if _, dup := seen[f.Name]; dup {
			return fmt.Errorf("schema field %q duplicated", f.Name)
		}
		if !f.Type.Valid() {
			return fmt.Errorf("schema field %q has unknown type %q", f.Name, f.Type)
		}
		seen[f.Name] = struct{}{}
	}
	return nil
}

// Index 返回列位置。
func (s Schema) Index(name string) (int, bool) {
	for i, f := range s {
		if f.Name == name {
			return i, true
		}
	}
	return -1, false
}

// Lookup 返回列定义。
func (s Schema) Lookup(name string) (Field, bool) {
	if i, ok := s.Index(name); ok {
		return s[i], true
	}
	return Field{}, false
}

// Names 返回列名（按 schema 顺序）。
func (s Schema) Names() []string {
	names := make([]string, len(s))
	for i, f := range s {
		names[i] = f.Name
	}
	return names
}

func (s Schema) clone() Schema {
	out := make(Schema, len(s))
	copy(out, s)
	return out
}
