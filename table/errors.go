package table

import (
	"errors"
	"fmt"
)

var (
	ErrUnknownColumn = errors.New("unknown column")
	ErrTypeMismatch  = errors.New("column type mismatch")
)

// SchemaError 描述一批更新中第一处违反 schema 的位置；整批被拒绝。
type SchemaError struct {
	Row    int
	Column string
	Reason string
}

func (e *SchemaError) Error() string {
	if e.Column == "" {
		return fmt.Sprintf("row %d: %s", e.Row, e.Reason)
	}
	return fmt.Sprintf("row %d column %q: %s", e.Row, e.Column, e.Reason)
}
