package record

// Problem 记录的已知缺陷；Reshape 不修正它们，只供上层标记。
type Problem string

const (
	ProblemEmptyStock    Problem = "empty_stock"
	ProblemZeroTimestamp Problem = "zero_timestamp"
)

// Inspect 列出记录中会以垃圾值进入表的字段。
func Inspect(c Canonical) []Problem {
	var out []Problem
	if c.Stock == "" {
		out = append(out, ProblemEmptyStock)
	}
	if c.Timestamp.IsZero() {
		out = append(out, ProblemZeroTimestamp)
	}
	return out
}
