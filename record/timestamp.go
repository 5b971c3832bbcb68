package record

import (
	"bytes"
	"encoding/json"
	"strings"
	"time"
)

// 数据源常见的时间格式，首个为原始报价服务的格式。
var timestampLayouts = []string{
	"2006-01-02 15:04:05.999999",
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.999999",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// Timestamp 宽松解析的时间；解析失败时保留原文、Time 为零值，不报错。
type Timestamp struct {
	time.Time
	Text string
}

// NewTimestamp 由 time.Time 构造。
func NewTimestamp(t time.Time) Timestamp {
	return Timestamp{Time: t, Text: t.Format(timestampLayouts[0])}
}

// ParseTimestamp 按已知格式依次尝试。
func ParseTimestamp(s string) Timestamp {
	s = strings.TrimSpace(s)
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return Timestamp{Time: t, Text: s}
		}
	}
	return Timestamp{Text: s}
}

func (ts *Timestamp) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*ts = Timestamp{}
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*ts = ParseTimestamp(s)
		return nil
	}
	// 非字符串（例如毫秒时间戳）
	var ms float64
	if err := json.Unmarshal(b, &ms); err == nil {
		*ts = Timestamp{Time: time.UnixMilli(int64(ms)).UTC(), Text: string(b)}
		return nil
	}
	*ts = Timestamp{Text: string(b)}
	return nil
}

func (ts Timestamp) MarshalJSON() ([]byte, error) {
	if ts.Time.IsZero() {
		return json.Marshal(ts.Text)
	}
	return json.Marshal(ts.Time.Format(timestampLayouts[0]))
}
