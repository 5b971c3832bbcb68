package gateway

import (
	"bytes"
	"encoding/json"
	"fmt"

	"quote-chart-go/record"
)

// Envelope 推送消息的包装，兼容 {"stream":..., "data":[...]} 形式。
type Envelope struct {
	Stream string          `json:"stream,omitempty"`
	Data   json.RawMessage `json:"data"`
}

// DecodeRecords 解析一条消息：记录数组、单条记录对象或 Envelope 包装；空消息返回 nil。
func DecodeRecords(raw []byte) ([]record.Raw, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, nil
	}
	switch raw[0] {
	case '[':
		var out []record.Raw
		if err := json.Unmarshal(raw, &out); err != nil {
			return nil, fmt.Errorf("decode records: %w", err)
		}
		return out, nil
	case '{':
		var env Envelope
		if err := json.Unmarshal(raw, &env); err == nil && len(env.Data) > 0 {
			return DecodeRecords(env.Data)
		}
		var one record.Raw
		if err := json.Unmarshal(raw, &one); err != nil {
			return nil, fmt.Errorf("decode record: %w", err)
		}
		return []record.Raw{one}, nil
	default:
		return nil, fmt.Errorf("decode records: unexpected payload starting with %q", raw[0])
	}
}
