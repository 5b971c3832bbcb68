// Package logschema 集中定义结构化日志事件的必需字段与级别。
package logschema

import (
	"fmt"
	"sort"
	"strings"
)

// Level 事件默认日志级别。
type Level string

const (
	LevelDebug Level = "debug"
	LevelInfo  Level = "info"
	LevelWarn  Level = "warn"
	LevelError Level = "error"
)

// Schema 定义每个日志事件所需的关键字段，便于集中校验。
type Schema struct {
	Event    string
	Level    Level
	Required []string
}

var schemas = map[string]Schema{
	"stream_started": {
		Event:    "stream_started",
		Level:    LevelInfo,
		Required: []string{"session", "intervalMs", "maxTicks", "overlap"},
	},
	"timer_stopped": {
		Event:    "timer_stopped",
		Level:    LevelInfo,
		Required: []string{"ticks", "inFlight"},
	},
	"fetch_error": {
		Event:    "fetch_error",
		Level:    LevelWarn,
		Required: []string{"tick", "error"},
	},
	"batch_applied": {
		Event:    "batch_applied",
		Level:    LevelDebug,
		Required: []string{"tick", "rows", "applied"},
	},
	"apply_error": {
		Event:    "apply_error",
		Level:    LevelError,
		Required: []string{"tick", "rows", "error"},
	},
	"malformed_record": {
		Event:    "malformed_record",
		Level:    LevelWarn,
		Required: []string{"tick", "count", "problems"},
	},
	"graph_visible": {
		Event:    "graph_visible",
		Level:    LevelInfo,
		Required: []string{"tick"},
	},
	"stream_stopped": {
		Event:    "stream_stopped",
		Level:    LevelInfo,
		Required: []string{"session", "state", "ticks", "fetches"},
	},
	"store_created": {
		Event:    "store_created",
		Level:    LevelInfo,
		Required: []string{"columns"},
	},
	"store_unavailable": {
		Event:    "store_unavailable",
		Level:    LevelError,
		Required: []string{"reason"},
	},
	"mount_failed": {
		Event:    "mount_failed",
		Level:    LevelError,
		Required: []string{"step", "error"},
	},
	"view_attached": {
		Event:    "view_attached",
		Level:    LevelInfo,
		Required: []string{"view", "columns"},
	},
	"source_connected": {
		Event:    "source_connected",
		Level:    LevelInfo,
		Required: []string{"url"},
	},
	"source_disconnected": {
		Event:    "source_disconnected",
		Level:    LevelWarn,
		Required: []string{"url", "error", "backoffMs"},
	},
	"source_decode_error": {
		Event:    "source_decode_error",
		Level:    LevelWarn,
		Required: []string{"error"},
	},
	"config_reloaded": {
		Event:    "config_reloaded",
		Level:    LevelInfo,
		Required: []string{"path", "logLevel"},
	},
}

// Known 返回所有事件名，便于外部生成文档。
func Known() []string {
	names := make([]string, 0, len(schemas))
	for k := range schemas {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// Lookup 返回事件定义。
func Lookup(event string) (Schema, bool) {
	s, ok := schemas[event]
	return s, ok
}

// LevelOf 事件的默认级别，未登记的事件为 info。
func LevelOf(event string) Level {
	if s, ok := schemas[event]; ok && s.Level != "" {
		return s.Level
	}
	return LevelInfo
}

// Validate 检查日志字段是否包含 schema 中要求的 key。
func Validate(event string, fields map[string]interface{}) error {
	s, ok := schemas[event]
	if !ok {
		return nil
	}
	var missing []string
	for _, key := range s.Required {
		if _, exists := fields[key]; !exists {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%s missing fields: %s", event, strings.Join(missing, ","))
	}
	return nil
}
