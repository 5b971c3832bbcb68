package logschema

import "testing"

func TestValidate(t *testing.T) {
	err := Validate("fetch_error", map[string]interface{}{
		"tick":      3,
		"error":     "connection refused",
		"latencyMs": int64(12),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	err = Validate("stream_started", map[string]interface{}{
		"session": "abc",
	})
	if err == nil {
		t.Fatalf("expected error for missing fields")
	}
	if err := Validate("not_registered", nil); err != nil {
		t.Fatalf("unknown events are not validated: %v", err)
	}
}

func TestKnownEvents(t *testing.T) {
	names := Known()
	if len(names) == 0 {
		t.Fatalf("expected non-empty schema list")
	}
	found := false
	for _, n := range names {
		if n == "graph_visible" {
			found = true
		}
		if s, _ := Lookup(n); s.Event != n {
			t.Fatalf("schema %s registered under wrong name %s", s.Event, n)
		}
	}
	if !found {
		t.Fatalf("graph_visible not found in schemas")
	}
}

func TestLevelOf(t *testing.T) {
	cases := map[string]Level{
		"batch_applied":     LevelDebug,
		"fetch_error":       LevelWarn,
		"store_unavailable": LevelError,
		"stream_started":    LevelInfo,
		"unregistered":      LevelInfo,
	}
	for event, want := range cases {
		if got := LevelOf(event); got != want {
			t.Fatalf("LevelOf(%s) = %s, want %s", event, got, want)
		}
	}
}
