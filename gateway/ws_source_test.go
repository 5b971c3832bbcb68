package gateway

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quote-chart-go/record"
)

var upgrader = websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}

func wsURL(ts *httptest.Server) string {
	return "ws" + strings.TrimPrefix(ts.URL, "http")
}

func TestWSSourceBuffersPushedRecords(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		_ = conn.WriteMessage(websocket.TextMessage, []byte(`[{"stock":"ABC","top_ask":{"price":1}}]`))
		_ = conn.WriteMessage(websocket.TextMessage, []byte(`not json`))
		_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"stock":"DEF"}`))
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer ts.Close()

	var mu sync.Mutex
	var events []string
	src := NewWSSource(wsURL(ts))
	src.Sink = func(e string, _ map[string]interface{}) {
		mu.Lock()
		events = append(events, e)
		mu.Unlock()
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- src.Run(ctx) }()

	var got []string
	require.Eventually(t, func() bool {
		recs, _ := src.GetData(context.Background())
		for _, r := range recs {
			got = append(got, r.Stock)
		}
		return len(got) == 2
	}, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{"ABC", "DEF"}, got)
	assert.True(t, src.Connected())

	recs, err := src.GetData(context.Background())
	require.NoError(t, err)
	assert.Empty(t, recs, "buffer is drained by each call")

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
	mu.Lock()
	defer mu.Unlock()
	assert.Contains(t, events, "source_connected")
	assert.Contains(t, events, "source_decode_error")
}

func TestWSSourceReconnects(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"stock":"ABC"}`))
		conn.Close()
	}))
	defer ts.Close()

	src := NewWSSource(wsURL(ts))
	src.MinBackoff = time.Millisecond
	src.MaxBackoff = 5 * time.Millisecond
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = src.Run(ctx) }()

	require.Eventually(t, func() bool { return src.Dials() >= 3 }, 2*time.Second, 5*time.Millisecond)
}

func TestWSSourceBufferLimit(t *testing.T) {
	src := NewWSSource("ws://unused")
	src.MaxBuffer = 2
	src.push(mustDecode(t, `[{"stock":"A"},{"stock":"B"},{"stock":"C"}]`))
	recs, err := src.GetData(context.Background())
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, "B", recs[0].Stock)
	assert.Equal(t, 1, src.Dropped())
}

func TestWSSourceRequiresURL(t *testing.T) {
	assert.Error(t, (&WSSource{}).Run(context.Background()))
}

func mustDecode(t *testing.T, raw string) []record.Raw {
	t.Helper()
	recs, err := DecodeRecords([]byte(raw))
	require.NoError(t, err)
	return recs
}
