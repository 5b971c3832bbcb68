package alert

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"quote-chart-go/infrastructure/logger"
	"quote-chart-go/stream"
)

func TestManagerSend(t *testing.T) {
	mem := NewMemoryChannel("mem", 0)
	mgr := NewManager([]Channel{mem}, time.Minute)
	require.NoError(t, mgr.Send(Alert{Level: LevelInfo, Message: "hello", Fields: map[string]interface{}{"k": "v"}}))

	alerts := mem.Alerts()
	require.Len(t, alerts, 1)
	assert.Equal(t, LevelInfo, alerts[0].Level)
	assert.Equal(t, "v", alerts[0].Fields["k"])
	assert.False(t, alerts[0].Timestamp.IsZero())
	assert.Equal(t, []string{"mem"}, mgr.Channels())
}

func TestManagerThrottle(t *testing.T) {
	mem := NewMemoryChannel("mem", 0)
	mgr := NewManager([]Channel{mem}, time.Hour)
	for i := 0; i < 5; i++ {
		require.NoError(t, mgr.Send(Alert{Level: LevelWarning, Message: "same"}))
	}
	require.NoError(t, mgr.Send(Alert{Level: LevelWarning, Message: "other"}))
	assert.Len(t, mem.Alerts(), 2)
	sent, suppressed := mgr.Stats()
	assert.Equal(t, 2, sent)
	assert.Equal(t, 4, suppressed)

	mgr.ResetThrottle()
	require.NoError(t, mgr.Send(Alert{Level: LevelWarning, Message: "same"}))
	assert.Len(t, mem.Alerts(), 3)
}

func TestThrottlerInterval(t *testing.T) {
	now := time.Unix(0, 0)
	th := NewThrottler(time.Second)
	th.now = func() time.Time { return now }
	assert.True(t, th.Allow("k"))
	assert.False(t, th.Allow("k"))
	now = now.Add(time.Second)
	assert.True(t, th.Allow("k"))
}

func TestManagerAllChannelsFail(t *testing.T) {
	a, b := NewMemoryChannel("a", 0), NewMemoryChannel("b", 0)
	a.SetFailing(true)
	mgr := NewManager([]Channel{a, b}, 0)
	assert.NoError(t, mgr.Send(Alert{Level: LevelError, Message: "x"}), "one channel succeeded")
	b.SetFailing(true)
	assert.Error(t, mgr.Send(Alert{Level: LevelError, Message: "y"}))
}

func TestMemoryChannelLimit(t *testing.T) {
	mem := NewMemoryChannel("mem", 2)
	for _, m := range []string{"a", "b", "c"} {
		require.NoError(t, mem.Send(Alert{Message: m}))
	}
	alerts := mem.Alerts()
	require.Len(t, alerts, 2)
	assert.Equal(t, "b", alerts[0].Message)
}

func TestLogChannelLevels(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	ch := NewLogChannel("log", logger.Wrap(zap.New(core)))
	require.NoError(t, ch.Send(Alert{Level: LevelWarning, Message: "w", Fields: map[string]interface{}{"tick": 3}}))
	require.NoError(t, ch.Send(Alert{Level: LevelCritical, Message: "c"}))
	entries := logs.All()
	require.Len(t, entries, 2)
	assert.Equal(t, zapcore.WarnLevel, entries[0].Level)
	assert.EqualValues(t, 3, entries[0].ContextMap()["tick"])
	assert.Equal(t, zapcore.ErrorLevel, entries[1].Level)
}

func TestStreamObserverEscalates(t *testing.T) {
	mem := NewMemoryChannel("mem", 0)
	obs := NewStreamObserver(NewManager([]Channel{mem}, 0), 3)
	boom := errors.New("connection refused")
	for i := 1; i <= 3; i++ {
		obs.OnStatus(stream.Event{Kind: stream.EventFetchFailed, Tick: i, Err: boom})
	}
	alerts := mem.Alerts()
	require.Len(t, alerts, 3)
	assert.Equal(t, LevelWarning, alerts[0].Level)
	assert.Equal(t, LevelError, alerts[2].Level)
	assert.Equal(t, "connection refused", alerts[2].Fields["error"])

	// 成功投递后重新计数
	obs.OnStatus(stream.Event{Kind: stream.EventFetchFailed, Tick: 5, Err: boom, Status: stream.Status{Batches: 1}})
	assert.Equal(t, 1, obs.ConsecutiveFailures())
}

func TestStreamObserverDroppedAndStopped(t *testing.T) {
	mem := NewMemoryChannel("mem", 0)
	obs := NewStreamObserver(NewManager([]Channel{mem}, 0), 0)
	obs.OnStatus(stream.Event{Kind: stream.EventBatchDropped, Tick: 1, Rows: 2, Status: stream.Status{RowsDropped: 2}})
	obs.OnStatus(stream.Event{Kind: stream.EventStopped, Status: stream.Status{State: stream.StateStopped, Ticks: 1000}})
	alerts := mem.Alerts()
	require.Len(t, alerts, 2)
	assert.Equal(t, LevelError, alerts[0].Level)
	assert.Equal(t, 2, alerts[0].Fields["rows"])
	assert.Equal(t, LevelInfo, alerts[1].Level)
	assert.Equal(t, "stopped", alerts[1].Fields["state"])
}
