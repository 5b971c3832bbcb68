package monitor

import (
	"errors"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quote-chart-go/stream"
)

var _ stream.Metrics = (*Monitor)(nil)

func TestRecordFetch(t *testing.T) {
	m := New(DefaultConfig())
	m.RecordTick()
	m.RecordTick()
	m.RecordFetch(10*time.Millisecond, nil)
	m.RecordFetch(20*time.Millisecond, errors.New("boom"))

	assert.Equal(t, 2.0, testutil.ToFloat64(m.ticks))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.fetches))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.fetchErrors))
	assert.Equal(t, 1, testutil.CollectAndCount(m.fetchLatency))
}

func TestRecordBatch(t *testing.T) {
	m := New(DefaultConfig())
	m.RecordBatch(3, 0)
	m.RecordBatch(0, 2)
	m.RecordBatch(0, 0)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.batches))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.rowsIngested))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.rowsDropped))
}

func TestMalformedByProblem(t *testing.T) {
	m := New(DefaultConfig())
	m.RecordMalformed("empty_stock")
	m.RecordMalformed("empty_stock")
	m.RecordMalformed("zero_timestamp")
	assert.Equal(t, 2.0, testutil.ToFloat64(m.malformed.WithLabelValues("empty_stock")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.malformed.WithLabelValues("zero_timestamp")))
}

func TestGauges(t *testing.T) {
	m := New(DefaultConfig())
	m.SetInFlight(4)
	m.SetVisible(true)
	m.SetStoreRows(12)
	m.SetStoreReady(true)
	assert.Equal(t, 4.0, testutil.ToFloat64(m.inFlight))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.visible))
	assert.Equal(t, 12.0, testutil.ToFloat64(m.storeRows))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.storeReady))
	m.SetVisible(false)
	assert.Equal(t, 0.0, testutil.ToFloat64(m.visible))
}

func TestHandlerExposesMetrics(t *testing.T) {
	m := New(DefaultConfig())
	m.RecordTick()
	m.RecordSourceEvent("source_connected")
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	text := string(body)
	assert.True(t, strings.Contains(text, "qc_stream_ticks_total 1"))
	assert.Contains(t, text, `qc_stream_source_events_total{event="source_connected"} 1`)
}
