package gateway

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const samplePayload = `[
	{"id":"1","stock":"ABC","top_ask":{"price":121.2,"size":36},"top_bid":{"price":120.48,"size":109},"timestamp":"2019-02-11 22:06:30.572453"},
	{"id":"1","stock":"DEF","top_ask":null,"top_bid":{"price":117.87,"size":81},"timestamp":"2019-02-11 22:06:30.572453"}
]`

func TestHTTPSourceGetData(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/query" || r.URL.Query().Get("id") != "1" {
			t.Errorf("unexpected request %s", r.URL.String())
		}
		io.WriteString(w, samplePayload)
	}))
	defer ts.Close()

	src := NewHTTPSource(ts.URL, "")
	src.HTTPClient = ts.Client()
	recs, err := src.GetData(context.Background())
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, "ABC", recs[0].Stock)
	require.NotNil(t, recs[0].TopAsk)
	assert.Equal(t, 121.2, recs[0].TopAsk.Price)
	assert.Nil(t, recs[1].TopAsk)
	assert.Equal(t, 2019, recs[1].Timestamp.Year())
}

func TestHTTPSourceEndpoint(t *testing.T) {
	assert.Equal(t, "http://localhost:8080/query?id=1", NewHTTPSource("", "").Endpoint())
	assert.Equal(t, "http://h:1/q", (&HTTPSource{BaseURL: "http://h:1/", Path: "q"}).Endpoint())
}

func TestHTTPSourceStatusError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusServiceUnavailable)
	}))
	defer ts.Close()
	src := NewHTTPSource(ts.URL, "/query?id=1")
	_, err := src.GetData(context.Background())
	var se *StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusServiceUnavailable, se.Code)
	assert.Equal(t, "boom", se.Body)
}

func TestHTTPSourceBadJSON(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `[{"stock":`)
	}))
	defer ts.Close()
	_, err := NewHTTPSource(ts.URL, "/").GetData(context.Background())
	assert.Error(t, err)
}

func TestHTTPSourceContextCancel(t *testing.T) {
	unblock := make(chan struct{})
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-unblock:
		case <-r.Context().Done():
		}
	}))
	defer ts.Close()
	defer close(unblock)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := NewHTTPSource(ts.URL, "/").GetData(ctx)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
}

func TestHTTPSourceLimiter(t *testing.T) {
	var hits atomic.Int64
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		io.WriteString(w, `[]`)
	}))
	defer ts.Close()
	src := NewHTTPSource(ts.URL, "/")
	src.Limiter = NewLimiter(1, 1)

	_, err := src.GetData(context.Background())
	require.NoError(t, err)
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err = src.GetData(ctx)
	assert.Error(t, err, "second request must wait for a token")
	assert.Equal(t, int64(1), hits.Load())
}

func TestNewLimiterDisabled(t *testing.T) {
	assert.Nil(t, NewLimiter(0, 0))
	l := NewLimiter(5, 0)
	require.NotNil(t, l)
	assert.Equal(t, 1, l.Burst())
}
