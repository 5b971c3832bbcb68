package sim

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quote-chart-go/record"
)

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

func TestGeneratorDeterministicWithSeed(t *testing.T) {
	a := NewGenerator(Config{Seed: 7})
	b := NewGenerator(Config{Seed: 7})
	for i := 0; i < 5; i++ {
		ra, rb := a.Next(), b.Next()
		require.Len(t, ra, 2)
		for j := range ra {
			assert.Equal(t, ra[j].Stock, rb[j].Stock)
			assert.Equal(t, ra[j].TopAsk, rb[j].TopAsk)
			assert.Equal(t, ra[j].TopBid, rb[j].TopBid)
		}
	}
}

func TestGeneratorQuotesBracketMid(t *testing.T) {
	g := NewGenerator(Config{Stocks: []string{"ABC"}, Seed: 1})
	for i := 0; i < 50; i++ {
		r := g.Next()[0]
		require.NotNil(t, r.TopAsk)
		require.NotNil(t, r.TopBid)
		assert.Greater(t, r.TopAsk.Price, r.TopBid.Price)
		assert.Greater(t, r.TopBid.Price, 0.0)
	}
}

func TestGeneratorMissingQuotes(t *testing.T) {
	g := NewGenerator(Config{MissingProb: 1})
	for _, r := range g.Next() {
		assert.Nil(t, r.TopAsk)
		assert.Nil(t, r.TopBid)
		c := record.Reshape(r)
		assert.Equal(t, 0.0, c.TopAskPrice)
		assert.Equal(t, 0.0, c.TopBidPrice)
	}
}

func TestGeneratorTimestampAndID(t *testing.T) {
	now := time.Date(2019, 2, 11, 22, 6, 30, 572453000, time.UTC)
	g := NewGenerator(Config{Clock: fixedClock{now}})
	first := g.Next()
	second := g.Next()
	assert.Equal(t, "1", first[0].ID)
	assert.Equal(t, "2", second[1].ID)
	assert.True(t, first[0].Timestamp.Equal(now))
	assert.Equal(t, "2019-02-11 22:06:30.572453", first[0].Timestamp.Text)
}

func TestGeneratorGetDataCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewGenerator(Config{}).GetData(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestGeneratorServeHTTP(t *testing.T) {
	now := time.Date(2019, 2, 11, 22, 6, 30, 0, time.UTC)
	g := NewGenerator(Config{Clock: fixedClock{now}, Seed: 3})
	rec := httptest.NewRecorder()
	g.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/query?id=1", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var recs []record.Raw
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &recs))
	require.Len(t, recs, 2)
	assert.Equal(t, "ABC", recs[0].Stock)
	assert.True(t, recs[0].Timestamp.Equal(now))

	rec = httptest.NewRecorder()
	g.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/query", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
