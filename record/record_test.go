package record

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quote-chart-go/table"
)

func TestReshapeScenario(t *testing.T) {
	t1 := time.Date(2019, 2, 10, 11, 32, 46, 590324000, time.UTC)
	raw := Raw{Stock: "AAPL", TopAsk: &Quote{Price: 100}, TopBid: nil, Timestamp: NewTimestamp(t1)}

	got := Reshape(raw)
	assert.Equal(t, Canonical{Stock: "AAPL", TopAskPrice: 100, TopBidPrice: 0, Timestamp: t1}, got)
}

func TestReshapeDefaultsBothQuotes(t *testing.T) {
	cases := []Raw{
		{},
		{Stock: "ABC"},
		{Stock: "ABC", TopBid: &Quote{Price: 12.5, Size: 3}},
		{TopAsk: &Quote{}},
	}
	for _, r := range cases {
		c := Reshape(r)
		if r.TopAsk == nil {
			assert.Zero(t, c.TopAskPrice)
		} else {
			assert.Equal(t, r.TopAsk.Price, c.TopAskPrice)
		}
		if r.TopBid == nil {
			assert.Zero(t, c.TopBidPrice)
		} else {
			assert.Equal(t, r.TopBid.Price, c.TopBidPrice)
		}
	}
}

func TestDecodeServerPayload(t *testing.T) {
	payload := `[
	  {"id":"0.109974697771","stock":"ABC","timestamp":"2019-02-11 22:06:30.572453",
	   "top_ask":{"price":121.2,"size":36},"top_bid":{"price":120.48,"size":109}},
	  {"id":"0.109974697771","stock":"DEF","timestamp":"2019-02-11 22:06:30.572453",
	   "top_ask":null,"top_bid":{"price":117.87,"size":81}},
	  {"stock":"XYZ","timestamp":"not a time"}
	]`
	var raws []Raw
	require.NoError(t, json.Unmarshal([]byte(payload), &raws))
	require.Len(t, raws, 3)

	batch := ReshapeAll(raws)
	assert.Equal(t, 121.2, batch[0].TopAskPrice)
	assert.Equal(t, 120.48, batch[0].TopBidPrice)
	assert.Equal(t, 0.0, batch[1].TopAskPrice)
	assert.Equal(t, 117.87, batch[1].TopBidPrice)
	assert.Equal(t, 572453000, batch[0].Timestamp.Nanosecond())

	// 无法解析的时间原样保留文本，Time 为零值
	assert.True(t, batch[2].Timestamp.IsZero())
	assert.Equal(t, "not a time", raws[2].Timestamp.Text)
	assert.Equal(t, []Problem{ProblemZeroTimestamp}, Inspect(batch[2]))
}

func TestParseTimestampLayouts(t *testing.T) {
	for _, s := range []string{
		"2019-02-11 22:06:30.572453",
		"2019-02-11T22:06:30Z",
		"2019-02-11T22:06:30.5+01:00",
		"2019-02-11 22:06:30",
		"2019-02-11",
	} {
		assert.False(t, ParseTimestamp(s).IsZero(), s)
	}
	var ts Timestamp
	require.NoError(t, json.Unmarshal([]byte(`1549922790572`), &ts))
	assert.Equal(t, int64(1549922790572), ts.UnixMilli())
}

func TestInspect(t *testing.T) {
	assert.Empty(t, Inspect(Canonical{Stock: "ABC", Timestamp: time.Now()}))
	assert.Equal(t, []Problem{ProblemEmptyStock, ProblemZeroTimestamp}, Inspect(Canonical{}))
}

func TestRowsMatchSchema(t *testing.T) {
	tbl, err := table.New(Schema())
	require.NoError(t, err)
	batch := ReshapeAll([]Raw{{Stock: "ABC", Timestamp: NewTimestamp(time.Now())}, {}})
	require.NoError(t, tbl.Update(Rows(batch)))
	assert.Equal(t, 2, tbl.Size())
}
