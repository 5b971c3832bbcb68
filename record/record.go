// Package record 定义外部报价记录与进入列式表之前的固定 4 字段形状。
package record

import (
	"time"

	"quote-chart-go/table"
)

// 固定 schema 的列名。
const (
	FieldStock       = "stock"
	FieldTopAskPrice = "top_ask_price"
	FieldTopBidPrice = "top_bid_price"
	FieldTimestamp   = "timestamp"
)

// Quote 最优一档报价。
type Quote struct {
	Price float64 `json:"price"`
	Size  float64 `json:"size,omitempty"`
}

// Raw 外部数据源返回的原始记录，top_ask/top_bid 可能缺失。
type Raw struct {
	ID        string    `json:"id,omitempty"`
	Stock     string    `json:"stock"`
	TopAsk    *Quote    `json:"top_ask,omitempty"`
	TopBid    *Quote    `json:"top_bid,omitempty"`
	Timestamp Timestamp `json:"timestamp"`
}

// Canonical 表内记录，恰好 4 个字段，数值列永不为空。
type Canonical struct {
	Stock       string    `json:"stock"`
	TopAskPrice float64   `json:"top_ask_price"`
	TopBidPrice float64   `json:"top_bid_price"`
	Timestamp   time.Time `json:"timestamp"`
}

// Schema 返回列式表的固定 schema。
func Schema() table.Schema {
	return table.Schema{
		{Name: FieldStock, Type: table.TypeString},
		{Name: FieldTopAskPrice, Type: table.TypeFloat},
		{Name: FieldTopBidPrice, Type: table.TypeFloat},
		{Name: FieldTimestamp, Type: table.TypeDate},
	}
}

// Reshape 纯函数：缺失报价取 0，stock/timestamp 原样透传，不做校验。
func Reshape(r Raw) Canonical {
	c := Canonical{
		Stock:     r.Stock,
		Timestamp: r.Timestamp.Time,
	}
	if r.TopAsk != nil {
		c.TopAskPrice = r.TopAsk.Price
	}
	if r.TopBid != nil {
		c.TopBidPrice = r.TopBid.Price
	}
	return c
}

// ReshapeAll 批量 Reshape，保持顺序。
func ReshapeAll(raw []Raw) []Canonical {
	out := make([]Canonical, len(raw))
	for i, r := range raw {
		out[i] = Reshape(r)
	}
	return out
}

// Row 转为 table.Row。
func (c Canonical) Row() table.Row {
	return table.Row{
		FieldStock:       c.Stock,
		FieldTopAskPrice: c.TopAskPrice,
		FieldTopBidPrice: c.TopBidPrice,
		FieldTimestamp:   c.Timestamp,
	}
}

// Rows 批量转换。
func Rows(batch []Canonical) []table.Row {
	rows := make([]table.Row, len(batch))
	for i, c := range batch {
		rows[i] = c.Row()
	}
	return rows
}
