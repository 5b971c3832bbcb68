// Package sim 进程内的合成报价源：对一组股票做随机游走，偶尔缺失一侧报价。
package sim

import (
	"context"
	"encoding/json"
	"math"
	"math/rand"
	"net/http"
	"strconv"
	"sync"
	"time"

	"quote-chart-go/record"
)

// Clock 便于测试注入确定时间。
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

// Rand 随机数来源。
type Rand interface {
	Float64() float64
	NormFloat64() float64
}

// Config 生成器参数；零值字段使用默认值。
type Config struct {
	Stocks      []string
	Seed        int64
	BasePrice   float64
	Volatility  float64 // 每步相对波动
	Spread      float64 // 相对买卖价差
	MissingProb float64 // 单侧报价缺失概率
	Clock       Clock
	Rand        Rand
}

var DefaultStocks = []string{"ABC", "DEF"}

func (c Config) withDefaults() Config {
	if len(c.Stocks) == 0 {
		c.Stocks = DefaultStocks
	}
	if c.BasePrice <= 0 {
		c.BasePrice = 100
	}
	if c.Volatility <= 0 {
		c.Volatility = 0.002
	}
	if c.Spread <= 0 {
		c.Spread = 0.005
	}
	if c.MissingProb < 0 {
		c.MissingProb = 0
	}
	if c.Clock == nil {
		c.Clock = realClock{}
	}
	if c.Rand == nil {
		c.Rand = rand.New(rand.NewSource(c.Seed))
	}
	return c
}

// Generator 每次 Next 为每只股票产出一条报价。并发安全。
type Generator struct {
	cfg Config

	mu     sync.Mutex
	prices map[string]float64
	seq    int64
}

// NewGenerator 创建生成器。
func NewGenerator(cfg Config) *Generator {
	cfg = cfg.withDefaults()
	prices := make(map[string]float64, len(cfg.Stocks))
	for _, s := range cfg.Stocks {
		prices[s] = cfg.BasePrice
	}
	return &Generator{cfg: cfg, prices: prices}
}

// Stocks 参与游走的股票。
func (g *Generator) Stocks() []string {
	return append([]string(nil), g.cfg.Stocks...)
}

// Next 推进一步。
func (g *Generator) Next() []record.Raw {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.seq++
	now := g.cfg.Clock.Now()
	id := strconv.FormatInt(g.seq, 10)
	out := make([]record.Raw, 0, len(g.cfg.Stocks))
	for _, stock := range g.cfg.Stocks {
		mid := g.prices[stock] * math.Exp(g.cfg.Volatility*g.cfg.Rand.NormFloat64())
		g.prices[stock] = mid
		half := mid * g.cfg.Spread / 2
		r := record.Raw{ID: id, Stock: stock, Timestamp: record.NewTimestamp(now)}
		if g.cfg.Rand.Float64() >= g.cfg.MissingProb {
			r.TopAsk = &record.Quote{Price: round2(mid + half), Size: g.size()}
		}
		if g.cfg.Rand.Float64() >= g.cfg.MissingProb {
			r.TopBid = &record.Quote{Price: round2(mid - half), Size: g.size()}
		}
		out = append(out, r)
	}
	return out
}

// GetData 实现 stream.Source。
func (g *Generator) GetData(ctx context.Context) ([]record.Raw, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return g.Next(), nil
}

// ServeHTTP 以 JSON 数组返回一步报价，对应 GET /query?id=1。
func (g *Generator) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(g.Next())
}

func (g *Generator) size() float64 {
	return float64(1 + int(g.cfg.Rand.Float64()*200))
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
