package monitor

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Monitor Prometheus监控指标收集器，实现 stream.Metrics
type Monitor struct {
	registry *prometheus.Registry

	// 控制器指标
	ticks        prometheus.Counter
	fetches      prometheus.Counter
	fetchErrors  prometheus.Counter
	fetchLatency prometheus.Histogram
	inFlight     prometheus.Gauge

	// 批次指标
	batches      prometheus.Counter
	rowsIngested prometheus.Counter
	rowsDropped  prometheus.Counter
	malformed    *prometheus.CounterVec

	// 展示指标
	visible    prometheus.Gauge
	storeRows  prometheus.Gauge
	storeReady prometheus.Gauge

	// 数据源指标
	sourceEvents *prometheus.CounterVec
}

// Config 监控配置
type Config struct {
	Namespace string
	Subsystem string
}

// DefaultConfig 返回默认配置
func DefaultConfig() Config {
	return Config{
		Namespace: "qc",
		Subsystem: "stream",
	}
}

// New 创建新的Monitor实例
func New(cfg Config) *Monitor {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	counter := func(name, help string) prometheus.Counter {
		return factory.NewCounter(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      name,
			Help:      help,
		})
	}
	gauge := func(name, help string) prometheus.Gauge {
		return factory.NewGauge(prometheus.GaugeOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      name,
			Help:      help,
		})
	}

	return &Monitor{
		registry: reg,

		ticks:       counter("ticks_total", "定时器 tick 总数"),
		fetches:     counter("fetches_total", "完成的抓取总数"),
		fetchErrors: counter("fetch_errors_total", "失败的抓取总数"),
		fetchLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      "fetch_latency_seconds",
			Help:      "抓取延迟分布（秒）",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0},
		}),
		inFlight: gauge("fetches_in_flight", "在途抓取数"),

		batches:      counter("batches_total", "写入表的批次总数"),
		rowsIngested: counter("rows_ingested_total", "写入表的行总数"),
		rowsDropped:  counter("rows_dropped_total", "因表未就绪或写入失败丢弃的行总数"),
		malformed: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "malformed_records_total",
				Help:      "带缺陷透传的记录数",
			},
			[]string{"problem"},
		),

		visible:    gauge("graph_visible", "图表是否可见(0/1)"),
		storeRows:  gauge("store_rows", "列式表当前行数"),
		storeReady: gauge("store_ready", "列式表是否已创建(0/1)"),

		sourceEvents: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "source_events_total",
				Help:      "数据源连接事件",
			},
			[]string{"event"},
		),
	}
}

func (m *Monitor) RecordTick() {
	m.ticks.Inc()
}

func (m *Monitor) RecordFetch(latency time.Duration, err error) {
	m.fetches.Inc()
	m.fetchLatency.Observe(latency.Seconds())
	if err != nil {
		m.fetchErrors.Inc()
	}
}

func (m *Monitor) RecordBatch(applied, dropped int) {
	if applied > 0 {
		m.batches.Inc()
		m.rowsIngested.Add(float64(applied))
	}
	if dropped > 0 {
		m.rowsDropped.Add(float64(dropped))
	}
}

func (m *Monitor) RecordMalformed(problem string) {
	m.malformed.WithLabelValues(problem).Inc()
}

func (m *Monitor) SetInFlight(n int) {
	m.inFlight.Set(float64(n))
}

func (m *Monitor) SetVisible(visible bool) {
	m.visible.Set(boolGauge(visible))
}

// SetStoreRows 由表的 OnUpdate 回调驱动。
func (m *Monitor) SetStoreRows(n int) {
	m.storeRows.Set(float64(n))
}

func (m *Monitor) SetStoreReady(ready bool) {
	m.storeReady.Set(boolGauge(ready))
}

// RecordSourceEvent 记录 source_connected / source_disconnected 等事件。
func (m *Monitor) RecordSourceEvent(event string) {
	m.sourceEvents.WithLabelValues(event).Inc()
}

// Handler 返回HTTP handler用于暴露指标
func (m *Monitor) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry 返回prometheus registry
func (m *Monitor) Registry() *prometheus.Registry {
	return m.registry
}

func boolGauge(v bool) float64 {
	if v {
		return 1
	}
	return 0
}
