package container

import (
	"context"
	"fmt"
	"sync"
	"time"

	"quote-chart-go/config"
	"quote-chart-go/gateway"
	"quote-chart-go/graph"
	"quote-chart-go/infrastructure/alert"
	"quote-chart-go/infrastructure/logger"
	"quote-chart-go/infrastructure/monitor"
	"quote-chart-go/sim"
	"quote-chart-go/stream"
	"quote-chart-go/table"
	"quote-chart-go/viewer"
)

const (
	recentAlerts  = 50
	alertThrottle = 30 * time.Second
)

// Container 依赖注入容器，管理所有组件的生命周期
type Container struct {
	// 配置
	cfg        config.AppConfig
	configPath string

	// 基础设施
	logger  *logger.Logger
	monitor *monitor.Monitor
	alerts  *alert.Manager
	recent  *alert.MemoryChannel

	// 数据源
	source stream.Source
	ws     *gateway.WSSource
	sim    *sim.Generator

	// 核心服务
	viewer   *viewer.Element
	graph    *graph.Graph
	streamer *stream.Streamer

	// HTTP服务器
	server *httpServerComponent

	// 生命周期管理
	lifecycle *LifecycleManager

	mu       sync.Mutex
	runCtx   context.Context
	rowsHook sync.Once
}

// New 从配置文件创建Container，环境变量覆盖生效
func New(configPath string) (*Container, error) {
	cfg, err := config.LoadWithEnvOverrides(configPath)
	if err != nil {
		return nil, fmt.Errorf("load config failed: %w", err)
	}
	c := NewWithConfig(cfg)
	c.configPath = configPath
	return c, nil
}

// NewWithConfig 使用已加载的配置
func NewWithConfig(cfg config.AppConfig) *Container {
	return &Container{
		cfg:       cfg,
		lifecycle: NewLifecycleManager(),
		runCtx:    context.Background(),
	}
}

// Build 构建所有组件
func (c *Container) Build() error {
	if err := c.buildInfrastructure(); err != nil {
		return fmt.Errorf("build infrastructure failed: %w", err)
	}
	if err := c.buildSource(); err != nil {
		return fmt.Errorf("build source failed: %w", err)
	}
	c.buildCoreServices()
	c.registerLifecycleComponents()
	c.logger.Info("container built successfully")
	return nil
}

func (c *Container) buildInfrastructure() error {
	var err error
	c.logger, err = logger.New(c.cfg.Log)
	if err != nil {
		return fmt.Errorf("create logger failed: %w", err)
	}
	c.monitor = monitor.New(monitor.DefaultConfig())
	c.recent = alert.NewMemoryChannel("recent", recentAlerts)
	c.alerts = alert.NewManager([]alert.Channel{
		alert.NewLogChannel("log", c.logger),
		c.recent,
	}, alertThrottle)
	return nil
}

func (c *Container) buildSource() error {
	sc := c.cfg.Source
	switch sc.Kind {
	case config.SourceHTTP:
		src := gateway.NewHTTPSource(sc.BaseURL, sc.Path)
		src.Limiter = gateway.NewLimiter(sc.RequestsPerSecond, 1)
		c.source = src
	case config.SourceWS:
		c.ws = gateway.NewWSSource(sc.WSURL)
		c.ws.Sink = c.sourceSink
		c.source = c.ws
	case config.SourceSim:
		c.sim = sim.NewGenerator(sim.Config{
			Stocks:      sc.Sim.Stocks,
			Seed:        sc.Sim.Seed,
			BasePrice:   sc.Sim.BasePrice,
			MissingProb: sc.Sim.MissingProb,
		})
		c.source = c.sim
	default:
		return fmt.Errorf("unknown source kind %q", sc.Kind)
	}
	return nil
}

func (c *Container) buildCoreServices() {
	var worker graph.Worker
	if c.cfg.Graph.RuntimeEnabled() {
		worker = table.Worker{}
	}
	c.viewer = viewer.New()
	c.graph = graph.New(worker, c.viewer, graph.WithEventSink(c.logger.LogEvent))
	c.streamer = stream.New(c.cfg.Stream.Runtime(), c.source, c.graph,
		stream.WithMetrics(c.monitor),
		stream.WithObserver(alert.NewStreamObserver(c.alerts, alert.DefaultFailureThreshold)),
		stream.WithEventSink(c.logger.LogEvent),
		stream.WithVisibilityListener(c.mountGraph),
	)
}

// mountGraph 图表首次可见时挂载：建表、装载到渲染元素、设置图表属性
func (c *Container) mountGraph() {
	if err := c.graph.Mount(); err != nil {
		c.logger.LogError(err, map[string]interface{}{"action": "mount_graph"})
	}
	ready := c.graph.State() == graph.StateReady
	c.monitor.SetStoreReady(ready)
	if !ready {
		return
	}
	c.rowsHook.Do(func() {
		tbl := c.graph.Table()
		tbl.OnUpdate(func(int) { c.monitor.SetStoreRows(tbl.Size()) })
	})
}

func (c *Container) sourceSink(event string, fields map[string]interface{}) {
	c.monitor.RecordSourceEvent(event)
	c.logger.LogEvent(event, fields)
}

func (c *Container) registerLifecycleComponents() {
	c.server = newHTTPServerComponent("control_server", c.cfg.HTTP.Addr, c.Router(), c.logger)
	c.lifecycle.Register(c.server)

	if c.ws != nil {
		c.lifecycle.Register(funcComponent{name: "ws_source", run: c.ws.Run})
	}
	if c.configPath != "" {
		w := config.NewWatcher(c.configPath, c.applyReload)
		w.OnError = func(err error) {
			c.logger.LogError(err, map[string]interface{}{"action": "config_reload"})
		}
		c.lifecycle.Register(funcComponent{name: "config_watcher", run: w.Run})
	}
}

// applyReload 热更新只调整日志级别；会话参数在启动后不变
func (c *Container) applyReload(cfg config.AppConfig) {
	if err := c.logger.SetLevel(cfg.Log.Level); err != nil {
		c.logger.LogError(err, map[string]interface{}{"action": "set_log_level"})
		return
	}
	c.logger.LogEvent("config_reloaded", map[string]interface{}{
		"path":     c.configPath,
		"logLevel": cfg.Log.Level,
	})
}

// Run 运行所有组件直到 ctx 取消；autoStart 时立即开始推流
func (c *Container) Run(ctx context.Context) error {
	c.mu.Lock()
	c.runCtx = ctx
	c.mu.Unlock()

	c.logger.Info("starting container...")
	if c.cfg.Stream.AutoStart {
		if err := c.StartStream(); err != nil {
			return fmt.Errorf("auto start failed: %w", err)
		}
	}
	err := c.lifecycle.RunAll(ctx)
	c.logger.Info("container stopped")
	return err
}

// StartStream 对应唯一的开始按钮
func (c *Container) StartStream() error {
	c.mu.Lock()
	ctx := c.runCtx
	c.mu.Unlock()
	return c.streamer.Start(ctx)
}

// WaitReady 等待控制面开始监听
func (c *Container) WaitReady(ctx context.Context) error {
	select {
	case <-c.server.ready:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Addr 控制面实际监听地址
func (c *Container) Addr() string {
	if a := c.server.Addr(); a != nil {
		return a.String()
	}
	return c.cfg.HTTP.Addr
}

func (c *Container) Streamer() *stream.Streamer { return c.streamer }
func (c *Container) Graph() *graph.Graph          { return c.graph }
func (c *Container) Logger() *logger.Logger       { return c.logger }

// RecentAlerts 最近的告警，旧的在前
func (c *Container) RecentAlerts() []alert.Alert { return c.recent.Alerts() }

// Close 刷新日志
func (c *Container) Close() error {
	if c.logger == nil {
		return nil
	}
	return c.logger.Close()
}

func (c *Container) HealthCheck() error {
	return c.lifecycle.CheckHealth()
}
