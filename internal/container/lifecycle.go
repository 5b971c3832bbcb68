package container

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"quote-chart-go/infrastructure/logger"
)

// Lifecycle 生命周期接口：Run 阻塞到 ctx 取消，返回 nil 表示正常退出
type Lifecycle interface {
	Name() string
	Run(ctx context.Context) error
	Health() error
}

// LifecycleManager 生命周期管理器
type LifecycleManager struct {
	components []Lifecycle
	mu         sync.RWMutex
}

// NewLifecycleManager 创建新的生命周期管理器
func NewLifecycleManager() *LifecycleManager {
	return &LifecycleManager{
		components: make([]Lifecycle, 0),
	}
}

// Register 注册组件
func (m *LifecycleManager) Register(component Lifecycle) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.components = append(m.components, component)
}

// RunAll 并发运行所有组件；任一组件出错即取消其余组件，返回首个错误
func (m *LifecycleManager) RunAll(ctx context.Context) error {
	m.mu.RLock()
	components := append([]Lifecycle(nil), m.components...)
	m.mu.RUnlock()

	g, gctx := errgroup.WithContext(ctx)
	for _, c := range components {
		c := c
		g.Go(func() error {
			if err := c.Run(gctx); err != nil && !errors.Is(err, context.Canceled) {
				return fmt.Errorf("%s: %w", c.Name(), err)
			}
			return nil
		})
	}
	return g.Wait()
}

// CheckHealth 检查所有组件健康状态
func (m *LifecycleManager) CheckHealth() error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, component := range m.components {
		if err := component.Health(); err != nil {
			return fmt.Errorf("component %s unhealthy: %w", component.Name(), err)
		}
	}
	return nil
}

// httpServerComponent HTTP服务器组件
type httpServerComponent struct {
	name    string
	handler http.Handler
	addr    string
	logger  *logger.Logger

	mu      sync.Mutex
	bound   net.Addr
	started bool
	ready   chan struct{}
}

func newHTTPServerComponent(name, addr string, handler http.Handler, log *logger.Logger) *httpServerComponent {
	return &httpServerComponent{
		name:    name,
		addr:    addr,
		handler: handler,
		logger:  log,
		ready:   make(chan struct{}),
	}
}

func (h *httpServerComponent) Name() string { return h.name }

func (h *httpServerComponent) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", h.addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", h.addr, err)
	}
	srv := &http.Server{
		Handler:           h.handler,
		ReadHeaderTimeout: 5 * time.Second,
	}
	h.mu.Lock()
	h.bound = ln.Addr()
	h.started = true
	h.mu.Unlock()
	close(h.ready)
	h.logger.Info(fmt.Sprintf("%s listening on %s", h.name, ln.Addr()))

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(ln) }()

	select {
	case err := <-errCh:
		h.setStopped()
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err = srv.Shutdown(shutdownCtx)
	h.setStopped()
	if err != nil {
		return fmt.Errorf("%s shutdown failed: %w", h.name, err)
	}
	h.logger.Info(fmt.Sprintf("%s stopped", h.name))
	return nil
}

func (h *httpServerComponent) setStopped() {
	h.mu.Lock()
	h.started = false
	h.mu.Unlock()
}

// Addr 实际监听地址，Run 开始监听前为 nil
func (h *httpServerComponent) Addr() net.Addr {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.bound
}

func (h *httpServerComponent) Health() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if !h.started {
		return fmt.Errorf("%s not started", h.name)
	}
	return nil
}

// funcComponent 以函数形式注册的后台任务
type funcComponent struct {
	name   string
	run    func(ctx context.Context) error
	health func() error
}

func (f funcComponent) Name() string { return f.name }

func (f funcComponent) Run(ctx context.Context) error { return f.run(ctx) }

func (f funcComponent) Health() error {
	if f.health == nil {
		return nil
	}
	return f.health()
}
