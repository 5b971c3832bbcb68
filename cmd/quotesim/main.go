package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"quote-chart-go/infrastructure/logger"
	"quote-chart-go/sim"
)

func main() {
	addr := flag.String("addr", ":8080", "监听地址")
	stocks := flag.String("stocks", "ABC,DEF", "逗号分隔的股票列表")
	seed := flag.Int64("seed", time.Now().UnixNano(), "随机种子")
	missing := flag.Float64("missing", 0.05, "单侧报价缺失概率")
	pushEvery := flag.Duration("push", 100*time.Millisecond, "WebSocket 推送间隔")
	level := flag.String("log", "info", "日志级别")
	flag.Parse()

	cfg := logger.DefaultConfig()
	cfg.Level = *level
	lg, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("初始化日志失败: %v", err)
	}
	defer lg.Close()

	gen := sim.NewGenerator(sim.Config{
		Stocks:      strings.Split(*stocks, ","),
		Seed:        *seed,
		MissingProb: *missing,
	})

	r := mux.NewRouter()
	r.Handle("/query", gen).Methods(http.MethodGet)
	r.HandleFunc("/stream", pushHandler(gen, *pushEvery, lg))

	srv := &http.Server{Addr: *addr, Handler: r, ReadHeaderTimeout: 5 * time.Second}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	lg.Info("quote simulator listening", zap.String("addr", *addr), zap.Strings("stocks", gen.Stocks()))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		lg.LogError(err, map[string]interface{}{"action": "listen"})
		_ = lg.Close()
		os.Exit(1)
	}
}

var upgrader = websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}

// pushHandler 按固定间隔把每一步报价推给 WebSocket 客户端
func pushHandler(gen *sim.Generator, every time.Duration, lg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		lg.Info("stream client connected", zap.String("remote", r.RemoteAddr))

		closed := make(chan struct{})
		go func() {
			defer close(closed)
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					return
				}
			}
		}()

		ticker := time.NewTicker(every)
		defer ticker.Stop()
		for {
			select {
			case <-closed:
				return
			case <-ticker.C:
				if err := conn.WriteJSON(gen.Next()); err != nil {
					return
				}
			}
		}
	}
}
