package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"

	"quote-chart-go/internal/container"
)

func main() {
	cfgPath := flag.String("config", "configs/config.yaml", "配置文件路径")
	flag.Parse()

	c, err := container.New(*cfgPath)
	if err != nil {
		log.Fatalf("加载配置失败: %v", err)
	}
	if err := c.Build(); err != nil {
		log.Fatalf("构建容器失败: %v", err)
	}
	defer c.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		readyCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
		if err := c.WaitReady(readyCtx); err != nil {
			return
		}
		c.Logger().Info("control surface ready on " + c.Addr())
		// 非 systemd 环境下 SdNotify 返回 (false, nil)
		if _, err := daemon.SdNotify(false, daemon.SdNotifyReady); err != nil {
			c.Logger().LogError(err, map[string]interface{}{"action": "sd_notify"})
		}
	}()

	runErr := c.Run(ctx)
	_, _ = daemon.SdNotify(false, daemon.SdNotifyStopping)
	if runErr != nil {
		c.Logger().LogError(runErr, map[string]interface{}{"action": "run"})
		_ = c.Close()
		os.Exit(1)
	}
}
