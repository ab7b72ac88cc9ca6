package main

import (
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"gridwalk/logging"
	"gridwalk/server"
)

// Gridwalk 入口：启动 HTTP + WebSocket 游戏服务
func main() {
	var (
		addr    string
		cfgPath string
		logFile string
	)
	flag.StringVar(&addr, "addr", "", "listen address, overrides config, e.g. :8080")
	flag.StringVar(&cfgPath, "config", "", "path to YAML config file")
	flag.StringVar(&logFile, "log", "gridwalk.log", "log file path")
	flag.Parse()

	// 使用第三方 zap 日志库写入文件（带滚动）
	if err := logging.InitLogger(logFile); err != nil {
		panic(err)
	}
	defer logging.SyncLogger()

	cfg := server.DefaultConfig()
	if cfgPath != "" {
		loaded, err := server.LoadConfig(cfgPath)
		if err != nil {
			logging.Log.Fatalf("load config: %v", err)
		}
		cfg = loaded
	}
	if addr != "" {
		cfg.Addr = addr
	}

	hub, err := server.NewHub(cfg)
	if err != nil {
		logging.Log.Fatalf("init hub: %v", err)
	}
	hub.StartTicker()
	defer hub.Close()

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", hub.HandleWS)
	// 管理与监控接口
	mux.HandleFunc("/admin/config", hub.HandleAdminConfig)
	mux.HandleFunc("/metrics", hub.HandleMetrics)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})

	srv := &http.Server{Addr: cfg.Addr, Handler: mux}

	go func() {
		logging.Log.Infof("gridwalk listening on %s", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logging.Log.Fatalf("listen: %v", err)
		}
	}()

	// 优雅退出（Ctrl+C）
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logging.Log.Info("Shutting down...")
	_ = srv.Close()
}
