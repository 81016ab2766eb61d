package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"mazeworld/config"
	"mazeworld/geometry"
	"mazeworld/plancache"
	"mazeworld/scene"
	"mazeworld/server"
)

// MazeWorld 入口：默认启动 HTTP + WebSocket 服务；-world 时一次性生成后退出
func main() {
	var (
		cfgPath string
		addr    string
		world   string
		dryRun  bool
	)
	flag.StringVar(&cfgPath, "config", "", "config file (yaml/json/toml), optional")
	flag.StringVar(&addr, "addr", "", "server listen address, overrides config, e.g. :8080")
	flag.StringVar(&world, "world", "", "world json file: generate once and exit")
	flag.BoolVar(&dryRun, "dry-run", false, "with -world: print the placement plan instead of dispatching")
	flag.Parse()

	cfg, err := config.Load(cfgPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	if addr != "" {
		cfg.Addr = addr
	}
	// 使用第三方 zap 日志库写入日志文件（带滚动）
	if err := server.InitLogger(cfg.Log); err != nil {
		panic(err)
	}
	defer server.SyncLogger()

	newSession := func() scene.Session {
		return scene.NewWSSession(scene.WSConfig{
			URL:            cfg.Simulator.URL,
			ConnectTimeout: cfg.Simulator.ConnectTimeout,
			ConnectRetries: cfg.Simulator.ConnectRetries,
			RetryDelay:     cfg.Simulator.RetryDelay,
			AckTimeout:     cfg.Simulator.AckTimeout,
			DefaultFloor:   cfg.Simulator.DefaultFloor,
		}, cfg, server.Log.Desugar())
	}

	if world != "" {
		if err := runOnce(world, dryRun, server.FailurePolicy(cfg.FailurePolicy), newSession()); err != nil {
			server.Log.Errorw("generate failed", "world", world, "error", err)
			fmt.Fprintln(os.Stderr, err)
			server.SyncLogger()
			os.Exit(1)
		}
		return
	}

	cache, err := plancache.New(cfg.PlanCacheSize)
	if err != nil {
		server.Log.Fatalf("plan cache: %v", err)
	}
	defer cache.Close()

	rm := server.InitRunManager(server.ManagerOptions{
		NewSession: newSession,
		Cache:      cache,
		Policy:     server.FailurePolicy(cfg.FailurePolicy),
	})

	srv := &http.Server{Addr: cfg.Addr, Handler: server.NewRouter(rm)}

	go func() {
		server.Log.Infof("MazeWorld listening on %s; simulator bridge %s", cfg.Addr, cfg.Simulator.URL)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			server.Log.Fatalf("listen: %v", err)
		}
	}()

	// 优雅退出（Ctrl+C）
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	server.Log.Info("Shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		server.Log.Warnw("http shutdown", "error", err)
	}
	rm.Shutdown()
}

// runOnce 读取世界文件并推导；dryRun 时打印计划，否则顺序派发到仿真器
func runOnce(path string, dryRun bool, policy server.FailurePolicy, sess scene.Session) error {
	w, err := geometry.LoadWorldFromFile(path)
	if err != nil {
		return err
	}
	plan, err := geometry.Compile(w.Tiles, w.Obstacles)
	if err != nil {
		return err
	}
	for _, warn := range plan.Warnings {
		server.Log.Warnw("plan warning", "warning", warn)
	}

	if dryRun {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(plan)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	res, err := server.Dispatch(ctx, sess, plan, server.DispatchOptions{Policy: policy})
	server.Log.Infow("generate finished", "world", path, "submitted", res.Submitted, "failed", res.Failed, "skipped", res.Skipped)
	return err
}
