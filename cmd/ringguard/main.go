package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/mohammed-shakir/ringguard/internal/audit"
	"github.com/mohammed-shakir/ringguard/internal/cache"
	"github.com/mohammed-shakir/ringguard/internal/cache/redisstore"
	"github.com/mohammed-shakir/ringguard/internal/core/config"
	"github.com/mohammed-shakir/ringguard/internal/core/health"
	"github.com/mohammed-shakir/ringguard/internal/core/server"
	"github.com/mohammed-shakir/ringguard/internal/engine"
	"github.com/mohammed-shakir/ringguard/internal/logger"
	"github.com/mohammed-shakir/ringguard/internal/metrics"
	"github.com/mohammed-shakir/ringguard/internal/overlap"
)

var Version = "dev"

func main() {
	os.Exit(run())
}

func run() int {
	addrFlag := flag.String("addr", "", "listen address (overrides ADDR)")
	flag.Parse()

	cfg := config.FromEnv()
	if *addrFlag != "" {
		cfg.Addr = strings.TrimSpace(*addrFlag)
	}

	zl := logger.Build(logger.Config{
		Level:     cfg.LogLevel,
		Console:   cfg.LogConsole,
		SampleN:   cfg.LogSampleN,
		Service:   "ringguard",
		Component: "server",
	}, os.Stdout)
	appLog := logger.NewSlog(&zl)

	appLog.Info("starting ringguard",
		"addr", cfg.Addr,
		"version", Version,
		"h3_res", cfg.H3Res,
		"verdict_cache", cfg.Cache.Enabled,
		"audit", cfg.Audit.Enabled)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	ready := map[string]health.Pinger{}

	var verdicts *cache.Verdicts
	if cfg.Cache.Enabled {
		dialCtx, cancel := context.WithTimeout(ctx, 8*cfg.Cache.OpTimeout)
		rc, err := redisstore.New(dialCtx, cfg.Cache.RedisAddr)
		cancel()
		if err != nil {
			// the engine recomputes without the shared cache
			appLog.Warn("verdict cache disabled", "addr", cfg.Cache.RedisAddr, "err", err)
		} else {
			defer func() { _ = rc.Close() }()
			verdicts = cache.NewVerdicts(rc, cfg.Cache.TTL, cfg.Cache.OpTimeout, appLog)
			ready["redis"] = rc
		}
	}

	var sink overlap.AuditSink
	if cfg.Audit.Enabled {
		pub, err := audit.NewPublisher(cfg.Audit.Brokers, cfg.Audit.Topic, cfg.Audit.Queue, appLog)
		if err != nil {
			appLog.Error("audit publisher setup failed", "brokers", cfg.Audit.Brokers, "err", err)
			return 1
		}
		defer func() {
			if err := pub.Close(); err != nil {
				appLog.Warn("audit publisher close", "err", err)
			}
		}()
		sink = pub
	}

	eng := engine.New(engine.Options{
		Rules:         cfg.Rules,
		Thresholds:    cfg.Thresholds,
		H3Res:         cfg.H3Res,
		MemoSize:      cfg.DetectMemo,
		SequencerSize: cfg.SequencerSize,
		Verdicts:      verdicts,
		Audit:         sink,
		Logger:        appLog,
	})

	prov := metrics.Init(metrics.Config{
		Path: envOr("METRICS_PATH", "/metrics"),
		Build: metrics.BuildInfo{
			Version:   Version,
			Revision:  os.Getenv("BUILD_REVISION"),
			BuildDate: os.Getenv("BUILD_DATE"),
		},
	})

	if err := server.Run(ctx, cfg, appLog, server.Deps{Engine: eng, Metrics: prov, Ready: ready}); err != nil {
		appLog.Error("server exited with error", "err", err)
		return 1
	}
	appLog.Info("server stopped")
	return 0
}

func envOr(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
