package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/park285/chess-arena/internal/arena"
	"github.com/park285/chess-arena/internal/archive"
	appcfg "github.com/park285/chess-arena/internal/config"
	"github.com/park285/chess-arena/internal/difficulty"
	"github.com/park285/chess-arena/internal/obslog"
)

func main() {
	cfg, err := appcfg.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}
	if err := obslog.InitFromEnv(); err != nil {
		log.Fatalf("logger init error: %v", err)
	}
	logger := obslog.L()
	defer logger.Sync()

	profiles := difficulty.DefaultTable()
	if cfg.DifficultyFile != "" {
		profiles, err = difficulty.LoadFile(cfg.DifficultyFile)
		if err != nil {
			logger.Fatal("difficulty table load failed", zap.Error(err))
		}
	}

	arch, err := archive.New(cfg.RedisURL, cfg.Retention, logger)
	if err != nil {
		logger.Fatal("archive init failed", zap.Error(err))
	}

	svc := arena.New(logger, profiles, arena.Options{
		EnginePath:  cfg.EnginePath,
		GracePeriod: cfg.GracePeriod,
		Retention:   cfg.Retention,
		MaxGames:    cfg.MaxConcurrentGames,
		Archive:     arch,
	})
	defer svc.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go svc.RunCleanup(ctx, cfg.CleanupInterval)

	logger.Info("arena started",
		zap.String("engine_path", cfg.EnginePath),
		zap.Bool("archive", arch != nil),
	)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	logger.Info("arena shutting down")
}
