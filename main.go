package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"dist_node/internal/config"
	"dist_node/internal/handler"
	"dist_node/internal/server"
	"dist_node/internal/utils"

	"go.uber.org/zap"
)

func main() {
	os.Exit(run())
}

func run() int {
	var basePath, behavior string
	flag.StringVar(&basePath, "prefix", "", "Config file base path")
	flag.StringVar(&behavior, "behavior", "", "Node behavior: echo, unique_id, broadcast or kafka (overrides config)")
	flag.Parse()

	// stdout is the protocol channel; bootstrap errors go to stderr
	log.SetOutput(os.Stderr)

	cfg, err := config.LoadNodeConfig(basePath)
	if err != nil {
		log.Printf("Load config failed: %v", err)
		return server.ExitFailure
	}
	if behavior != "" {
		cfg.Behavior = behavior
		if err := cfg.Validate(); err != nil {
			log.Printf("Invalid behavior %q: %v", behavior, err)
			return server.ExitFailure
		}
	}

	logs, err := utils.NewManager(cfg.LogPath, cfg.LogLevel, os.Stderr)
	if err != nil {
		log.Printf("Init logger failed: %v", err)
		return server.ExitFailure
	}
	defer logs.Close()
	logger := logs.Base()

	kind, err := handler.ParseKind(cfg.Behavior)
	if err != nil {
		logger.Error("unknown behavior", zap.Error(err))
		return server.ExitFailure
	}
	node, err := handler.New(kind, handler.Options{
		DataPath:       cfg.DataPath,
		RebuildOffsets: cfg.RebuildOffsets,
	}, logger)
	if err != nil {
		logger.Error("build behavior failed", zap.Error(err))
		return server.ExitFailure
	}

	srv := server.New(os.Stdin, os.Stdout, node, logger,
		server.WithMaxLineBytes(cfg.MaxLineBytes),
		server.WithNodeLogger(logs.For),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("node ready", zap.Stringer("behavior", kind), zap.String("data_path", cfg.DataPath))

	serveErr := srv.Serve(ctx)
	// shutdown runs on every exit path, fatal or not
	closeErr := srv.Close()

	err = errors.Join(serveErr, closeErr)
	code := server.ExitCode(err)
	if err != nil {
		logger.Error("node stopped",
			zap.Error(err),
			zap.String("category", server.Category(err)),
			zap.Int("exit_code", code))
	} else {
		logger.Info("node stopped")
	}
	return code
}
