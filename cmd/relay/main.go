package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"linerelay/internal/app"
	"linerelay/internal/shared/config"
	"linerelay/internal/shared/logger"
)

var version = "dev"

func main() {
	configPath := flag.String("config", "configs/relay.ini", "Path to relay.ini")
	bind := flag.String("bind", "", "Override bind address")
	port := flag.Int("port", -1, "Override listen port (0 picks a free port)")
	logLevel := flag.String("log-level", "", "Override log level")
	flag.Parse()

	// 1. 加载配置: defaults, then ini, then environment, then flags
	cfg := config.Default()
	if err := config.LoadIni(cfg, *configPath); err != nil {
		// Use standard fmt before logger is initialized.
		fmt.Fprintf(os.Stderr, "Fatal: Failed to load config from '%s': %v\n", *configPath, err)
		os.Exit(1)
	}
	if *bind != "" {
		cfg.BindAddress = *bind
	}
	if *port >= 0 {
		cfg.Port = *port
	}
	if *logLevel != "" {
		cfg.Level = *logLevel
	}
	if err := config.Validate(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Fatal: %v\n", err)
		os.Exit(1)
	}

	// 2. 初始化日志系统
	if err := logger.Init(cfg.LogConf); err != nil {
		fmt.Fprintf(os.Stderr, "Fatal: Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	// 3. 创建并运行服务器
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := app.New(cfg, version).Run(ctx); err != nil {
		logger.Error().Err(err).Msg("Relay exited with error")
		os.Exit(1)
	}
	logger.Info().Msg("Relay stopped.")
}
