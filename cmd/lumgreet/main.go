package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/hnrobert/lumgreet/internal/app"
	"github.com/hnrobert/lumgreet/internal/config"
	"github.com/hnrobert/lumgreet/internal/hostfs"
	"github.com/hnrobert/lumgreet/internal/logger"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "lumgreet: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		testMode   bool
		lang       string
		configPath string
		debug      bool
	)
	pflag.BoolVarP(&testMode, "test", "t", false, "run without LightDM, authenticating against the local account database")
	pflag.StringVarP(&lang, "lang", "l", "", "UI language, overriding LANG (e.g. de_DE)")
	pflag.StringVarP(&configPath, "config", "c", getenvDefault("LUMGREET_CONFIG", hostfs.DefaultConfigPath), "path to the configuration file")
	pflag.BoolVar(&debug, "debug", false, "log debug messages")
	pflag.Parse()

	hostfs.Root = getenvDefault("LUMGREET_HOST_ROOT", hostfs.Root)
	if debug {
		logger.SetLevel(logger.LevelDebug)
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading %s: %w", configPath, err)
	}
	if err := logger.Init(cfg.LogDir); err != nil {
		logger.Warn("file logging in %s disabled: %v", cfg.LogDir, err)
	}
	defer logger.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("lumgreet starting (config %s, test=%t)", configPath, testMode)
	if err := app.Run(ctx, app.Options{Config: cfg, Test: testMode, Lang: lang}, app.Deps{}); err != nil {
		logger.Error("%v", err)
		return err
	}
	return nil
}

func getenvDefault(key, def string) string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	return v
}
