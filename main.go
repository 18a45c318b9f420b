package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/exp/zapslog"
	"go.uber.org/zap/zapcore"

	app "github.com/rocketscienceinc/othello-rooms/internal"
	"github.com/rocketscienceinc/othello-rooms/internal/config"
)

// main - is the entry point of the application. It initializes the configuration, logger, and runs the application.
func main() {
	defer func() {
		if err := recover(); err != nil {
			fmt.Fprintf(os.Stderr, "recovered from panic: %v\n", err)
			os.Exit(1)
		}
	}()

	conf := initConfig()
	logger, flush := initLogger(conf)
	defer flush()

	if conf.LogLevel != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}

	if err := app.RunApp(logger, conf); err != nil {
		panic(fmt.Errorf("app run failed: %w", err))
	}
}

// initialize config.
func initConfig() *config.Config {
	baseDir, err := os.Getwd()
	if err != nil {
		panic(fmt.Errorf("failed to get current directory: %w", err))
	}

	return config.MustLoad(filepath.Join(baseDir, "./config.yml"))
}

// initialize logger. Records go through slog and are written by a zap JSON core.
func initLogger(conf *config.Config) (*slog.Logger, func()) {
	level := zapcore.InfoLevel
	if err := level.UnmarshalText([]byte(conf.LogLevel)); err != nil {
		level = zapcore.InfoLevel
	}

	zapConfig := zap.NewProductionConfig()
	zapConfig.Level = zap.NewAtomicLevelAt(level)

	zapLogger, err := zapConfig.Build()
	if err != nil {
		panic(fmt.Errorf("failed to build logger: %w", err))
	}

	return slog.New(zapslog.NewHandler(zapLogger.Core())), func() {
		_ = zapLogger.Sync()
	}
}
