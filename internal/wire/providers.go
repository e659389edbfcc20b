package wire

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/google/wire"

	"github.com/sevigo/resizer/internal/app"
	"github.com/sevigo/resizer/internal/broker"
	"github.com/sevigo/resizer/internal/cache"
	"github.com/sevigo/resizer/internal/config"
	"github.com/sevigo/resizer/internal/core"
	"github.com/sevigo/resizer/internal/jobs"
	"github.com/sevigo/resizer/internal/logger"
	"github.com/sevigo/resizer/internal/resize"
	"github.com/sevigo/resizer/internal/server"
)

var AppSet = wire.NewSet(
	app.NewApp,
	server.NewServer,
	config.LoadConfig,
	provideQueue,
	provideWorker,
	provideImageProcessor,
	provideBridge,
	provideLoggerConfig,
	provideLogWriter,
	provideSlogLogger,
	wire.Bind(new(core.JobDispatcher), new(*jobs.Queue)),
	wire.Bind(new(core.StatsReporter), new(*jobs.Worker)),
)

func provideQueue(cfg *config.Config, logger *slog.Logger) *jobs.Queue {
	return jobs.NewQueue(cfg.Resize.QueueCapacity, logger)
}

func provideWorker(queue *jobs.Queue, processor core.ImageProcessor, logger *slog.Logger) *jobs.Worker {
	return jobs.NewWorker(queue, processor, logger)
}

// provideImageProcessor builds the resize pipeline, wrapped in the configured
// result cache when one is enabled.
func provideImageProcessor(ctx context.Context, cfg *config.Config, logger *slog.Logger) (core.ImageProcessor, func(), error) {
	filter, err := resize.ParseFilter(cfg.Resize.Filter)
	if err != nil {
		return nil, nil, err
	}
	processor := resize.NewProcessor(logger,
		resize.WithFilter(filter),
		resize.WithJPEGQuality(cfg.Resize.JPEGQuality),
		resize.WithMaxPixels(cfg.Resize.MaxPixels),
	)

	resultCache, err := cache.New(ctx, cfg.Cache)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create result cache: %w", err)
	}
	if resultCache == nil {
		return processor, func() {}, nil
	}

	logger.Info("result cache enabled", "backend", cfg.Cache.Backend, "ttl", cfg.Cache.TTL)
	cleanup := func() {
		if err := resultCache.Close(); err != nil {
			logger.Error("failed to close result cache", "error", err)
		}
	}
	return cache.NewProcessor(processor, resultCache, logger), cleanup, nil
}

// provideBridge connects to the broker when AMQP_URL is set. It returns a nil
// bridge otherwise.
func provideBridge(cfg *config.Config, queue *jobs.Queue, logger *slog.Logger) (*broker.Bridge, func(), error) {
	if !cfg.Broker.Enabled() {
		return nil, func() {}, nil
	}

	conn, err := broker.Dial(cfg.Broker.URL)
	if err != nil {
		return nil, nil, err
	}
	defaults := core.Params{Width: cfg.Resize.DefaultWidth, Height: cfg.Resize.DefaultHeight}
	bridge := broker.NewBridge(conn.Channel(), queue, cfg.Broker, defaults, logger)

	cleanup := func() {
		if err := conn.Close(); err != nil {
			logger.Error("failed to close amqp connection", "error", err)
		}
	}
	return bridge, cleanup, nil
}

func provideLoggerConfig(cfg *config.Config) logger.Config {
	return cfg.Logging
}

func provideLogWriter(cfg *config.Config) io.Writer {
	return logger.Writer(cfg.Logging.Output)
}

func provideSlogLogger(loggerConfig logger.Config, writer io.Writer) *slog.Logger {
	return logger.NewLogger(loggerConfig, writer)
}
