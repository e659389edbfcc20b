// Package app initializes and orchestrates the main components of the resize service.
// It owns the lifecycle of the HTTP server, the worker lane and the optional AMQP bridge.
package app

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/sevigo/resizer/internal/broker"
	"github.com/sevigo/resizer/internal/config"
	"github.com/sevigo/resizer/internal/jobs"
	"github.com/sevigo/resizer/internal/server"
)

// App holds the main application components.
type App struct {
	cfg    *config.Config
	server *server.Server
	queue  *jobs.Queue
	worker *jobs.Worker
	bridge *broker.Bridge
	logger *slog.Logger

	workerCtx    context.Context
	cancelWorker context.CancelFunc
	bridgeCtx    context.Context
	cancelBridge context.CancelFunc
	bridgeDone   chan struct{}
	started      atomic.Bool
}

// NewApp assembles the application. bridge may be nil when AMQP is disabled.
func NewApp(ctx context.Context, cfg *config.Config, srv *server.Server, queue *jobs.Queue, worker *jobs.Worker, bridge *broker.Bridge, logger *slog.Logger) *App {
	workerCtx, cancelWorker := context.WithCancel(context.WithoutCancel(ctx))
	bridgeCtx, cancelBridge := context.WithCancel(ctx)

	logger.Info("resize service initialized",
		"address", cfg.Server.Addr(),
		"queue_capacity", cfg.Resize.QueueCapacity,
		"cache_backend", cfg.Cache.Backend,
		"amqp_enabled", bridge != nil,
	)

	return &App{
		cfg:          cfg,
		server:       srv,
		queue:        queue,
		worker:       worker,
		bridge:       bridge,
		logger:       logger,
		workerCtx:    workerCtx,
		cancelWorker: cancelWorker,
		bridgeCtx:    bridgeCtx,
		cancelBridge: cancelBridge,
		bridgeDone:   make(chan struct{}),
	}
}

// Start launches the worker lane and the bridge, then runs the HTTP server
// until it is shut down or fails.
func (a *App) Start() error {
	if !a.started.CompareAndSwap(false, true) {
		return errors.New("application already started")
	}

	a.logger.Info("starting resize service",
		"server_port", a.cfg.Server.Port,
		"default_size", a.cfg.Resize.DefaultWidth,
	)

	go func() {
		if err := a.worker.Run(a.workerCtx); err != nil && !errors.Is(err, context.Canceled) {
			a.logger.Error("resize worker stopped unexpectedly", "error", err)
		}
	}()

	if a.bridge != nil {
		go func() {
			defer close(a.bridgeDone)
			if err := a.bridge.Run(a.bridgeCtx); err != nil {
				a.logger.Error("amqp bridge stopped", "error", err)
			}
		}()
	}

	if err := a.server.Start(); err != nil {
		a.logger.Error("failed to start HTTP server", "error", err)
		return err
	}
	return nil
}

// Stop shuts down the application cleanly: no new requests, then no new broker
// deliveries, then the worker finishes what is queued.
func (a *App) Stop() error {
	a.logger.Info("shutting down resize service")

	// Stop the HTTP server first to prevent new incoming requests.
	serverErr := a.server.Stop()
	if serverErr != nil {
		a.logger.Error("error during HTTP server shutdown", "error", serverErr)
		// Continue to stop other components even if the server failed.
	}

	a.cancelBridge()
	if a.bridge != nil && a.started.Load() {
		<-a.bridgeDone
	}

	// Close the queue, allowing queued jobs to finish.
	a.queue.Close()
	if a.started.Load() {
		a.waitForWorker()
	}
	a.cancelWorker()

	if serverErr != nil {
		a.logger.Error("resize service stopped with errors", "error", serverErr)
		return serverErr
	}

	a.logger.Info("resize service stopped successfully")
	return nil
}

func (a *App) waitForWorker() {
	timeout := a.cfg.Server.ShutdownTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	select {
	case <-a.worker.Done():
	case <-time.After(timeout):
		a.logger.Warn("worker did not drain in time, abandoning remaining jobs", "timeout", timeout)
		a.cancelWorker()
		<-a.worker.Done()
	}
}
