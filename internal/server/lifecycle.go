// Package server runs the spellcaster's long-lived services and translates
// process signals into shutdown and reload requests.
package server

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"go.uber.org/zap"
)

// Service represents a long-running component that can be started and stopped.
type Service interface {
	// Start begins the service. It should block until the service is stopped
	// or an error occurs.
	Start() error
	// Stop gracefully stops the service.
	Stop()
}

// FuncService adapts a start/stop function pair into the Service interface.
type FuncService struct {
	StartFn func() error
	StopFn  func()
}

// Start calls the underlying start function.
func (f *FuncService) Start() error { return f.StartFn() }

// Stop calls the underlying stop function.
func (f *FuncService) Stop() { f.StopFn() }

// ReloadFunc re-reads on-disk content. Errors are logged; the process keeps running.
type ReloadFunc func() error

// Lifecycle manages the startup and shutdown of multiple services.
// Services are started in order and stopped in reverse order. SIGHUP runs the
// registered reload functions in registration order.
type Lifecycle struct {
	logger    *zap.Logger
	services  []namedService
	reloaders []namedReloader
	signals   chan os.Signal
	mu        sync.Mutex
}

type namedService struct {
	name    string
	service Service
}

type namedReloader struct {
	name string
	fn   ReloadFunc
}

// NewLifecycle creates a new Lifecycle manager.
//
// Precondition: logger must be non-nil.
func NewLifecycle(logger *zap.Logger) *Lifecycle {
	if logger == nil {
		panic("server.NewLifecycle: logger must not be nil")
	}
	return &Lifecycle{
		logger:  logger,
		signals: make(chan os.Signal, 4),
	}
}

// Add registers a named service for lifecycle management.
// Services are started in the order they are added.
//
// Precondition: name must be non-empty; svc must be non-nil.
func (l *Lifecycle) Add(name string, svc Service) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.services = append(l.services, namedService{name: name, service: svc})
}

// OnReload registers fn to run on every SIGHUP.
func (l *Lifecycle) OnReload(name string, fn ReloadFunc) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.reloaders = append(l.reloaders, namedReloader{name: name, fn: fn})
}

// Deliver injects sig as if the process had received it.
func (l *Lifecycle) Deliver(sig os.Signal) {
	l.signals <- sig
}

// Reload runs every reload function and returns how many failed.
func (l *Lifecycle) Reload() int {
	l.mu.Lock()
	reloaders := append([]namedReloader(nil), l.reloaders...)
	l.mu.Unlock()
	failed := 0
	for _, r := range reloaders {
		start := time.Now()
		if err := r.fn(); err != nil {
			failed++
			l.logger.Warn("reload failed", zap.String("target", r.name), zap.Error(err))
			continue
		}
		l.logger.Info("reloaded",
			zap.String("target", r.name),
			zap.Duration("elapsed", time.Since(start)),
		)
	}
	return failed
}

// Run starts all services and blocks until SIGINT or SIGTERM arrives, a
// service fails, or ctx is cancelled. Services are then stopped in reverse order.
//
// Postcondition: All services are stopped when this method returns. The
// returned error is the first service failure, or nil.
func (l *Lifecycle) Run(ctx context.Context) error {
	start := time.Now()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	l.mu.Lock()
	services := append([]namedService(nil), l.services...)
	l.mu.Unlock()

	errCh := make(chan error, len(services))
	for _, ns := range services {
		go func() {
			l.logger.Info("starting service", zap.String("service", ns.name))
			svcStart := time.Now()
			if err := ns.service.Start(); err != nil {
				l.logger.Error("service failed",
					zap.String("service", ns.name),
					zap.Error(err),
					zap.Duration("uptime", time.Since(svcStart)),
				)
				errCh <- fmt.Errorf("service %s: %w", ns.name, err)
			}
		}()
	}

	l.logger.Info("all services started",
		zap.Int("count", len(services)),
		zap.Duration("startup", time.Since(start)),
	)

	signal.Notify(l.signals, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
	defer signal.Stop(l.signals)

	var runErr error
wait:
	for {
		select {
		case sig := <-l.signals:
			if sig == syscall.SIGHUP {
				l.Reload()
				continue
			}
			l.logger.Info("received signal, shutting down", zap.String("signal", sig.String()))
			break wait
		case runErr = <-errCh:
			l.logger.Error("service error, shutting down", zap.Error(runErr))
			break wait
		case <-ctx.Done():
			l.logger.Info("context cancelled, shutting down")
			break wait
		}
	}

	l.shutdown(services)

	l.logger.Info("shutdown complete", zap.Duration("total_uptime", time.Since(start)))
	return runErr
}

func (l *Lifecycle) shutdown(services []namedService) {
	shutdownStart := time.Now()
	for i := len(services) - 1; i >= 0; i-- {
		ns := services[i]
		svcStart := time.Now()
		l.logger.Info("stopping service", zap.String("service", ns.name))
		ns.service.Stop()
		l.logger.Info("service stopped",
			zap.String("service", ns.name),
			zap.Duration("elapsed", time.Since(svcStart)),
		)
	}
	l.logger.Info("all services stopped", zap.Duration("shutdown_elapsed", time.Since(shutdownStart)))
}
