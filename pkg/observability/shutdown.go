package observability

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"
)

// ShutdownFunc is a function to call during shutdown
type ShutdownFunc func(context.Context) error

// ShutdownManager handles graceful shutdown of the HTTP servers and
// any registered cleanup functions.
type ShutdownManager struct {
	logger          *Logger
	servers         []*http.Server
	shutdownFuncs   []ShutdownFunc
	shutdownTimeout time.Duration
	mu              sync.Mutex
}

// NewShutdownManager creates a new shutdown manager
func NewShutdownManager(logger *Logger, timeout time.Duration, servers ...*http.Server) *ShutdownManager {
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &ShutdownManager{
		logger:          logger,
		servers:         servers,
		shutdownTimeout: timeout,
	}
}

// RegisterShutdownFunc registers a function to call during shutdown
func (sm *ShutdownManager) RegisterShutdownFunc(fn ShutdownFunc) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	sm.shutdownFuncs = append(sm.shutdownFuncs, fn)
}

// WaitForShutdown blocks until SIGINT/SIGTERM, then drains the servers and
// runs the registered cleanup functions within the shutdown timeout.
func (sm *ShutdownManager) WaitForShutdown() error {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigChan
	sm.logger.Infof("received signal %s, starting graceful shutdown", sig)

	ctx, cancel := context.WithTimeout(context.Background(), sm.shutdownTimeout)
	defer cancel()

	var errs []error
	for _, srv := range sm.servers {
		if err := srv.Shutdown(ctx); err != nil {
			sm.logger.WithError(err).Error("HTTP server shutdown error")
			errs = append(errs, err)
		}
	}

	sm.mu.Lock()
	funcs := sm.shutdownFuncs
	sm.mu.Unlock()

	for i, fn := range funcs {
		if err := fn(ctx); err != nil {
			sm.logger.WithError(err).Errorf("shutdown function %d failed", i)
			errs = append(errs, err)
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("shutdown completed with %d errors", len(errs))
	}

	sm.logger.Info("graceful shutdown complete")
	return nil
}
