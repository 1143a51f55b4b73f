package observability

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
)

// DefaultShutdownTimeout bounds a shutdown when no timeout is configured
const DefaultShutdownTimeout = 30 * time.Second

// ErrHookSkipped is reported for hooks that never ran because the shutdown
// deadline had already passed
var ErrHookSkipped = errors.New("skipped: shutdown deadline exceeded")

// ShutdownHook releases one resource during shutdown
type ShutdownHook func(context.Context) error

type namedHook struct {
	name string
	fn   ShutdownHook
}

// Lifecycle drains the HTTP server and then releases registered resources
// in reverse registration order, so a resource is closed after everything
// registered on top of it.
type Lifecycle struct {
	logger  logrus.FieldLogger
	server  *http.Server
	timeout time.Duration

	mu    sync.Mutex
	hooks []namedHook
	done  bool
	err   error
}

// NewLifecycle creates a lifecycle for server. A nil server skips draining.
func NewLifecycle(logger logrus.FieldLogger, server *http.Server, timeout time.Duration) *Lifecycle {
	if timeout <= 0 {
		timeout = DefaultShutdownTimeout
	}
	if logger == nil {
		logger = DiscardLogger()
	}
	return &Lifecycle{logger: logger, server: server, timeout: timeout}
}

// Register adds a named hook
func (l *Lifecycle) Register(name string, fn ShutdownHook) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.hooks = append(l.hooks, namedHook{name: name, fn: fn})
}

// Wait blocks until ctx is done or SIGINT/SIGTERM arrives, then shuts down
func (l *Lifecycle) Wait(ctx context.Context) error {
	sigCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-sigCtx.Done()
	l.logger.WithField("cause", context.Cause(sigCtx)).Info("Starting graceful shutdown")
	return l.Shutdown()
}

// Shutdown runs once; later calls return the first result
func (l *Lifecycle) Shutdown() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.done {
		return l.err
	}
	l.done = true

	ctx, cancel := context.WithTimeout(context.Background(), l.timeout)
	defer cancel()

	var errs []error
	if l.server != nil {
		if err := l.server.Shutdown(ctx); err != nil {
			l.logger.WithError(err).Error("HTTP server drain failed")
			errs = append(errs, fmt.Errorf("http server: %w", err))
		} else {
			l.logger.Info("HTTP server drained")
		}
	}

	for i := len(l.hooks) - 1; i >= 0; i-- {
		hook := l.hooks[i]
		log := l.logger.WithField("hook", hook.name)
		if ctx.Err() != nil {
			log.Warn("Shutdown hook skipped")
			errs = append(errs, fmt.Errorf("%s: %w", hook.name, ErrHookSkipped))
			continue
		}
		if err := runHook(ctx, hook.fn); err != nil {
			log.WithError(err).Error("Shutdown hook failed")
			errs = append(errs, fmt.Errorf("%s: %w", hook.name, err))
		}
	}

	l.err = errors.Join(errs...)
	if l.err == nil {
		l.logger.Info("Graceful shutdown complete")
	}
	return l.err
}

// runHook returns when fn does or when ctx expires, whichever comes first.
// A hook still running past the deadline is abandoned.
func runHook(ctx context.Context, fn ShutdownHook) error {
	result := make(chan error, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				result <- MustRecover(r)
			}
		}()
		result <- fn(ctx)
	}()

	select {
	case err := <-result:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}
