// Package shutdown provides graceful shutdown coordination. It handles
// SIGTERM/SIGINT signals, stops accepting new requests, waits for
// in-flight operations to complete, and closes resources cleanly.
package shutdown

import (
	"context"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"
)

// DefaultTimeout is the default graceful shutdown timeout.
const DefaultTimeout = 30 * time.Second

// Component represents a component that can be gracefully shut down.
type Component interface {
	// Name returns the component name for logging.
	Name() string
	// Shutdown gracefully shuts down the component.
	// It should return within the given context deadline.
	Shutdown(ctx context.Context) error
}

// Coordinator manages graceful shutdown of multiple components, shutting
// them down in registration order when a signal arrives.
type Coordinator struct {
	components []Component
	timeout    time.Duration
	logger     *slog.Logger
	signalCh   chan os.Signal
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithTimeout sets the shutdown timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Coordinator) {
		if timeout > 0 {
			c.timeout = timeout
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Coordinator) {
		c.logger = logger
	}
}

// WithSignalChannel sets a custom signal channel (for testing).
func WithSignalChannel(ch chan os.Signal) Option {
	return func(c *Coordinator) {
		c.signalCh = ch
	}
}

// NewCoordinator creates a new shutdown coordinator.
func NewCoordinator(opts ...Option) *Coordinator {
	c := &Coordinator{
		timeout: DefaultTimeout,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Register adds a component to be shut down. Components are shut down in
// registration order: register the server before the store so in-flight
// requests still have a database.
func (c *Coordinator) Register(comp Component) {
	c.components = append(c.components, comp)
}

// Notify returns a context that is cancelled when a shutdown signal
// arrives.
func (c *Coordinator) Notify(ctx context.Context) context.Context {
	notifyCtx, cancel := context.WithCancel(ctx)

	sigCh := c.signalCh
	if sigCh == nil {
		sigCh = make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	}

	go func() {
		select {
		case sig := <-sigCh:
			c.logger.Info("received shutdown signal", "signal", sig.String())
			cancel()
		case <-ctx.Done():
			cancel()
		}
	}()

	return notifyCtx
}

// Shutdown shuts down all registered components within the configured
// timeout. Failures are logged; all components are attempted regardless.
func (c *Coordinator) Shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()

	for _, comp := range c.components {
		c.logger.Info("shutting down component", "component", comp.Name())
		if err := comp.Shutdown(ctx); err != nil {
			c.logger.Error("component shutdown failed",
				"component", comp.Name(),
				"error", err,
			)
		}
	}
}

// CloserComponent wraps an io.Closer for graceful shutdown.
type CloserComponent struct {
	name   string
	closer io.Closer
}

// NewCloserComponent creates a new closer shutdown component.
func NewCloserComponent(name string, closer io.Closer) *CloserComponent {
	return &CloserComponent{
		name:   name,
		closer: closer,
	}
}

// Name returns the component name.
func (c *CloserComponent) Name() string {
	return c.name
}

// Shutdown closes the underlying resource.
func (c *CloserComponent) Shutdown(ctx context.Context) error {
	return c.closer.Close()
}

// FuncComponent wraps a shutdown function as a component.
type FuncComponent struct {
	name string
	fn   func(ctx context.Context) error
}

// NewFuncComponent creates a component from a shutdown function.
func NewFuncComponent(name string, fn func(ctx context.Context) error) *FuncComponent {
	return &FuncComponent{name: name, fn: fn}
}

// Name returns the component name.
func (c *FuncComponent) Name() string {
	return c.name
}

// Shutdown invokes the wrapped function.
func (c *FuncComponent) Shutdown(ctx context.Context) error {
	return c.fn(ctx)
}
