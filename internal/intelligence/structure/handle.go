package structure

import (
	"context"
	"sync"
	"time"

	"github.com/turtacn/DTI-Insight/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/DTI-Insight/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/DTI-Insight/pkg/errors"
)

// CapabilityLoader produces the drawing capability. It is called at most once
// per CapabilityHandle.
type CapabilityLoader func() (Capability, error)

// CapabilityHandle acquires a Capability lazily, exactly once, on first need.
// Concurrent callers share the single acquisition. A failed acquisition is
// remembered and returned to every later caller without retrying.
type CapabilityHandle struct {
	load    CapabilityLoader
	logger  logging.Logger
	metrics *prometheus.BoardMetrics

	start sync.Once
	done  chan struct{}

	capability Capability
	err        error
}

// HandleOption customises a CapabilityHandle.
type HandleOption func(*CapabilityHandle)

// WithHandleLogger sets the logger used to report the acquisition.
func WithHandleLogger(l logging.Logger) HandleOption {
	return func(h *CapabilityHandle) { h.logger = l }
}

// WithHandleMetrics records acquisition results.
func WithHandleMetrics(m *prometheus.BoardMetrics) HandleOption {
	return func(h *CapabilityHandle) { h.metrics = m }
}

// NewCapabilityHandle wraps load. Nothing is loaded until the first Acquire.
func NewCapabilityHandle(load CapabilityLoader, opts ...HandleOption) *CapabilityHandle {
	h := &CapabilityHandle{
		load:   load,
		logger: logging.NewNopLogger(),
		done:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// NewDefaultCapabilityHandle returns a handle over the built-in parser and
// raster drawer.
func NewDefaultCapabilityHandle(opts ...HandleOption) *CapabilityHandle {
	return NewCapabilityHandle(LoadDefaultCapability, opts...)
}

// Acquire returns the capability, starting the acquisition if no caller has
// yet. It blocks until the acquisition finishes or ctx is done; in the latter
// case the acquisition keeps running for later callers.
func (h *CapabilityHandle) Acquire(ctx context.Context) (Capability, error) {
	h.start.Do(func() { go h.run() })

	// A finished acquisition wins over a context that is already done.
	select {
	case <-h.done:
		return h.capability, h.err
	default:
	}
	select {
	case <-h.done:
		return h.capability, h.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Ready reports whether the acquisition has finished, successfully or not.
func (h *CapabilityHandle) Ready() bool {
	select {
	case <-h.done:
		return true
	default:
		return false
	}
}

// Err returns the remembered acquisition error, or nil while pending or after
// success.
func (h *CapabilityHandle) Err() error {
	if !h.Ready() {
		return nil
	}
	return h.err
}

func (h *CapabilityHandle) run() {
	start := time.Now()
	defer close(h.done)
	defer func() {
		if r := recover(); r != nil {
			h.capability = nil
			h.err = errors.Newf(errors.ErrCodeCapabilityUnavailable, "capability loader panicked: %v", r)
		}
		ok := h.err == nil
		prometheus.RecordCapabilityAcquisition(h.metrics, ok)
		if ok {
			h.logger.Info("drawing capability acquired", logging.Duration("elapsed", time.Since(start)))
		} else {
			h.logger.Error("drawing capability unavailable", logging.Err(h.err))
		}
	}()

	if h.load == nil {
		h.err = errors.New(errors.ErrCodeCapabilityUnavailable, "no capability loader configured")
		return
	}
	c, err := h.load()
	switch {
	case err != nil:
		h.err = errors.Wrap(err, errors.ErrCodeCapabilityUnavailable, "failed to load molecule renderer")
	case c == nil:
		h.err = errors.New(errors.ErrCodeCapabilityUnavailable, "capability loader returned nil")
	default:
		h.capability = c
	}
}
