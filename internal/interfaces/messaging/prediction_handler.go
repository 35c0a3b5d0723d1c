// Package messaging turns consumed broker events into board passes.
package messaging

import (
	"context"
	"time"

	"github.com/turtacn/DTI-Insight/internal/application/board"
	"github.com/turtacn/DTI-Insight/internal/application/reporting"
	"github.com/turtacn/DTI-Insight/internal/infrastructure/database/redis"
	"github.com/turtacn/DTI-Insight/internal/infrastructure/messaging/kafka"
	"github.com/turtacn/DTI-Insight/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/DTI-Insight/pkg/errors"
)

// SourceWorker labels passes composed from broker events.
const SourceWorker = "worker"

// DefaultLockTTL is the lock lease. A watchdog renews it while the pass
// runs, so it bounds only how long a crashed worker blocks redelivery.
const DefaultLockTTL = 30 * time.Second

// BoardExporter uploads a composed board.
type BoardExporter interface {
	Export(ctx context.Context, b *board.Board) (*reporting.ExportResult, error)
}

// PredictionHandler composes a board for every prediction.completed event.
// Duplicate deliveries of the same request are serialised by a Redis lock
// when one is configured.
type PredictionHandler struct {
	svc      board.Service
	locks    redis.LockFactory
	lockTTL  time.Duration
	exporter BoardExporter
	logger   logging.Logger
}

// HandlerOption configures a PredictionHandler.
type HandlerOption func(*PredictionHandler)

// WithLocks guards each pass with a mutex named after its pass ID.
func WithLocks(f redis.LockFactory, ttl time.Duration) HandlerOption {
	return func(h *PredictionHandler) {
		h.locks = f
		if ttl > 0 {
			h.lockTTL = ttl
		}
	}
}

// WithExporter uploads every composed board.
func WithExporter(e BoardExporter) HandlerOption { return func(h *PredictionHandler) { h.exporter = e } }

func WithLogger(l logging.Logger) HandlerOption { return func(h *PredictionHandler) { h.logger = l } }

// NewPredictionHandler creates a handler composing through svc.
func NewPredictionHandler(svc board.Service, opts ...HandlerOption) *PredictionHandler {
	h := &PredictionHandler{svc: svc, lockTTL: DefaultLockTTL, logger: logging.NewNopLogger()}
	for _, o := range opts {
		o(h)
	}
	return h
}

// Handle processes one message. Malformed events and invalid candidate
// lists are logged and acknowledged; only transient failures are returned
// so the consumer retries them.
func (h *PredictionHandler) Handle(ctx context.Context, msg *kafka.Message) error {
	log := h.logger.With(logging.String("topic", msg.Topic), logging.Int64("offset", msg.Offset))

	env, err := kafka.MessageToEventEnvelope(msg)
	if err != nil {
		log.Warn("discarding malformed event", logging.Err(err))
		return nil
	}
	if env.EventType != kafka.EventPredictionCompleted {
		log.Debug("ignoring event", logging.String("event_type", env.EventType))
		return nil
	}
	var payload kafka.PredictionCompletedPayload
	if err := env.DecodePayload(&payload); err != nil {
		log.Warn("discarding undecodable prediction event", logging.String("event_id", env.EventID), logging.Err(err))
		return nil
	}

	passID := payload.RequestID
	if passID == "" {
		passID = env.EventID
	}
	log = log.With(logging.String("pass_id", passID))

	if h.locks != nil {
		mu := h.locks.NewMutex("board:"+passID, redis.WithLockTTL(h.lockTTL), redis.WithWatchdog(true))
		ok, err := mu.TryLock(ctx)
		if err != nil {
			return err
		}
		if !ok {
			var fields []logging.Field
			if ttl, err := mu.TTL(ctx); err == nil && ttl > 0 {
				fields = append(fields, logging.Duration("lease_left", ttl))
			}
			log.Info("board pass already in progress", fields...)
			return nil
		}
		defer func() {
			if err := mu.Unlock(context.WithoutCancel(ctx)); err != nil {
				log.Warn("board lock release failed", logging.Err(err))
			}
		}()
	}

	b, err := h.svc.Compose(ctx, payload.Response,
		board.WithSource(SourceWorker),
		board.WithPassID(passID),
		board.WithSequenceLength(payload.SequenceLength))
	if err != nil {
		if errors.IsCode(err, errors.ErrCodeCandidateInvalid) {
			log.Warn("discarding prediction with invalid candidates", logging.Err(err))
			return nil
		}
		return err
	}

	if h.exporter != nil {
		if _, err := h.exporter.Export(ctx, b); err != nil {
			return err
		}
	}

	log.Info("prediction board composed",
		logging.Int("candidates", b.Summary.CandidateCount),
		logging.Int("rendered", b.Summary.Rendered))
	return nil
}
