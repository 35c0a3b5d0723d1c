package prediction

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	"github.com/turtacn/DTI-Insight/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/DTI-Insight/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/DTI-Insight/pkg/errors"
	types "github.com/turtacn/DTI-Insight/pkg/types/candidate"
)

// ResponseCache reads a key into dest or fills it from loader on a miss,
// sharing one loader call between concurrent misses.
type ResponseCache interface {
	GetOrSet(ctx context.Context, key string, dest interface{}, ttl time.Duration, loader func(ctx context.Context) (interface{}, error)) error
}

// CachingPredictor answers repeated sequences from a ResponseCache. Backend
// errors are never cached. When the cache itself fails the backend is
// called directly.
type CachingPredictor struct {
	next    Predictor
	cache   ResponseCache
	ttl     time.Duration
	logger  logging.Logger
	metrics *prometheus.BoardMetrics
}

// NewCachingPredictor wraps next. A zero ttl uses the cache default.
func NewCachingPredictor(next Predictor, cache ResponseCache, ttl time.Duration, log logging.Logger, metrics *prometheus.BoardMetrics) *CachingPredictor {
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &CachingPredictor{next: next, cache: cache, ttl: ttl, logger: log, metrics: metrics}
}

// ResponseCacheKey names the cached response for sequence.
func ResponseCacheKey(sequence string) string {
	sum := sha256.Sum256([]byte(strings.TrimSpace(sequence)))
	return "prediction:" + hex.EncodeToString(sum[:])
}

func (p *CachingPredictor) Predict(ctx context.Context, sequence string) (*types.PredictionResponse, error) {
	seq := strings.TrimSpace(sequence)
	if seq == "" {
		return p.next.Predict(ctx, seq)
	}

	loaded := false
	var resp types.PredictionResponse
	err := p.cache.GetOrSet(ctx, ResponseCacheKey(seq), &resp, p.ttl, func(ctx context.Context) (interface{}, error) {
		loaded = true
		return p.next.Predict(ctx, seq)
	})
	switch {
	case err == nil:
		prometheus.RecordCacheAccess(p.metrics, "prediction", !loaded)
		return &resp, nil
	case !loaded && (errors.IsCode(err, errors.ErrCodeCacheError) || errors.IsCode(err, errors.ErrCodeSerialization)):
		p.logger.Warn("prediction cache unavailable", logging.Err(err))
		return p.next.Predict(ctx, seq)
	default:
		return nil, err
	}
}
