package prediction

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/DTI-Insight/internal/infrastructure/database/redis"
	"github.com/turtacn/DTI-Insight/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/DTI-Insight/internal/testutil"
	"github.com/turtacn/DTI-Insight/pkg/errors"
	types "github.com/turtacn/DTI-Insight/pkg/types/candidate"
)

type countingPredictor struct {
	calls atomic.Int32
	delay time.Duration
	err   error
}

func (c *countingPredictor) Predict(ctx context.Context, sequence string) (*types.PredictionResponse, error) {
	c.calls.Add(1)
	time.Sleep(c.delay)
	if c.err != nil {
		return nil, c.err
	}
	var resp types.PredictionResponse
	if err := json.Unmarshal([]byte(okBody), &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func newResponseCache(t *testing.T) (*miniredis.Miniredis, redis.Cache) {
	t.Helper()
	mr := miniredis.RunT(t)
	client, err := redis.NewClient(&redis.Config{Addr: mr.Addr()}, logging.NewNopLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return mr, redis.NewRedisCache(client, logging.NewNopLogger(), redis.WithPrefix("dti:"))
}

func TestCachingPredictor_RepeatedSequenceHitsCache(t *testing.T) {
	mr, cache := newResponseCache(t)
	backend := &countingPredictor{}
	p := NewCachingPredictor(backend, cache, time.Hour, nil, nil)

	first, err := p.Predict(context.Background(), "MRPSGTAGAALLALLAALCPASRA")
	require.NoError(t, err)
	second, err := p.Predict(context.Background(), "  MRPSGTAGAALLALLAALCPASRA\n")
	require.NoError(t, err)

	assert.Equal(t, int32(1), backend.calls.Load())
	assert.Equal(t, first.DrugCandidates, second.DrugCandidates)
	assert.JSONEq(t, string(first.ProteinAnalysis), string(second.ProteinAnalysis))
	assert.True(t, mr.Exists("dti:"+ResponseCacheKey("MRPSGTAGAALLALLAALCPASRA")))
	assert.Equal(t, time.Hour, mr.TTL("dti:"+ResponseCacheKey("MRPSGTAGAALLALLAALCPASRA")))
}

func TestCachingPredictor_ConcurrentMissesShareOneCall(t *testing.T) {
	_, cache := newResponseCache(t)
	backend := &countingPredictor{delay: 50 * time.Millisecond}
	p := NewCachingPredictor(backend, cache, time.Minute, nil, nil)

	var wg sync.WaitGroup
	errs := make([]error, 5)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = p.Predict(context.Background(), "MKTAYIAKQR")
		}(i)
	}
	wg.Wait()
	for _, err := range errs {
		assert.NoError(t, err)
	}
	assert.Equal(t, int32(1), backend.calls.Load())
}

func TestCachingPredictor_BackendErrorsAreNotCached(t *testing.T) {
	mr, cache := newResponseCache(t)
	backend := &countingPredictor{err: errors.New(errors.ErrCodePredictionBackend, "backend returned 502")}
	p := NewCachingPredictor(backend, cache, time.Minute, nil, nil)

	for i := 0; i < 2; i++ {
		_, err := p.Predict(context.Background(), "MKTAYIAKQR")
		assert.True(t, errors.IsCode(err, errors.ErrCodePredictionBackend))
	}
	assert.Equal(t, int32(2), backend.calls.Load())
	assert.False(t, mr.Exists("dti:"+ResponseCacheKey("MKTAYIAKQR")))
}

func TestCachingPredictor_CacheDownFallsBackToBackend(t *testing.T) {
	mr, cache := newResponseCache(t)
	mr.Close()
	backend := &countingPredictor{}
	log := testutil.NewMockLogger()
	p := NewCachingPredictor(backend, cache, time.Minute, log, nil)

	resp, err := p.Predict(context.Background(), "MKTAYIAKQR")
	require.NoError(t, err)
	assert.Len(t, resp.DrugCandidates, 1)
	assert.Equal(t, int32(1), backend.calls.Load())
	assert.True(t, log.HasMessage("warn", "prediction cache unavailable"))
}

func TestCachingPredictor_BlankSequenceGoesStraightToBackend(t *testing.T) {
	_, cache := newResponseCache(t)
	backend := &countingPredictor{}
	p := NewCachingPredictor(backend, cache, time.Minute, nil, nil)
	_, err := p.Predict(context.Background(), "   ")
	require.NoError(t, err)
	assert.Equal(t, int32(1), backend.calls.Load())
}
