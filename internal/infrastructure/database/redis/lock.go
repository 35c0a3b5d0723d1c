package redis

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/turtacn/DTI-Insight/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/DTI-Insight/pkg/errors"
)

var ErrLockNotHeld = errors.New(errors.ErrCodeConflict, "lock not held by this owner")

// DistributedLock is a single-owner lock with a TTL.
type DistributedLock interface {
	TryLock(ctx context.Context) (bool, error)
	Unlock(ctx context.Context) error
	Extend(ctx context.Context, ttl time.Duration) (bool, error)
	TTL(ctx context.Context) (time.Duration, error)
}

type LockFactory interface {
	NewMutex(name string, opts ...LockOption) DistributedLock
}

type LockOption func(*lockConfig)

func WithLockTTL(ttl time.Duration) LockOption {
	return func(c *lockConfig) { c.ttl = ttl }
}

// WithWatchdog renews the lease every third of its TTL until Unlock.
func WithWatchdog(enabled bool) LockOption {
	return func(c *lockConfig) { c.watchdogEnabled = enabled }
}

type lockConfig struct {
	ttl              time.Duration
	watchdogEnabled  bool
	watchdogInterval time.Duration
}

type redisLockFactory struct {
	client *Client
	prefix string
	log    logging.Logger
}

// NewLockFactory creates mutexes stored under <prefix>lock:<name>.
func NewLockFactory(client *Client, prefix string, log logging.Logger) LockFactory {
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &redisLockFactory{client: client, prefix: prefix, log: log}
}

func (f *redisLockFactory) NewMutex(name string, opts ...LockOption) DistributedLock {
	cfg := lockConfig{ttl: 30 * time.Second}
	for _, opt := range opts {
		opt(&cfg)
	}
	cfg.watchdogInterval = cfg.ttl / 3

	return &redisMutex{
		client: f.client,
		key:    f.prefix + "lock:" + name,
		value:  uuid.NewString(),
		config: cfg,
		logger: f.log,
	}
}

type redisMutex struct {
	client         *Client
	key            string
	value          string
	config         lockConfig
	logger         logging.Logger
	watchdogCancel context.CancelFunc
	watchdogDone   chan struct{}
}

var mutexUnlockScript = redis.NewScript(`
	if redis.call("GET", KEYS[1]) == ARGV[1] then
		return redis.call("DEL", KEYS[1])
	else
		return 0
	end
`)

var mutexExtendScript = redis.NewScript(`
	if redis.call("GET", KEYS[1]) == ARGV[1] then
		return redis.call("PEXPIRE", KEYS[1], ARGV[2])
	else
		return 0
	end
`)

// TryLock takes the lock if it is free. It never waits.
func (m *redisMutex) TryLock(ctx context.Context) (bool, error) {
	ok, err := m.client.SetNX(ctx, m.key, m.value, m.config.ttl).Result()
	if err != nil {
		return false, errors.Wrap(err, errors.ErrCodeCacheError, "failed to set lock")
	}
	if ok && m.config.watchdogEnabled {
		m.startWatchdog()
	}
	return ok, nil
}

func (m *redisMutex) Unlock(ctx context.Context) error {
	m.stopWatchdog()
	res, err := mutexUnlockScript.Run(ctx, m.client.GetUnderlyingClient(), []string{m.key}, m.value).Int64()
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeCacheError, "failed to release lock")
	}
	if res == 0 {
		return ErrLockNotHeld
	}
	return nil
}

func (m *redisMutex) Extend(ctx context.Context, ttl time.Duration) (bool, error) {
	res, err := mutexExtendScript.Run(ctx, m.client.GetUnderlyingClient(), []string{m.key}, m.value, ttl.Milliseconds()).Int64()
	if err != nil {
		return false, err
	}
	return res == 1, nil
}

func (m *redisMutex) TTL(ctx context.Context) (time.Duration, error) {
	return m.client.PTTL(ctx, m.key).Result()
}

func (m *redisMutex) startWatchdog() {
	ctx, cancel := context.WithCancel(context.Background())
	m.watchdogCancel = cancel
	m.watchdogDone = make(chan struct{})
	go runWatchdog(ctx, m.Extend, m.config.watchdogInterval, m.config.ttl, m.logger, m.watchdogDone)
}

func (m *redisMutex) stopWatchdog() {
	if m.watchdogCancel != nil {
		m.watchdogCancel()
		<-m.watchdogDone
		m.watchdogCancel = nil
	}
}

func runWatchdog(ctx context.Context, extendFn func(context.Context, time.Duration) (bool, error), interval, ttl time.Duration, log logging.Logger, done chan struct{}) {
	defer close(done)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			ok, err := extendFn(ctx, ttl)
			if err != nil {
				log.Error("Watchdog failed to extend lock", logging.Err(err))
				return
			}
			if !ok {
				log.Warn("Watchdog lost lock")
				return
			}
		}
	}
}

//Personal.AI order the ending
