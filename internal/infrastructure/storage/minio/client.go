package minio

import (
	"context"
	"io"
	"net/url"
	"sync"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/minio/minio-go/v7/pkg/lifecycle"

	"github.com/turtacn/DTI-Insight/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/DTI-Insight/pkg/errors"
)

var (
	ErrClientClosed = errors.New(errors.ErrCodeStorageError, "minio client is closed")
)

// ObjectAPI is the subset of the MinIO SDK the archive uses.
type ObjectAPI interface {
	ListBuckets(ctx context.Context) ([]minio.BucketInfo, error)
	BucketExists(ctx context.Context, bucketName string) (bool, error)
	MakeBucket(ctx context.Context, bucketName string, opts minio.MakeBucketOptions) error
	SetBucketLifecycle(ctx context.Context, bucketName string, config *lifecycle.Configuration) error
	PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
	GetObject(ctx context.Context, bucketName, objectName string, opts minio.GetObjectOptions) (io.ReadCloser, error)
	StatObject(ctx context.Context, bucketName, objectName string, opts minio.StatObjectOptions) (minio.ObjectInfo, error)
	RemoveObject(ctx context.Context, bucketName, objectName string, opts minio.RemoveObjectOptions) error
	ListObjects(ctx context.Context, bucketName string, opts minio.ListObjectsOptions) <-chan minio.ObjectInfo
	PresignedGetObject(ctx context.Context, bucketName, objectName string, expiry time.Duration, reqParams url.Values) (*url.URL, error)
}

// sdkClient narrows GetObject to a reader so the API can be faked.
type sdkClient struct {
	*minio.Client
}

func (s sdkClient) GetObject(ctx context.Context, bucketName, objectName string, opts minio.GetObjectOptions) (io.ReadCloser, error) {
	return s.Client.GetObject(ctx, bucketName, objectName, opts)
}

// Config holds connection and bucket settings.
type Config struct {
	Endpoint        string        `mapstructure:"endpoint"`
	AccessKey       string        `mapstructure:"access_key"`
	SecretKey       string        `mapstructure:"secret_key"`
	UseSSL          bool          `mapstructure:"use_ssl"`
	Region          string        `mapstructure:"region"`
	StructureBucket string        `mapstructure:"structure_bucket"`
	ExportBucket    string        `mapstructure:"export_bucket"`
	PresignExpiry   time.Duration `mapstructure:"presign_expiry"`
	// ExportRetentionDays expires export objects; zero keeps them forever.
	ExportRetentionDays int `mapstructure:"export_retention_days"`
}

// Default bucket names.
const (
	DefaultStructureBucket = "dti-structures"
	DefaultExportBucket    = "dti-exports"
)

// Client wraps the MinIO SDK with bucket bootstrap and health reporting.
type Client struct {
	api    ObjectAPI
	config Config
	logger logging.Logger
	mu     sync.RWMutex
	closed bool
}

// NewClient connects, verifies access and ensures both buckets exist.
func NewClient(ctx context.Context, cfg Config, log logging.Logger) (*Client, error) {
	applyDefaults(&cfg)
	if cfg.Endpoint == "" {
		return nil, errors.New(errors.ErrCodeValidation, "minio endpoint is required")
	}

	sdk, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeStorageError, "failed to create minio client")
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if _, err := sdk.ListBuckets(ctx); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeServiceUnavailable, "failed to connect to minio")
	}

	c := NewClientWithAPI(sdkClient{sdk}, cfg, log)
	if err := c.EnsureBuckets(ctx); err != nil {
		return nil, err
	}
	c.SetupLifecycleRules(ctx)

	c.logger.Info("minio client connected", logging.String("endpoint", cfg.Endpoint), logging.Bool("ssl", cfg.UseSSL))
	return c, nil
}

// NewClientWithAPI wraps an existing API without network calls.
func NewClientWithAPI(api ObjectAPI, cfg Config, log logging.Logger) *Client {
	applyDefaults(&cfg)
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &Client{api: api, config: cfg, logger: log}
}

func applyDefaults(cfg *Config) {
	if cfg.Region == "" {
		cfg.Region = "us-east-1"
	}
	if cfg.PresignExpiry == 0 {
		cfg.PresignExpiry = time.Hour
	}
	if cfg.StructureBucket == "" {
		cfg.StructureBucket = DefaultStructureBucket
	}
	if cfg.ExportBucket == "" {
		cfg.ExportBucket = DefaultExportBucket
	}
}

func (c *Client) buckets() []string {
	return []string{c.config.StructureBucket, c.config.ExportBucket}
}

// EnsureBuckets creates any missing bucket.
func (c *Client) EnsureBuckets(ctx context.Context) error {
	for _, bucket := range c.buckets() {
		exists, err := c.api.BucketExists(ctx, bucket)
		if err != nil {
			return errors.Wrap(err, errors.ErrCodeStorageError, "failed to check bucket existence")
		}
		if exists {
			continue
		}
		if err := c.api.MakeBucket(ctx, bucket, minio.MakeBucketOptions{Region: c.config.Region}); err != nil {
			return errors.Wrap(err, errors.ErrCodeStorageError, "failed to create bucket "+bucket)
		}
		c.logger.Info("created bucket", logging.String("bucket", bucket))
	}
	return nil
}

// SetupLifecycleRules expires board exports after ExportRetentionDays.
// Failures are logged; a bucket without lifecycle still works.
func (c *Client) SetupLifecycleRules(ctx context.Context) {
	if c.config.ExportRetentionDays <= 0 {
		return
	}
	cfg := lifecycle.NewConfiguration()
	cfg.Rules = []lifecycle.Rule{{
		ID:         "board-exports-expiry",
		Status:     "Enabled",
		RuleFilter: lifecycle.Filter{Prefix: BoardPrefix},
		Expiration: lifecycle.Expiration{Days: lifecycle.ExpirationDays(c.config.ExportRetentionDays)},
	}}
	if err := c.api.SetBucketLifecycle(ctx, c.config.ExportBucket, cfg); err != nil {
		c.logger.Warn("failed to set export lifecycle", logging.Err(err))
	}
}

// API returns the underlying object API.
func (c *Client) API() ObjectAPI { return c.api }

// Config returns the effective configuration.
func (c *Client) Config() Config { return c.config }

func (c *Client) StructureBucket() string { return c.config.StructureBucket }

func (c *Client) ExportBucket() string { return c.config.ExportBucket }

func (c *Client) isClosed() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.closed
}

// Close marks the client closed; the SDK holds no persistent connections.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

// Name identifies the component in readiness reports.
func (c *Client) Name() string { return "minio" }

// Check fails when MinIO is unreachable or a bucket is missing.
func (c *Client) Check(ctx context.Context) error {
	status, err := c.HealthCheck(ctx)
	if err != nil {
		return err
	}
	if !status.Healthy {
		return errors.New(errors.ErrCodeServiceUnavailable, status.Error)
	}
	return nil
}

// HealthStatus reports reachability and per-bucket presence.
type HealthStatus struct {
	Healthy        bool
	Latency        time.Duration
	BucketStatuses map[string]bool
	Error          string
}

func (c *Client) HealthCheck(ctx context.Context) (*HealthStatus, error) {
	if c.isClosed() {
		return nil, ErrClientClosed
	}
	start := time.Now()
	_, err := c.api.ListBuckets(ctx)
	status := &HealthStatus{
		Healthy:        err == nil,
		Latency:        time.Since(start),
		BucketStatuses: make(map[string]bool),
	}
	if err != nil {
		status.Error = err.Error()
		return status, errors.Wrap(err, errors.ErrCodeServiceUnavailable, "minio unreachable")
	}

	for _, b := range c.buckets() {
		exists, _ := c.api.BucketExists(ctx, b)
		status.BucketStatuses[b] = exists
		if !exists {
			status.Healthy = false
			status.Error = "bucket " + b + " missing"
		}
	}
	return status, nil
}

//Personal.AI order the ending
