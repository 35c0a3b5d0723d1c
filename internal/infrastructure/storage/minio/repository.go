package minio

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"

	"github.com/turtacn/DTI-Insight/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/DTI-Insight/pkg/errors"
)

// Object key prefixes.
const (
	StructurePrefix = "structures/"
	BoardPrefix     = "boards/"
)

var (
	ErrObjectNotFound = errors.New(errors.ErrCodeNotFound, "object not found")
	ErrInvalidRequest = errors.New(errors.ErrCodeValidation, "bucket and object key are required")
)

// ObjectRepository stores and retrieves archived diagrams and exports.
type ObjectRepository interface {
	Upload(ctx context.Context, req *UploadRequest) (*UploadResult, error)
	Download(ctx context.Context, bucket, objectKey string) (*DownloadResult, error)
	Exists(ctx context.Context, bucket, objectKey string) (bool, error)
	Delete(ctx context.Context, bucket, objectKey string) error
	List(ctx context.Context, bucket, prefix string, maxKeys int) ([]*ObjectMetadata, error)
	PresignedURL(ctx context.Context, bucket, objectKey string, expiry time.Duration) (string, error)
}

type UploadRequest struct {
	Bucket      string
	ObjectKey   string
	Data        []byte
	ContentType string
	Metadata    map[string]string
	Tags        map[string]string
}

type UploadResult struct {
	Bucket     string
	ObjectKey  string
	ETag       string
	Size       int64
	VersionID  string
	UploadedAt time.Time
}

type DownloadResult struct {
	Data         []byte
	ContentType  string
	Size         int64
	ETag         string
	Metadata     map[string]string
	LastModified time.Time
}

type ObjectMetadata struct {
	Bucket       string
	ObjectKey    string
	Size         int64
	ContentType  string
	ETag         string
	LastModified time.Time
}

type minioRepository struct {
	client *Client
	logger logging.Logger
}

// NewRepository returns an ObjectRepository backed by client.
func NewRepository(client *Client, log logging.Logger) ObjectRepository {
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &minioRepository{client: client, logger: log}
}

func isNotFound(err error) bool {
	code := minio.ToErrorResponse(err).Code
	return code == "NoSuchKey" || code == "NoSuchBucket"
}

func (r *minioRepository) Upload(ctx context.Context, req *UploadRequest) (*UploadResult, error) {
	if r.client.isClosed() {
		return nil, ErrClientClosed
	}
	if req == nil || req.Bucket == "" || req.ObjectKey == "" {
		return nil, ErrInvalidRequest
	}
	contentType := req.ContentType
	if contentType == "" && len(req.Data) > 0 {
		contentType = http.DetectContentType(req.Data[:min(512, len(req.Data))])
	}

	info, err := r.client.api.PutObject(ctx, req.Bucket, req.ObjectKey, bytes.NewReader(req.Data), int64(len(req.Data)), minio.PutObjectOptions{
		ContentType:  contentType,
		UserMetadata: req.Metadata,
		UserTags:     req.Tags,
	})
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeStorageError, "upload failed")
	}

	r.logger.Debug("object uploaded",
		logging.String("bucket", req.Bucket),
		logging.String("key", req.ObjectKey),
		logging.Int64("size", info.Size))
	return &UploadResult{
		Bucket:     req.Bucket,
		ObjectKey:  req.ObjectKey,
		ETag:       info.ETag,
		Size:       info.Size,
		VersionID:  info.VersionID,
		UploadedAt: time.Now(),
	}, nil
}

func (r *minioRepository) Download(ctx context.Context, bucket, objectKey string) (*DownloadResult, error) {
	if r.client.isClosed() {
		return nil, ErrClientClosed
	}
	if bucket == "" || objectKey == "" {
		return nil, ErrInvalidRequest
	}
	stat, err := r.client.api.StatObject(ctx, bucket, objectKey, minio.StatObjectOptions{})
	if err != nil {
		if isNotFound(err) {
			return nil, ErrObjectNotFound
		}
		return nil, errors.Wrap(err, errors.ErrCodeStorageError, "stat failed")
	}

	obj, err := r.client.api.GetObject(ctx, bucket, objectKey, minio.GetObjectOptions{})
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeStorageError, "download failed")
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrObjectNotFound
		}
		return nil, errors.Wrap(err, errors.ErrCodeStorageError, "download failed")
	}

	return &DownloadResult{
		Data:         data,
		ContentType:  stat.ContentType,
		Size:         stat.Size,
		ETag:         stat.ETag,
		Metadata:     stat.UserMetadata,
		LastModified: stat.LastModified,
	}, nil
}

func (r *minioRepository) Exists(ctx context.Context, bucket, objectKey string) (bool, error) {
	if r.client.isClosed() {
		return false, ErrClientClosed
	}
	_, err := r.client.api.StatObject(ctx, bucket, objectKey, minio.StatObjectOptions{})
	if err != nil {
		if isNotFound(err) {
			return false, nil
		}
		return false, errors.Wrap(err, errors.ErrCodeStorageError, "stat failed")
	}
	return true, nil
}

func (r *minioRepository) Delete(ctx context.Context, bucket, objectKey string) error {
	if r.client.isClosed() {
		return ErrClientClosed
	}
	if err := r.client.api.RemoveObject(ctx, bucket, objectKey, minio.RemoveObjectOptions{}); err != nil {
		return errors.Wrap(err, errors.ErrCodeStorageError, "delete failed")
	}
	return nil
}

func (r *minioRepository) List(ctx context.Context, bucket, prefix string, maxKeys int) ([]*ObjectMetadata, error) {
	if r.client.isClosed() {
		return nil, ErrClientClosed
	}
	if maxKeys <= 0 {
		maxKeys = 1000
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var out []*ObjectMetadata
	for obj := range r.client.api.ListObjects(ctx, bucket, minio.ListObjectsOptions{Prefix: prefix, Recursive: true}) {
		if obj.Err != nil {
			return nil, errors.Wrap(obj.Err, errors.ErrCodeStorageError, "list failed")
		}
		out = append(out, &ObjectMetadata{
			Bucket:       bucket,
			ObjectKey:    obj.Key,
			Size:         obj.Size,
			ContentType:  obj.ContentType,
			ETag:         obj.ETag,
			LastModified: obj.LastModified,
		})
		if len(out) >= maxKeys {
			break
		}
	}
	return out, nil
}

func (r *minioRepository) PresignedURL(ctx context.Context, bucket, objectKey string, expiry time.Duration) (string, error) {
	if r.client.isClosed() {
		return "", ErrClientClosed
	}
	if expiry <= 0 {
		expiry = r.client.config.PresignExpiry
	}
	u, err := r.client.api.PresignedGetObject(ctx, bucket, objectKey, expiry, nil)
	if err != nil {
		return "", errors.Wrap(err, errors.ErrCodeStorageError, "presign failed")
	}
	return u.String(), nil
}

// BucketStore binds a repository to one bucket.
type BucketStore struct {
	repo   ObjectRepository
	bucket string
}

// NewBucketStore returns a store writing into bucket.
func NewBucketStore(repo ObjectRepository, bucket string) *BucketStore {
	return &BucketStore{repo: repo, bucket: bucket}
}

func (s *BucketStore) Bucket() string { return s.bucket }

// Put uploads data under key and returns the key.
func (s *BucketStore) Put(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	if _, err := s.repo.Upload(ctx, &UploadRequest{
		Bucket:      s.bucket,
		ObjectKey:   key,
		Data:        data,
		ContentType: contentType,
	}); err != nil {
		return "", err
	}
	return key, nil
}

// Get downloads the object at key.
func (s *BucketStore) Get(ctx context.Context, key string) ([]byte, error) {
	res, err := s.repo.Download(ctx, s.bucket, key)
	if err != nil {
		return nil, err
	}
	return res.Data, nil
}

// URL presigns a download link for key with the client's default expiry.
func (s *BucketStore) URL(ctx context.Context, key string) (string, error) {
	return s.repo.PresignedURL(ctx, s.bucket, key, 0)
}

// Keys lists every object key under prefix.
func (s *BucketStore) Keys(ctx context.Context, prefix string) ([]string, error) {
	objs, err := s.repo.List(ctx, s.bucket, prefix, 0)
	if err != nil {
		return nil, err
	}
	keys := make([]string, 0, len(objs))
	for _, o := range objs {
		keys = append(keys, o.ObjectKey)
	}
	return keys, nil
}

// StructureKey names the archived diagram for a cache key such as
// "structure:<hash>:280x200".
func StructureKey(cacheKey string) string {
	return StructurePrefix + strings.ReplaceAll(strings.TrimPrefix(cacheKey, "structure:"), ":", "/") + ".png"
}

// BoardKey names an export artifact of a board pass.
func BoardKey(passID, name string) string {
	return path.Join(strings.TrimSuffix(BoardPrefix, "/"), passID, name)
}

// DiagramArchive keeps rendered structure PNGs in the structure bucket.
type DiagramArchive struct {
	store *BucketStore
}

func NewDiagramArchive(repo ObjectRepository, bucket string) *DiagramArchive {
	return &DiagramArchive{store: NewBucketStore(repo, bucket)}
}

// Archive uploads png under StructureKey(cacheKey) and returns the object key.
func (a *DiagramArchive) Archive(ctx context.Context, cacheKey string, png []byte) (string, error) {
	return a.store.Put(ctx, StructureKey(cacheKey), png, "image/png")
}

//Personal.AI order the ending
