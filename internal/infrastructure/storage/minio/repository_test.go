package minio

import (
	"context"
	"errors"
	"io"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"

	apperrors "github.com/turtacn/DTI-Insight/pkg/errors"
)

type RepositoryTestSuite struct {
	suite.Suite
	api    *MockObjectAPI
	client *Client
	repo   ObjectRepository
	ctx    context.Context
}

func (s *RepositoryTestSuite) SetupTest() {
	s.api = new(MockObjectAPI)
	s.client = NewClientWithAPI(s.api, Config{}, nil)
	s.repo = NewRepository(s.client, nil)
	s.ctx = context.Background()
}

var pngHeader = []byte("\x89PNG\r\n\x1a\n0000")

func (s *RepositoryTestSuite) TestUpload_DetectsContentType() {
	s.api.On("PutObject", s.ctx, "dti-structures", "structures/a.png", mock.Anything, int64(len(pngHeader)),
		mock.MatchedBy(func(o minio.PutObjectOptions) bool { return o.ContentType == "image/png" })).
		Return(minio.UploadInfo{ETag: "etag", Size: int64(len(pngHeader))}, nil)

	res, err := s.repo.Upload(s.ctx, &UploadRequest{Bucket: "dti-structures", ObjectKey: "structures/a.png", Data: pngHeader})
	s.Require().NoError(err)
	s.Equal("etag", res.ETag)
	s.Equal("structures/a.png", res.ObjectKey)
	s.api.AssertExpectations(s.T())
}

func (s *RepositoryTestSuite) TestUpload_Invalid() {
	_, err := s.repo.Upload(s.ctx, &UploadRequest{Bucket: "b"})
	s.ErrorIs(err, ErrInvalidRequest)
	_, err = s.repo.Upload(s.ctx, nil)
	s.ErrorIs(err, ErrInvalidRequest)
}

func (s *RepositoryTestSuite) TestUpload_Failure() {
	s.api.On("PutObject", s.ctx, "b", "k", mock.Anything, int64(1), mock.Anything).
		Return(minio.UploadInfo{}, errors.New("disk full"))
	_, err := s.repo.Upload(s.ctx, &UploadRequest{Bucket: "b", ObjectKey: "k", Data: []byte("x"), ContentType: "text/plain"})
	s.Require().Error(err)
	s.True(apperrors.IsCode(err, apperrors.ErrCodeStorageError))
}

func (s *RepositoryTestSuite) TestDownload() {
	modified := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	s.api.On("StatObject", s.ctx, "b", "k", minio.StatObjectOptions{}).
		Return(minio.ObjectInfo{ContentType: "image/png", Size: 5, ETag: "e", LastModified: modified}, nil)
	s.api.On("GetObject", s.ctx, "b", "k", minio.GetObjectOptions{}).
		Return(io.NopCloser(strings.NewReader("hello")), nil)

	res, err := s.repo.Download(s.ctx, "b", "k")
	s.Require().NoError(err)
	s.Equal("hello", string(res.Data))
	s.Equal("image/png", res.ContentType)
	s.Equal(modified, res.LastModified)
}

func (s *RepositoryTestSuite) TestDownload_NotFound() {
	s.api.On("StatObject", s.ctx, "b", "missing", minio.StatObjectOptions{}).
		Return(minio.ObjectInfo{}, minio.ErrorResponse{Code: "NoSuchKey"})
	_, err := s.repo.Download(s.ctx, "b", "missing")
	s.ErrorIs(err, ErrObjectNotFound)
}

func (s *RepositoryTestSuite) TestExists() {
	s.api.On("StatObject", s.ctx, "b", "yes", minio.StatObjectOptions{}).Return(minio.ObjectInfo{}, nil)
	s.api.On("StatObject", s.ctx, "b", "no", minio.StatObjectOptions{}).Return(minio.ObjectInfo{}, minio.ErrorResponse{Code: "NoSuchKey"})
	s.api.On("StatObject", s.ctx, "b", "err", minio.StatObjectOptions{}).Return(minio.ObjectInfo{}, errors.New("boom"))

	ok, err := s.repo.Exists(s.ctx, "b", "yes")
	s.NoError(err)
	s.True(ok)

	ok, err = s.repo.Exists(s.ctx, "b", "no")
	s.NoError(err)
	s.False(ok)

	_, err = s.repo.Exists(s.ctx, "b", "err")
	s.Error(err)
}

func (s *RepositoryTestSuite) TestList_RespectsMaxKeys() {
	s.api.On("ListObjects", mock.Anything, "b", minio.ListObjectsOptions{Prefix: "boards/p/", Recursive: true}).
		Return(objectChan(minio.ObjectInfo{Key: "boards/p/1"}, minio.ObjectInfo{Key: "boards/p/2"}, minio.ObjectInfo{Key: "boards/p/3"}))

	objs, err := s.repo.List(s.ctx, "b", "boards/p/", 2)
	s.Require().NoError(err)
	s.Len(objs, 2)
	s.Equal("boards/p/1", objs[0].ObjectKey)
}

func (s *RepositoryTestSuite) TestPresignedURL_DefaultExpiry() {
	u, _ := url.Parse("http://localhost:9000/b/k?sig=1")
	s.api.On("PresignedGetObject", s.ctx, "b", "k", time.Hour, url.Values(nil)).Return(u, nil)

	got, err := s.repo.PresignedURL(s.ctx, "b", "k", 0)
	s.Require().NoError(err)
	s.Equal(u.String(), got)
}

func (s *RepositoryTestSuite) TestDelete() {
	s.api.On("RemoveObject", s.ctx, "b", "k", minio.RemoveObjectOptions{}).Return(nil)
	s.NoError(s.repo.Delete(s.ctx, "b", "k"))
}

func (s *RepositoryTestSuite) TestClosedClient() {
	s.Require().NoError(s.client.Close())
	_, err := s.repo.Upload(s.ctx, &UploadRequest{Bucket: "b", ObjectKey: "k"})
	s.ErrorIs(err, ErrClientClosed)
}

func (s *RepositoryTestSuite) TestBucketStore() {
	s.api.On("PutObject", s.ctx, "dti-exports", "boards/p/affinity.png", mock.Anything, int64(3),
		mock.MatchedBy(func(o minio.PutObjectOptions) bool { return o.ContentType == "image/png" })).
		Return(minio.UploadInfo{Size: 3}, nil)

	store := NewBucketStore(s.repo, "dti-exports")
	key, err := store.Put(s.ctx, "boards/p/affinity.png", []byte("abc"), "image/png")
	s.Require().NoError(err)
	s.Equal("boards/p/affinity.png", key)
	s.Equal("dti-exports", store.Bucket())
}

func (s *RepositoryTestSuite) TestBucketStore_URLAndKeys() {
	u, _ := url.Parse("http://localhost:9000/dti-exports/boards/p/board.json?sig=1")
	s.api.On("PresignedGetObject", s.ctx, "dti-exports", "boards/p/board.json", time.Hour, url.Values(nil)).Return(u, nil)
	s.api.On("ListObjects", mock.Anything, "dti-exports", minio.ListObjectsOptions{Prefix: "boards/p/", Recursive: true}).
		Return(objectChan(minio.ObjectInfo{Key: "boards/p/board.json"}, minio.ObjectInfo{Key: "boards/p/rules.png"}))

	store := NewBucketStore(s.repo, "dti-exports")
	got, err := store.URL(s.ctx, "boards/p/board.json")
	s.Require().NoError(err)
	s.Equal(u.String(), got)

	keys, err := store.Keys(s.ctx, "boards/p/")
	s.Require().NoError(err)
	s.Equal([]string{"boards/p/board.json", "boards/p/rules.png"}, keys)
}

func (s *RepositoryTestSuite) TestBucketStore_KeysListFailure() {
	s.api.On("ListObjects", mock.Anything, "dti-exports", mock.Anything).
		Return(objectChan(minio.ObjectInfo{Err: errors.New("access denied")}))

	_, err := NewBucketStore(s.repo, "dti-exports").Keys(s.ctx, "boards/p/")
	s.True(apperrors.IsCode(err, apperrors.ErrCodeStorageError))
}

func TestRepositoryTestSuite(t *testing.T) {
	suite.Run(t, new(RepositoryTestSuite))
}

func TestObjectKeys(t *testing.T) {
	assert.Equal(t, "structures/abc/280x200.png", StructureKey("structure:abc:280x200"))
	assert.Equal(t, "boards/pass-1/rules.parquet", BoardKey("pass-1", "rules.parquet"))
}

func (s *RepositoryTestSuite) TestDiagramArchive() {
	s.api.On("PutObject", s.ctx, "dti-structures", "structures/abc/280x200.png", mock.Anything, int64(len(pngHeader)), mock.Anything).
		Return(minio.UploadInfo{}, nil)

	key, err := NewDiagramArchive(s.repo, "dti-structures").Archive(s.ctx, "structure:abc:280x200", pngHeader)
	s.Require().NoError(err)
	s.Equal("structures/abc/280x200.png", key)
}
