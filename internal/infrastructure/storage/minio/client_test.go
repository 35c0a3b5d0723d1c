package minio

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/lifecycle"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/turtacn/DTI-Insight/internal/testutil"
	apperrors "github.com/turtacn/DTI-Insight/pkg/errors"
)

type ClientTestSuite struct {
	suite.Suite
	api    *MockObjectAPI
	client *Client
	ctx    context.Context
}

func (s *ClientTestSuite) SetupTest() {
	s.api = new(MockObjectAPI)
	s.client = NewClientWithAPI(s.api, Config{Endpoint: "localhost:9000"}, testutil.NewMockLogger())
	s.ctx = context.Background()
}

func (s *ClientTestSuite) TestApplyDefaults() {
	cfg := Config{}
	applyDefaults(&cfg)
	s.Equal("us-east-1", cfg.Region)
	s.Equal(time.Hour, cfg.PresignExpiry)
	s.Equal("dti-structures", cfg.StructureBucket)
	s.Equal("dti-exports", cfg.ExportBucket)
}

func (s *ClientTestSuite) TestEnsureBuckets_CreatesMissing() {
	s.api.On("BucketExists", s.ctx, "dti-structures").Return(true, nil)
	s.api.On("BucketExists", s.ctx, "dti-exports").Return(false, nil)
	s.api.On("MakeBucket", s.ctx, "dti-exports", minio.MakeBucketOptions{Region: "us-east-1"}).Return(nil)

	s.Require().NoError(s.client.EnsureBuckets(s.ctx))
	s.api.AssertExpectations(s.T())
	s.api.AssertNotCalled(s.T(), "MakeBucket", s.ctx, "dti-structures", mock.Anything)
}

func (s *ClientTestSuite) TestEnsureBuckets_ExistsError() {
	s.api.On("BucketExists", s.ctx, "dti-structures").Return(false, errors.New("denied"))
	err := s.client.EnsureBuckets(s.ctx)
	s.Require().Error(err)
	s.True(apperrors.IsCode(err, apperrors.ErrCodeStorageError))
}

func (s *ClientTestSuite) TestSetupLifecycleRules() {
	s.client.config.ExportRetentionDays = 30
	s.api.On("SetBucketLifecycle", s.ctx, "dti-exports", mock.MatchedBy(func(c *lifecycle.Configuration) bool {
		return len(c.Rules) == 1 && c.Rules[0].RuleFilter.Prefix == BoardPrefix && int(c.Rules[0].Expiration.Days) == 30
	})).Return(errors.New("not supported"))

	s.client.SetupLifecycleRules(s.ctx)
	s.api.AssertExpectations(s.T())
	s.True(s.client.logger.(*testutil.MockLogger).HasMessage("warn", "failed to set export lifecycle"))
}

func (s *ClientTestSuite) TestSetupLifecycleRules_DisabledByDefault() {
	s.client.SetupLifecycleRules(s.ctx)
	s.api.AssertNotCalled(s.T(), "SetBucketLifecycle", mock.Anything, mock.Anything, mock.Anything)
}

func (s *ClientTestSuite) TestCheck_Healthy() {
	s.api.On("ListBuckets", s.ctx).Return([]minio.BucketInfo{}, nil)
	s.api.On("BucketExists", s.ctx, mock.Anything).Return(true, nil)
	s.NoError(s.client.Check(s.ctx))
	s.Equal("minio", s.client.Name())
}

func (s *ClientTestSuite) TestCheck_MissingBucket() {
	s.api.On("ListBuckets", s.ctx).Return([]minio.BucketInfo{}, nil)
	s.api.On("BucketExists", s.ctx, "dti-structures").Return(true, nil)
	s.api.On("BucketExists", s.ctx, "dti-exports").Return(false, nil)

	status, err := s.client.HealthCheck(s.ctx)
	s.Require().NoError(err)
	s.False(status.Healthy)
	s.Equal(map[string]bool{"dti-structures": true, "dti-exports": false}, status.BucketStatuses)

	err = s.client.Check(s.ctx)
	s.Require().Error(err)
	s.True(apperrors.IsCode(err, apperrors.ErrCodeServiceUnavailable))
}

func (s *ClientTestSuite) TestCheck_Unreachable() {
	s.api.On("ListBuckets", s.ctx).Return([]minio.BucketInfo(nil), errors.New("dial tcp"))
	err := s.client.Check(s.ctx)
	s.Require().Error(err)
	s.True(apperrors.IsCode(err, apperrors.ErrCodeServiceUnavailable))
}

func (s *ClientTestSuite) TestClosed() {
	s.Require().NoError(s.client.Close())
	_, err := s.client.HealthCheck(s.ctx)
	s.ErrorIs(err, ErrClientClosed)
}

func TestClientTestSuite(t *testing.T) {
	suite.Run(t, new(ClientTestSuite))
}

func TestNewClient_RequiresEndpoint(t *testing.T) {
	_, err := NewClient(context.Background(), Config{}, nil)
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeValidation))
}
