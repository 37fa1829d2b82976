package minio

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/lifecycle"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"

	"github.com/turtacn/mechstereo/internal/infrastructure/monitoring/logging"
	pkgerrors "github.com/turtacn/mechstereo/pkg/errors"
)

type MockMinIOAPI struct {
	mock.Mock
}

func (m *MockMinIOAPI) BucketExists(ctx context.Context, bucketName string) (bool, error) {
	args := m.Called(ctx, bucketName)
	return args.Bool(0), args.Error(1)
}

func (m *MockMinIOAPI) MakeBucket(ctx context.Context, bucketName string, opts minio.MakeBucketOptions) error {
	args := m.Called(ctx, bucketName, opts)
	return args.Error(0)
}

func (m *MockMinIOAPI) SetBucketLifecycle(ctx context.Context, bucketName string, config *lifecycle.Configuration) error {
	args := m.Called(ctx, bucketName, config)
	return args.Error(0)
}

func (m *MockMinIOAPI) PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error) {
	args := m.Called(ctx, bucketName, objectName, reader, objectSize, opts)
	return args.Get(0).(minio.UploadInfo), args.Error(1)
}

func (m *MockMinIOAPI) StatObject(ctx context.Context, bucketName, objectName string, opts minio.StatObjectOptions) (minio.ObjectInfo, error) {
	args := m.Called(ctx, bucketName, objectName, opts)
	return args.Get(0).(minio.ObjectInfo), args.Error(1)
}

type ClientTestSuite struct {
	suite.Suite
	api *MockMinIOAPI
	log logging.Logger
}

func (s *ClientTestSuite) SetupTest() {
	s.api = new(MockMinIOAPI)
	s.log = logging.NewNopLogger()
}

func (s *ClientTestSuite) TearDownTest() {
	s.api.AssertExpectations(s.T())
}

func (s *ClientTestSuite) TestApplyDefaults() {
	cfg := &MinIOConfig{}
	applyDefaults(cfg)

	assert.Equal(s.T(), "us-east-1", cfg.Region)
	assert.Equal(s.T(), "mechstereo-artifacts", cfg.Bucket)
	assert.Equal(s.T(), "runs", cfg.Prefix)
}

func (s *ClientTestSuite) TestNewMinIOClient_RequiresEndpoint() {
	_, err := NewMinIOClient(&MinIOConfig{}, s.log)
	assert.True(s.T(), pkgerrors.IsCode(err, pkgerrors.ErrCodeValidation))
}

func (s *ClientTestSuite) TestEnsureBucket_Exists() {
	s.api.On("BucketExists", mock.Anything, "b").Return(true, nil)

	c, err := newMinIOClient(context.Background(), s.api, &MinIOConfig{Bucket: "b"}, s.log)
	s.Require().NoError(err)
	s.NotNil(c)
	s.api.AssertNotCalled(s.T(), "MakeBucket", mock.Anything, mock.Anything, mock.Anything)
	s.api.AssertNotCalled(s.T(), "SetBucketLifecycle", mock.Anything, mock.Anything, mock.Anything)
}

func (s *ClientTestSuite) TestEnsureBucket_Creates() {
	s.api.On("BucketExists", mock.Anything, "b").Return(false, nil)
	s.api.On("MakeBucket", mock.Anything, "b", minio.MakeBucketOptions{Region: "eu-west-1"}).Return(nil)

	_, err := newMinIOClient(context.Background(), s.api, &MinIOConfig{Bucket: "b", Region: "eu-west-1"}, s.log)
	s.NoError(err)
}

func (s *ClientTestSuite) TestEnsureBucket_Failure() {
	s.api.On("BucketExists", mock.Anything, "b").Return(false, errors.New("denied"))

	_, err := newMinIOClient(context.Background(), s.api, &MinIOConfig{Bucket: "b"}, s.log)
	s.True(pkgerrors.IsCode(err, pkgerrors.ErrCodeStorageError))
}

func (s *ClientTestSuite) TestLifecycleRule() {
	s.api.On("BucketExists", mock.Anything, "b").Return(true, nil)
	s.api.On("SetBucketLifecycle", mock.Anything, "b", mock.MatchedBy(func(c *lifecycle.Configuration) bool {
		return len(c.Rules) == 1 &&
			c.Rules[0].RuleFilter.Prefix == "runs/" &&
			c.Rules[0].Expiration.Days == lifecycle.ExpirationDays(14)
	})).Return(errors.New("not allowed"))

	_, err := newMinIOClient(context.Background(), s.api, &MinIOConfig{Bucket: "b", RetentionDays: 14}, s.log)
	s.NoError(err, "lifecycle failures are not fatal")
}

func TestClientSuite(t *testing.T) {
	suite.Run(t, new(ClientTestSuite))
}
