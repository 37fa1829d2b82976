package minio

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"

	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/mechstereo/internal/application/expansion"
	"github.com/turtacn/mechstereo/internal/domain/reaction"
	"github.com/turtacn/mechstereo/internal/infrastructure/mechfile"
	pkgerrors "github.com/turtacn/mechstereo/pkg/errors"
)

var _ expansion.ArtifactStore = (*ArtifactRepository)(nil)

func newTestRepository(api *MockMinIOAPI) *ArtifactRepository {
	client := &MinIOClient{client: api, config: &MinIOConfig{Bucket: "b", Prefix: "runs"}}
	return NewArtifactRepository(client, nil)
}

func testMechanism() *reaction.Mechanism {
	return &reaction.Mechanism{
		Species: []reaction.Species{
			{Name: "W-1", InChI: "InChI=1S/C4H10O/c1-3-4(2)5/h4-5H,3H2,1-2H3/t4-/m1/s1"},
			{Name: "V-1", InChI: "InChI=1S/C4H10O/c1-4(2)3-5/h4-5H,3H2,1-2H3/t4-/m0/s1"},
		},
		Reactions: []reaction.Reaction{reaction.New([]string{"W-1"}, []string{"V-1"}, "")},
	}
}

func TestSaveMechanism(t *testing.T) {
	api := new(MockMinIOAPI)
	var uploaded []byte
	api.On("PutObject", mock.Anything, "b", "runs/run-1/mechanism.yaml", mock.Anything, mock.Anything,
		mock.MatchedBy(func(o minio.PutObjectOptions) bool {
			return o.ContentType == "application/yaml" && o.UserMetadata["run-id"] == "run-1" && o.UserMetadata["reactions"] == "1"
		})).
		Run(func(args mock.Arguments) {
			uploaded, _ = io.ReadAll(args.Get(3).(io.Reader))
		}).
		Return(minio.UploadInfo{Bucket: "b", Key: "runs/run-1/mechanism.yaml", Size: 10}, nil)

	repo := newTestRepository(api)
	key, err := repo.SaveMechanism(context.Background(), "run-1", testMechanism())
	require.NoError(t, err)
	assert.Equal(t, "runs/run-1/mechanism.yaml", key)

	back, err := mechfile.Read(bytes.NewReader(uploaded))
	require.NoError(t, err)
	assert.Equal(t, testMechanism(), back)
	api.AssertExpectations(t)
}

func TestSaveMechanism_UploadError(t *testing.T) {
	api := new(MockMinIOAPI)
	api.On("PutObject", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(minio.UploadInfo{}, errors.New("connection reset"))

	_, err := newTestRepository(api).SaveMechanism(context.Background(), "run-1", testMechanism())
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.ErrCodeStorageError))
}

func TestSaveMechanism_InvalidRequest(t *testing.T) {
	repo := newTestRepository(new(MockMinIOAPI))
	_, err := repo.SaveMechanism(context.Background(), "", testMechanism())
	assert.ErrorIs(t, err, ErrInvalidRequest)
	_, err = repo.SaveMechanism(context.Background(), "run-1", nil)
	assert.ErrorIs(t, err, ErrInvalidRequest)
}

func TestSaveMechanism_Closed(t *testing.T) {
	repo := newTestRepository(new(MockMinIOAPI))
	require.NoError(t, repo.client.Close())
	_, err := repo.SaveMechanism(context.Background(), "run-1", testMechanism())
	assert.ErrorIs(t, err, ErrMinIOClientClosed)
}

func TestExists(t *testing.T) {
	api := new(MockMinIOAPI)
	api.On("StatObject", mock.Anything, "b", "runs/a/mechanism.yaml", mock.Anything).Return(minio.ObjectInfo{Key: "x"}, nil)
	api.On("StatObject", mock.Anything, "b", "runs/b/mechanism.yaml", mock.Anything).
		Return(minio.ObjectInfo{}, minio.ErrorResponse{Code: "NoSuchKey"})
	api.On("StatObject", mock.Anything, "b", "runs/c/mechanism.yaml", mock.Anything).
		Return(minio.ObjectInfo{}, errors.New("timeout"))
	repo := newTestRepository(api)
	ctx := context.Background()

	ok, err := repo.Exists(ctx, "a")
	assert.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.Exists(ctx, "b")
	assert.NoError(t, err)
	assert.False(t, ok)

	_, err = repo.Exists(ctx, "c")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.ErrCodeStorageError))
}
