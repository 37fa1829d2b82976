// Package minio stores expansion artifacts in an S3-compatible bucket.
package minio

import (
	"bytes"
	"context"
	"path"
	"strconv"
	"time"

	"github.com/minio/minio-go/v7"

	"github.com/turtacn/mechstereo/internal/domain/reaction"
	"github.com/turtacn/mechstereo/internal/infrastructure/mechfile"
	"github.com/turtacn/mechstereo/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/mechstereo/pkg/errors"
)

const (
	mechanismObject = "mechanism.yaml"
	contentTypeYAML = "application/yaml"
)

var ErrInvalidRequest = errors.New(errors.ErrCodeValidation, "invalid request")

// ArtifactRepository writes the rebuilt mechanism of each run to
// <prefix>/<run id>/mechanism.yaml.
type ArtifactRepository struct {
	client *MinIOClient
	logger logging.Logger
}

func NewArtifactRepository(client *MinIOClient, logger logging.Logger) *ArtifactRepository {
	return &ArtifactRepository{client: client, logger: logging.OrNop(logger)}
}

// ObjectKey returns the key of the mechanism artifact of runID.
func (r *ArtifactRepository) ObjectKey(runID string) string {
	return path.Join(r.client.config.Prefix, runID, mechanismObject)
}

// SaveMechanism uploads mech as YAML and returns the object key.
func (r *ArtifactRepository) SaveMechanism(ctx context.Context, runID string, mech *reaction.Mechanism) (string, error) {
	if runID == "" || mech == nil {
		return "", ErrInvalidRequest
	}
	if r.client.isClosed() {
		return "", ErrMinIOClientClosed
	}
	data, err := mechfile.Marshal(mech)
	if err != nil {
		return "", err
	}

	key := r.ObjectKey(runID)
	opts := minio.PutObjectOptions{
		ContentType: contentTypeYAML,
		UserMetadata: map[string]string{
			"run-id":    runID,
			"species":   strconv.Itoa(len(mech.Species)),
			"reactions": strconv.Itoa(len(mech.Reactions)),
		},
		UserTags: map[string]string{"kind": "mechanism"},
	}
	start := time.Now()
	info, err := r.client.GetClient().PutObject(ctx, r.client.config.Bucket, key, bytes.NewReader(data), int64(len(data)), opts)
	if err != nil {
		return "", errors.Wrap(err, errors.ErrCodeStorageError, "upload failed").WithDetail(key)
	}
	r.logger.Info("mechanism archived",
		logging.String("bucket", r.client.config.Bucket),
		logging.String("key", key),
		logging.Int64("size", info.Size),
		logging.Duration("elapsed", time.Since(start)))
	return key, nil
}

// Exists reports whether the artifact of runID is present.
func (r *ArtifactRepository) Exists(ctx context.Context, runID string) (bool, error) {
	_, err := r.client.GetClient().StatObject(ctx, r.client.config.Bucket, r.ObjectKey(runID), minio.StatObjectOptions{})
	if err == nil {
		return true, nil
	}
	if minio.ToErrorResponse(err).Code == "NoSuchKey" {
		return false, nil
	}
	return false, errors.Wrap(err, errors.ErrCodeStorageError, "stat failed")
}
