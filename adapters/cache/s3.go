package cache

import (
	"bytes"
	"context"
	"errors"
	"io"

	apperrors "github.com/Skryldev/image-server/errors"
)

// ObjectClient defines the minimal object-store interface used by the S3
// cache.  This allows injection of real aws-sdk-go-v2 clients or test
// doubles without taking on the SDK dependency here.
type ObjectClient interface {
	PutObject(ctx context.Context, bucket, key string, body io.Reader) error
	GetObject(ctx context.Context, bucket, key string) (io.ReadCloser, error)
	HeadObject(ctx context.Context, bucket, key string) (bool, error)
}

// S3 is a KeyValueCache backed by S3 or an S3-compatible store.
type S3 struct {
	client ObjectClient
	bucket string
}

// NewS3 creates an S3 cache.  client must not be nil.
func NewS3(client ObjectClient, bucket string) (*S3, error) {
	if client == nil {
		return nil, errors.New("s3 cache: nil client")
	}
	return &S3{client: client, bucket: bucket}, nil
}

func (s *S3) Get(ctx context.Context, key string) ([]byte, bool, error) {
	const op = "s3.get"
	exists, err := s.client.HeadObject(ctx, s.bucket, key)
	if err != nil {
		return nil, false, apperrors.Wrap(apperrors.CategoryCache, op, err)
	}
	if !exists {
		return nil, false, nil
	}
	body, err := s.client.GetObject(ctx, s.bucket, key)
	if err != nil {
		return nil, false, apperrors.Wrap(apperrors.CategoryCache, op, err)
	}
	defer body.Close()
	data, err := io.ReadAll(body)
	if err != nil {
		return nil, false, apperrors.Wrap(apperrors.CategoryCache, op, err)
	}
	return data, true, nil
}

func (s *S3) Put(ctx context.Context, key string, value []byte) error {
	return apperrors.Wrap(apperrors.CategoryCache, "s3.put",
		s.client.PutObject(ctx, s.bucket, key, bytes.NewReader(value)))
}
