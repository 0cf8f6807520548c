//go:build deskkit_s3

// This file provides an optional S3-backed StateStore that mirrors the
// window-geometry blob to object storage for backup across a user's
// machines. It is excluded from regular builds because it requires the
// AWS SDK. This is a supplementary convenience, not bus/message
// replication — cross-machine replication of bus messages remains out of
// scope.
//
// To use this, build with -tags deskkit_s3 and provide an *s3.Client:
//
//	cfg, _ := config.LoadDefaultConfig(context.Background())
//	store := windowreg.NewS3Store(s3.NewFromConfig(cfg), "my-bucket", "window-state.json")

package windowreg

import (
	"bytes"
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3Store mirrors the serialized window-state blob to a single S3 object.
type S3Store struct {
	client *s3.Client
	bucket string
	key    string
}

// NewS3Store creates an S3-backed StateStore.
func NewS3Store(client *s3.Client, bucket, key string) *S3Store {
	return &S3Store{client: client, bucket: bucket, key: key}
}

// Save uploads the state blob, overwriting any previous object.
func (s *S3Store) Save(ctx context.Context, data []byte) error {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(s.key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("windowreg: s3 save failed: %w", err)
	}
	return nil
}

// Load downloads the state blob. A missing object is tolerated and reported
// as (nil, nil).
func (s *S3Store) Load(ctx context.Context) ([]byte, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key),
	})
	if err != nil {
		var nsk *s3.NoSuchKey
		if isNoSuchKey(err, nsk) {
			return nil, nil
		}
		return nil, fmt.Errorf("windowreg: s3 load failed: %w", err)
	}
	defer out.Body.Close()

	buf := new(bytes.Buffer)
	if _, err := buf.ReadFrom(out.Body); err != nil {
		return nil, fmt.Errorf("windowreg: s3 read failed: %w", err)
	}
	return buf.Bytes(), nil
}

// Close is a no-op; the S3 client may be shared with other components.
func (s *S3Store) Close() error { return nil }

func isNoSuchKey(err error, target *s3.NoSuchKey) bool {
	type apiError interface{ ErrorCode() string }
	if ae, ok := err.(apiError); ok {
		return ae.ErrorCode() == "NoSuchKey"
	}
	return false
}
