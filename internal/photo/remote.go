package photo

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// Remote is cloud storage for photos. Upload returns the id the record
// stores as its remote reference.
type Remote interface {
	Upload(ctx context.Context, name string, data []byte) (string, error)
	Download(ctx context.Context, id string) ([]byte, error)
	Delete(ctx context.Context, id string) error
}

// s3API is the subset of the S3 client S3Remote uses.
type s3API interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, opts ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, in *s3.GetObjectInput, opts ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, opts ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// S3Remote stores photos in an S3 bucket. The remote id is the object key.
type S3Remote struct {
	client s3API
	bucket string
	prefix string
}

var _ Remote = (*S3Remote)(nil)

// NewS3Remote builds a client from the default AWS credential chain.
func NewS3Remote(ctx context.Context, region, bucket, prefix string) (*S3Remote, error) {
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("photo: load aws config: %w", err)
	}
	return &S3Remote{client: s3.NewFromConfig(cfg), bucket: bucket, prefix: prefix}, nil
}

func (r *S3Remote) Upload(ctx context.Context, name string, data []byte) (string, error) {
	key := path.Join(r.prefix, path.Base(name))
	_, err := r.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(r.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(ContentType(data)),
	})
	if err != nil {
		return "", fmt.Errorf("photo: put %s: %w", key, err)
	}
	return key, nil
}

func (r *S3Remote) Download(ctx context.Context, id string) ([]byte, error) {
	out, err := r.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(r.bucket),
		Key:    aws.String(id),
	})
	if err != nil {
		return nil, fmt.Errorf("photo: get %s: %w", id, err)
	}
	defer out.Body.Close()
	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("photo: read %s: %w", id, err)
	}
	return data, nil
}

func (r *S3Remote) Delete(ctx context.Context, id string) error {
	_, err := r.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(r.bucket),
		Key:    aws.String(id),
	})
	if err != nil {
		return fmt.Errorf("photo: delete %s: %w", id, err)
	}
	return nil
}
