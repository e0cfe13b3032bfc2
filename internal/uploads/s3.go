package uploads

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/edchat-io/edchat/internal/config"
	"github.com/google/uuid"
)

// S3Storage writes attachments to an S3-compatible bucket.
type S3Storage struct {
	client   *s3.Client
	bucket   string
	urlBase  string
	maxBytes int64
}

// NewS3Storage constructs an S3Storage against cfg's endpoint. Custom
// endpoints cover S3-compatible object stores; path-style addressing is
// required by most of them.
func NewS3Storage(ctx context.Context, cfg config.UploadConfig) (*S3Storage, error) {
	awsCfg, errLoad := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.S3AccessKey, cfg.S3SecretKey, "",
		)),
		awsconfig.WithRegion(cfg.S3Region),
	)
	if errLoad != nil {
		return nil, fmt.Errorf("uploads: load aws config: %w", errLoad)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.S3Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.S3Endpoint)
		}
		o.UsePathStyle = true
	})

	urlBase := fmt.Sprintf("%s/%s", cfg.S3Endpoint, cfg.S3Bucket)
	return &S3Storage{
		client:   client,
		bucket:   cfg.S3Bucket,
		urlBase:  urlBase,
		maxBytes: cfg.MaxSizeBytes,
	}, nil
}

// Save uploads the body under a random key and returns its public URL.
// The body is buffered so the size cap applies before any bytes are sent.
func (s *S3Storage) Save(ctx context.Context, contentType string, body io.Reader) (*SavedFile, error) {
	normalized, ext, errType := checkType(contentType)
	if errType != nil {
		return nil, errType
	}

	var buf bytes.Buffer
	written, errCopy := io.Copy(&buf, io.LimitReader(body, s.maxBytes+1))
	if errCopy != nil {
		return nil, fmt.Errorf("uploads: read body: %w", errCopy)
	}
	if written > s.maxBytes {
		return nil, ErrTooLarge
	}

	key := "chat_images/" + uuid.NewString() + ext
	_, errPut := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(buf.Bytes()),
		ContentType: aws.String(normalized),
		ACL:         types.ObjectCannedACLPublicRead,
	})
	if errPut != nil {
		return nil, fmt.Errorf("uploads: put object: %w", errPut)
	}

	return &SavedFile{
		URL:      s.urlBase + "/" + key,
		MIMEType: normalized,
		Size:     written,
	}, nil
}
