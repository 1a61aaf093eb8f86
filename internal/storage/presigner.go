// Package storage issues presigned S3 uploads for counselor profile
// pictures.  Clients PUT the image straight to the bucket and then save
// the returned public URL on their profile.
package storage

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/iliyamo/counseling-booking/internal/config"
)

const uploadTTL = 15 * time.Minute

// PresignedUpload is what a client needs to upload one object.
type PresignedUpload struct {
	UploadURL string    `json:"upload_url"`
	PublicURL string    `json:"public_url"`
	Key       string    `json:"key"`
	ExpiresAt time.Time `json:"expires_at"`
}

// FilePresigner signs PUT requests against one bucket.
type FilePresigner struct {
	client   *s3.PresignClient
	bucket   string
	region   string
	endpoint string
	path     bool
}

// NewFilePresigner builds a presigner from cfg.  It returns nil, nil
// when no bucket is configured so callers can treat uploads as
// disabled.
func NewFilePresigner(ctx context.Context, cfg config.S3Config) (*FilePresigner, error) {
	if cfg.Bucket == "" {
		return nil, nil
	}
	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.Region)}
	if cfg.AccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.UsePathStyle
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	})
	return &FilePresigner{
		client:   s3.NewPresignClient(client),
		bucket:   cfg.Bucket,
		region:   cfg.Region,
		endpoint: strings.TrimRight(cfg.Endpoint, "/"),
		path:     cfg.UsePathStyle,
	}, nil
}

// PresignPut returns a URL valid for 15 minutes that accepts a PUT of
// key with the given content type.
func (p *FilePresigner) PresignPut(ctx context.Context, key, contentType string) (PresignedUpload, error) {
	req, err := p.client.PresignPutObject(ctx,
		&s3.PutObjectInput{
			Bucket:      aws.String(p.bucket),
			Key:         aws.String(key),
			ContentType: aws.String(contentType),
		},
		func(o *s3.PresignOptions) { o.Expires = uploadTTL },
	)
	if err != nil {
		return PresignedUpload{}, fmt.Errorf("presign put: %w", err)
	}
	return PresignedUpload{
		UploadURL: req.URL,
		PublicURL: p.PublicURL(key),
		Key:       key,
		ExpiresAt: time.Now().UTC().Add(uploadTTL),
	}, nil
}

// PublicURL is the address an uploaded object is served from.
func (p *FilePresigner) PublicURL(key string) string {
	return ObjectURL(p.endpoint, p.bucket, p.region, key, p.path)
}

// ObjectURL formats the public URL of key for either a custom endpoint
// (MinIO and friends) or AWS virtual-hosted style.
func ObjectURL(endpoint, bucket, region, key string, pathStyle bool) string {
	key = strings.TrimLeft(key, "/")
	if endpoint == "" {
		return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", bucket, region, key)
	}
	if pathStyle {
		return fmt.Sprintf("%s/%s/%s", endpoint, bucket, key)
	}
	scheme, host, ok := strings.Cut(endpoint, "://")
	if !ok {
		return fmt.Sprintf("https://%s.%s/%s", bucket, endpoint, key)
	}
	return fmt.Sprintf("%s://%s.%s/%s", scheme, bucket, host, key)
}
