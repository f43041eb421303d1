// Package storage issues presigned uploads for product images kept in an S3 compatible bucket.
package storage

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"storefront/internal/config"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// Seams for tests
var (
	loadDefaultAWSConfig  = awsconfig.LoadDefaultConfig
	newS3ClientFromConfig = s3.NewFromConfig
	newS3PresignClient    = func(c *s3.Client) *s3.PresignClient { return s3.NewPresignClient(c) }
	presignPutObject      = func(pc *s3.PresignClient, ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		return pc.PresignPutObject(ctx, in, optFns...)
	}
)

// PresignedUpload is a time limited URL the client PUTs the object to
type PresignedUpload struct {
	Key       string
	URL       string
	Method    string
	Headers   http.Header
	ExpiresAt time.Time
}

// ImageStore hands out upload URLs and resolves stored keys to public URLs
type ImageStore interface {
	PresignUpload(ctx context.Context, key, contentType string) (*PresignedUpload, error)
	PublicURL(key string) string
}

// S3ImageStore implements ImageStore on top of aws-sdk-go-v2
type S3ImageStore struct {
	presign       *s3.PresignClient
	bucket        string
	publicBaseURL string
	expiry        time.Duration
}

// NewS3ImageStore builds a presign client from cfg. A custom endpoint switches
// to path style addressing so MinIO and similar servers work.
func NewS3ImageStore(ctx context.Context, cfg config.StorageConfig) (*S3ImageStore, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	if cfg.AccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}

	awsCfg, err := loadDefaultAWSConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load aws config: %w", err)
	}

	client := newS3ClientFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	publicBaseURL := cfg.PublicBaseURL
	if publicBaseURL == "" && cfg.Endpoint != "" {
		publicBaseURL = strings.TrimRight(cfg.Endpoint, "/") + "/" + cfg.Bucket
	}

	return &S3ImageStore{
		presign:       newS3PresignClient(client),
		bucket:        cfg.Bucket,
		publicBaseURL: strings.TrimRight(publicBaseURL, "/"),
		expiry:        cfg.PresignExpiry,
	}, nil
}

// PresignUpload signs a PUT for key restricted to contentType
func (s *S3ImageStore) PresignUpload(ctx context.Context, key, contentType string) (*PresignedUpload, error) {
	req, err := presignPutObject(s.presign, ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		ContentType: aws.String(contentType),
	}, s3.WithPresignExpires(s.expiry))
	if err != nil {
		return nil, fmt.Errorf("failed to presign upload: %w", err)
	}

	return &PresignedUpload{
		Key:       key,
		URL:       req.URL,
		Method:    req.Method,
		Headers:   req.SignedHeader,
		ExpiresAt: time.Now().Add(s.expiry),
	}, nil
}

// PublicURL returns the address clients read key from. Empty keys stay empty.
func (s *S3ImageStore) PublicURL(key string) string {
	if key == "" {
		return ""
	}
	if s.publicBaseURL == "" {
		return fmt.Sprintf("https://%s.s3.amazonaws.com/%s", s.bucket, key)
	}
	return s.publicBaseURL + "/" + key
}
