package objects

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
)

// S3Store grava os áudios em um bucket S3 (ou compatível, como MinIO).
type S3Store struct {
	client   *s3.Client
	bucket   string
	prefix   string
	region   string
	endpoint string
	base     string
}

type S3StoreConfig struct {
	Bucket   string
	Region   string
	Endpoint string // opcional, para MinIO/LocalStack
	Prefix   string
	// PublicBaseURL substitui a URL derivada do bucket (ex.: CDN).
	PublicBaseURL string
}

func NewS3Store(ctx context.Context, cfg S3StoreConfig) (*S3Store, error) {
	awsCfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("objects: carregar config aws: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	return &S3Store{
		client:   client,
		bucket:   cfg.Bucket,
		prefix:   cfg.Prefix,
		region:   cfg.Region,
		endpoint: cfg.Endpoint,
		base:     cfg.PublicBaseURL,
	}, nil
}

func (s *S3Store) key(name string) string { return s.prefix + name }

func (s *S3Store) Upload(ctx context.Context, name string, data []byte, contentType string) error {
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	// If-None-Match: * faz o próprio bucket recusar sobrescrita.
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(s.key(name)),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
		IfNoneMatch: aws.String("*"),
	})
	if err != nil {
		var apiErr smithy.APIError
		if errors.As(err, &apiErr) && apiErr.ErrorCode() == "PreconditionFailed" {
			return ErrObjectExists
		}
		return fmt.Errorf("objects: s3 put %s: %w", name, err)
	}
	return nil
}

func (s *S3Store) PublicURL(name string) string {
	key := escapeKey(s.key(name))
	switch {
	case s.base != "":
		return joinURL(s.base, key)
	case s.endpoint != "":
		return joinURL(joinURL(s.endpoint, s.bucket), key)
	default:
		return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", s.bucket, s.region, key)
	}
}

func (s *S3Store) Ping(ctx context.Context) error {
	_, err := s.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(s.bucket)})
	if err != nil {
		return fmt.Errorf("objects: s3 head bucket: %w", err)
	}
	return nil
}
