// Package storage 提供 S3 兼容对象存储（含 Cloudflare R2）
package storage

import (
	"bytes"
	"context"
	stderrors "errors"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"vidassist-api/internal/application/errclass"
	"vidassist-api/internal/config"
	apperrors "vidassist-api/pkg/errors"
	"vidassist-api/pkg/logger"
)

var tracer = otel.Tracer("storage")

const defaultPresignTTL = 7 * 24 * time.Hour

type objectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	HeadBucket(ctx context.Context, params *s3.HeadBucketInput, optFns ...func(*s3.Options)) (*s3.HeadBucketOutput, error)
}

type presignAPI interface {
	PresignGetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
}

// S3Store 实现 service.ObjectStore
// 配置了 PublicURL 时返回公开地址，否则返回预签名 GET 地址。
type S3Store struct {
	client  objectAPI
	presign presignAPI
	cfg     config.S3Config
}

// NewS3Store 创建对象存储客户端
func NewS3Store(ctx context.Context, cfg config.S3Config) (*S3Store, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("s3 bucket is required")
	}
	if cfg.Region == "" {
		cfg.Region = "auto"
	}

	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.Region)}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load aws config: %w", err)
	}

	var s3Opts []func(*s3.Options)
	if cfg.Endpoint != "" {
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = cfg.UsePathStyle
		})
	}

	client := s3.NewFromConfig(awsCfg, s3Opts...)
	logger.Info(ctx, "object store initialized", "bucket", cfg.Bucket, "endpoint", cfg.Endpoint)
	return newS3Store(client, s3.NewPresignClient(client), cfg), nil
}

func newS3Store(client objectAPI, presign presignAPI, cfg config.S3Config) *S3Store {
	if cfg.PresignTTL <= 0 {
		cfg.PresignTTL = defaultPresignTTL
	}
	return &S3Store{client: client, presign: presign, cfg: cfg}
}

func (s *S3Store) fullKey(key string) string {
	if s.cfg.Prefix == "" {
		return key
	}
	return strings.TrimSuffix(s.cfg.Prefix, "/") + "/" + strings.TrimPrefix(key, "/")
}

// Upload 写入对象，返回对象键作为引用
func (s *S3Store) Upload(ctx context.Context, data []byte, contentType string) (string, error) {
	key := s.fullKey("thumbnails/" + uuid.NewString() + extensionFor(contentType))
	ctx, span := tracer.Start(ctx, "storage.Upload", trace.WithAttributes(
		attribute.String("storage.key", key),
		attribute.Int("storage.size", len(data)),
	))
	defer span.End()

	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.cfg.Bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		span.RecordError(err)
		return "", apperrors.Wrap(err, apperrors.KindStoreUnavailable, errclass.MsgStoreUnavailable).
			WithDetail("s3 put object")
	}
	return key, nil
}

// ResolveURL 对象尚不可见时返回 ("", nil)
func (s *S3Store) ResolveURL(ctx context.Context, ref string) (string, error) {
	ctx, span := tracer.Start(ctx, "storage.ResolveURL", trace.WithAttributes(attribute.String("storage.key", ref)))
	defer span.End()

	_, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.cfg.Bucket),
		Key:    aws.String(ref),
	})
	if err != nil {
		if isNotFoundError(err) {
			return "", nil
		}
		span.RecordError(err)
		return "", apperrors.Wrap(err, apperrors.KindStoreUnavailable, errclass.MsgStoreUnavailable).
			WithDetail("s3 head object")
	}

	if s.cfg.PublicURL != "" {
		return strings.TrimSuffix(s.cfg.PublicURL, "/") + "/" + ref, nil
	}

	req, err := s.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.cfg.Bucket),
		Key:    aws.String(ref),
	}, s3.WithPresignExpires(s.cfg.PresignTTL))
	if err != nil {
		span.RecordError(err)
		return "", fmt.Errorf("failed to presign object url: %w", err)
	}
	return req.URL, nil
}

// HealthCheck 探测桶是否可访问
func (s *S3Store) HealthCheck(ctx context.Context) error {
	ctx, span := tracer.Start(ctx, "storage.HealthCheck")
	defer span.End()

	if _, err := s.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(s.cfg.Bucket)}); err != nil {
		span.RecordError(err)
		return fmt.Errorf("s3 head bucket %s: %w", s.cfg.Bucket, err)
	}
	return nil
}

func isNotFoundError(err error) bool {
	var notFound *types.NotFound
	var noSuchKey *types.NoSuchKey
	if stderrors.As(err, &notFound) || stderrors.As(err, &noSuchKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "NotFound") ||
		strings.Contains(msg, "NoSuchKey") ||
		strings.Contains(msg, "StatusCode: 404")
}

func extensionFor(contentType string) string {
	switch contentType {
	case "image/png":
		return ".png"
	case "image/jpeg":
		return ".jpg"
	case "image/webp":
		return ".webp"
	default:
		return ""
	}
}
