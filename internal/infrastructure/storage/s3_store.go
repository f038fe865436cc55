// Package storage 提供 S3 兼容对象存储（MinIO / Cloudflare R2）
package storage

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"ebook-studio-api/internal/config"
	"ebook-studio-api/pkg/tracer"
)

const defaultPresignExpiry = 24 * time.Hour

// S3Store 对象存储客户端
type S3Store struct {
	client        *minio.Client
	bucket        string
	region        string
	presignExpiry time.Duration

	initOnce sync.Once
	initErr  error
}

// NewS3Store 创建对象存储客户端；未启用时返回 nil, nil
func NewS3Store(cfg *config.S3Config) (*S3Store, error) {
	if cfg == nil || !cfg.Enabled {
		return nil, nil
	}
	endpoint := strings.TrimSpace(cfg.Endpoint)
	if endpoint == "" {
		return nil, fmt.Errorf("s3 endpoint is required")
	}
	access := strings.TrimSpace(cfg.AccessKeyID)
	secret := strings.TrimSpace(cfg.SecretAccessKey)
	if access == "" || secret == "" {
		return nil, fmt.Errorf("s3 access key and secret key are required")
	}
	bucket := strings.TrimSpace(cfg.Bucket)
	if bucket == "" {
		return nil, fmt.Errorf("s3 bucket is required")
	}
	region := strings.TrimSpace(cfg.Region)
	if region == "" {
		region = "us-east-1"
	}

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(access, secret, ""),
		Secure: cfg.UseSSL,
		Region: region,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to init s3 client: %w", err)
	}

	expiry := cfg.PresignExpiry
	if expiry <= 0 {
		expiry = defaultPresignExpiry
	}
	return &S3Store{
		client:        client,
		bucket:        bucket,
		region:        region,
		presignExpiry: expiry,
	}, nil
}

func (s *S3Store) ensureBucket(ctx context.Context) error {
	s.initOnce.Do(func() {
		exists, err := s.client.BucketExists(ctx, s.bucket)
		if err != nil {
			s.initErr = err
			return
		}
		if exists {
			return
		}
		s.initErr = s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{Region: s.region})
	})
	return s.initErr
}

// Put 上传对象并返回预签名下载地址
func (s *S3Store) Put(ctx context.Context, key, contentType string, data []byte) (string, error) {
	ctx, span := tracer.Start(ctx, "storage.put",
		trace.WithAttributes(attribute.String("s3.bucket", s.bucket), attribute.String("s3.key", key)))
	defer span.End()

	if err := s.ensureBucket(ctx); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", fmt.Errorf("failed to ensure bucket: %w", err)
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	_, err := s.client.PutObject(ctx, s.bucket, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", fmt.Errorf("failed to put object: %w", err)
	}
	return s.URL(ctx, key)
}

// URL 生成预签名下载地址
func (s *S3Store) URL(ctx context.Context, key string) (string, error) {
	u, err := s.client.PresignedGetObject(ctx, s.bucket, key, s.presignExpiry, nil)
	if err != nil {
		return "", fmt.Errorf("failed to presign object: %w", err)
	}
	return u.String(), nil
}

// CoverKey 封面对象路径
func CoverKey(runID, ext string) string {
	return fmt.Sprintf("covers/%s.%s", runID, strings.TrimPrefix(ext, "."))
}

// ExportKey 导出文件对象路径
func ExportKey(bookID, ext string) string {
	return fmt.Sprintf("exports/%s.%s", bookID, strings.TrimPrefix(ext, "."))
}

// HealthCheck 检查桶是否可访问
func (s *S3Store) HealthCheck(ctx context.Context) error {
	if _, err := s.client.BucketExists(ctx, s.bucket); err != nil {
		return fmt.Errorf("s3 bucket check failed: %w", err)
	}
	return nil
}
