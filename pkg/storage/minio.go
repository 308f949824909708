// Package storage 提供了与对象存储服务（如 MinIO）交互的功能。
package storage

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"tarot-ai-go/internal/config"
	"tarot-ai-go/pkg/log"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// TranscriptStore 保存导出的会话转录，并生成临时下载链接。
type TranscriptStore struct {
	client     *minio.Client
	bucketName string
	urlExpiry  time.Duration
}

// InitMinIO 初始化 MinIO 客户端并确保指定的存储桶存在。
func InitMinIO(cfg config.MinIOConfig) (*TranscriptStore, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("初始化 MinIO 客户端失败: %w", err)
	}
	log.Info("MinIO 客户端初始化成功")

	store := NewTranscriptStore(client, cfg.BucketName, cfg.URLExpiry)
	if err := store.ensureBucket(context.Background()); err != nil {
		return nil, err
	}
	return store, nil
}

// NewTranscriptStore 使用已有的 MinIO 客户端。
func NewTranscriptStore(client *minio.Client, bucketName string, urlExpiry time.Duration) *TranscriptStore {
	return &TranscriptStore{client: client, bucketName: bucketName, urlExpiry: urlExpiry}
}

// ensureBucket 检查存储桶是否存在，如果不存在则创建
func (s *TranscriptStore) ensureBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucketName)
	if err != nil {
		return fmt.Errorf("检查 MinIO 存储桶失败: %w", err)
	}
	if exists {
		log.Infof("存储桶 '%s' 已存在", s.bucketName)
		return nil
	}

	log.Infof("存储桶 '%s' 不存在，正在创建...", s.bucketName)
	if err := s.client.MakeBucket(ctx, s.bucketName, minio.MakeBucketOptions{}); err != nil {
		return fmt.Errorf("创建 MinIO 存储桶失败: %w", err)
	}
	log.Infof("存储桶 '%s' 创建成功", s.bucketName)
	return nil
}

// PutTranscript 上传一份转录，同名对象会被覆盖。
func (s *TranscriptStore) PutTranscript(ctx context.Context, objectName string, body []byte, contentType string) error {
	_, err := s.client.PutObject(ctx, s.bucketName, objectName, bytes.NewReader(body), int64(len(body)), minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return fmt.Errorf("failed to upload transcript: %w", err)
	}
	return nil
}

// PresignedURL generates a presigned URL for a given object.
func (s *TranscriptStore) PresignedURL(ctx context.Context, objectName string) (string, error) {
	presignedURL, err := s.client.PresignedGetObject(ctx, s.bucketName, objectName, s.urlExpiry, nil)
	if err != nil {
		return "", fmt.Errorf("failed to generate presigned url: %w", err)
	}
	return presignedURL.String(), nil
}
