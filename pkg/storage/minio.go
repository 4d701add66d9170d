// Package storage 提供了与对象存储服务（MinIO）交互的功能。
package storage

import (
	"context"
	"io"

	"gems-go/internal/config"
	"gems-go/pkg/log"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// MinioClient 是一个全局的 MinIO 客户端实例。
var MinioClient *minio.Client

// InitMinIO 初始化 MinIO 客户端并确保指定的存储桶存在。
func InitMinIO(cfg config.MinIOConfig) {
	var err error

	// 1. 初始化 MinIO 客户端
	MinioClient, err = minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		log.Fatal("初始化 MinIO 客户端失败", err)
	}
	log.Info("MinIO 客户端初始化成功")

	// 2. 检查存储桶是否存在，不存在则创建
	ctx := context.Background()
	bucketName := cfg.BucketName
	exists, err := MinioClient.BucketExists(ctx, bucketName)
	if err != nil {
		log.Fatal("检查 MinIO 存储桶失败", err)
	}
	if !exists {
		log.Infof("存储桶 '%s' 不存在，正在创建...", bucketName)
		if err := MinioClient.MakeBucket(ctx, bucketName, minio.MakeBucketOptions{}); err != nil {
			log.Fatal("创建 MinIO 存储桶失败", err)
		}
		log.Infof("存储桶 '%s' 创建成功", bucketName)
	}
}

// PutObject 将一个对象写入存储桶。
func PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, size int64) error {
	_, err := MinioClient.PutObject(ctx, bucketName, objectName, reader, size, minio.PutObjectOptions{
		ContentType: "text/tab-separated-values",
	})
	return err
}

// GetObject 从存储桶读取一个对象，调用方负责 Close。
func GetObject(ctx context.Context, bucketName, objectName string) (*minio.Object, error) {
	return MinioClient.GetObject(ctx, bucketName, objectName, minio.GetObjectOptions{})
}
