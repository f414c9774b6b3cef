package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

const (
	maxProductImageSize = 5 * 1024 * 1024 // 5 MB
	presignedURLTTL     = 15 * time.Minute
	productPathPrefix   = "produtos"
)

var (
	ErrFileTooBig           = errors.New("file size exceeds 5MB limit")
	ErrInvalidFileType      = errors.New("invalid file type, only JPEG, PNG and WebP images are allowed")
	ErrBucketCreationFailed = errors.New("failed to create storage bucket")
	ErrUploadFailed         = errors.New("failed to upload file")
	ErrDeleteFailed         = errors.New("failed to delete file")
	ErrURLGenerationFailed  = errors.New("failed to generate presigned URL")

	allowedImageTypes = map[string]struct{}{
		"image/jpeg": {},
		"image/png":  {},
		"image/webp": {},
	}
)

// StorageService defines the interface for object storage operations.
type StorageService interface {
	// UploadProductImage uploads a catalog image and returns the object key.
	UploadProductImage(ctx context.Context, productID uint, file io.Reader, fileSize int64) (string, error)

	// DeleteProductImage deletes a catalog image by object key.
	DeleteProductImage(ctx context.Context, objectKey string) error

	// GenerateImageURL generates a presigned URL for image access.
	GenerateImageURL(ctx context.Context, objectKey string) (string, error)
}

// MinIOStorageService implements StorageService using MinIO/S3-compatible storage.
type MinIOStorageService struct {
	client     *minio.Client
	bucketName string
	initOnce   sync.Once
	initErr    error
}

// NewMinIOStorageService creates a MinIO-backed storage service.
// Bucket creation is deferred until the first operation to avoid blocking app startup.
func NewMinIOStorageService(endpoint, accessKey, secretKey, bucketName string, useSSL bool) (*MinIOStorageService, error) {
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}

	return &MinIOStorageService{
		client:     client,
		bucketName: bucketName,
	}, nil
}

// lazyInit ensures the bucket exists on first use (not at startup).
func (s *MinIOStorageService) lazyInit(ctx context.Context) error {
	s.initOnce.Do(func() {
		s.initErr = s.ensureBucketExists(ctx)
	})
	return s.initErr
}

func (s *MinIOStorageService) ensureBucketExists(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucketName)
	if err != nil {
		return fmt.Errorf("%w: check bucket existence: %v", ErrBucketCreationFailed, err)
	}

	if !exists {
		if err := s.client.MakeBucket(ctx, s.bucketName, minio.MakeBucketOptions{}); err != nil {
			return fmt.Errorf("%w: create bucket: %v", ErrBucketCreationFailed, err)
		}
	}

	return nil
}

// UploadProductImage uploads a catalog image with validation.
// Detects content type from actual bytes to prevent spoofing.
func (s *MinIOStorageService) UploadProductImage(ctx context.Context, productID uint, file io.Reader, fileSize int64) (string, error) {
	if fileSize > maxProductImageSize {
		return "", ErrFileTooBig
	}

	// Sniff the first 512 bytes; client Content-Type headers are not trusted.
	buf := make([]byte, 512)
	n, err := io.ReadFull(file, buf)
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		return "", fmt.Errorf("%w: read file for content detection: %v", ErrUploadFailed, err)
	}
	buf = buf[:n]

	detectedType := strings.ToLower(strings.TrimSpace(http.DetectContentType(buf)))
	if _, allowed := allowedImageTypes[detectedType]; !allowed {
		return "", ErrInvalidFileType
	}

	if err := s.lazyInit(ctx); err != nil {
		return "", err
	}

	fullFile := io.MultiReader(bytes.NewReader(buf), file)

	fileExt := contentTypeToExtension(detectedType)
	objectKey := fmt.Sprintf("%s/%d/%s%s", productPathPrefix, productID, uuid.New().String(), fileExt)

	metadata := map[string]string{
		"Detected-Content-Type": detectedType,
		"Product-ID":            fmt.Sprintf("%d", productID),
		"Uploaded-At":           time.Now().UTC().Format(time.RFC3339),
	}

	_, err = s.client.PutObject(ctx, s.bucketName, objectKey, fullFile, fileSize, minio.PutObjectOptions{
		ContentType:  detectedType,
		UserMetadata: metadata,
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUploadFailed, err)
	}

	return objectKey, nil
}

// DeleteProductImage deletes a catalog image. Empty keys are a no-op so
// callers can pass whatever the product record holds.
func (s *MinIOStorageService) DeleteProductImage(ctx context.Context, objectKey string) error {
	if strings.TrimSpace(objectKey) == "" {
		return nil
	}
	if strings.Contains(objectKey, "..") || !strings.HasPrefix(objectKey, productPathPrefix+"/") {
		return fmt.Errorf("%w: unexpected object key", ErrDeleteFailed)
	}

	if err := s.lazyInit(ctx); err != nil {
		return err
	}

	if err := s.client.RemoveObject(ctx, s.bucketName, objectKey, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("%w: %v", ErrDeleteFailed, err)
	}

	return nil
}

// GenerateImageURL generates a presigned GET URL for image access.
func (s *MinIOStorageService) GenerateImageURL(ctx context.Context, objectKey string) (string, error) {
	if strings.TrimSpace(objectKey) == "" {
		return "", fmt.Errorf("%w: empty object key", ErrURLGenerationFailed)
	}

	if err := s.lazyInit(ctx); err != nil {
		return "", err
	}

	presignedURL, err := s.client.PresignedGetObject(ctx, s.bucketName, objectKey, presignedURLTTL, url.Values{})
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrURLGenerationFailed, err)
	}

	return presignedURL.String(), nil
}

func contentTypeToExtension(contentType string) string {
	switch contentType {
	case "image/jpeg":
		return ".jpg"
	case "image/png":
		return ".png"
	case "image/webp":
		return ".webp"
	default:
		return ""
	}
}
