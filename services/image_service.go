package services

import (
	"context"
	"fmt"
	"mime/multipart"
	"time"

	"github.com/fvorders/fvorders-api/utils"
)

// ImageService handles product image upload, retrieval, and deletion
type ImageService interface {
	// UploadImage validates and uploads an image for a product, returns the storage key
	UploadImage(ctx context.Context, productID uint, fileHeader *multipart.FileHeader) (string, error)

	// GetImageURL generates a URL for accessing an uploaded image
	GetImageURL(ctx context.Context, imageKey string) (string, error)

	// DeleteImage removes an image from storage
	DeleteImage(ctx context.Context, imageKey string) error
}

// S3ImageService implements ImageService using S3 for storage
type S3ImageService struct {
	s3  S3Interface
	now func() time.Time
}

// NewS3ImageService creates the image service on top of an S3 backend
func NewS3ImageService(s3Service S3Interface) *S3ImageService {
	return &S3ImageService{s3: s3Service, now: time.Now}
}

// UploadImage validates and uploads an image file to S3
func (s *S3ImageService) UploadImage(ctx context.Context, productID uint, fileHeader *multipart.FileHeader) (string, error) {
	contentType, err := utils.ValidateImageFile(fileHeader)
	if err != nil {
		return "", err
	}

	content, err := utils.ReadUploadedFile(fileHeader)
	if err != nil {
		return "", err
	}
	if err := utils.VerifyImageContent(content, contentType); err != nil {
		return "", err
	}

	key := utils.ProductImageKey(productID, fileHeader.Filename, s.now())
	if err := s.s3.UploadFile(ctx, key, contentType, content); err != nil {
		return "", fmt.Errorf("failed to upload image: %w", err)
	}

	return key, nil
}

// GetImageURL generates a presigned URL for accessing an image
func (s *S3ImageService) GetImageURL(ctx context.Context, imageKey string) (string, error) {
	if imageKey == "" {
		return "", nil
	}

	url, err := s.s3.GetPresignedURL(ctx, imageKey)
	if err != nil {
		return "", fmt.Errorf("failed to generate image URL: %w", err)
	}

	return url, nil
}

// DeleteImage deletes an image from S3
func (s *S3ImageService) DeleteImage(ctx context.Context, imageKey string) error {
	if imageKey == "" {
		return nil
	}

	if err := s.s3.DeleteFile(ctx, imageKey); err != nil {
		return fmt.Errorf("failed to delete image: %w", err)
	}

	return nil
}
