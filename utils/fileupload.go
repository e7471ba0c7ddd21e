package utils

import (
	"fmt"
	"io"
	"mime/multipart"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
)

const (
	// MaxFileSize is 10MB in bytes
	MaxFileSize = 10 * 1024 * 1024
)

// allowedImageFormats maps accepted extensions to the content type stored with the object
var allowedImageFormats = map[string]string{
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
}

var unsafeKeyChars = regexp.MustCompile(`[^a-zA-Z0-9._-]+`)

// FileUploadError represents a file upload validation error
type FileUploadError struct {
	Code    string
	Message string
}

func (e *FileUploadError) Error() string {
	return e.Message
}

// ValidateImageFile validates the uploaded file format and size and returns its content type
func ValidateImageFile(fileHeader *multipart.FileHeader) (string, error) {
	if fileHeader.Size > MaxFileSize {
		return "", &FileUploadError{
			Code:    "FILE_TOO_LARGE",
			Message: fmt.Sprintf("File size exceeds maximum allowed size of %d MB", MaxFileSize/(1024*1024)),
		}
	}

	ext := strings.ToLower(filepath.Ext(fileHeader.Filename))
	contentType, ok := allowedImageFormats[ext]
	if !ok {
		return "", &FileUploadError{
			Code:    "INVALID_FILE_FORMAT",
			Message: "Only .png, .jpg and .jpeg files are allowed",
		}
	}

	return contentType, nil
}

// VerifyImageContent checks that content really is of contentType, so a
// renamed file cannot be stored under an image extension.
func VerifyImageContent(content []byte, contentType string) error {
	detected := mimetype.Detect(content)
	if !detected.Is(contentType) {
		return &FileUploadError{
			Code:    "INVALID_FILE_FORMAT",
			Message: fmt.Sprintf("File content is %s, expected %s", detected.String(), contentType),
		}
	}
	return nil
}

// ReadUploadedFile returns the full content of an uploaded file
func ReadUploadedFile(fileHeader *multipart.FileHeader) (content []byte, err error) {
	src, err := fileHeader.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open uploaded file: %w", err)
	}
	defer func() {
		if closeErr := src.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("failed to close uploaded file: %w", closeErr)
		}
	}()

	content, err = io.ReadAll(io.LimitReader(src, MaxFileSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read uploaded file: %w", err)
	}
	if len(content) > MaxFileSize {
		return nil, &FileUploadError{
			Code:    "FILE_TOO_LARGE",
			Message: fmt.Sprintf("File size exceeds maximum allowed size of %d MB", MaxFileSize/(1024*1024)),
		}
	}
	return content, nil
}

// ProductImageKey builds the object key for a product image.
// Format: products/{product_id}/{unix_timestamp}_{sanitized filename}
func ProductImageKey(productID uint, filename string, at time.Time) string {
	base := unsafeKeyChars.ReplaceAllString(filepath.Base(filename), "_")
	return fmt.Sprintf("products/%d/%d_%s", productID, at.Unix(), base)
}
