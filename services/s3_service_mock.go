package services

import (
	"context"
	"fmt"
	"sync"
)

// MockS3Service is an in-memory S3Interface for tests and local runs
type MockS3Service struct {
	mu            sync.RWMutex
	uploadedFiles map[string][]byte
	contentTypes  map[string]string
}

// NewMockS3Service creates a new mock S3 service
func NewMockS3Service() *MockS3Service {
	return &MockS3Service{
		uploadedFiles: make(map[string][]byte),
		contentTypes:  make(map[string]string),
	}
}

// UploadFile stores content in memory
func (m *MockS3Service) UploadFile(_ context.Context, key, contentType string, content []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.uploadedFiles[key] = append([]byte(nil), content...)
	m.contentTypes[key] = contentType
	return nil
}

// GetPresignedURL returns a fake URL for stored keys
func (m *MockS3Service) GetPresignedURL(_ context.Context, key string) (string, error) {
	if key == "" {
		return "", nil
	}

	m.mu.RLock()
	_, exists := m.uploadedFiles[key]
	m.mu.RUnlock()
	if !exists {
		return "", fmt.Errorf("file not found in mock S3: %s", key)
	}

	return fmt.Sprintf("https://test-bucket.s3.us-east-1.amazonaws.com/%s?mock=true", key), nil
}

// DeleteFile removes key from memory
func (m *MockS3Service) DeleteFile(_ context.Context, key string) error {
	m.mu.Lock()
	delete(m.uploadedFiles, key)
	delete(m.contentTypes, key)
	m.mu.Unlock()
	return nil
}

// FileExists checks if a file exists in mock storage
func (m *MockS3Service) FileExists(key string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, exists := m.uploadedFiles[key]
	return exists
}

// ContentType returns the content type stored with key
func (m *MockS3Service) ContentType(key string) string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.contentTypes[key]
}

// Keys returns every stored key
func (m *MockS3Service) Keys() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	keys := make([]string, 0, len(m.uploadedFiles))
	for k := range m.uploadedFiles {
		keys = append(keys, k)
	}
	return keys
}
