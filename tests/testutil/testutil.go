package testutil

import (
	"bytes"
	"context"
	"mime/multipart"
	"net/http"
	"os"
	"testing"

	"gorm.io/gorm"

	"github.com/fvorders/fvorders-api/config"
	"github.com/fvorders/fvorders-api/models"
)

const (
	TestJWTSecret     = "test-secret-key-for-admin-tokens"
	TestAdminEmail    = "admin@fvorders.test"
	TestAdminPassword = "correct-horse-battery"
)

// RequireTestEnvironment ensures that tests are running in the test environment.
// This prevents accidental execution of tests against production or development databases.
// It will fail the test immediately if GO_ENV is not set to "test".
func RequireTestEnvironment(t *testing.T) {
	t.Helper()

	env := os.Getenv("GO_ENV")
	if env != "test" {
		t.Fatalf("SAFETY CHECK FAILED: Tests must run with GO_ENV=test to prevent data loss. Current GO_ENV=%q. Set GO_ENV=test before running tests.", env)
	}
}

// MustSetTestEnvironment sets GO_ENV to test and fails if it cannot be set.
// Use this in suite setup functions.
func MustSetTestEnvironment(t *testing.T) {
	t.Helper()

	if err := os.Setenv("GO_ENV", "test"); err != nil {
		t.Fatalf("Failed to set GO_ENV=test: %v", err)
	}
}

// TestConfig returns a configuration usable without any environment
func TestConfig() *config.Config {
	return &config.Config{
		DatabaseURL:        "sqlite://:memory:",
		Port:               "0",
		GoEnv:              "test",
		JWTSecret:          TestJWTSecret,
		JWTIssuer:          "fvorders-api",
		JWTAudience:        "fvorders-admin",
		AdminEmail:         TestAdminEmail,
		AdminPassword:      TestAdminPassword,
		CORSAllowedOrigins: []string{"*"},
		AWSRegion:          "us-east-1",
		LogLevel:           "error",
	}
}

// NewTestDB opens a fresh migrated in-memory SQLite database that is closed with the test
func NewTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := config.ConnectDatabase(context.Background(), "sqlite://:memory:")
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	if err := db.AutoMigrate(models.All()...); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}
	t.Cleanup(func() {
		_ = config.CloseDatabase(db)
	})
	return db
}

// MultipartImage builds a multipart body with one file part
func MultipartImage(t *testing.T, field, filename string, content []byte) (*bytes.Buffer, string) {
	t.Helper()

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile(field, filename)
	if err != nil {
		t.Fatalf("failed to create form file: %v", err)
	}
	if _, err := part.Write(content); err != nil {
		t.Fatalf("failed to write form file: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("failed to close multipart writer: %v", err)
	}
	return body, writer.FormDataContentType()
}

// NewFileHeader returns the parsed header of an uploaded file, as a handler would see it
func NewFileHeader(t *testing.T, filename string, content []byte) *multipart.FileHeader {
	t.Helper()

	body, contentType := MultipartImage(t, "image", filename, content)
	req, err := http.NewRequest(http.MethodPost, "/", body)
	if err != nil {
		t.Fatalf("failed to build request: %v", err)
	}
	req.Header.Set("Content-Type", contentType)
	if err := req.ParseMultipartForm(32 << 20); err != nil {
		t.Fatalf("failed to parse multipart form: %v", err)
	}
	t.Cleanup(func() {
		_ = req.MultipartForm.RemoveAll()
	})
	return req.MultipartForm.File["image"][0]
}

// PNGBytes is a minimal PNG signature followed by padding
func PNGBytes(size int) []byte {
	b := make([]byte, size)
	copy(b, []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'})
	return b
}

// JPEGBytes is a JPEG start-of-image marker followed by padding
func JPEGBytes(size int) []byte {
	b := make([]byte, size)
	copy(b, []byte{0xFF, 0xD8, 0xFF, 0xE0})
	return b
}
