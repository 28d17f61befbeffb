package storage

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/datarhaya/Rhaya-HR-Internal-Apps/internal/platform/config"
)

var (
	ErrNotFound = errors.New("file not found")

	// ErrSignedURLUnsupported is returned by backends that cannot mint
	// standalone URLs; callers fall back to streaming the object.
	ErrSignedURLUnsupported = errors.New("signed URLs not supported")
)

// allowedExtensions maps permitted upload extensions to the content
// type used when the client did not supply one.
var allowedExtensions = map[string]string{
	".pdf":  "application/pdf",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".doc":  "application/msword",
	".docx": "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
}

const invalidNameChars = `<>:"/\|?*`

// FileStore stores request attachments and generated payslip
// documents under hierarchical keys.
type FileStore interface {
	Upload(ctx context.Context, key, contentType string, data []byte) error
	Download(ctx context.Context, key string) ([]byte, string, error)
	SignedURL(ctx context.Context, key string) (string, error)
	Delete(ctx context.Context, key string) error
}

func New(ctx context.Context, cfg config.Config) (FileStore, error) {
	switch cfg.StorageDriver {
	case "local":
		return NewLocal(cfg.StorageDir)
	case "s3":
		return NewS3(ctx, cfg)
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.StorageDriver)
	}
}

// ValidateFile checks an upload against the size cap, the extension
// allowlist, and filename hygiene. All violations are reported at once.
func ValidateFile(name string, size, maxBytes int64) error {
	var problems []string

	if size <= 0 {
		problems = append(problems, "file is empty")
	}
	if maxBytes > 0 && size > maxBytes {
		problems = append(problems, fmt.Sprintf("file size %.1f MB exceeds maximum %.1f MB",
			float64(size)/(1024*1024), float64(maxBytes)/(1024*1024)))
	}

	ext := strings.ToLower(path.Ext(name))
	if _, ok := allowedExtensions[ext]; !ok {
		problems = append(problems, fmt.Sprintf("file type %q not allowed", ext))
	}
	if len(name) > 255 {
		problems = append(problems, "file name too long")
	}
	if strings.ContainsAny(name, invalidNameChars) {
		problems = append(problems, "file name contains invalid characters")
	}

	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}

// ContentTypeFor returns the content type for a file name, defaulting
// to application/octet-stream for unknown extensions.
func ContentTypeFor(name string) string {
	if ct, ok := allowedExtensions[strings.ToLower(path.Ext(name))]; ok {
		return ct
	}
	return "application/octet-stream"
}

// SecureFilename derives a unique storage name from the original
// upload name. The original base name is retained in sanitized form so
// downloads stay recognizable.
func SecureFilename(original, employeeID, requestType string, now time.Time) string {
	ext := strings.ToLower(path.Ext(original))
	stem := strings.TrimSuffix(path.Base(original), path.Ext(original))

	var clean strings.Builder
	for _, r := range stem {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			clean.WriteRune(r)
		case r == ' ':
			clean.WriteRune(' ')
		}
	}
	name := strings.TrimSpace(clean.String())
	if len(name) > 50 {
		name = name[:50]
	}

	return fmt.Sprintf("%s_%s_%s_%s_%s%s",
		requestType, employeeID, now.Format("20060102_150405"), uuid.NewString()[:8], name, ext)
}

// ObjectKey builds the canonical storage path for a file.
func ObjectKey(folder, requestType, employeeID, filename string) string {
	return path.Join(folder, requestType, employeeID, filename)
}
