package content

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/folio/internal/common"
	"github.com/ternarybob/folio/internal/interfaces"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"
)

var (
	// ErrNotFound is returned when a post or idea does not exist
	ErrNotFound = errors.New("not found")
	// ErrConflict is returned when creating something that already exists
	ErrConflict = errors.New("already exists")
	// ErrInvalid is returned for input the site cannot store
	ErrInvalid = errors.New("invalid input")
)

var slugPattern = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify lowercases s, collapses every run of non-alphanumerics into '-' and trims dashes
func Slugify(s string) string {
	return strings.Trim(slugPattern.ReplaceAllString(strings.ToLower(s), "-"), "-")
}

// Service manages the file-based content tree: blog posts, mind ideas and hero images
type Service struct {
	config    common.ContentConfig
	transform interfaces.DocumentConverter
	markdown  goldmark.Markdown
	logger    arbor.ILogger
	clock     func() time.Time

	mindMu sync.Mutex
}

// NewService creates a content service rooted at the configured directories
func NewService(config common.ContentConfig, transformer interfaces.DocumentConverter, logger arbor.ILogger) *Service {
	if config.MaxImageSize <= 0 {
		config.MaxImageSize = 5 * 1024 * 1024
	}
	return &Service{
		config:    config,
		transform: transformer,
		markdown: goldmark.New(
			goldmark.WithExtensions(extension.GFM),
			goldmark.WithRendererOptions(
				html.WithHardWraps(),
				html.WithXHTML(),
			),
		),
		logger: logger,
		clock:  time.Now,
	}
}

func (s *Service) today() string {
	return s.clock().Format("2006-01-02")
}

func invalid(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInvalid, fmt.Sprintf(format, args...))
}

// createFile writes data to path, failing with ErrConflict if it exists
func createFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
	if errors.Is(err, os.ErrExist) {
		return fmt.Errorf("%w: %s", ErrConflict, filepath.Base(path))
	}
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", filepath.Base(path), err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return fmt.Errorf("failed to write %s: %w", filepath.Base(path), err)
	}
	return f.Close()
}

// replaceFile atomically replaces path with data
func replaceFile(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+"-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write %s: %w", filepath.Base(path), err)
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
