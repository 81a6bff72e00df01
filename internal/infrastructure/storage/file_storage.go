package storage

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/garyjia/expense-manager/internal/application/port"
	"github.com/garyjia/expense-manager/pkg/utils"
	"go.uber.org/zap"
)

var (
	// ErrFileTooLarge is returned when an upload exceeds the configured size
	ErrFileTooLarge = fmt.Errorf("%w: file exceeds maximum upload size", port.ErrInvalidReceipt)

	// ErrUnsupportedType is returned for content that is not an accepted receipt format
	ErrUnsupportedType = fmt.Errorf("%w: unsupported receipt type", port.ErrInvalidReceipt)
)

// LocalReceiptStorage implements port.ReceiptStorage on the local filesystem.
// Files land in <baseDir>/<orgID>/<unix-millis>_<sanitized name> and are
// addressed by <urlPrefix>/<orgID>/<name>.
type LocalReceiptStorage struct {
	baseDir   string
	urlPrefix string
	maxSize   int64
	inspector *Inspector
	logger    *zap.Logger
	now       func() time.Time
}

// NewLocalReceiptStorage creates a receipt store
func NewLocalReceiptStorage(baseDir, urlPrefix string, maxSize int64, inspector *Inspector, logger *zap.Logger) *LocalReceiptStorage {
	return &LocalReceiptStorage{
		baseDir:   baseDir,
		urlPrefix: strings.TrimRight(urlPrefix, "/"),
		maxSize:   maxSize,
		inspector: inspector,
		logger:    logger,
		now:       time.Now,
	}
}

// Save validates and writes a receipt
func (s *LocalReceiptStorage) Save(ctx context.Context, orgID, filename string, content []byte) (*port.ReceiptInfo, error) {
	if s.maxSize > 0 && int64(len(content)) > s.maxSize {
		return nil, fmt.Errorf("%w: %d bytes", ErrFileTooLarge, len(content))
	}

	inspection, err := s.inspector.Inspect(content)
	if err != nil {
		return nil, err
	}

	name := strconv.FormatInt(s.now().UnixMilli(), 10) + "_" + utils.SanitizeFilename(filename)
	relative := filepath.Join(utils.SanitizeFilename(orgID), name)
	fullPath := filepath.Join(s.baseDir, relative)

	if err := s.validatePath(fullPath); err != nil {
		return nil, err
	}

	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		s.logger.Error("Failed to create receipt directory",
			zap.String("path", filepath.Dir(fullPath)),
			zap.Error(err))
		return nil, fmt.Errorf("failed to create directories: %w", err)
	}

	if err := os.WriteFile(fullPath, content, 0644); err != nil {
		s.logger.Error("Failed to write receipt",
			zap.String("path", fullPath),
			zap.Error(err))
		return nil, fmt.Errorf("failed to write file: %w", err)
	}

	s.logger.Debug("Receipt saved",
		zap.String("path", fullPath),
		zap.String("mime", inspection.MimeType),
		zap.Int("pages", inspection.PageCount),
		zap.Int("size", len(content)))

	return &port.ReceiptInfo{
		URL:       s.urlPrefix + "/" + filepath.ToSlash(relative),
		MimeType:  inspection.MimeType,
		Size:      int64(len(content)),
		PageCount: inspection.PageCount,
	}, nil
}

// Delete removes a receipt by URL; missing files are not an error
func (s *LocalReceiptStorage) Delete(ctx context.Context, url string) error {
	if !strings.HasPrefix(url, s.urlPrefix+"/") {
		return fmt.Errorf("receipt url outside storage: %s", url)
	}

	relative := path.Clean(strings.TrimPrefix(url, s.urlPrefix+"/"))
	fullPath := filepath.Join(s.baseDir, filepath.FromSlash(relative))
	if err := s.validatePath(fullPath); err != nil {
		return err
	}

	if err := os.Remove(fullPath); err != nil && !os.IsNotExist(err) {
		s.logger.Error("Failed to delete receipt",
			zap.String("path", fullPath),
			zap.Error(err))
		return fmt.Errorf("failed to delete file: %w", err)
	}
	return nil
}

// Dir returns the directory receipts are served from
func (s *LocalReceiptStorage) Dir() string {
	return s.baseDir
}

// URLPrefix returns the public prefix of receipt URLs
func (s *LocalReceiptStorage) URLPrefix() string {
	return s.urlPrefix
}

// validatePath checks that the path stays inside baseDir
func (s *LocalReceiptStorage) validatePath(fullPath string) error {
	absPath, err := filepath.Abs(fullPath)
	if err != nil {
		return fmt.Errorf("failed to resolve path: %w", err)
	}

	absBase, err := filepath.Abs(s.baseDir)
	if err != nil {
		return fmt.Errorf("failed to resolve base path: %w", err)
	}

	if !strings.HasPrefix(absPath, absBase+string(filepath.Separator)) {
		return fmt.Errorf("path escapes base directory: %s", fullPath)
	}
	return nil
}

var _ port.ReceiptStorage = (*LocalReceiptStorage)(nil)
