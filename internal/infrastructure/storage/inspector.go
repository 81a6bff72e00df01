package storage

import (
	"fmt"

	"github.com/gabriel-vasile/mimetype"
	"github.com/gen2brain/go-fitz"
	"go.uber.org/zap"
)

// DefaultReceiptTypes are the MIME types accepted as receipts
var DefaultReceiptTypes = []string{
	"image/jpeg",
	"image/png",
	"image/webp",
	"image/heic",
	"application/pdf",
}

// Inspection is what the inspector learned about an upload
type Inspection struct {
	MimeType  string
	PageCount int
}

// Inspector sniffs upload content and opens PDFs to count pages
type Inspector struct {
	allowed  []string
	maxPages int
	logger   *zap.Logger
}

// NewInspector creates an inspector. maxPages of 0 disables the page limit.
func NewInspector(allowed []string, maxPages int, logger *zap.Logger) *Inspector {
	if len(allowed) == 0 {
		allowed = DefaultReceiptTypes
	}
	return &Inspector{allowed: allowed, maxPages: maxPages, logger: logger}
}

// Inspect detects the content type from the bytes, ignoring the client's
// declared name, and validates PDFs.
func (i *Inspector) Inspect(content []byte) (*Inspection, error) {
	if len(content) == 0 {
		return nil, fmt.Errorf("%w: empty file", ErrUnsupportedType)
	}

	mtype := mimetype.Detect(content)
	if !mimetype.EqualsAny(mtype.String(), i.allowed...) {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedType, mtype.String())
	}

	result := &Inspection{MimeType: mtype.String(), PageCount: 1}
	if !mtype.Is("application/pdf") {
		return result, nil
	}

	doc, err := fitz.NewFromMemory(content)
	if err != nil {
		i.logger.Warn("Unreadable PDF receipt", zap.Error(err))
		return nil, fmt.Errorf("%w: unreadable pdf", ErrUnsupportedType)
	}
	defer doc.Close()

	result.PageCount = doc.NumPage()
	if i.maxPages > 0 && result.PageCount > i.maxPages {
		return nil, fmt.Errorf("%w: pdf has %d pages, limit is %d", ErrUnsupportedType, result.PageCount, i.maxPages)
	}

	return result, nil
}
