package port

import (
	"context"
	"errors"
)

// ErrInvalidReceipt is wrapped by storage errors caused by the upload itself
var ErrInvalidReceipt = errors.New("invalid receipt")

// ReceiptInfo describes a stored receipt
type ReceiptInfo struct {
	URL       string
	MimeType  string
	Size      int64
	PageCount int
}

// ReceiptStorage persists uploaded receipt files
type ReceiptStorage interface {
	// Save stores content under a generated name derived from filename
	Save(ctx context.Context, orgID, filename string, content []byte) (*ReceiptInfo, error)
	// Delete removes a receipt by the URL returned from Save
	Delete(ctx context.Context, url string) error
}
