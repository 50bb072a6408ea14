package port

import "context"

type AttachmentCache interface {
	// GetAttachmentURL returns the cached URL and whether it was present
	GetAttachmentURL(ctx context.Context, attachmentID int64) (string, bool, error)

	// SetAttachmentURL stores a resolved URL, including empty ones
	SetAttachmentURL(ctx context.Context, attachmentID int64, url string) error
}
