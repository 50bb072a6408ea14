package port

import (
	"context"

	"github.com/rl1809/stock-lookup/internal/core/domain"
)

type CatalogRepository interface {
	// FetchRecord loads the product core fields and all attributes for sku
	// in one round trip. Returns nil, nil when no product carries the sku.
	FetchRecord(ctx context.Context, sku string) (*domain.RawAttributes, error)
}

type AttachmentResolver interface {
	// ResolveAttachmentURL returns the public URL of an attachment, or ""
	// when the attachment does not exist or has no file.
	ResolveAttachmentURL(ctx context.Context, attachmentID int64) (string, error)
}

type HealthChecker interface {
	Ping(ctx context.Context) error
}
