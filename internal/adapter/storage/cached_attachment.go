package storage

import (
	"context"

	"github.com/rl1809/stock-lookup/internal/metrics"
	"github.com/rl1809/stock-lookup/internal/port"
	logx "github.com/rl1809/stock-lookup/pkg/logger"
)

// CachedAttachmentResolver serves attachment URLs from a cache in front of
// the catalog store. Cache failures are logged and bypassed.
type CachedAttachmentResolver struct {
	next  port.AttachmentResolver
	cache port.AttachmentCache
}

func NewCachedAttachmentResolver(next port.AttachmentResolver, cache port.AttachmentCache) *CachedAttachmentResolver {
	return &CachedAttachmentResolver{next: next, cache: cache}
}

func (c *CachedAttachmentResolver) ResolveAttachmentURL(ctx context.Context, attachmentID int64) (string, error) {
	log := logx.Ctx(ctx)

	url, ok, err := c.cache.GetAttachmentURL(ctx, attachmentID)
	if err != nil {
		log.Warn().Err(err).Int64("attachment_id", attachmentID).Msg("attachment cache read failed")
	} else if ok {
		metrics.CacheHits.Inc()
		return url, nil
	}
	metrics.CacheMisses.Inc()

	url, err = c.next.ResolveAttachmentURL(ctx, attachmentID)
	if err != nil {
		return "", err
	}

	if err := c.cache.SetAttachmentURL(ctx, attachmentID, url); err != nil {
		log.Warn().Err(err).Int64("attachment_id", attachmentID).Msg("attachment cache write failed")
	}
	return url, nil
}
