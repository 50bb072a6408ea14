package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/rl1809/stock-lookup/internal/core/domain"
	"github.com/rl1809/stock-lookup/internal/metrics"
	"github.com/rl1809/stock-lookup/internal/port"
	logx "github.com/rl1809/stock-lookup/pkg/logger"
)

const MaxBatchSize = 50

var (
	ErrProductNotFound = errors.New("product not found")
	ErrInvalidSKU      = domain.ErrInvalidSKU
	ErrBatchSize       = fmt.Errorf("batch must contain between 1 and %d skus", MaxBatchSize)
	ErrStoreFailure    = errors.New("catalog store failure")
)

type LookupService struct {
	catalog     port.CatalogRepository
	attachments port.AttachmentResolver
}

func NewLookupService(catalog port.CatalogRepository, attachments port.AttachmentResolver) *LookupService {
	return &LookupService{
		catalog:     catalog,
		attachments: attachments,
	}
}

// GetBySKU resolves one SKU. Unpublished products are reported as
// ErrProductNotFound so their stock never leaves the store.
func (s *LookupService) GetBySKU(ctx context.Context, rawSKU string) (*domain.ProductRecord, error) {
	sku, err := domain.NormalizeSKU(rawSKU)
	if err != nil {
		metrics.Lookups.WithLabelValues(metrics.OutcomeInvalid).Inc()
		return nil, err
	}

	return s.lookup(ctx, sku)
}

// GetBySKUs resolves up to MaxBatchSize SKUs sequentially. The result has
// one entry per input, in input order. Missing products become not-found
// markers and a store failure only marks its own entry; the only error
// returned is ErrBatchSize, before any store access.
func (s *LookupService) GetBySKUs(ctx context.Context, rawSKUs []string) ([]domain.LookupResult, error) {
	if len(rawSKUs) == 0 || len(rawSKUs) > MaxBatchSize {
		return nil, ErrBatchSize
	}
	metrics.BatchSize.Observe(float64(len(rawSKUs)))

	results := make([]domain.LookupResult, 0, len(rawSKUs))
	for _, raw := range rawSKUs {
		sku, err := domain.NormalizeSKU(raw)
		if err != nil {
			metrics.Lookups.WithLabelValues(metrics.OutcomeInvalid).Inc()
			results = append(results, domain.LookupResult{SKU: strings.ToUpper(strings.TrimSpace(raw))})
			continue
		}

		record, err := s.lookup(ctx, sku)
		switch {
		case errors.Is(err, ErrProductNotFound):
			results = append(results, domain.LookupResult{SKU: sku})
		case err != nil:
			results = append(results, domain.LookupResult{SKU: sku, Err: err})
		default:
			results = append(results, domain.LookupResult{SKU: sku, Record: record})
		}
	}

	return results, nil
}

func (s *LookupService) lookup(ctx context.Context, sku string) (*domain.ProductRecord, error) {
	log := logx.Ctx(ctx)

	raw, err := s.catalog.FetchRecord(ctx, sku)
	if err != nil {
		logStoreError(log, err).Err(err).Str("sku", sku).Msg("fetch record failed")
		return nil, fmt.Errorf("%w: fetch record %s: %w", ErrStoreFailure, sku, err)
	}

	if raw == nil || raw.PublicationState() != domain.PublicationPublished {
		metrics.Lookups.WithLabelValues(metrics.OutcomeNotFound).Inc()
		log.Debug().Str("sku", sku).Bool("exists", raw != nil).Msg("product not found")
		return nil, ErrProductNotFound
	}

	imageURL := ""
	if id := raw.AttachmentID(); id != 0 && s.attachments != nil {
		imageURL, err = s.attachments.ResolveAttachmentURL(ctx, id)
		if err != nil {
			logStoreError(log, err).Err(err).Str("sku", sku).Int64("attachment_id", id).Msg("resolve attachment failed")
			return nil, fmt.Errorf("%w: resolve attachment %d: %w", ErrStoreFailure, id, err)
		}
	}

	metrics.Lookups.WithLabelValues(metrics.OutcomeFound).Inc()
	return domain.NewProductRecord(sku, raw, imageURL), nil
}

// logStoreError counts a failed store call and picks its log level. A
// caller that went away is not a store fault and is logged at debug.
func logStoreError(log *zerolog.Logger, err error) *zerolog.Event {
	if errors.Is(err, context.Canceled) {
		metrics.Lookups.WithLabelValues(metrics.OutcomeCanceled).Inc()
		return log.Debug()
	}
	metrics.Lookups.WithLabelValues(metrics.OutcomeError).Inc()
	return log.Error()
}
