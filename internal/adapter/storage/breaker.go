package storage

import (
	"context"
	"errors"
	"time"

	"github.com/sony/gobreaker"

	"github.com/rl1809/stock-lookup/internal/core/domain"
	"github.com/rl1809/stock-lookup/internal/port"
	logx "github.com/rl1809/stock-lookup/pkg/logger"
)

type BreakerSettings struct {
	MaxRequests  uint32
	Interval     time.Duration
	Timeout      time.Duration
	MinRequests  uint32
	FailureRatio float64
}

// BreakerCatalog fails fast with gobreaker.ErrOpenState once the catalog
// store keeps erroring. A missing record counts as a success.
type BreakerCatalog struct {
	next port.CatalogRepository
	cb   *gobreaker.CircuitBreaker
}

func NewBreakerCatalog(next port.CatalogRepository, s BreakerSettings) *BreakerCatalog {
	settings := gobreaker.Settings{
		Name:        "CatalogStore",
		MaxRequests: s.MaxRequests,
		Interval:    s.Interval,
		Timeout:     s.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= s.MinRequests && failureRatio >= s.FailureRatio
		},
		IsSuccessful: func(err error) bool {
			// a caller giving up says nothing about store health
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logx.Warn().
				Str("name", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("circuit breaker state changed")
		},
	}

	return &BreakerCatalog{
		next: next,
		cb:   gobreaker.NewCircuitBreaker(settings),
	}
}

func (b *BreakerCatalog) FetchRecord(ctx context.Context, sku string) (*domain.RawAttributes, error) {
	res, err := b.cb.Execute(func() (interface{}, error) {
		return b.next.FetchRecord(ctx, sku)
	})
	if err != nil {
		return nil, err
	}

	raw, _ := res.(*domain.RawAttributes)
	return raw, nil
}

func (b *BreakerCatalog) State() gobreaker.State {
	return b.cb.State()
}
