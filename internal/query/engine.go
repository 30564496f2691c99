package query

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/yhzhou/merchant-query/internal/domain"
)

const (
	// DefaultPageSize is used when the caller supplies no page size.
	DefaultPageSize = 10
)

// Store is the read surface the engine needs. The SQLite repository
// implements it; tests substitute a fake.
type Store interface {
	// SearchMerchants returns the matching page ordered by merchant_id ASC,
	// plus the total match count before pagination.
	SearchMerchants(ctx context.Context, c Criteria, limit, offset int) ([]domain.Merchant, int64, error)

	// GetMerchant returns domain.ErrMerchantNotFound on a miss.
	GetMerchant(ctx context.Context, merchantID string) (*domain.Merchant, error)

	// GetDataDate returns the singleton label, creating the default on first
	// access.
	GetDataDate(ctx context.Context) (string, error)
}

// Result is one page of a merchant search.
type Result struct {
	Items      []domain.Merchant `json:"items"`
	Total      int64             `json:"total"`
	Page       int               `json:"page"`
	PageSize   int               `json:"page_size"`
	TotalPages int64             `json:"total_pages"`
	DataDate   string            `json:"data_date"`
}

// Engine executes merchant searches and lookups against a Store.
type Engine struct {
	store Store
	log   zerolog.Logger
}

// NewEngine creates a new query engine.
func NewEngine(store Store, log zerolog.Logger) *Engine {
	return &Engine{
		store: store,
		log:   log,
	}
}

// Search runs a filtered, paginated search. page and pageSize are clamped to
// at least 1 (pageSize defaults to DefaultPageSize when unset), so an
// out-of-range request degrades instead of failing.
func (e *Engine) Search(ctx context.Context, c Criteria, page, pageSize int) (*Result, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = DefaultPageSize
	}

	offset := (page - 1) * pageSize

	items, total, err := e.store.SearchMerchants(ctx, c, pageSize, offset)
	if err != nil {
		return nil, fmt.Errorf("Search: %w", err)
	}
	if items == nil {
		items = []domain.Merchant{}
	}

	dataDate, err := e.store.GetDataDate(ctx)
	if err != nil {
		return nil, fmt.Errorf("Search: data date: %w", err)
	}

	e.log.Debug().
		Int64("total", total).
		Int("page", page).
		Int("page_size", pageSize).
		Msg("Merchant search executed")

	return &Result{
		Items:      items,
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: TotalPages(total, pageSize),
		DataDate:   dataDate,
	}, nil
}

// Get returns a single merchant by merchant_id. The error is
// domain.ErrMerchantNotFound when the id is not in the current snapshot.
func (e *Engine) Get(ctx context.Context, merchantID string) (*domain.Merchant, error) {
	return e.store.GetMerchant(ctx, merchantID)
}

// DataDate returns the current data-date label, initializing the stored
// default on first-ever access.
func (e *Engine) DataDate(ctx context.Context) (string, error) {
	return e.store.GetDataDate(ctx)
}

// TotalPages is ceil(total/pageSize); 0 when there are no matches.
func TotalPages(total int64, pageSize int) int64 {
	if pageSize < 1 {
		return 0
	}
	return (total + int64(pageSize) - 1) / int64(pageSize)
}
