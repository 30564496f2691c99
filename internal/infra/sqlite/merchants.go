package sqlite

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/yhzhou/merchant-query/internal/domain"
	"github.com/yhzhou/merchant-query/internal/pipeline"
	"github.com/yhzhou/merchant-query/internal/query"
)

const insertBatchSize = 500

// ReplaceAllMerchants replaces the whole merchant set in one transaction:
// delete-all, insert-all and, when dateLabel is non-empty, the data_date
// upsert. Concurrent readers observe either the full old snapshot or the full
// new one; any failure rolls the transaction back and leaves the old snapshot
// in place. Concurrent replaces are serialized.
func (s *Store) ReplaceAllMerchants(ctx context.Context, merchants []domain.Merchant, dateLabel string) error {
	s.replaceMu.Lock()
	defer s.replaceMu.Unlock()

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("1 = 1").Delete(&domain.Merchant{}).Error; err != nil {
			return fmt.Errorf("deleting merchants: %w", err)
		}

		if len(merchants) > 0 {
			if err := tx.CreateInBatches(merchants, insertBatchSize).Error; err != nil {
				return fmt.Errorf("inserting %d merchants: %w", len(merchants), err)
			}
		}

		if dateLabel != "" {
			date := domain.DataDate{ID: domain.DataDateID, Date: dateLabel}
			if err := tx.Save(&date).Error; err != nil {
				return fmt.Errorf("updating data date: %w", err)
			}
		}

		return nil
	})
	if err != nil {
		return fmt.Errorf("ReplaceAllMerchants: %w", err)
	}
	return nil
}

// GetMerchant returns the merchant with the given merchant_id, or
// domain.ErrMerchantNotFound.
func (s *Store) GetMerchant(ctx context.Context, merchantID string) (*domain.Merchant, error) {
	var m domain.Merchant
	err := s.db.WithContext(ctx).Where("merchant_id = ?", merchantID).First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrMerchantNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("GetMerchant %q: %w", merchantID, err)
	}
	return &m, nil
}

// SearchMerchants returns one page of matches ordered by merchant_id ASC and
// the total match count before pagination.
func (s *Store) SearchMerchants(ctx context.Context, c query.Criteria, limit, offset int) ([]domain.Merchant, int64, error) {
	where, args := merchantConditions(c)

	scope := func() *gorm.DB {
		q := s.db.WithContext(ctx).Model(&domain.Merchant{})
		if where != "" {
			q = q.Where(where, args...)
		}
		return q
	}

	var total int64
	if err := scope().Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("SearchMerchants: counting: %w", err)
	}

	var items []domain.Merchant
	err := scope().
		Order("merchant_id ASC").
		Limit(limit).
		Offset(offset).
		Find(&items).Error
	if err != nil {
		return nil, 0, fmt.Errorf("SearchMerchants: %w", err)
	}

	return items, total, nil
}

// merchantConditions builds the WHERE clause for a criteria set: the supplied
// identity filters OR-combined in one group, then the inclusive count bounds
// AND-combined after it. An empty clause means "match everything". Pure
// function, independent of any database handle.
//
// merchant_name uses instr() rather than LIKE: SQLite's LIKE is
// case-insensitive for ASCII, and the substring match here is case-sensitive.
func merchantConditions(c query.Criteria) (string, []interface{}) {
	var identity []string
	var args []interface{}

	if c.InstitutionID != "" {
		identity = append(identity, "institution_id = ?")
		args = append(args, c.InstitutionID)
	}
	if c.Institution != "" {
		identity = append(identity, "institution = ?")
		args = append(args, c.Institution)
	}
	if c.MerchantID != "" {
		identity = append(identity, "merchant_id = ?")
		args = append(args, c.MerchantID)
	}
	if c.MerchantName != "" {
		identity = append(identity, "instr(merchant_name, ?) > 0")
		args = append(args, c.MerchantName)
	}

	var clauses []string
	if len(identity) > 0 {
		clauses = append(clauses, "("+strings.Join(identity, " OR ")+")")
	}
	if c.MinTransactions != nil {
		clauses = append(clauses, "transaction_count >= ?")
		args = append(args, *c.MinTransactions)
	}
	if c.MaxTransactions != nil {
		clauses = append(clauses, "transaction_count <= ?")
		args = append(args, *c.MaxTransactions)
	}

	return strings.Join(clauses, " AND "), args
}

// The store is both the pipeline's write surface and the engine's read
// surface.
var _ pipeline.MerchantStore = (*Store)(nil)
var _ query.Store = (*Store)(nil)
