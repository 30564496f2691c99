package sqlite

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/yhzhou/merchant-query/internal/domain"
)

// GetDataDate returns the singleton data-date label. The row is created with
// the default label on first-ever access; after that it is only overwritten
// by ingestions whose filename carries a date.
func (s *Store) GetDataDate(ctx context.Context) (string, error) {
	var d domain.DataDate
	err := s.db.WithContext(ctx).First(&d, domain.DataDateID).Error
	if err == nil {
		return d.Date, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return "", fmt.Errorf("GetDataDate: %w", err)
	}

	d = domain.DataDate{ID: domain.DataDateID, Date: domain.DefaultDataDate}
	if err := s.db.WithContext(ctx).Create(&d).Error; err != nil {
		// A concurrent first access may have inserted the row already.
		var existing domain.DataDate
		if rerr := s.db.WithContext(ctx).First(&existing, domain.DataDateID).Error; rerr == nil {
			return existing.Date, nil
		}
		return "", fmt.Errorf("GetDataDate: initializing default: %w", err)
	}

	return d.Date, nil
}
