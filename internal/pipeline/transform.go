package pipeline

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/yhzhou/merchant-query/internal/domain"
	"github.com/yhzhou/merchant-query/internal/tabular"
)

// coerceRows converts every data row into a Merchant. The first failing row
// aborts the whole conversion with a RowError; coercion runs to completion
// before the store is touched, so a bad row can never leave partial writes.
func coerceRows(rows []tabular.Row) ([]domain.Merchant, error) {
	merchants := make([]domain.Merchant, 0, len(rows))

	for i, row := range rows {
		count, err := parseTransactionCount(row[ColumnTransactionCount])
		if err != nil {
			return nil, &RowError{Row: i, Err: err}
		}

		merchants = append(merchants, domain.Merchant{
			MerchantID:       strings.TrimSpace(row[ColumnMerchantID]),
			MerchantName:     row[ColumnMerchantName],
			Institution:      row[ColumnInstitution],
			InstitutionID:    strings.TrimSpace(row[ColumnInstitutionID]),
			TransactionCount: count,
		})
	}

	return merchants, nil
}

// parseTransactionCount parses the 有效交易笔数 cell. Spreadsheet numeric
// cells sometimes render as integral floats ("123.0"), so those are accepted;
// anything non-integral or negative is rejected.
func parseTransactionCount(raw string) (int, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, fmt.Errorf("%s is empty", ColumnTransactionCount)
	}

	n, err := strconv.Atoi(s)
	if err != nil {
		f, ferr := strconv.ParseFloat(s, 64)
		if ferr != nil || f != math.Trunc(f) {
			return 0, fmt.Errorf("%s %q is not an integer", ColumnTransactionCount, raw)
		}
		n = int(f)
	}

	if n < 0 {
		return 0, fmt.Errorf("%s %d is negative", ColumnTransactionCount, n)
	}
	return n, nil
}
