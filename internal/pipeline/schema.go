package pipeline

import "github.com/yhzhou/merchant-query/internal/tabular"

// Source column names of the merchant spreadsheet.
const (
	ColumnMerchantID       = "商户号"
	ColumnMerchantName     = "商户名称"
	ColumnInstitution      = "机构"
	ColumnInstitutionID    = "机构号"
	ColumnTransactionCount = "有效交易笔数"
)

// columnAliases maps alternative header spellings seen in the wild onto the
// canonical column names before schema validation.
var columnAliases = map[string]string{
	"counts": ColumnTransactionCount,
}

// requiredColumns, in report order.
var requiredColumns = []string{
	ColumnMerchantID,
	ColumnMerchantName,
	ColumnInstitution,
	ColumnInstitutionID,
	ColumnTransactionCount,
}

// validateSchema applies the header aliases and checks that every required
// column is present. It returns a SchemaError listing all missing columns, or
// nil. This runs before any row coercion or store access.
func validateSchema(table *tabular.Table) error {
	table.Rename(columnAliases)

	var missing []string
	for _, col := range requiredColumns {
		if !table.HasColumn(col) {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return &SchemaError{Missing: missing}
	}
	return nil
}
