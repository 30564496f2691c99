// Package query answers filtered, paginated lookups over the merchant
// directory: OR-combined identity filters, AND-combined transaction-count
// bounds, offset pagination and the data-date singleton.
package query

// Criteria is the optional filter configuration for a merchant search.
// Zero-valued fields are simply not applied.
//
// The supplied identity fields (InstitutionID, Institution, MerchantID,
// MerchantName) are combined with OR: a record matches when it satisfies any
// of them. MerchantName is a substring match, the others are exact. The
// transaction-count bounds are inclusive and applied with AND after the
// identity group.
type Criteria struct {
	InstitutionID string
	Institution   string
	MerchantID    string
	MerchantName  string

	MinTransactions *int
	MaxTransactions *int
}

// Empty reports whether no filter at all is set, i.e. the criteria match
// every record.
func (c Criteria) Empty() bool {
	return c.InstitutionID == "" &&
		c.Institution == "" &&
		c.MerchantID == "" &&
		c.MerchantName == "" &&
		c.MinTransactions == nil &&
		c.MaxTransactions == nil
}
