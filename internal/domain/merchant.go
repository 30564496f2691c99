package domain

import "errors"

// ErrMerchantNotFound is returned by lookups for a merchant_id that is not
// part of the current snapshot.
var ErrMerchantNotFound = errors.New("merchant not found")

// Merchant is one row of the merchant directory. The whole set is replaced
// wholesale on every successful ingestion; there is no incremental update.
type Merchant struct {
	ID uint `json:"-" gorm:"primaryKey"`

	MerchantID       string `json:"merchant_id" gorm:"uniqueIndex;not null"`
	MerchantName     string `json:"merchant_name"`
	Institution      string `json:"institution"`
	InstitutionID    string `json:"institution_id" gorm:"index"`
	TransactionCount int    `json:"transaction_count"`
}

// TableName overrides the GORM default ("merchants" pluralization is correct,
// but keep it explicit so the schema matches the original database file).
func (Merchant) TableName() string {
	return "merchants"
}

// DefaultDataDate is the label returned before any ingestion has set one.
const DefaultDataDate = "4月27日"

// DataDateID is the fixed primary key of the singleton data_date row.
const DataDateID = 1

// DataDate is the singleton "which upload batch is active" label. Exactly one
// row exists (ID = DataDateID); it is created lazily on first read and only
// overwritten when an upload's filename carries a parseable date.
type DataDate struct {
	ID   uint   `json:"-" gorm:"primaryKey"`
	Date string `json:"date"`
}

func (DataDate) TableName() string {
	return "data_date"
}
