// backend-go/internal/domain/models.go
package domain

import "time"

// Product represents a purchasable product or service
type Product struct {
	ID   ID     `json:"id" db:"id"`
	Name string `json:"name" db:"name"`
	Code string `json:"code" db:"code"`
}

// ProductList is the payload returned by the product listing endpoint
type ProductList struct {
	Products []Product `json:"products"`
}

// Supplier represents a vendor a product is bought from
type Supplier struct {
	ID   ID     `json:"id" db:"id"`
	Name string `json:"name" db:"name"`
	Code string `json:"code" db:"code"`
}

// TransactionRecord is one recorded purchase of a product from a supplier.
// Records are never mutated once fetched; a re-fetch replaces the whole set.
type TransactionRecord struct {
	OrderDate    time.Time `json:"order_date" db:"order_date"`
	UnitPrice    float64   `json:"unit_price" db:"unit_price"`
	Quantity     float64   `json:"quantity" db:"quantity"`
	SupplierID   ID        `json:"supplier_id" db:"supplier_id"`
	SupplierName string    `json:"supplier_name" db:"supplier_name"`
	SupplierCode string    `json:"supplier_code" db:"supplier_code"`
}

// Stats holds the aggregate price figures shared by supplier and overall stats.
// OverallAveragePrice and CurrentPrice are cross-supplier values computed by the
// data source and copied onto every row.
type Stats struct {
	MinPrice            float64 `json:"min_price" db:"min_price"`
	MaxPrice            float64 `json:"max_price" db:"max_price"`
	AveragePrice        float64 `json:"average_price" db:"average_price"`
	TotalQuantity       float64 `json:"total_quantity" db:"total_quantity"`
	TotalAmount         float64 `json:"total_amount" db:"total_amount"`
	OverallAveragePrice float64 `json:"overall_average_price" db:"overall_average_price"`
	CurrentPrice        float64 `json:"current_price" db:"current_price"`
}

// SupplierStats is one row of the supplier table. The overall stats use the same
// shape with an empty supplier identity.
type SupplierStats struct {
	SupplierID ID     `json:"supplier_id" db:"supplier_id"`
	Name       string `json:"name" db:"name"`
	Code       string `json:"code" db:"code"`
	Stats
}

// Label returns the "NAME (CODE)" form used in the supplier table.
func (s SupplierStats) Label() string {
	return s.Name + " (" + s.Code + ")"
}

// History is the result of one history fetch. All three parts always come from
// the same query snapshot and are replaced together.
type History struct {
	Transactions []TransactionRecord `json:"tx_history"`
	Suppliers    []SupplierStats     `json:"suppliers"`
	Stats        SupplierStats       `json:"stats"`
}
