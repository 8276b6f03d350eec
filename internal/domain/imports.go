package domain

import "time"

// ImportRow is one parsed line of a transaction CSV export.
type ImportRow struct {
	Source       string
	Line         int
	OrderDate    time.Time
	ProductCode  string
	ProductName  string
	SupplierCode string
	SupplierName string
	UnitPrice    float64
	Quantity     float64
}

// ImportResult summarises a finished import run.
type ImportResult struct {
	Files        int `json:"files"`
	Rows         int `json:"rows"`
	Skipped      int `json:"skipped"`
	Products     int `json:"products"`
	Suppliers    int `json:"suppliers"`
	Transactions int `json:"transactions"`
}
