package domain

import (
	"fmt"
	"time"
)

// Measure selects which transaction field is charted.
type Measure string

const (
	MeasureUnitPrice Measure = "unit_price"
	MeasureQuantity  Measure = "quantity"
)

var measureLabels = map[Measure]string{
	MeasureUnitPrice: "Unit Price",
	MeasureQuantity:  "Quantity",
}

// ParseMeasure returns the measure for a toggle value.
func ParseMeasure(raw string) (Measure, bool) {
	m := Measure(raw)
	_, ok := measureLabels[m]
	return m, ok
}

// Label returns the series label shown on the chart.
func (m Measure) Label() string {
	if label, ok := measureLabels[m]; ok {
		return label
	}
	return measureLabels[MeasureUnitPrice]
}

// Of reads the measured field from a transaction.
func (m Measure) Of(tx TransactionRecord) float64 {
	if m == MeasureQuantity {
		return tx.Quantity
	}
	return tx.UnitPrice
}

// ChartPoint is one point of the history series. Supplier identity travels with
// the point so tooltips never join against the supplier table.
type ChartPoint struct {
	X            time.Time `json:"x"`
	Y            float64   `json:"y"`
	SupplierName string    `json:"supplier_name"`
	SupplierCode string    `json:"supplier_code"`
}

// Footer is the tooltip footer line for the point.
func (p ChartPoint) Footer() string {
	return fmt.Sprintf("Supplier: %s (%s)", p.SupplierName, p.SupplierCode)
}
