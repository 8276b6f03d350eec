package importer

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const header = "order_date,product_code,product_name,supplier_code,supplier_name,unit_price,quantity\n"

func TestParseCSV(t *testing.T) {
	input := header +
		"2024-01-15,W-1,Widget,ACM,Acme Supplies,\"£1,234.50\",10\n" +
		"15/02/2024,W-1,,BLT,Bolt Trading,12.25,3.5\n"

	rows, skipped, err := ParseCSV(strings.NewReader(input), "jan.csv")
	require.NoError(t, err)
	assert.Empty(t, skipped)
	require.Len(t, rows, 2)

	first := rows[0]
	assert.Equal(t, "jan.csv", first.Source)
	assert.Equal(t, 2, first.Line)
	assert.True(t, first.OrderDate.Equal(time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, "W-1", first.ProductCode)
	assert.Equal(t, "Widget", first.ProductName)
	assert.Equal(t, "ACM", first.SupplierCode)
	assert.Equal(t, "Acme Supplies", first.SupplierName)
	assert.Equal(t, 1234.50, first.UnitPrice)
	assert.Equal(t, 10.0, first.Quantity)

	second := rows[1]
	assert.Equal(t, 3, second.Line)
	assert.True(t, second.OrderDate.Equal(time.Date(2024, 2, 15, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, "W-1", second.ProductName, "missing names fall back to the code")
	assert.Equal(t, 3.5, second.Quantity)
}

func TestParseCSV_SkipsBadRows(t *testing.T) {
	input := header +
		"invalid-date,W-1,Widget,ACM,Acme,10,1\n" +
		"2024-01-15,W-1,Widget,ACM,Acme,invalid-price,1\n" +
		"2024-01-15,W-1,Widget,ACM,Acme,-4,1\n" +
		"2024-01-15,,Widget,ACM,Acme,4,1\n" +
		"2024-01-15,W-1,Widget,,Acme,4,1\n" +
		",,,,,,\n" +
		"2024-01-16,W-1,Widget,ACM,Acme,4,NaN\n" +
		"2024-01-17,W-1,Widget,ACM,Acme,4,2\n"

	rows, skipped, err := ParseCSV(strings.NewReader(input), "mixed.csv")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, 9, rows[0].Line)

	require.Len(t, skipped, 6)
	assert.Equal(t, 2, skipped[0].Line)
	assert.Contains(t, skipped[0].Error(), "invalid date format")
	assert.Contains(t, skipped[1].Error(), "invalid unit_price")
	assert.Contains(t, skipped[2].Error(), "negative value")
	assert.Contains(t, skipped[3].Error(), "product_code is empty")
	assert.Contains(t, skipped[4].Error(), "supplier_code is empty")
	assert.Contains(t, skipped[5].Error(), "invalid quantity")
}

func TestParseCSV_SemicolonAndHeaderVariants(t *testing.T) {
	input := "\ufeffOrder Date; Product Code;Product Name;Supplier Code;Supplier Name;Unit Price;Quantity\r\n" +
		"2024-03-01;P-9;Paper;CRT;Crate Co;2.5;100\r\n"

	rows, skipped, err := ParseCSV(strings.NewReader(input), "march.csv")
	require.NoError(t, err)
	assert.Empty(t, skipped)
	require.Len(t, rows, 1)
	assert.Equal(t, "CRT", rows[0].SupplierCode)
	assert.Equal(t, 2.5, rows[0].UnitPrice)
}

func TestParseCSV_SemicolonDecimalComma(t *testing.T) {
	input := "order_date;product_code;product_name;supplier_code;supplier_name;unit_price;quantity\n" +
		"2024-03-01;P-9;Paper;CRT;Crate Co;12,50;10\n" +
		"2024-03-02;P-9;Paper;CRT;Crate Co;1.234,75;3\n" +
		"2024-03-03;P-9;Paper;CRT;Crate Co;1,2,3;3\n"

	rows, skipped, err := ParseCSV(strings.NewReader(input), "eu.csv")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, 12.5, rows[0].UnitPrice)
	assert.Equal(t, 10.0, rows[0].Quantity)
	assert.Equal(t, 1234.75, rows[1].UnitPrice)
	require.Len(t, skipped, 1)
	assert.Equal(t, 4, skipped[0].Line)
}

func TestParseCSV_HeaderErrors(t *testing.T) {
	_, _, err := ParseCSV(strings.NewReader(""), "empty.csv")
	assert.Error(t, err)

	_, _, err = ParseCSV(strings.NewReader("order_date,product_code\n2024-01-01,A\n"), "short.csv")
	assert.ErrorIs(t, err, ErrMissingColumn)
}

func TestParseAmount(t *testing.T) {
	tests := []struct {
		name         string
		raw          string
		decimalComma bool
		want         float64
		wantErr      bool
	}{
		{name: "integer", raw: "12", want: 12},
		{name: "pounds with grouping", raw: "£1,000.25", want: 1000.25},
		{name: "padded", raw: " 3.5 ", want: 3.5},
		{name: "empty", raw: "", wantErr: true},
		{name: "text", raw: "abc", wantErr: true},
		{name: "negative", raw: "-1", wantErr: true},
		{name: "infinity", raw: "Inf", wantErr: true},
		{name: "decimal comma", raw: "12,50", decimalComma: true, want: 12.5},
		{name: "decimal comma with grouping", raw: "£1.234,50", decimalComma: true, want: 1234.5},
		{name: "decimal comma plain dot", raw: "2.5", decimalComma: true, want: 2.5},
		{name: "decimal comma twice", raw: "1,2,3", decimalComma: true, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseAmount(tt.raw, tt.decimalComma)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
