// internal/importer/parser.go
package importer

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/andresuchdata/pricetrack/backend-go/internal/domain"
)

const (
	colOrderDate    = "order_date"
	colProductCode  = "product_code"
	colProductName  = "product_name"
	colSupplierCode = "supplier_code"
	colSupplierName = "supplier_name"
	colUnitPrice    = "unit_price"
	colQuantity     = "quantity"
)

var requiredColumns = []string{
	colOrderDate,
	colProductCode,
	colProductName,
	colSupplierCode,
	colSupplierName,
	colUnitPrice,
	colQuantity,
}

var dateLayouts = []string{
	domain.DateLayout,
	"02/01/2006",
	"2006/01/02",
	time.RFC3339,
}

// ErrMissingColumn is returned when a CSV header lacks one of the required columns.
var ErrMissingColumn = errors.New("missing required column")

// RowError describes a line that was skipped.
type RowError struct {
	Line int
	Err  error
}

func (e RowError) Error() string {
	return fmt.Sprintf("line %d: %v", e.Line, e.Err)
}

// ParseCSV reads a transaction export. Comma and semicolon delimited files are
// both accepted. Bad rows are reported in skipped and never abort the file.
func ParseCSV(r io.Reader, source string) (rows []domain.ImportRow, skipped []RowError, err error) {
	br := bufio.NewReader(r)
	headerLine, err := br.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, nil, fmt.Errorf("failed to read CSV header: %w", err)
	}
	if strings.TrimSpace(headerLine) == "" {
		return nil, nil, fmt.Errorf("failed to read CSV header: empty file")
	}

	reader := csv.NewReader(io.MultiReader(strings.NewReader(headerLine), br))
	reader.Comma = detectDelimiter(headerLine)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read CSV header: %w", err)
	}
	cols, err := columnIndex(header)
	if err != nil {
		return nil, nil, err
	}
	decimalComma := reader.Comma == ';'

	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var parseErr *csv.ParseError
			if errors.As(err, &parseErr) {
				skipped = append(skipped, RowError{Line: parseErr.Line, Err: parseErr.Err})
				continue
			}
			return nil, nil, fmt.Errorf("error reading record: %w", err)
		}
		if isBlank(record) {
			continue
		}
		line, _ := reader.FieldPos(0)

		row, err := parseRecord(record, cols, decimalComma)
		if err != nil {
			skipped = append(skipped, RowError{Line: line, Err: err})
			continue
		}
		row.Source = source
		row.Line = line
		rows = append(rows, row)
	}

	return rows, skipped, nil
}

func detectDelimiter(headerLine string) rune {
	if strings.Count(headerLine, ";") > strings.Count(headerLine, ",") {
		return ';'
	}
	return ','
}

func columnIndex(header []string) (map[string]int, error) {
	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[normalizeHeader(name)] = i
	}
	for _, name := range requiredColumns {
		if _, ok := cols[name]; !ok {
			return nil, fmt.Errorf("%w: %s", ErrMissingColumn, name)
		}
	}
	return cols, nil
}

func normalizeHeader(name string) string {
	name = strings.TrimPrefix(name, "\ufeff")
	name = strings.ToLower(strings.TrimSpace(name))
	return strings.Join(strings.Fields(name), "_")
}

func isBlank(record []string) bool {
	for _, field := range record {
		if strings.TrimSpace(field) != "" {
			return false
		}
	}
	return true
}

func parseRecord(record []string, cols map[string]int, decimalComma bool) (domain.ImportRow, error) {
	field := func(name string) string {
		idx := cols[name]
		if idx >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[idx])
	}

	var row domain.ImportRow

	orderDate, err := parseDate(field(colOrderDate))
	if err != nil {
		return row, err
	}
	row.OrderDate = orderDate

	row.ProductCode = field(colProductCode)
	if row.ProductCode == "" {
		return row, errors.New("product_code is empty")
	}
	row.ProductName = field(colProductName)
	if row.ProductName == "" {
		row.ProductName = row.ProductCode
	}

	row.SupplierCode = field(colSupplierCode)
	if row.SupplierCode == "" {
		return row, errors.New("supplier_code is empty")
	}
	row.SupplierName = field(colSupplierName)
	if row.SupplierName == "" {
		row.SupplierName = row.SupplierCode
	}

	if row.UnitPrice, err = parseAmount(field(colUnitPrice), decimalComma); err != nil {
		return row, fmt.Errorf("invalid unit_price: %w", err)
	}
	if row.Quantity, err = parseAmount(field(colQuantity), decimalComma); err != nil {
		return row, fmt.Errorf("invalid quantity: %w", err)
	}

	return row, nil
}

func parseDate(raw string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, errors.New("order_date is empty")
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return domain.CalendarDate(t), nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid date format %q", raw)
}

// parseAmount accepts plain numbers with optional £ sign and thousands separators.
// With decimalComma set (semicolon delimited exports) a comma is the decimal
// separator and dots group thousands, e.g. 1.234,50.
func parseAmount(raw string, decimalComma bool) (float64, error) {
	cleaned := strings.NewReplacer("£", "", " ", "").Replace(raw)
	if decimalComma && strings.Contains(cleaned, ",") {
		cleaned = strings.ReplaceAll(cleaned, ".", "")
		cleaned = strings.Replace(cleaned, ",", ".", 1)
	} else {
		cleaned = strings.ReplaceAll(cleaned, ",", "")
	}
	if cleaned == "" {
		return 0, errors.New("value is empty")
	}
	v, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("not a number %s", raw)
	}
	if v < 0 {
		return 0, fmt.Errorf("negative value %s", raw)
	}
	return v, nil
}
