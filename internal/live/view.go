package live

import (
	"html/template"
	"strings"

	"github.com/andresuchdata/pricetrack/backend-go/internal/domain"
	"github.com/andresuchdata/pricetrack/backend-go/internal/format"
	"github.com/andresuchdata/pricetrack/backend-go/internal/tracker"
	"github.com/rs/zerolog/log"
)

var supplierTableTemplate = template.Must(template.New("supplierTable").Parse(`
<div id="supplier-table">
<table class="supplier-table">
<thead><tr><th>Supplier</th><th>Lowest Price</th><th>Highest Price</th><th>Average Price</th><th>Quantity Bought</th><th>Total Spend</th><th>Overall Average Price</th></tr></thead>
<tbody>
{{if .Message}}<tr><td colspan="7" class="table-message">{{.Message}}</td></tr>
{{else}}{{range .Rows}}<tr data-supplier-id="{{.ID}}" data-current-price="{{.CurrentPrice}}"{{if .Selected}} class="selected"{{end}}>
<td>{{.Label}}</td>
<td>{{.MinPrice}}</td>
<td>{{.MaxPrice}}</td>
<td>{{.AveragePrice}}</td>
<td>{{.TotalQuantity}}</td>
<td>{{.TotalAmount}}</td>
<td>{{.OverallAveragePrice}}</td>
</tr>
{{end}}{{end}}</tbody>
</table>
</div>`))

var supplierOptionsTemplate = template.Must(template.New("supplierOptions").Parse(`
<select id="supplier-filter" data-bind-supplier>
<option value="all"{{if .AllSelected}} selected{{end}}>All suppliers</option>
{{with .StaleSupplier}}<option value="{{.}}" selected disabled>Supplier not in range</option>
{{end}}{{range .Rows}}<option value="{{.ID}}"{{if .Selected}} selected{{end}}>{{.Label}}</option>
{{end}}</select>`))

type supplierRow struct {
	ID            string
	Label         string
	Selected      bool
	MinPrice      string
	MaxPrice      string
	AveragePrice  string
	TotalQuantity string
	TotalAmount   string
	CurrentPrice  string

	OverallAveragePrice string
}

type supplierTableData struct {
	Message     string
	AllSelected bool
	// StaleSupplier is the filtered supplier id when it is missing from Rows.
	StaleSupplier string
	Rows          []supplierRow
}

// Cards are the formatted summary figures; all blank when no stats match.
type Cards struct {
	MinPrice            string `json:"minPrice"`
	MaxPrice            string `json:"maxPrice"`
	AveragePrice        string `json:"averagePrice"`
	TotalQuantity       string `json:"totalQuantity"`
	TotalAmount         string `json:"totalAmount"`
	CurrentPrice        string `json:"currentPrice"`
	OverallAveragePrice string `json:"overallAveragePrice"`
}

// ViewSignals is the "view" signal sent after every reaction.
type ViewSignals struct {
	Status           string `json:"status"`
	ProductID        string `json:"productId"`
	Supplier         string `json:"supplier"`
	StartDate        string `json:"startDate"`
	EndDate          string `json:"endDate"`
	Measure          string `json:"measure"`
	TransactionCount int    `json:"transactionCount"`
	// SupplierMissing is set when the filtered supplier has no row in the current range.
	SupplierMissing  bool   `json:"supplierMissing"`
	Cards            Cards  `json:"cards"`
}

// ViewRenderer turns session views into datastar patches.
type ViewRenderer struct {
	stream        Stream
	sessionID     string
	lastTable     string
	lastSelectors string
}

func NewViewRenderer(stream Stream, sessionID string) *ViewRenderer {
	return &ViewRenderer{stream: stream, sessionID: sessionID}
}

// Publish is the session listener. Errors are logged; a broken stream ends the
// session through the request context.
func (r *ViewRenderer) Publish(v tracker.View) {
	if err := patchJSON(r.stream, map[string]any{"view": BuildViewSignals(v)}); err != nil {
		log.Debug().Err(err).Str("session_id", r.sessionID).Msg("live: view patch failed")
		return
	}

	data := buildSupplierTableData(v)

	table, err := render(supplierTableTemplate, data)
	if err != nil {
		log.Error().Err(err).Str("session_id", r.sessionID).Msg("live: render supplier table")
		return
	}
	if table != r.lastTable {
		if err := r.stream.PatchElements(table); err != nil {
			log.Debug().Err(err).Str("session_id", r.sessionID).Msg("live: table patch failed")
			return
		}
		r.lastTable = table
	}

	selectors, err := render(supplierOptionsTemplate, data)
	if err != nil {
		log.Error().Err(err).Str("session_id", r.sessionID).Msg("live: render supplier options")
		return
	}
	if selectors != r.lastSelectors {
		if err := r.stream.PatchElements(selectors); err != nil {
			log.Debug().Err(err).Str("session_id", r.sessionID).Msg("live: options patch failed")
			return
		}
		r.lastSelectors = selectors
	}
}

// BuildViewSignals formats a view for the browser.
func BuildViewSignals(v tracker.View) ViewSignals {
	signals := ViewSignals{
		Status:           string(v.Status),
		ProductID:        v.ProductID.String(),
		Supplier:         v.Filter.Supplier.String(),
		StartDate:        v.Filter.StartParam(),
		EndDate:          v.Filter.EndParam(),
		Measure:          string(v.Measure),
		TransactionCount: len(v.Transactions),
		SupplierMissing:  supplierMissing(v),
	}
	if v.Stats != nil {
		signals.Cards = buildCards(v.Stats.Stats)
	}
	return signals
}

func buildCards(s domain.Stats) Cards {
	return Cards{
		MinPrice:            format.Amount(s.MinPrice),
		MaxPrice:            format.Amount(s.MaxPrice),
		AveragePrice:        format.Amount(s.AveragePrice),
		TotalQuantity:       format.Count(s.TotalQuantity),
		TotalAmount:         format.Amount(s.TotalAmount),
		CurrentPrice:        format.Amount(s.CurrentPrice),
		OverallAveragePrice: format.Amount(s.OverallAveragePrice),
	}
}

// supplierMissing reports a specific supplier filter that matches no listed
// supplier. The filter is kept so a later range can bring the supplier back.
func supplierMissing(v tracker.View) bool {
	if v.Filter.Supplier.IsAll() {
		return false
	}
	for _, s := range v.Suppliers {
		if s.SupplierID == v.Filter.Supplier {
			return false
		}
	}
	return true
}

func buildSupplierTableData(v tracker.View) supplierTableData {
	data := supplierTableData{AllSelected: v.Filter.Supplier.IsAll()}
	if supplierMissing(v) {
		data.StaleSupplier = v.Filter.Supplier.String()
	}

	switch v.Status {
	case tracker.StatusEmpty:
		data.Message = "Select a product to see its suppliers"
		return data
	case tracker.StatusLoading:
		data.Message = "Loading…"
		return data
	case tracker.StatusUnavailable:
		data.Message = "Price history is unavailable right now"
		return data
	}

	if len(v.Suppliers) == 0 {
		data.Message = "No purchases in this date range"
		return data
	}

	for _, s := range v.Suppliers {
		data.Rows = append(data.Rows, supplierRow{
			ID:            s.SupplierID.String(),
			Label:         s.Label(),
			Selected:      s.SupplierID == v.Filter.Supplier,
			MinPrice:      format.Amount(s.MinPrice),
			MaxPrice:      format.Amount(s.MaxPrice),
			AveragePrice:  format.Amount(s.AveragePrice),
			TotalQuantity: format.Count(s.TotalQuantity),
			TotalAmount:   format.Amount(s.TotalAmount),
			CurrentPrice:  format.Amount(s.CurrentPrice),

			OverallAveragePrice: format.Amount(s.OverallAveragePrice),
		})
	}
	return data
}

func render(tmpl *template.Template, data any) (string, error) {
	var buf strings.Builder
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}
