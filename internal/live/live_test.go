package live

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/andresuchdata/pricetrack/backend-go/internal/domain"
	"github.com/andresuchdata/pricetrack/backend-go/internal/tracker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingStream struct {
	mu       sync.Mutex
	signals  []map[string]json.RawMessage
	elements []string
	done     chan struct{}
	err      error
}

func newRecordingStream() *recordingStream {
	return &recordingStream{done: make(chan struct{})}
}

func (s *recordingStream) PatchSignals(signals []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	var decoded map[string]json.RawMessage
	if err := json.Unmarshal(signals, &decoded); err != nil {
		return err
	}
	s.signals = append(s.signals, decoded)
	return nil
}

func (s *recordingStream) PatchElements(html string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.elements = append(s.elements, html)
	return nil
}

func (s *recordingStream) Done() <-chan struct{} {
	return s.done
}

func (s *recordingStream) lastSignal(t *testing.T, key string, into any) {
	t.Helper()
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := len(s.signals) - 1; i >= 0; i-- {
		if raw, ok := s.signals[i][key]; ok {
			require.NoError(t, json.Unmarshal(raw, into))
			return
		}
	}
	t.Fatalf("no %q signal sent", key)
}

func (s *recordingStream) counts() (int, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.signals), len(s.elements)
}

func testPoints() []domain.ChartPoint {
	return []domain.ChartPoint{
		{X: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), Y: 10, SupplierName: "Acme", SupplierCode: "ACM"},
		{X: time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC), Y: 12, SupplierName: "Bolt", SupplierCode: "BLT"},
	}
}

func TestChartSurface_RedrawSendsRevision(t *testing.T) {
	stream := newRecordingStream()
	surface := NewChartSurface(stream)

	require.NoError(t, surface.Relabel("Unit Price"))
	require.NoError(t, surface.ReplaceSeries(testPoints()))
	signals, _ := stream.counts()
	assert.Zero(t, signals, "nothing is sent before redraw")

	require.NoError(t, surface.Redraw())
	var state chartState
	stream.lastSignal(t, "chart", &state)
	assert.Equal(t, "Unit Price", state.Label)
	assert.Equal(t, 1, state.Revision)
	require.Len(t, state.Points, 2)
	assert.Equal(t, chartPoint{X: "2024-01-01", Y: 10, Footer: "Supplier: Acme (ACM)"}, state.Points[0])

	require.NoError(t, surface.Relabel("Quantity"))
	require.NoError(t, surface.Redraw())
	stream.lastSignal(t, "chart", &state)
	assert.Equal(t, 2, state.Revision)
	assert.Equal(t, "Quantity", state.Label)
}

func TestChartSurface_ReleaseOnce(t *testing.T) {
	stream := newRecordingStream()
	surface := NewChartSurface(stream)

	require.NoError(t, surface.Release())
	require.NoError(t, surface.Release())
	signals, _ := stream.counts()
	assert.Equal(t, 1, signals)

	var state chartState
	stream.lastSignal(t, "chart", &state)
	assert.True(t, state.Released)

	assert.ErrorIs(t, surface.Redraw(), errSurfaceReleased)
	assert.ErrorIs(t, surface.ReplaceSeries(nil), errSurfaceReleased)
}

func TestChartSurface_ReleaseOnClosedStreamSkipsWrite(t *testing.T) {
	stream := newRecordingStream()
	close(stream.done)
	surface := NewChartSurface(stream)

	require.NoError(t, surface.Release())
	signals, _ := stream.counts()
	assert.Zero(t, signals)
}

func readyView() tracker.View {
	stats := domain.SupplierStats{Stats: domain.Stats{
		MinPrice: 9.5, MaxPrice: 1234.5, AveragePrice: 100, TotalQuantity: 1234,
		TotalAmount: 98765.4, CurrentPrice: 12, OverallAveragePrice: 11.25,
	}}
	return tracker.View{
		Status:    tracker.StatusReady,
		ProductID: "7",
		Filter:    domain.FilterState{Supplier: domain.AllSuppliers},
		Measure:   domain.MeasureUnitPrice,
		Transactions: []domain.TransactionRecord{
			{UnitPrice: 10, Quantity: 5, SupplierID: "1"},
		},
		Suppliers: []domain.SupplierStats{
			{SupplierID: "1", Name: "Acme", Code: "ACM", Stats: domain.Stats{MinPrice: 10, MaxPrice: 10, AveragePrice: 10, TotalQuantity: 5, TotalAmount: 50, CurrentPrice: 12, OverallAveragePrice: 11}},
			{SupplierID: "2", Name: "Bolt & Sons", Code: "BLT", Stats: domain.Stats{MinPrice: 12, MaxPrice: 12, AveragePrice: 12, TotalQuantity: 3, TotalAmount: 36, CurrentPrice: 12, OverallAveragePrice: 11}},
		},
		Stats: &stats,
	}
}

func TestBuildViewSignals(t *testing.T) {
	v := readyView()
	start := time.Date(2023, 6, 15, 0, 0, 0, 0, time.UTC)
	v.Filter.Start = &start

	signals := BuildViewSignals(v)
	assert.Equal(t, "ready", signals.Status)
	assert.Equal(t, "7", signals.ProductID)
	assert.Equal(t, "all", signals.Supplier)
	assert.Equal(t, "2023-06-15", signals.StartDate)
	assert.Empty(t, signals.EndDate)
	assert.Equal(t, 1, signals.TransactionCount)
	assert.Equal(t, Cards{
		MinPrice:            "£9.50",
		MaxPrice:            "£1,234.50",
		AveragePrice:        "£100.00",
		TotalQuantity:       "1,234",
		TotalAmount:         "£98,765.40",
		CurrentPrice:        "£12.00",
		OverallAveragePrice: "£11.25",
	}, signals.Cards)

	v.Stats = nil
	assert.Equal(t, Cards{}, BuildViewSignals(v).Cards, "no match renders blank cards")
}

func TestViewRenderer_Publish(t *testing.T) {
	stream := newRecordingStream()
	r := NewViewRenderer(stream, "s-1")

	v := readyView()
	r.Publish(v)

	var signals ViewSignals
	stream.lastSignal(t, "view", &signals)
	assert.Equal(t, "£1,234.50", signals.Cards.MaxPrice)

	_, elements := stream.counts()
	require.Equal(t, 2, elements)
	table := stream.elements[0]
	assert.Contains(t, table, `id="supplier-table"`)
	assert.Contains(t, table, "Acme (ACM)")
	assert.Contains(t, table, "Bolt &amp; Sons (BLT)")
	assert.Contains(t, table, `data-current-price="£12.00"`)
	assert.NotContains(t, table, "<th>Current Price</th>")
	for _, header := range []string{"Lowest Price", "Highest Price", "Average Price", "Quantity Bought", "Total Spend", "Overall Average Price"} {
		assert.Contains(t, table, "<th>"+header+"</th>")
	}
	assert.Contains(t, table, "<td>£11.00</td>")
	options := stream.elements[1]
	assert.Contains(t, options, `<option value="all" selected>All suppliers</option>`)
	assert.Contains(t, options, `<option value="2">Bolt &amp; Sons (BLT)</option>`)

	// unchanged table and options are not re-sent
	r.Publish(v)
	_, elements = stream.counts()
	assert.Equal(t, 2, elements)

	v.Filter.Supplier = "2"
	r.Publish(v)
	_, elements = stream.counts()
	assert.Equal(t, 4, elements)
	assert.Contains(t, stream.elements[3], `<option value="2" selected>`)
}

func TestViewRenderer_SupplierFilterNotInRange(t *testing.T) {
	stream := newRecordingStream()
	r := NewViewRenderer(stream, "s-1")

	v := readyView()
	v.Filter.Supplier = "9"
	v.Stats = nil
	r.Publish(v)

	var signals ViewSignals
	stream.lastSignal(t, "view", &signals)
	assert.True(t, signals.SupplierMissing)
	assert.Equal(t, "9", signals.Supplier)

	require.Len(t, stream.elements, 2)
	options := stream.elements[1]
	assert.Contains(t, options, `<option value="all">All suppliers</option>`)
	assert.Contains(t, options, `<option value="9" selected disabled>`)
	assert.NotContains(t, options, `<option value="1" selected>`)

	assert.False(t, BuildViewSignals(readyView()).SupplierMissing)
}

func TestViewRenderer_StatusMessages(t *testing.T) {
	cases := map[tracker.Status]string{
		tracker.StatusEmpty:       "Select a product",
		tracker.StatusLoading:     "Loading",
		tracker.StatusUnavailable: "unavailable",
	}
	for status, want := range cases {
		stream := newRecordingStream()
		NewViewRenderer(stream, "s").Publish(tracker.View{Status: status, Filter: domain.FilterState{Supplier: domain.AllSuppliers}})
		require.NotEmpty(t, stream.elements, "status %s", status)
		assert.Contains(t, stream.elements[0], want, "status %s", status)
	}
}

func TestViewRenderer_StopsOnStreamError(t *testing.T) {
	stream := newRecordingStream()
	stream.err = errors.New("broken pipe")
	NewViewRenderer(stream, "s").Publish(readyView())

	signals, elements := stream.counts()
	assert.Zero(t, signals)
	assert.Zero(t, elements)
}

type stubFetcher struct {
	mu    sync.Mutex
	calls []string
}

func (f *stubFetcher) FetchHistory(ctx context.Context, productID domain.ID, rng domain.DateRange) (*domain.History, error) {
	f.mu.Lock()
	f.calls = append(f.calls, productID.String()+"|"+rng.Key())
	f.mu.Unlock()
	return &domain.History{
		Transactions: []domain.TransactionRecord{{UnitPrice: 10, Quantity: 5, SupplierID: "1"}},
		Suppliers:    []domain.SupplierStats{{SupplierID: "1", Name: "Acme", Code: "ACM"}},
	}, nil
}

func runSession(t *testing.T, fetcher tracker.HistoryFetcher) *tracker.Session {
	t.Helper()
	now := func() time.Time { return time.Date(2024, 6, 15, 9, 0, 0, 0, time.UTC) }
	s, err := tracker.NewSession(fetcher, nil, tracker.SessionOptions{ID: "s-1", Clock: now})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	go func() { _ = s.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		<-s.Done()
	})
	return s
}

func TestDispatch(t *testing.T) {
	fetcher := &stubFetcher{}
	s := runSession(t, fetcher)
	ctx := context.Background()

	require.NoError(t, Dispatch(s, "product", json.RawMessage(`7`)))
	require.Eventually(t, func() bool {
		v, err := s.Snapshot(ctx)
		return err == nil && v.Status == tracker.StatusReady
	}, 2*time.Second, 5*time.Millisecond)

	require.NoError(t, Dispatch(s, "supplier", json.RawMessage(`"001"`)))
	require.NoError(t, Dispatch(s, "start", json.RawMessage(`"2024-01-01"`)))
	require.NoError(t, Dispatch(s, "end", json.RawMessage(`"not-a-date"`)))
	require.NoError(t, Dispatch(s, "measure", json.RawMessage(`"quantity"`)))

	v, err := s.Snapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.ID("7"), v.ProductID)
	assert.Equal(t, domain.ID("1"), v.Filter.Supplier)
	assert.Equal(t, "2024-01-01..2024-06-15", v.Filter.DateRange.Key())
	assert.Equal(t, domain.MeasureQuantity, v.Measure)

	require.NoError(t, Dispatch(s, " RESET ", nil))
	v, err = s.Snapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.AllSuppliers, v.Filter.Supplier)
	assert.Equal(t, "2023-06-15..2024-06-15", v.Filter.DateRange.Key())

	require.NoError(t, Dispatch(s, "end", json.RawMessage(`""`)))
	v, err = s.Snapshot(ctx)
	require.NoError(t, err)
	assert.Nil(t, v.Filter.End)
}

func TestDispatch_Errors(t *testing.T) {
	s := runSession(t, &stubFetcher{})

	assert.ErrorIs(t, Dispatch(s, "zoom", nil), ErrUnknownAction)
	assert.Error(t, Dispatch(s, "product", json.RawMessage(`{"id":1}`)))
	assert.Error(t, Dispatch(s, "start", json.RawMessage(`20240101`)))
}

func TestRegistry(t *testing.T) {
	reg := NewRegistry()
	s, err := tracker.NewSession(&stubFetcher{}, nil, tracker.SessionOptions{ID: "abc"})
	require.NoError(t, err)

	reg.Add(s)
	got, ok := reg.Get("abc")
	require.True(t, ok)
	assert.Same(t, s, got)
	assert.Equal(t, 1, reg.Len())

	reg.Remove("abc")
	_, ok = reg.Get("abc")
	assert.False(t, ok)
	assert.Zero(t, reg.Len())
}

func TestSendWelcome(t *testing.T) {
	stream := newRecordingStream()
	require.NoError(t, SendWelcome(stream, "abc", nil))

	var id string
	stream.lastSignal(t, "sessionId", &id)
	assert.Equal(t, "abc", id)

	var products []domain.Product
	stream.lastSignal(t, "products", &products)
	assert.NotNil(t, products)
	assert.Empty(t, products)
}
