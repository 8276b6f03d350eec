package tracker

import (
	"context"
	"errors"
	"time"

	"github.com/andresuchdata/pricetrack/backend-go/internal/domain"
	"github.com/rs/zerolog/log"
)

// ErrSessionClosed is returned by session operations once the reaction loop has stopped.
var ErrSessionClosed = errors.New("dashboard session closed")

const defaultQueueSize = 64

// HistoryFetcher is the data source queried on product and date range changes.
type HistoryFetcher interface {
	FetchHistory(ctx context.Context, productID domain.ID, rng domain.DateRange) (*domain.History, error)
}

// Status describes the state of the data-dependent views.
type Status string

const (
	StatusEmpty       Status = "empty"
	StatusLoading     Status = "loading"
	StatusReady       Status = "ready"
	StatusUnavailable Status = "unavailable"
)

// View is everything a dashboard renders after a reaction.
type View struct {
	Status       Status                     `json:"status"`
	ProductID    domain.ID                  `json:"product_id"`
	Filter       domain.FilterState         `json:"filter"`
	Measure      domain.Measure             `json:"measure"`
	Transactions []domain.TransactionRecord `json:"transactions"`
	Suppliers    []domain.SupplierStats     `json:"suppliers"`
	Stats        *domain.SupplierStats      `json:"stats,omitempty"`
}

// SessionOptions configures a Session.
type SessionOptions struct {
	ID        string
	Clock     Clock
	Listener  func(View)
	QueueSize int
}

// Session is one dashboard: filter state, the date range, the fetched data and
// the chart. All state is owned by the reaction loop started with Run; public
// methods only enqueue reactions, so no locking is needed.
type Session struct {
	id      string
	fetcher HistoryFetcher
	chart   *ChartSynchronizer
	dates   *DateRangeController
	publish func(View)

	actions chan func()
	done    chan struct{}
	loopCtx context.Context

	productID   domain.ID
	supplier    domain.ID
	measure     domain.Measure
	data        *domain.History
	status      Status
	seq         uint64
	cancelFetch context.CancelFunc
}

// NewSession creates a session. When surface is non-nil it is mounted as the
// session's chart and released when Run returns.
func NewSession(fetcher HistoryFetcher, surface Surface, opts SessionOptions) (*Session, error) {
	queueSize := opts.QueueSize
	if queueSize <= 0 {
		queueSize = defaultQueueSize
	}
	publish := opts.Listener
	if publish == nil {
		publish = func(View) {}
	}

	s := &Session{
		id:       opts.ID,
		fetcher:  fetcher,
		chart:    NewChartSynchronizer(),
		publish:  publish,
		actions:  make(chan func(), queueSize),
		done:     make(chan struct{}),
		supplier: domain.AllSuppliers,
		measure:  domain.MeasureUnitPrice,
		status:   StatusEmpty,
	}
	s.dates = NewDateRangeController(opts.Clock, func(domain.DateRange) { s.requestFetch() })

	if surface != nil {
		if err := s.chart.Mount(surface); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// ID returns the session identifier given at construction.
func (s *Session) ID() string {
	return s.id
}

// Run processes reactions until ctx is cancelled, then cancels any in-flight
// fetch and releases the chart surface.
func (s *Session) Run(ctx context.Context) error {
	s.loopCtx = ctx
	defer close(s.done)
	defer func() {
		if s.cancelFetch != nil {
			s.cancelFetch()
		}
		if err := s.chart.Unmount(); err != nil {
			log.Warn().Err(err).Str("session_id", s.id).Msg("tracker: chart release failed")
		}
	}()

	s.refresh(true)

	for {
		select {
		case <-ctx.Done():
			log.Debug().Str("session_id", s.id).Msg("tracker: session stopped")
			return nil
		case fn := <-s.actions:
			fn()
		}
	}
}

// Done is closed once Run has returned.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// SelectProduct switches the product and fetches its history. An empty id
// clears the selection. The supplier filter is kept as is.
func (s *Session) SelectProduct(id domain.ID) error {
	return s.enqueue(func() {
		if id == s.productID {
			return
		}
		s.productID = id
		s.requestFetch()
	})
}

// SelectSupplier changes the supplier filter. It never triggers a fetch.
func (s *Session) SelectSupplier(id domain.ID) error {
	if id.IsZero() {
		id = domain.AllSuppliers
	}
	return s.enqueue(func() {
		if id == s.supplier {
			return
		}
		s.supplier = id
		s.refresh(true)
	})
}

// SetStartDate forwards to the date range controller; accepted changes re-fetch.
func (s *Session) SetStartDate(d *time.Time) error {
	return s.enqueue(func() { s.dates.SetStart(d) })
}

// SetEndDate forwards to the date range controller; accepted changes re-fetch.
func (s *Session) SetEndDate(d *time.Time) error {
	return s.enqueue(func() { s.dates.SetEnd(d) })
}

// SetMeasure switches the charted field. Unknown measures are ignored.
func (s *Session) SetMeasure(m domain.Measure) error {
	if _, ok := domain.ParseMeasure(string(m)); !ok {
		return nil
	}
	return s.enqueue(func() {
		if m == s.measure {
			return
		}
		s.measure = m
		s.refresh(true)
	})
}

// Reset restores the supplier filter to all and the date range to the last year.
func (s *Session) Reset() error {
	return s.enqueue(func() {
		s.supplier = domain.AllSuppliers
		s.dates.Reset()
	})
}

// Snapshot returns the current view as seen by the reaction loop.
func (s *Session) Snapshot(ctx context.Context) (View, error) {
	result := make(chan View, 1)
	if err := s.enqueue(func() { result <- s.view() }); err != nil {
		return View{}, err
	}
	select {
	case v := <-result:
		return v, nil
	case <-s.done:
		return View{}, ErrSessionClosed
	case <-ctx.Done():
		return View{}, ctx.Err()
	}
}

func (s *Session) enqueue(fn func()) error {
	select {
	case <-s.done:
		return ErrSessionClosed
	default:
	}

	select {
	case s.actions <- fn:
		return nil
	case <-s.done:
		return ErrSessionClosed
	}
}

// requestFetch issues the history fetch for the current product and range.
// Only the response of the latest request is ever applied.
func (s *Session) requestFetch() {
	if s.cancelFetch != nil {
		s.cancelFetch()
		s.cancelFetch = nil
	}
	s.seq++

	if s.productID.IsZero() {
		s.data = nil
		s.status = StatusEmpty
		s.refresh(true)
		return
	}

	seq := s.seq
	productID := s.productID
	rng := s.dates.Range()

	ctx, cancel := context.WithCancel(s.loopCtx)
	s.cancelFetch = cancel
	s.status = StatusLoading
	s.refresh(false)

	log.Debug().
		Str("session_id", s.id).
		Str("product_id", productID.String()).
		Str("range", rng.Key()).
		Uint64("seq", seq).
		Msg("tracker: fetching history")

	go func() {
		history, err := s.fetcher.FetchHistory(ctx, productID, rng)
		_ = s.enqueue(func() { s.applyFetch(seq, history, err) })
	}()
}

func (s *Session) applyFetch(seq uint64, history *domain.History, err error) {
	if seq != s.seq {
		log.Debug().
			Str("session_id", s.id).
			Uint64("seq", seq).
			Uint64("latest_seq", s.seq).
			Msg("tracker: discarding stale history response")
		return
	}
	if s.cancelFetch != nil {
		s.cancelFetch()
		s.cancelFetch = nil
	}

	if err != nil || history == nil {
		log.Warn().
			Err(err).
			Str("session_id", s.id).
			Str("product_id", s.productID.String()).
			Msg("tracker: history unavailable")
		s.data = nil
		s.status = StatusUnavailable
		s.refresh(true)
		return
	}

	s.data = history
	s.status = StatusReady
	s.refresh(true)
}

// refresh re-derives the filtered series, the chart and the selected stats, then
// publishes the view. Pass redraw=false to leave the chart untouched.
func (s *Session) refresh(redraw bool) {
	if redraw {
		if err := s.chart.Update(s.filtered(), s.measure); err != nil {
			log.Warn().Err(err).Str("session_id", s.id).Msg("tracker: chart update failed")
		}
	}
	s.publish(s.view())
}

func (s *Session) filtered() []domain.TransactionRecord {
	if s.data == nil {
		return nil
	}
	return FilterBySupplier(s.data.Transactions, s.supplier)
}

func (s *Session) view() View {
	v := View{
		Status:    s.status,
		ProductID: s.productID,
		Filter: domain.FilterState{
			Supplier:  s.supplier,
			DateRange: s.dates.Range(),
		},
		Measure: s.measure,
	}

	if s.status != StatusReady || s.data == nil {
		return v
	}

	v.Transactions = s.filtered()
	v.Suppliers = s.data.Suppliers
	if stats, ok := SelectStats(s.supplier, s.data.Stats, s.data.Suppliers); ok {
		v.Stats = &stats
	}
	return v
}
