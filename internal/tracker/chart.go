package tracker

import (
	"errors"
	"fmt"

	"github.com/andresuchdata/pricetrack/backend-go/internal/domain"
)

var (
	// ErrSurfaceMounted is returned when a second surface is mounted on a synchronizer.
	ErrSurfaceMounted = errors.New("chart surface already mounted")
	// ErrSurfaceReleased is returned when mounting after the surface was torn down.
	ErrSurfaceReleased = errors.New("chart surface already released")
)

// Surface is the drawing side of the history chart. It keeps its own viewport
// (zoom and pan); nothing here can read or change it, so data updates leave the
// user's viewport where it was.
type Surface interface {
	// Relabel changes the series label.
	Relabel(label string) error
	// ReplaceSeries swaps the whole data series.
	ReplaceSeries(points []domain.ChartPoint) error
	// Redraw renders pending changes in place.
	Redraw() error
	// Release tears the chart down.
	Release() error
}

// ChartSynchronizer owns the one chart surface of a dashboard session and
// pushes series updates into it without ever recreating it.
type ChartSynchronizer struct {
	surface  Surface
	released bool
}

// NewChartSynchronizer returns a synchronizer with no surface mounted.
func NewChartSynchronizer() *ChartSynchronizer {
	return &ChartSynchronizer{}
}

// Mount takes ownership of a surface. A synchronizer mounts at most once.
func (c *ChartSynchronizer) Mount(s Surface) error {
	if c.released {
		return ErrSurfaceReleased
	}
	if c.surface != nil {
		return ErrSurfaceMounted
	}
	c.surface = s
	return nil
}

// Mounted reports whether a live surface is attached.
func (c *ChartSynchronizer) Mounted() bool {
	return c.surface != nil
}

// Unmount releases the surface. Only the first call releases; later calls are no-ops.
func (c *ChartSynchronizer) Unmount() error {
	if c.surface == nil {
		return nil
	}
	s := c.surface
	c.surface = nil
	c.released = true
	if err := s.Release(); err != nil {
		return fmt.Errorf("release chart surface: %w", err)
	}
	return nil
}

// Update relabels the series for the measure, replaces every point and redraws.
// Without a mounted surface it does nothing.
func (c *ChartSynchronizer) Update(filtered []domain.TransactionRecord, measure domain.Measure) error {
	if c.surface == nil {
		return nil
	}

	if err := c.surface.Relabel(measure.Label()); err != nil {
		return fmt.Errorf("relabel chart: %w", err)
	}
	if err := c.surface.ReplaceSeries(BuildSeries(filtered, measure)); err != nil {
		return fmt.Errorf("replace chart series: %w", err)
	}
	if err := c.surface.Redraw(); err != nil {
		return fmt.Errorf("redraw chart: %w", err)
	}
	return nil
}

// BuildSeries maps transactions to chart points, one per transaction, in input order.
func BuildSeries(transactions []domain.TransactionRecord, measure domain.Measure) []domain.ChartPoint {
	points := make([]domain.ChartPoint, 0, len(transactions))
	for _, tx := range transactions {
		points = append(points, domain.ChartPoint{
			X:            tx.OrderDate,
			Y:            measure.Of(tx),
			SupplierName: tx.SupplierName,
			SupplierCode: tx.SupplierCode,
		})
	}
	return points
}
