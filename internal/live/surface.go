package live

import (
	"errors"

	"github.com/andresuchdata/pricetrack/backend-go/internal/domain"
)

var errSurfaceReleased = errors.New("chart surface released")

type chartPoint struct {
	X      string  `json:"x"`
	Y      float64 `json:"y"`
	Footer string  `json:"footer"`
}

type chartState struct {
	Label    string       `json:"label"`
	Points   []chartPoint `json:"points"`
	Revision int          `json:"revision"`
	Released bool         `json:"released,omitempty"`
}

// ChartSurface drives the browser chart through the "chart" signal. The browser
// applies each revision to its existing chart instance, so zoom and pan stay
// with the client.
type ChartSurface struct {
	stream Stream
	state  chartState
}

func NewChartSurface(stream Stream) *ChartSurface {
	return &ChartSurface{stream: stream, state: chartState{Points: []chartPoint{}}}
}

func (s *ChartSurface) Relabel(label string) error {
	if s.state.Released {
		return errSurfaceReleased
	}
	s.state.Label = label
	return nil
}

func (s *ChartSurface) ReplaceSeries(points []domain.ChartPoint) error {
	if s.state.Released {
		return errSurfaceReleased
	}
	series := make([]chartPoint, 0, len(points))
	for _, p := range points {
		series = append(series, chartPoint{
			X:      p.X.Format(domain.DateLayout),
			Y:      p.Y,
			Footer: p.Footer(),
		})
	}
	s.state.Points = series
	return nil
}

func (s *ChartSurface) Redraw() error {
	if s.state.Released {
		return errSurfaceReleased
	}
	s.state.Revision++
	return patchJSON(s.stream, map[string]any{"chart": s.state})
}

// Release tells the browser to destroy its chart. On a closed connection there
// is nobody left to tell.
func (s *ChartSurface) Release() error {
	if s.state.Released {
		return nil
	}
	s.state.Released = true
	s.state.Points = []chartPoint{}
	if closed(s.stream) {
		return nil
	}
	return patchJSON(s.stream, map[string]any{"chart": s.state})
}
