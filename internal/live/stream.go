// Package live binds dashboard sessions to browsers over datastar server-sent events.
package live

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/andresuchdata/pricetrack/backend-go/internal/domain"
	"github.com/starfederation/datastar-go/datastar"
)

// Stream is the outgoing half of one browser connection.
type Stream interface {
	PatchSignals(signals []byte) error
	PatchElements(html string) error
	Done() <-chan struct{}
}

type datastarStream struct {
	sse *datastar.ServerSentEventGenerator
	ctx context.Context
}

// NewStream upgrades the response to an SSE stream.
func NewStream(w http.ResponseWriter, r *http.Request) Stream {
	return &datastarStream{
		sse: datastar.NewSSE(w, r),
		ctx: r.Context(),
	}
}

func (s *datastarStream) PatchSignals(signals []byte) error {
	return s.sse.PatchSignals(signals)
}

func (s *datastarStream) PatchElements(html string) error {
	return s.sse.PatchElements(html)
}

func (s *datastarStream) Done() <-chan struct{} {
	return s.ctx.Done()
}

// SendWelcome is the first patch of a stream: the session id the browser posts
// actions with, and the product list for the selector.
func SendWelcome(stream Stream, sessionID string, products []domain.Product) error {
	if products == nil {
		products = []domain.Product{}
	}
	return patchJSON(stream, map[string]any{
		"sessionId": sessionID,
		"products":  products,
	})
}

// patchJSON marshals v and sends it as a signal patch.
func patchJSON(stream Stream, v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal signals: %w", err)
	}
	return stream.PatchSignals(payload)
}

func closed(stream Stream) bool {
	select {
	case <-stream.Done():
		return true
	default:
		return false
	}
}
