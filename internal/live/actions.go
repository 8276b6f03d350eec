package live

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/andresuchdata/pricetrack/backend-go/internal/domain"
	"github.com/andresuchdata/pricetrack/backend-go/internal/tracker"
)

// ErrUnknownAction is returned for action names the dashboard does not handle.
var ErrUnknownAction = errors.New("unknown dashboard action")

const (
	ActionProduct  = "product"
	ActionSupplier = "supplier"
	ActionStart    = "start"
	ActionEnd      = "end"
	ActionMeasure  = "measure"
	ActionReset    = "reset"
)

// ActionSignals is what the browser posts for every control change.
type ActionSignals struct {
	SessionID string          `json:"sessionId"`
	Action    string          `json:"action"`
	Value     json.RawMessage `json:"value"`
}

// Dispatch applies one browser action to a session. Ids may arrive as JSON
// numbers or strings; dates as YYYY-MM-DD strings where "" clears the bound.
func Dispatch(s *tracker.Session, action string, value json.RawMessage) error {
	switch strings.ToLower(strings.TrimSpace(action)) {
	case ActionProduct:
		id, err := decodeID(value)
		if err != nil {
			return err
		}
		return s.SelectProduct(id)
	case ActionSupplier:
		id, err := decodeID(value)
		if err != nil {
			return err
		}
		return s.SelectSupplier(id)
	case ActionStart:
		raw, err := decodeString(value)
		if err != nil {
			return err
		}
		return s.SetStartDate(tracker.ParseDateInput(raw))
	case ActionEnd:
		raw, err := decodeString(value)
		if err != nil {
			return err
		}
		return s.SetEndDate(tracker.ParseDateInput(raw))
	case ActionMeasure:
		raw, err := decodeString(value)
		if err != nil {
			return err
		}
		m, _ := domain.ParseMeasure(raw)
		return s.SetMeasure(m)
	case ActionReset:
		return s.Reset()
	default:
		return fmt.Errorf("%w: %q", ErrUnknownAction, action)
	}
}

func decodeID(value json.RawMessage) (domain.ID, error) {
	if len(value) == 0 {
		return "", nil
	}
	var id domain.ID
	if err := json.Unmarshal(value, &id); err != nil {
		return "", fmt.Errorf("decode id: %w", err)
	}
	return id, nil
}

func decodeString(value json.RawMessage) (string, error) {
	if len(value) == 0 || string(value) == "null" {
		return "", nil
	}
	var s string
	if err := json.Unmarshal(value, &s); err != nil {
		return "", fmt.Errorf("decode value: %w", err)
	}
	return s, nil
}
