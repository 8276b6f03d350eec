package domain

import (
	"bytes"
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// AllSuppliers is the supplier filter value that selects every supplier.
const AllSuppliers ID = "all"

// ID is the canonical identifier for products and suppliers.
//
// Upstream payloads carry ids either as JSON numbers or strings and the database
// stores them as bigint, so every id is normalized to its trimmed decimal string
// form when it enters the system. Comparisons downstream are plain ==.
type ID string

// ParseID normalizes a raw id. Numeric strings lose leading zeros and
// surrounding whitespace so "007" and 7 end up equal.
func ParseID(raw string) ID {
	trimmed := strings.TrimSpace(raw)
	if n, err := strconv.ParseInt(trimmed, 10, 64); err == nil {
		return ID(strconv.FormatInt(n, 10))
	}
	return ID(trimmed)
}

// IDFromInt64 converts a numeric database key to an ID.
func IDFromInt64(n int64) ID {
	return ID(strconv.FormatInt(n, 10))
}

func (id ID) String() string {
	return string(id)
}

// IsZero reports whether the id is unset.
func (id ID) IsZero() bool {
	return id == ""
}

// IsAll reports whether id selects every supplier. An unset filter counts as all.
func (id ID) IsAll() bool {
	return id == "" || id == AllSuppliers
}

// Int64 returns the numeric form of the id.
func (id ID) Int64() (int64, error) {
	n, err := strconv.ParseInt(string(id), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("id %q is not numeric: %w", string(id), err)
	}
	return n, nil
}

func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}

	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return fmt.Errorf("decode id: %w", err)
		}
		*id = ParseID(s)
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("decode id: %w", err)
	}
	*id = ParseID(n.String())
	return nil
}

// Scan implements sql.Scanner so bigint and text columns both land as an ID.
func (id *ID) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		*id = ""
	case int64:
		*id = IDFromInt64(v)
	case []byte:
		*id = ParseID(string(v))
	case string:
		*id = ParseID(v)
	default:
		return fmt.Errorf("cannot scan %T into domain.ID", src)
	}
	return nil
}

// Value implements driver.Valuer.
func (id ID) Value() (driver.Value, error) {
	if id == "" {
		return nil, nil
	}
	return string(id), nil
}
