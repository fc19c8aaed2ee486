package marketdata

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/shopspring/decimal"
)

// number decodes any JSON value into an optional non-negative decimal.
// Numbers and numeric strings are accepted; null, missing, negative and
// non-numeric values leave it unavailable. It never fails decoding.
type number struct {
	v *decimal.Decimal
}

func (n *number) UnmarshalJSON(raw []byte) error {
	n.v = coerce(raw)
	return nil
}

// Ptr returns the value, or nil when unavailable.
func (n number) Ptr() *decimal.Decimal {
	return n.v
}

// OrZero returns the value, or zero when unavailable.
func (n number) OrZero() decimal.Decimal {
	if n.v == nil {
		return decimal.Zero
	}
	return *n.v
}

// text decodes strings and numbers as a string; anything else is empty.
type text string

func (t *text) UnmarshalJSON(raw []byte) error {
	raw = bytes.TrimSpace(raw)
	switch {
	case len(raw) == 0:
		*t = ""
	case raw[0] == '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			*t = ""
			return nil
		}
		*t = text(s)
	case raw[0] == '-' || (raw[0] >= '0' && raw[0] <= '9'):
		*t = text(raw)
	default:
		*t = ""
	}
	return nil
}

func coerce(raw []byte) *decimal.Decimal {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return nil
	}

	var literal string
	switch {
	case raw[0] == '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil
		}
		literal = strings.TrimSpace(s)
	case raw[0] == '-' || (raw[0] >= '0' && raw[0] <= '9'):
		literal = string(raw)
	default:
		// null, booleans, objects, arrays
		return nil
	}

	if literal == "" {
		return nil
	}
	d, err := decimal.NewFromString(literal)
	if err != nil || d.IsNegative() {
		return nil
	}
	return &d
}
