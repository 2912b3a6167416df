package domain

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"github.com/holiman/uint256"
)

// Quantity is an unsigned on-chain magnitude (gas, balance, nonce, block
// number). It remembers the textual form it arrived in so that re-encoding a
// canonical result reproduces the upstream payload byte-for-byte, while the
// parsed value is always available as an unsigned 256-bit integer.
type Quantity struct {
	text    string // original textual form; empty when sourced from a number
	num     bool   // source was a JSON number
	val     uint256.Int
	present bool
}

// QuantityFromUint64 builds a Quantity from a native value.
func QuantityFromUint64(v uint64) Quantity {
	var q Quantity
	q.val.SetUint64(v)
	q.num = true
	q.present = true
	return q
}

// ParseQuantity interprets a decoded JSON value as an unsigned magnitude.
// Accepted encodings: 0x-prefixed hex string, all-digit decimal string,
// non-negative integral JSON number. Anything else reports ok=false.
func ParseQuantity(v any) (Quantity, bool) {
	var q Quantity
	switch t := v.(type) {
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return q, false
		}
		if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
			parsed, err := uint256.FromHex(strings.ToLower(s))
			if err != nil {
				return q, false
			}
			q.val = *parsed
		} else {
			if err := q.val.SetFromDecimal(s); err != nil {
				return q, false
			}
		}
		q.text = s
		q.present = true
		return q, true
	case float64:
		if t < 0 || t != math.Trunc(t) || t > math.MaxUint64 {
			return q, false
		}
		q.val.SetUint64(uint64(t))
		q.num = true
		q.present = true
		return q, true
	case json.Number:
		return ParseQuantity(string(t))
	case int:
		if t < 0 {
			return q, false
		}
		return QuantityFromUint64(uint64(t)), true
	case int64:
		if t < 0 {
			return q, false
		}
		return QuantityFromUint64(uint64(t)), true
	case uint64:
		return QuantityFromUint64(t), true
	case Quantity:
		return t, t.present
	default:
		return q, false
	}
}

// Present reports whether the quantity carries a value.
func (q Quantity) Present() bool { return q.present }

// Uint64 returns the value truncated to 64 bits.
func (q Quantity) Uint64() uint64 { return q.val.Uint64() }

// Big returns a copy of the full-width value.
func (q Quantity) Big() *uint256.Int {
	return new(uint256.Int).Set(&q.val)
}

// String returns the original textual form when one exists, else the decimal
// rendering of the value.
func (q Quantity) String() string {
	if !q.present {
		return ""
	}
	if q.text != "" {
		return q.text
	}
	return q.val.Dec()
}

// MarshalJSON re-encodes the quantity in its source form: a bare number when
// it arrived as one, otherwise the original (or decimal) string.
func (q Quantity) MarshalJSON() ([]byte, error) {
	if !q.present {
		return []byte("null"), nil
	}
	if q.num {
		return []byte(q.val.Dec()), nil
	}
	return json.Marshal(q.String())
}

// UnmarshalJSON parses either encoding.
func (q *Quantity) UnmarshalJSON(data []byte) error {
	var v any
	dec := json.NewDecoder(strings.NewReader(string(data)))
	dec.UseNumber()
	if err := dec.Decode(&v); err != nil {
		return err
	}
	if v == nil {
		*q = Quantity{}
		return nil
	}
	parsed, ok := ParseQuantity(v)
	if !ok {
		return fmt.Errorf("invalid quantity %q", string(data))
	}
	*q = parsed
	return nil
}
