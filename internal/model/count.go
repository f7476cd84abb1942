package model

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
)

// Count is an optional non-negative integer as sent by the reconciliation
// service. The zero value is absent.
type Count struct {
	n     int
	valid bool
}

// CountOf returns a present Count holding n.
func CountOf(n int) Count {
	return Count{n: n, valid: true}
}

// NoCount returns an absent Count.
func NoCount() Count {
	return Count{}
}

// Value returns the count and whether it is present.
func (c Count) Value() (int, bool) {
	return c.n, c.valid
}

// Int returns the count, or 0 when absent.
func (c Count) Int() int {
	if !c.valid {
		return 0
	}
	return c.n
}

// Present reports whether the count carries a value.
func (c Count) Present() bool {
	return c.valid
}

// String returns the raw decimal value, or "" when absent.
func (c Count) String() string {
	if !c.valid {
		return ""
	}
	return strconv.Itoa(c.n)
}

// MarshalJSON encodes absent as null.
func (c Count) MarshalJSON() ([]byte, error) {
	if !c.valid {
		return []byte("null"), nil
	}
	return []byte(strconv.Itoa(c.n)), nil
}

// UnmarshalJSON accepts integers, integral floats, numeric strings, null,
// "" and "-".
func (c *Count) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*c = Count{}
		return nil
	}

	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return eris.Wrap(err, "count: decode string")
		}
		return c.parse(s)
	}

	return c.parse(string(data))
}

// MarshalYAML mirrors the JSON form.
func (c Count) MarshalYAML() (any, error) {
	if !c.valid {
		return nil, nil
	}
	return c.n, nil
}

func (c *Count) parse(s string) error {
	s = strings.TrimSpace(s)
	if s == "" || s == "-" {
		*c = Count{}
		return nil
	}

	if n, err := strconv.Atoi(s); err == nil {
		return c.set(n)
	}

	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return eris.Errorf("count: invalid value %q", s)
	}
	if math.IsNaN(f) {
		// pandas serializes missing cells as NaN
		*c = Count{}
		return nil
	}
	if f != math.Trunc(f) || math.IsInf(f, 0) {
		return eris.Errorf("count: non-integral value %q", s)
	}
	if f >= math.MaxInt {
		return eris.Errorf("count: value %q overflows int", s)
	}
	return c.set(int(f))
}

func (c *Count) set(n int) error {
	if n < 0 {
		return eris.Errorf("count: negative value %d", n)
	}
	*c = Count{n: n, valid: true}
	return nil
}
