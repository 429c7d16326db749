// Package optval provides an explicit optional float64 used for filing
// fields and score components. Absence propagates through arithmetic so
// callers never see NaN sentinels or accidental zeros.
package optval

import (
	"math"
	"strconv"
	"strings"
)

// Float is a float64 that may be absent.
type Float struct {
	val float64
	ok  bool
}

// Of returns a present Float. NaN and infinities collapse to absent.
func Of(v float64) Float {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return Float{}
	}
	return Float{val: v, ok: true}
}

// Absent returns the absent Float.
func Absent() Float { return Float{} }

// Valid reports whether the value is present.
func (f Float) Valid() bool { return f.ok }

// Value returns the underlying float64; zero when absent.
func (f Float) Value() float64 { return f.val }

// Get returns the value and whether it is present.
func (f Float) Get() (float64, bool) { return f.val, f.ok }

// Or returns the value, or def when absent.
func (f Float) Or(def float64) float64 {
	if !f.ok {
		return def
	}
	return f.val
}

// Ptr returns a *float64 suitable for nullable database columns.
func (f Float) Ptr() *float64 {
	if !f.ok {
		return nil
	}
	v := f.val
	return &v
}

// FromPtr converts a nullable pointer back into a Float.
func FromPtr(p *float64) Float {
	if p == nil {
		return Float{}
	}
	return Of(*p)
}

// Add returns f+g, absent if either side is absent.
func (f Float) Add(g Float) Float {
	if !f.ok || !g.ok {
		return Float{}
	}
	return Of(f.val + g.val)
}

// Sub returns f-g, absent if either side is absent.
func (f Float) Sub(g Float) Float {
	if !f.ok || !g.ok {
		return Float{}
	}
	return Of(f.val - g.val)
}

// Mul returns f*g, absent if either side is absent.
func (f Float) Mul(g Float) Float {
	if !f.ok || !g.ok {
		return Float{}
	}
	return Of(f.val * g.val)
}

// Div returns f/g. Absent if either side is absent or the denominator is
// zero.
func (f Float) Div(g Float) Float {
	if !f.ok || !g.ok || g.val == 0 {
		return Float{}
	}
	return Of(f.val / g.val)
}

// Scale returns f*k, absent if f is absent.
func (f Float) Scale(k float64) Float {
	if !f.ok {
		return Float{}
	}
	return Of(f.val * k)
}

// Abs returns |f|, absent if f is absent.
func (f Float) Abs() Float {
	if !f.ok {
		return Float{}
	}
	return Of(math.Abs(f.val))
}

// Round returns f rounded to n decimal places, absent if f is absent.
func (f Float) Round(n int) Float {
	if !f.ok {
		return Float{}
	}
	p := math.Pow(10, float64(n))
	return Of(math.Round(f.val*p) / p)
}

// Sum adds the present values, treating absent operands as zero. It
// returns absent only when every operand is absent.
func Sum(vals ...Float) Float {
	any := false
	total := 0.0
	for _, v := range vals {
		if v.ok {
			any = true
			total += v.val
		}
	}
	if !any {
		return Float{}
	}
	return Of(total)
}

// Parse converts a CSV cell into a Float. Empty cells and the sentinel
// strings government extracts use for missing data come back absent;
// anything else unparseable is also absent, never zero.
func Parse(s string) Float {
	s = strings.TrimSpace(s)
	switch s {
	case "", ".", "-", "NA", "N/A", "NULL", "null", "nan", "NaN":
		return Float{}
	}
	s = strings.ReplaceAll(s, ",", "")
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return Float{}
	}
	return Of(v)
}

// String formats the value with strconv, or "" when absent. Used for CSV
// export.
func (f Float) String() string {
	if !f.ok {
		return ""
	}
	return strconv.FormatFloat(f.val, 'f', -1, 64)
}

// MarshalJSON encodes the value as a number, or null when absent.
func (f Float) MarshalJSON() ([]byte, error) {
	if !f.ok {
		return []byte("null"), nil
	}
	return []byte(strconv.FormatFloat(f.val, 'f', -1, 64)), nil
}

// UnmarshalJSON accepts a number or null.
func (f *Float) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	if s == "null" {
		*f = Float{}
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return err
	}
	*f = Of(v)
	return nil
}
