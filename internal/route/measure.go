package route

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Measure is a numeric page field that may be absent or, when the page text
// could not be parsed, carry the raw text instead.
type Measure struct {
	value float64
	raw   string
	set   bool
}

// Value returns a parsed measure. NaN and infinities are kept as raw text
// since JSON has no encoding for them.
func Value(v float64) Measure {
	if !finite(v) {
		return Measure{raw: strconv.FormatFloat(v, 'f', -1, 64)}
	}
	return Measure{value: v, set: true}
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// Raw returns a measure that keeps unparseable page text.
func Raw(text string) Measure {
	if text == "" {
		return Measure{}
	}
	return Measure{raw: text}
}

// Float returns the parsed value, if any.
func (m Measure) Float() (float64, bool) {
	return m.value, m.set
}

// Text returns the raw fallback text, if any.
func (m Measure) Text() (string, bool) {
	return m.raw, m.raw != ""
}

// IsAbsent reports whether the measure carries neither a value nor raw text.
func (m Measure) IsAbsent() bool {
	return !m.set && m.raw == ""
}

func (m Measure) String() string {
	switch {
	case m.set:
		return strconv.FormatFloat(m.value, 'f', -1, 64)
	case m.raw != "":
		return m.raw
	default:
		return ""
	}
}

// MarshalJSON writes a number, the raw string, or null.
func (m Measure) MarshalJSON() ([]byte, error) {
	switch {
	case m.set && finite(m.value):
		return json.Marshal(m.value)
	case m.set:
		return json.Marshal(strconv.FormatFloat(m.value, 'f', -1, 64))
	case m.raw != "":
		return json.Marshal(m.raw)
	default:
		return []byte("null"), nil
	}
}

// UnmarshalJSON accepts a number, a string, or null. The empty string is the
// absent marker older datasets used.
func (m *Measure) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*m = Measure{}
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return fmt.Errorf("decode measure text: %w", err)
		}
		s = strings.TrimSpace(s)
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			*m = Value(f)
			return nil
		}
		*m = Raw(s)
		return nil
	}
	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("decode measure value: %w", err)
	}
	*m = Value(f)
	return nil
}

// Ptr returns the parsed value as a pointer, nil when absent or raw. Database
// drivers map nil to NULL.
func (m Measure) Ptr() *float64 {
	if !m.set {
		return nil
	}
	v := m.value
	return &v
}
