package extract

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/JakeFAU/munro-enricher/internal/route"
)

// ParseDistance reads a kilometre figure such as "12.5km / 7.75 miles".
// Text without a km unit yields an absent measure; unparseable text is kept raw.
func ParseDistance(text string) (route.Measure, error) {
	text = strings.TrimSpace(text)
	idx := strings.Index(text, "km")
	if idx < 0 {
		return route.Measure{}, fmt.Errorf("distance %q has no km unit: %w", text, ErrNotFound)
	}
	v, err := parseFinite(strings.TrimSpace(text[:idx]))
	if err != nil {
		return route.Raw(text), fmt.Errorf("distance %q: %w", text, ErrMalformed)
	}
	return route.Value(v), nil
}

// ParseDuration reads an hour figure given either as a single number
// ("3.5 hours") or as a low-high range ("3 - 5 hours"), in which case the
// mean is returned rounded to decimals places. Unparseable text is kept raw.
func ParseDuration(text string, separators []string, decimals int) (route.Measure, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return route.Measure{}, fmt.Errorf("duration: %w", ErrNotFound)
	}
	for _, sep := range separators {
		if sep == "" || !strings.Contains(text, sep) {
			continue
		}
		parts := strings.SplitN(text, sep, 2)
		lo, errLo := leadingNumber(parts[0])
		hi, errHi := leadingNumber(parts[1])
		if errLo != nil || errHi != nil {
			return route.Raw(text), fmt.Errorf("duration range %q: %w", text, ErrMalformed)
		}
		return route.Value(roundTo((lo+hi)/2, decimals)), nil
	}
	v, err := leadingNumber(text)
	if err != nil {
		return route.Raw(text), fmt.Errorf("duration %q: %w", text, ErrMalformed)
	}
	return route.Value(v), nil
}

func leadingNumber(s string) (float64, error) {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return 0, ErrMalformed
	}
	return parseFinite(fields[0])
}

// parseFinite rejects NaN and infinities, which strconv accepts but JSON
// cannot encode.
func parseFinite(s string) (float64, error) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, ErrMalformed
	}
	return v, nil
}

func roundTo(v float64, decimals int) float64 {
	if decimals < 0 {
		return v
	}
	p := math.Pow(10, float64(decimals))
	return math.Round(v*p) / p
}
