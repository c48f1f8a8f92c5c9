package extract

import (
	"errors"
	"fmt"
	"strings"

	"github.com/JakeFAU/munro-enricher/internal/route"
)

type rule struct {
	field string
	apply func(route.PageView, Layout, *route.Details) error
}

var rules = []rule{
	{field: "title", apply: extractTitle},
	{field: "summary", apply: sectionRule(func(l Layout) string { return l.SummaryHeading },
		func(d *route.Details, v string) { d.Summary = v })},
	{field: "description", apply: extractDescription},
	{field: "terrain", apply: sectionRule(func(l Layout) string { return l.TerrainHeading },
		func(d *route.Details, v string) { d.Terrain = v })},
	{field: "public_transport", apply: sectionRule(func(l Layout) string { return l.TransportHeading },
		func(d *route.Details, v string) { d.PublicTransport = v })},
	{field: "start", apply: extractStart},
	{field: "distance", apply: extractDistance},
	{field: "time", apply: extractDuration},
	{field: "grade", apply: extractGrade},
	{field: "bog", apply: extractBog},
}

// Extract runs every field rule against page. The returned Details always
// carries every field, defaulted where a rule failed; the error joins one
// *FieldError per failed rule.
func Extract(page route.PageView, layout Layout) (route.Details, error) {
	var (
		details route.Details
		errs    []error
	)
	for _, r := range rules {
		if err := runRule(r, page, layout, &details); err != nil {
			errs = append(errs, err)
		}
	}
	return details, errors.Join(errs...)
}

func runRule(r rule, page route.PageView, layout Layout, details *route.Details) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = &FieldError{Field: r.field, Err: fmt.Errorf("panic: %v", rec)}
		}
	}()
	if applyErr := r.apply(page, layout, details); applyErr != nil {
		return &FieldError{Field: r.field, Err: applyErr}
	}
	return nil
}

func extractTitle(page route.PageView, _ Layout, d *route.Details) error {
	title := strings.TrimSpace(page.Title())
	if title == "" {
		return ErrNotFound
	}
	d.Title = title
	return nil
}

func extractDescription(page route.PageView, l Layout, d *route.Details) error {
	var parts []string
	for _, p := range page.Find(l.DescriptionSelector) {
		if text := p.Text(); text != "" {
			parts = append(parts, text)
		}
	}
	if len(parts) == 0 {
		return ErrNotFound
	}
	d.Description = strings.Join(parts, "\n\n")
	return nil
}

func extractStart(page route.PageView, l Layout, d *route.Details) error {
	text, err := SectionText(page, l, l.StartHeading)
	if err != nil {
		return err
	}
	if l.StartCutMarker != "" {
		text, _, _ = strings.Cut(text, l.StartCutMarker)
	}
	d.Start = strings.TrimSuffix(strings.TrimSpace(text), ".")
	return nil
}

func extractDistance(page route.PageView, l Layout, d *route.Details) error {
	value, ok := statValue(page, l, func(label, value string) bool {
		return strings.Contains(label, "distance") && strings.Contains(value, "km")
	})
	if !ok {
		return ErrNotFound
	}
	m, err := ParseDistance(value)
	d.DistanceKm = m
	return err
}

func extractDuration(page route.PageView, l Layout, d *route.Details) error {
	value, ok := statValue(page, l, func(label, _ string) bool {
		return strings.Contains(label, "time")
	})
	if !ok {
		return ErrNotFound
	}
	m, err := ParseDuration(value, l.RangeSeparators, l.RoundDecimals)
	d.DurationHours = m
	return err
}

func extractGrade(page route.PageView, l Layout, d *route.Details) error {
	d.Grade = len(page.Find(l.GradeSelector))
	return nil
}

func extractBog(page route.PageView, l Layout, d *route.Details) error {
	d.BogFactor = len(page.Find(l.BogSelector))
	return nil
}

func sectionRule(heading func(Layout) string, set func(*route.Details, string)) func(route.PageView, Layout, *route.Details) error {
	return func(page route.PageView, l Layout, d *route.Details) error {
		text, err := SectionText(page, l, heading(l))
		if err != nil {
			return err
		}
		set(d, text)
		return nil
	}
}

// SectionText returns the first paragraph following the heading whose text
// equals title.
func SectionText(page route.PageView, l Layout, title string) (string, error) {
	for _, h := range page.Find(l.HeadingSelector) {
		if h.Text() != title {
			continue
		}
		p, ok := h.NextSibling("p")
		if !ok {
			return "", fmt.Errorf("%q has no paragraph: %w", title, ErrNotFound)
		}
		if text := p.Text(); text != "" {
			return text, nil
		}
		return "", fmt.Errorf("%q paragraph is empty: %w", title, ErrNotFound)
	}
	return "", fmt.Errorf("heading %q: %w", title, ErrNotFound)
}

// statValue scans the label/value pairs of the stats block and returns the
// first value whose lowercased label and value satisfy match.
func statValue(page route.PageView, l Layout, match func(label, value string) bool) (string, bool) {
	for _, dt := range page.Find(l.StatsSelector) {
		label := strings.ToLower(dt.Text())
		value := ""
		if dd, ok := dt.NextSibling("dd"); ok {
			value = dd.Text()
		}
		if match(label, value) {
			return value, true
		}
	}
	return "", false
}
