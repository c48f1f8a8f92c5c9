package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestSanitizeSite(t *testing.T) {
	testCases := []struct {
		name     string
		input    string
		expected string
	}{
		{"standard http", "http://example.com/path", "example.com"},
		{"standard https", "https://Example.com/path", "example.com"},
		{"no scheme", "example.com/path", "example.com"},
		{"host with port", "example.com:8080", "example.com"},
		{"invalid url", "http://%", "unknown"},
		{"empty string", "", "unknown"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, SanitizeSite(tc.input))
		})
	}
}

func TestObserveCounters(t *testing.T) {
	Init()
	Init()

	pages := pagesTotal.WithLabelValues("www.walkhighlands.co.uk", "ok")
	before := testutil.ToFloat64(pages)
	ObservePage("https://www.walkhighlands.co.uk/munros/ben-nevis", "ok")
	assert.InDelta(t, before+1, testutil.ToFloat64(pages), 1e-9)

	complete := entitiesTotal.WithLabelValues("complete")
	before = testutil.ToFloat64(complete)
	ObserveEntity("complete", 3*time.Second)
	assert.InDelta(t, before+1, testutil.ToFloat64(complete), 1e-9)

	existing := attachmentsTotal.WithLabelValues("existing")
	before = testutil.ToFloat64(existing)
	ObserveAttachment("existing")
	assert.InDelta(t, before+1, testutil.ToFloat64(existing), 1e-9)

	saved := checkpointsTotal.WithLabelValues("ok")
	before = testutil.ToFloat64(saved)
	ObserveCheckpoint("ok")
	assert.InDelta(t, before+1, testutil.ToFloat64(saved), 1e-9)

	before = testutil.ToFloat64(activeWorkers)
	IncActiveWorkers()
	assert.InDelta(t, before+1, testutil.ToFloat64(activeWorkers), 1e-9)
	DecActiveWorkers()
	assert.InDelta(t, before, testutil.ToFloat64(activeWorkers), 1e-9)
}

// Fuzz test for SanitizeSite.
func FuzzSanitizeSite(f *testing.F) {
	testcases := []string{"http://example.com", "https://google.com", "ftp://example.com"}
	for _, tc := range testcases {
		f.Add(tc)
	}
	f.Fuzz(func(t *testing.T, orig string) {
		sanitized := SanitizeSite(orig)
		if sanitized == "" {
			t.Errorf("SanitizeSite(%q) returned an empty string", orig)
		}
	})
}
