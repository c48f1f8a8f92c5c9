package route

import "time"

// Entity is one input item to enrich.
type Entity struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

// Details holds every extracted field. The zero value is the all-default
// outcome used when extraction fails.
type Details struct {
	Title           string  `json:"title"`
	Summary         string  `json:"summary"`
	Description     string  `json:"description"`
	Terrain         string  `json:"terrain"`
	PublicTransport string  `json:"public_transport"`
	Start           string  `json:"start"`
	DistanceKm      Measure `json:"distance"`
	DurationHours   Measure `json:"time"`
	Grade           int     `json:"grade"`
	BogFactor       int     `json:"bog"`
	AttachmentPath  string  `json:"gpx_file"`
}

// Record is the output unit for one Entity, keyed by Entity.URL.
type Record struct {
	Entity
	Details
}

// NewRecord returns the all-default record for entity.
func NewRecord(entity Entity) Record {
	return Record{Entity: entity}
}

// Complete reports whether the record needs no further processing.
func (r Record) Complete() bool {
	return r.Description != ""
}

// NavigateRequest describes a single page load.
type NavigateRequest struct {
	URL string
	// WaitSelector, when set, must match before the page is returned.
	WaitSelector string
	// WaitTimeout bounds the wait for WaitSelector.
	WaitTimeout time.Duration
}
