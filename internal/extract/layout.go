package extract

import "fmt"

// Layout names the page landmarks the rules look for.
type Layout struct {
	HeadingSelector     string   `mapstructure:"heading_selector"`
	DetailHeading       string   `mapstructure:"detail_heading"`
	ReadySelector       string   `mapstructure:"ready_selector"`
	DescriptionSelector string   `mapstructure:"description_selector"`
	SummaryHeading      string   `mapstructure:"summary_heading"`
	TerrainHeading      string   `mapstructure:"terrain_heading"`
	TransportHeading    string   `mapstructure:"transport_heading"`
	StartHeading        string   `mapstructure:"start_heading"`
	StartCutMarker      string   `mapstructure:"start_cut_marker"`
	StatsSelector       string   `mapstructure:"stats_selector"`
	GradeSelector       string   `mapstructure:"grade_selector"`
	BogSelector         string   `mapstructure:"bog_selector"`
	AttachmentSelector  string   `mapstructure:"attachment_selector"`
	ConfirmText         string   `mapstructure:"confirm_text"`
	AttachmentExt       string   `mapstructure:"attachment_ext"`
	RangeSeparators     []string `mapstructure:"range_separators"`
	RoundDecimals       int      `mapstructure:"round_decimals"`
}

// DefaultLayout matches the walkhighlands.co.uk route pages.
func DefaultLayout() Layout {
	return Layout{
		HeadingSelector:     "h2",
		DetailHeading:       "Detailed route description and map",
		ReadySelector:       "#walk_desc",
		DescriptionSelector: "#walk_desc .desc p",
		SummaryHeading:      "Summary",
		TerrainHeading:      "Terrain",
		TransportHeading:    "Public Transport",
		StartHeading:        "Start",
		StartCutMarker:      "Open in Google Maps",
		StatsSelector:       "#col dl dt",
		GradeSelector:       ".grade img",
		BogSelector:         ".bog img",
		AttachmentSelector:  "a[href*='download.php']",
		ConfirmText:         "I STILL WANT TO DOWNLOAD",
		AttachmentExt:       ".gpx",
		RangeSeparators:     []string{"-", "–"},
		RoundDecimals:       2,
	}
}

// ConfirmSelector matches candidate links on the download confirmation page.
func (l Layout) ConfirmSelector() string {
	return fmt.Sprintf("a[href$='%s']", l.AttachmentExt)
}

// Validate checks the landmarks the pipeline cannot work without.
func (l Layout) Validate() error {
	if l.HeadingSelector == "" {
		return fmt.Errorf("layout.heading_selector must be set")
	}
	if l.DetailHeading == "" {
		return fmt.Errorf("layout.detail_heading must be set")
	}
	if l.ReadySelector == "" {
		return fmt.Errorf("layout.ready_selector must be set")
	}
	if l.AttachmentExt == "" {
		return fmt.Errorf("layout.attachment_ext must be set")
	}
	if l.RoundDecimals < 0 {
		return fmt.Errorf("layout.round_decimals must be >= 0")
	}
	return nil
}
