// Package extract pulls route fields out of a fetched page. Every field has
// its own rule; rules run independently so one missing section never costs the
// others, and failures are reported as FieldErrors rather than dropped.
package extract
