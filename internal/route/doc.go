// Package route defines the core types and interfaces shared by the enrichment
// pipeline: the input entities, the total output records, and the page and
// session abstractions the extractors and fetchers meet at.
package route
