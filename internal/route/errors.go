package route

import "errors"

var (
	// ErrNotReady indicates a page never showed its readiness marker in time.
	ErrNotReady = errors.New("page not ready")
	// ErrNoDetailLink indicates the entity page carries no link to a route page.
	ErrNoDetailLink = errors.New("no detail link")
	// ErrEmptyPage indicates a fetch returned no document body.
	ErrEmptyPage = errors.New("empty page")
)
