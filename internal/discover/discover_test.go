package discover

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/munro-enricher/internal/page"
	"github.com/JakeFAU/munro-enricher/internal/route"
)

const indexHTML = `<html><body>
<table id="arealist"><tbody>
  <tr><td><a href="/munros/ben-nevis">Ben Nevis</a></td></tr>
  <tr><td><a href="https://www.walkhighlands.co.uk/munros/ben-macdui?ref=az">Ben Macdui</a></td></tr>
  <tr><td><a href="/munros/">  </a></td></tr>
</tbody></table>
<table id="areamap"><tbody>
  <tr><td><a href="ben-nevis">Ben Nevis</a></td></tr>
  <tr><td><a href="/munros/schiehallion">Schiehallion</a></td></tr>
</tbody></table>
<a href="/munros/not-in-table">Elsewhere</a>
</body></html>`

type stubSession struct {
	req route.NavigateRequest
	err error
}

func (s *stubSession) Navigate(_ context.Context, req route.NavigateRequest) (route.PageView, error) {
	s.req = req
	if s.err != nil {
		return nil, s.err
	}
	return page.Parse(req.URL, []byte(indexHTML))
}

func (s *stubSession) Close() error { return nil }

type stubFactory struct{ session *stubSession }

func (f stubFactory) NewSession(context.Context) (route.Session, error) { return f.session, nil }

func TestRunBuildsDedupedEntities(t *testing.T) {
	t.Parallel()

	session := &stubSession{}
	entities, err := New(stubFactory{session}, DefaultConfig(), nil).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []route.Entity{
		{Name: "Ben Nevis", URL: "https://www.walkhighlands.co.uk/munros/ben-nevis"},
		{Name: "Ben Macdui", URL: "https://www.walkhighlands.co.uk/munros/ben-macdui"},
		{Name: "Schiehallion", URL: "https://www.walkhighlands.co.uk/munros/schiehallion"},
	}, entities)
	assert.Equal(t, DefaultConfig().LinkSelector, session.req.WaitSelector)
}

func TestRunPropagatesFetchErrors(t *testing.T) {
	t.Parallel()

	session := &stubSession{err: route.ErrNotReady}
	_, err := New(stubFactory{session}, DefaultConfig(), nil).Run(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, route.ErrNotReady))
}
