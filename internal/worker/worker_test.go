package worker

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/JakeFAU/munro-enricher/internal/route"
)

type fakeSession struct {
	closed bool
}

func (s *fakeSession) Navigate(context.Context, route.NavigateRequest) (route.PageView, error) {
	return nil, errors.New("not used")
}

func (s *fakeSession) Close() error {
	s.closed = true
	return nil
}

type fakeFactory struct {
	mu       sync.Mutex
	failures int
	created  []*fakeSession
}

func (f *fakeFactory) NewSession(context.Context) (route.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failures > 0 {
		f.failures--
		return nil, errors.New("chrome did not start")
	}
	s := &fakeSession{}
	f.created = append(f.created, s)
	return s, nil
}

type recordingProcessor struct {
	sessions []route.Session
}

func (p *recordingProcessor) Process(_ context.Context, session route.Session, entity route.Entity) route.Record {
	p.sessions = append(p.sessions, session)
	rec := route.NewRecord(entity)
	if session != nil {
		rec.Description = "enriched"
	}
	return rec
}

func feed(entities ...route.Entity) <-chan route.Entity {
	jobs := make(chan route.Entity, len(entities))
	for _, e := range entities {
		jobs <- e
	}
	close(jobs)
	return jobs
}

func TestWorkerReusesOneSession(t *testing.T) {
	t.Parallel()

	factory := &fakeFactory{}
	proc := &recordingProcessor{}
	w := New(1, factory, proc, zap.NewNop())
	results := make(chan route.Record, 3)

	w.Run(context.Background(), feed(
		route.Entity{Name: "a", URL: "https://x/a"},
		route.Entity{Name: "b", URL: "https://x/b"},
		route.Entity{Name: "c", URL: "https://x/c"},
	), results)
	close(results)

	var got []route.Record
	for rec := range results {
		got = append(got, rec)
	}
	require.Len(t, got, 3)
	require.Len(t, factory.created, 1)
	assert.True(t, factory.created[0].closed)
	for _, s := range proc.sessions {
		assert.Same(t, factory.created[0], s)
	}
}

func TestWorkerRetriesFailedSessionStart(t *testing.T) {
	t.Parallel()

	factory := &fakeFactory{failures: 1}
	proc := &recordingProcessor{}
	w := New(2, factory, proc, nil)
	results := make(chan route.Record, 2)

	w.Run(context.Background(), feed(
		route.Entity{Name: "a", URL: "https://x/a"},
		route.Entity{Name: "b", URL: "https://x/b"},
	), results)
	close(results)

	first := <-results
	second := <-results
	assert.False(t, first.Complete(), "no session yields the default record")
	assert.True(t, second.Complete())
	require.Len(t, factory.created, 1)
	assert.True(t, factory.created[0].closed)
}

func TestWorkerFinishesTakenEntitiesAfterCancel(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	proc := &ctxProcessor{}
	w := New(3, &fakeFactory{}, proc, nil)
	results := make(chan route.Record, 1)
	w.Run(ctx, feed(route.Entity{Name: "a", URL: "https://x/a"}), results)

	rec := <-results
	assert.Equal(t, "https://x/a", rec.URL)
	assert.NoError(t, proc.seen)
}

type ctxProcessor struct {
	seen error
}

func (p *ctxProcessor) Process(ctx context.Context, _ route.Session, entity route.Entity) route.Record {
	p.seen = ctx.Err()
	return route.NewRecord(entity)
}
