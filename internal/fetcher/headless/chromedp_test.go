package headless

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/munro-enricher/internal/route"
)

func TestNewFactoryDefaults(t *testing.T) {
	t.Parallel()

	f := NewFactory(Config{UserAgent: "test-agent"}, nil, nil)
	defer f.Close()

	assert.Equal(t, defaultNavigationTimeout, f.cfg.NavigationTimeout)
	assert.NotNil(t, f.logger)
	assert.NotNil(t, f.allocator)
}

func TestClassifyWait(t *testing.T) {
	t.Parallel()

	req := route.NavigateRequest{URL: "https://example.com/r", WaitSelector: "#walk_desc", WaitTimeout: time.Second}

	assert.NoError(t, classifyWait(req, nil, nil))

	err := classifyWait(req, errors.New("chromedp: context deadline"), context.DeadlineExceeded)
	require.Error(t, err)
	assert.ErrorIs(t, err, route.ErrNotReady)

	err = classifyWait(req, errors.New("target closed"), nil)
	require.Error(t, err)
	assert.False(t, errors.Is(err, route.ErrNotReady))
	assert.Contains(t, err.Error(), "target closed")
}

func TestForwardCancel(t *testing.T) {
	t.Parallel()

	parent, cancelParent := context.WithCancel(context.Background())
	child, cancelChild := context.WithCancel(context.Background())
	defer cancelChild()

	stop := forwardCancel(parent, cancelChild)
	defer stop()
	cancelParent()

	select {
	case <-child.Done():
	case <-time.After(time.Second):
		t.Fatal("parent cancellation was not forwarded")
	}
}

func TestForwardCancelStop(t *testing.T) {
	t.Parallel()

	parent, cancelParent := context.WithCancel(context.Background())
	child, cancelChild := context.WithCancel(context.Background())
	defer cancelChild()

	stop := forwardCancel(parent, cancelChild)
	stop()
	cancelParent()

	time.Sleep(20 * time.Millisecond)
	assert.NoError(t, child.Err())
}
