package pdf

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/a3tai/mcp-lab-forms/internal/form"
)

// gatedBridge blocks each render until its scale is released
type gatedBridge struct {
	mu    sync.Mutex
	gates map[float64]chan struct{}
	calls int
}

func newGatedBridge() *gatedBridge {
	return &gatedBridge{gates: make(map[float64]chan struct{})}
}

func (b *gatedBridge) gate(scale float64) chan struct{} {
	b.mu.Lock()
	defer b.mu.Unlock()
	g, ok := b.gates[scale]
	if !ok {
		g = make(chan struct{})
		b.gates[scale] = g
	}
	return g
}

func (b *gatedBridge) release(scale float64) { close(b.gate(scale)) }

func (b *gatedBridge) Geometry(*Document) (Geometry, error) {
	return Geometry{PageCount: 2, Pages: []form.Size{LetterSize, LetterSize}}, nil
}

func (b *gatedBridge) RenderPage(_ context.Context, _ *Document, page int, scale float64) (*Surface, error) {
	b.mu.Lock()
	b.calls++
	b.mu.Unlock()
	<-b.gate(scale)
	if scale < 0 {
		return nil, renderError("mem://doc", page, errors.New("boom"))
	}
	return &Surface{Page: page, Scale: scale, Size: LetterSize}, nil
}

func TestScheduler_DiscardsStaleRender(t *testing.T) {
	bridge := newGatedBridge()
	s := NewScheduler(context.Background(), bridge, NewDocument("mem://doc", nil))
	defer s.Close()

	first := s.Request(1, 1.0)
	second := s.Request(1, 2.0)
	assert.Equal(t, first+1, second)

	bridge.release(2.0)
	r, err := s.Wait(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, second, r.Generation)
	assert.Equal(t, 2.0, r.Surface.Scale)

	// the older render finishes late and must not replace the newer one
	bridge.release(1.0)
	require.Eventually(t, func() bool {
		bridge.mu.Lock()
		defer bridge.mu.Unlock()
		return bridge.calls == 2
	}, time.Second, 5*time.Millisecond)
	time.Sleep(20 * time.Millisecond)

	latest, ok := s.Latest(1)
	require.True(t, ok)
	assert.Equal(t, 2.0, latest.Surface.Scale)
}

func TestScheduler_WaitFollowsSupersedingRequest(t *testing.T) {
	bridge := newGatedBridge()
	s := NewScheduler(context.Background(), bridge, NewDocument("mem://doc", nil))
	defer s.Close()

	s.Request(1, 1.0)
	result := make(chan Render, 1)
	go func() {
		r, _ := s.Wait(context.Background(), 1)
		result <- r
	}()

	s.Request(1, 1.5)
	bridge.release(1.0)
	bridge.release(1.5)

	select {
	case r := <-result:
		assert.Equal(t, 1.5, r.Surface.Scale)
	case <-time.After(2 * time.Second):
		t.Fatal("wait did not return")
	}
}

func TestScheduler_PagesAreIndependent(t *testing.T) {
	bridge := newGatedBridge()
	s := NewScheduler(context.Background(), bridge, NewDocument("mem://doc", nil))
	defer s.Close()

	bridge.release(1.0)
	surf1, err := s.Render(context.Background(), 1, 1.0)
	require.NoError(t, err)
	surf2, err := s.Render(context.Background(), 2, 1.0)
	require.NoError(t, err)
	assert.Equal(t, 1, surf1.Page)
	assert.Equal(t, 2, surf2.Page)
}

func TestScheduler_RenderErrorIsPerPage(t *testing.T) {
	bridge := newGatedBridge()
	s := NewScheduler(context.Background(), bridge, NewDocument("mem://doc", nil))
	defer s.Close()

	bridge.release(-1)
	_, err := s.Render(context.Background(), 1, -1)
	assert.True(t, errors.Is(err, ErrRenderFailed))

	bridge.release(1.0)
	_, err = s.Render(context.Background(), 2, 1.0)
	assert.NoError(t, err)
}

func TestScheduler_WaitUnknownPage(t *testing.T) {
	s := NewScheduler(context.Background(), newGatedBridge(), NewDocument("mem://doc", nil))
	defer s.Close()

	_, err := s.Wait(context.Background(), 7)
	assert.True(t, errors.Is(err, ErrPageOutOfRange))
}

func TestScheduler_WaitHonoursContext(t *testing.T) {
	bridge := newGatedBridge()
	s := NewScheduler(context.Background(), bridge, NewDocument("mem://doc", nil))

	s.Request(1, 1.0)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := s.Wait(ctx, 1)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	bridge.release(1.0)
	s.Close()
}
