package pdf

import (
	"context"
	"sync"

	"github.com/a3tai/mcp-lab-forms/internal/log"
)

// Render is the latest completed render of one page
type Render struct {
	Page       int
	Generation uint64
	Surface    *Surface
	Err        error
}

type pageState struct {
	generation uint64
	cancel     context.CancelFunc
	done       chan struct{}
	closed     bool
	latest     *Render
}

// Scheduler runs page renders asynchronously for one session. Each request for a
// page supersedes the previous one: the older render is cancelled and, should it
// still complete, its result is discarded.
type Scheduler struct {
	bridge Bridge
	doc    *Document

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu    sync.Mutex
	pages map[int]*pageState
}

// NewScheduler creates a scheduler for doc. Cancelling ctx or calling Close stops
// every in-flight render.
func NewScheduler(ctx context.Context, bridge Bridge, doc *Document) *Scheduler {
	ctx, cancel := context.WithCancel(ctx)
	return &Scheduler{
		bridge: bridge,
		doc:    doc,
		ctx:    ctx,
		cancel: cancel,
		pages:  make(map[int]*pageState),
	}
}

// Document returns the document being rendered
func (s *Scheduler) Document() *Document { return s.doc }

// Request starts rendering page at scale and returns the request's generation
func (s *Scheduler) Request(page int, scale float64) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, ok := s.pages[page]
	if !ok {
		st = &pageState{}
		s.pages[page] = st
	}
	if st.cancel != nil {
		st.cancel()
	}
	// wake waiters of the superseded request so they follow this one
	if st.done != nil && !st.closed {
		close(st.done)
	}
	st.generation++
	gen := st.generation
	ctx, cancel := context.WithCancel(s.ctx)
	st.cancel = cancel
	st.done = make(chan struct{})
	st.closed = false

	s.wg.Add(1)
	go s.run(ctx, page, scale, gen)
	return gen
}

func (s *Scheduler) run(ctx context.Context, page int, scale float64, gen uint64) {
	defer s.wg.Done()
	surf, err := s.bridge.RenderPage(ctx, s.doc, page, scale)

	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.pages[page]
	if st == nil || st.generation != gen {
		log.WithFields(log.Fields{"page": page, "generation": gen}).Debug("discarding stale render")
		return
	}
	if err != nil {
		log.WithFields(log.Fields{"page": page, "url": s.doc.URL}).Warnf("render failed: %v", err)
	}
	st.latest = &Render{Page: page, Generation: gen, Surface: surf, Err: err}
	st.cancel()
	st.cancel = nil
	close(st.done)
	st.closed = true
}

// Latest returns the most recent completed render of page, if any
func (s *Scheduler) Latest(page int) (Render, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.pages[page]
	if !ok || st.latest == nil {
		return Render{}, false
	}
	return *st.latest, true
}

// Wait blocks until the newest requested render of page completes and returns it.
// A render superseded while waiting is followed to its replacement.
func (s *Scheduler) Wait(ctx context.Context, page int) (Render, error) {
	for {
		s.mu.Lock()
		st, ok := s.pages[page]
		if !ok {
			s.mu.Unlock()
			return Render{}, renderError(s.doc.URL, page, ErrPageOutOfRange)
		}
		gen, done := st.generation, st.done
		s.mu.Unlock()

		select {
		case <-done:
		case <-ctx.Done():
			return Render{}, ctx.Err()
		case <-s.ctx.Done():
			return Render{}, s.ctx.Err()
		}

		if r, ok := s.Latest(page); ok && r.Generation == gen {
			return r, nil
		}
	}
}

// Render requests page at scale and waits for that request to finish
func (s *Scheduler) Render(ctx context.Context, page int, scale float64) (*Surface, error) {
	s.Request(page, scale)
	r, err := s.Wait(ctx, page)
	if err != nil {
		return nil, err
	}
	return r.Surface, r.Err
}

// Close cancels in-flight renders and waits for their goroutines to exit
func (s *Scheduler) Close() {
	s.cancel()
	s.wg.Wait()
}
