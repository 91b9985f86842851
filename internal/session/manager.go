package session

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/a3tai/mcp-lab-forms/internal/form"
	"github.com/a3tai/mcp-lab-forms/internal/log"
	"github.com/a3tai/mcp-lab-forms/internal/overlay"
	"github.com/a3tai/mcp-lab-forms/internal/pdf"
	"github.com/a3tai/mcp-lab-forms/internal/store"
)

type entry struct {
	mu      sync.Mutex
	session *Session
	closed  bool
}

// Manager owns the open sessions. Calls into one session are serialised; different
// sessions proceed independently.
type Manager struct {
	opts   Options
	ctx    context.Context
	cancel context.CancelFunc

	mu       sync.Mutex
	sessions map[string]*entry
	newID    func() string
}

// NewManager creates a manager. Page renders of every session stop when ctx is
// cancelled or CloseAll is called.
func NewManager(ctx context.Context, opts Options) (*Manager, error) {
	if opts.Repository == nil {
		return nil, errors.New("session manager needs a template repository")
	}
	if opts.Source == nil {
		return nil, errors.New("session manager needs a PDF source")
	}
	opts.defaults()
	ctx, cancel := context.WithCancel(ctx)
	return &Manager{
		opts:     opts,
		ctx:      ctx,
		cancel:   cancel,
		sessions: make(map[string]*entry),
		newID:    uuid.NewString,
	}, nil
}

// Repository returns the template repository sessions load from and save to
func (m *Manager) Repository() store.Repository { return m.opts.Repository }

// Source returns the PDF source shared by every session
func (m *Manager) Source() *pdf.Source { return m.opts.Source }

// Inspect fetches the PDF at pdfURL and reads its page geometry
func (m *Manager) Inspect(ctx context.Context, pdfURL string) (*pdf.Document, pdf.Geometry, error) {
	doc, err := m.opts.Source.Fetch(ctx, pdfURL)
	if err != nil {
		return nil, pdf.Geometry{}, err
	}
	geom, err := m.opts.Bridge.Geometry(doc)
	if err != nil {
		return nil, pdf.Geometry{}, err
	}
	return doc, geom, nil
}

// Open loads template id and starts a session on it
func (m *Manager) Open(ctx context.Context, templateID string, mode overlay.Mode) (Info, error) {
	tpl, err := store.Open(ctx, m.opts.Repository, templateID)
	if err != nil {
		return Info{}, err
	}
	return m.start(ctx, tpl, mode)
}

// Create stores a new template and opens an edit session on it
func (m *Manager) Create(ctx context.Context, tpl *form.Template) (Info, error) {
	if err := m.opts.Repository.Create(ctx, tpl); err != nil {
		return Info{}, err
	}
	return m.start(ctx, tpl, overlay.ModeEdit)
}

// Duplicate copies template srcID under newID with fresh field ids. The copy is
// never published.
func (m *Manager) Duplicate(ctx context.Context, srcID, newID, title string) (*form.Template, error) {
	src, err := store.Open(ctx, m.opts.Repository, srcID)
	if err != nil {
		return nil, err
	}
	if title == "" {
		title = src.Title + " (copy)"
	}
	dup := src.Duplicate(newID, title)
	if err := m.opts.Repository.Create(ctx, dup); err != nil {
		return nil, err
	}
	log.WithFields(log.Fields{"source": srcID, "template": newID}).Info("template duplicated")
	return dup, nil
}

func (m *Manager) start(ctx context.Context, tpl *form.Template, mode overlay.Mode) (Info, error) {
	id := m.newID()
	s, err := open(ctx, m.ctx, id, tpl, mode, &m.opts)
	if err != nil {
		return Info{}, err
	}

	m.mu.Lock()
	m.sessions[id] = &entry{session: s}
	m.mu.Unlock()

	log.WithFields(log.Fields{"session": id, "template": tpl.ID, "mode": mode}).Info("session opened")
	return s.Info(), nil
}

func (m *Manager) lookup(id string) (*entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.sessions[id]
	if !ok {
		return nil, errors.Wrapf(ErrNotFound, "%s", id)
	}
	return e, nil
}

// Do runs fn with exclusive access to session id
func (m *Manager) Do(id string, fn func(s *Session) error) error {
	e, err := m.lookup(id)
	if err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return errors.Wrapf(ErrNotFound, "%s", id)
	}
	return fn(e.session)
}

// Close ends session id and cancels its page renders. Unsaved edits are discarded.
func (m *Manager) Close(id string) (Info, error) {
	m.mu.Lock()
	e, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()
	if !ok {
		return Info{}, errors.Wrapf(ErrNotFound, "%s", id)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	info := e.session.Info()
	e.closed = true
	e.session.close()
	if info.Dirty {
		log.WithFields(log.Fields{"session": id, "template": info.TemplateID}).Warn("session closed with unsaved changes")
	}
	return info, nil
}

// List returns every open session, oldest first
func (m *Manager) List() []Info {
	m.mu.Lock()
	entries := make([]*entry, 0, len(m.sessions))
	for _, e := range m.sessions {
		entries = append(entries, e)
	}
	m.mu.Unlock()

	out := make([]Info, 0, len(entries))
	for _, e := range entries {
		e.mu.Lock()
		if !e.closed {
			out = append(out, e.session.Info())
		}
		e.mu.Unlock()
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].OpenedAt.Equal(out[j].OpenedAt) {
			return out[i].SessionID < out[j].SessionID
		}
		return out[i].OpenedAt.Before(out[j].OpenedAt)
	})
	return out
}

// CloseAll ends every session
func (m *Manager) CloseAll() {
	m.mu.Lock()
	ids := make([]string, 0, len(m.sessions))
	for id := range m.sessions {
		ids = append(ids, id)
	}
	m.mu.Unlock()

	for _, id := range ids {
		_, _ = m.Close(id)
	}
	m.cancel()
}
