package store

import (
	"context"
	"fmt"

	"github.com/pkg/errors"

	"github.com/a3tai/mcp-lab-forms/internal/form"
)

// ErrTemplateNotFound is returned when no document exists for a template id
var ErrTemplateNotFound = errors.New("template not found")

// BoundaryError reports a failed load or save for one template
type BoundaryError struct {
	Op         string
	TemplateID string
	Err        error
}

func (e *BoundaryError) Error() string {
	return fmt.Sprintf("%s template %s: %v", e.Op, e.TemplateID, e.Err)
}

func (e *BoundaryError) Unwrap() error { return e.Err }

func boundaryError(op, id string, err error) error {
	if err == nil {
		return nil
	}
	var be *BoundaryError
	if errors.As(err, &be) {
		return err
	}
	return &BoundaryError{Op: op, TemplateID: id, Err: err}
}

// Repository loads and saves templates. Concurrent saves of the same template are
// last writer wins.
type Repository interface {
	Load(ctx context.Context, id string) (*form.Template, error)
	Save(ctx context.Context, id string, req SaveRequest) error
	// Create stores a new template document, replacing any existing one
	Create(ctx context.Context, t *form.Template) error
}

// Open loads a template and checks that it carries the requested id
func Open(ctx context.Context, repo Repository, id string) (*form.Template, error) {
	if !ValidDocumentID(id) {
		return nil, boundaryError("load", id, errors.Wrapf(ErrInvalidDocument, "bad template id %q", id))
	}
	return repo.Load(ctx, id)
}

// SaveTemplate writes the title, fields and publish flag of t
func SaveTemplate(ctx context.Context, repo Repository, t *form.Template) error {
	return repo.Save(ctx, t.ID, NewSaveRequest(t))
}
