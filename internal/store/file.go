package store

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"github.com/pkg/errors"

	"github.com/a3tai/mcp-lab-forms/internal/form"
	"github.com/a3tai/mcp-lab-forms/internal/log"
	"github.com/a3tai/mcp-lab-forms/internal/pdf/security"
)

const templatesDir = "templates"

// FileRepository keeps one JSON document per template under a data directory
type FileRepository struct {
	mu    sync.Mutex
	paths *security.PathValidator
}

// NewFileRepository stores documents in dir/templates, creating it if needed
func NewFileRepository(dir string) (*FileRepository, error) {
	paths, err := security.NewPathValidator(filepath.Join(dir, templatesDir))
	if err != nil {
		return nil, errors.Wrap(err, "template directory")
	}
	if err := paths.EnsureDir(); err != nil {
		return nil, errors.Wrap(err, "template directory")
	}
	return &FileRepository{paths: paths}, nil
}

// Dir returns the directory documents are written to
func (r *FileRepository) Dir() string {
	return r.paths.Dir()
}

func (r *FileRepository) path(id string) (string, error) {
	if !ValidDocumentID(id) {
		return "", errors.Wrapf(ErrInvalidDocument, "bad template id %q", id)
	}
	return r.paths.Resolve(id + ".json")
}

func (r *FileRepository) read(id string) (WireTemplate, error) {
	var w WireTemplate
	path, err := r.path(id)
	if err != nil {
		return w, err
	}
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return w, ErrTemplateNotFound
	}
	if err != nil {
		return w, errors.Wrap(err, "read document")
	}
	if err := json.Unmarshal(data, &w); err != nil {
		return w, invalidDocument(err)
	}
	return w, nil
}

func (r *FileRepository) write(id string, w WireTemplate) error {
	path, err := r.path(id)
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(w, "", "  ")
	if err != nil {
		return errors.Wrap(err, "encode document")
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+id+".*.tmp")
	if err != nil {
		return errors.Wrap(err, "write document")
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return errors.Wrap(err, "write document")
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrap(err, "write document")
	}
	return errors.Wrap(os.Rename(tmp.Name(), path), "write document")
}

func (r *FileRepository) Load(ctx context.Context, id string) (*form.Template, error) {
	if err := ctx.Err(); err != nil {
		return nil, boundaryError("load", id, err)
	}
	r.mu.Lock()
	w, err := r.read(id)
	r.mu.Unlock()
	if err != nil {
		return nil, boundaryError("load", id, err)
	}
	t, err := FromWire(id, w)
	return t, boundaryError("load", id, err)
}

func (r *FileRepository) Save(ctx context.Context, id string, req SaveRequest) error {
	if err := ctx.Err(); err != nil {
		return boundaryError("save", id, err)
	}
	if err := validateStruct(req); err != nil {
		return boundaryError("save", id, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	w, err := r.read(id)
	if err != nil {
		return boundaryError("save", id, err)
	}
	req.Apply(&w)
	if _, err := FromWire(id, w); err != nil {
		return boundaryError("save", id, err)
	}
	if err := r.write(id, w); err != nil {
		return boundaryError("save", id, err)
	}
	log.WithFields(log.Fields{"template": id, "fields": len(w.Fields)}).Debug("template saved")
	return nil
}

func (r *FileRepository) Create(ctx context.Context, t *form.Template) error {
	if err := ctx.Err(); err != nil {
		return boundaryError("create", t.ID, err)
	}
	w := ToWire(t)
	if _, err := FromWire(t.ID, w); err != nil {
		return boundaryError("create", t.ID, err)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return boundaryError("create", t.ID, r.write(t.ID, w))
}

// List returns the ids of every stored template
func (r *FileRepository) List() ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	entries, err := os.ReadDir(r.paths.Dir())
	if err != nil {
		return nil, errors.Wrap(err, "list templates")
	}
	var ids []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || filepath.Ext(name) != ".json" {
			continue
		}
		id := name[:len(name)-len(".json")]
		if ValidDocumentID(id) {
			ids = append(ids, id)
		}
	}
	return ids, nil
}
