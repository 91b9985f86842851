package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/a3tai/mcp-lab-forms/internal/form"
	"github.com/a3tai/mcp-lab-forms/internal/log"
)

// maxDocumentSize bounds template documents read from a remote store
const maxDocumentSize = 8 << 20

// HTTPRepository talks to a document store over GET/PUT {base}/templates/{id}
type HTTPRepository struct {
	base   *url.URL
	client *http.Client
}

// NewHTTPRepository creates a repository for the store at baseURL. A nil client
// gets a 30 second timeout.
func NewHTTPRepository(baseURL string, client *http.Client) (*HTTPRepository, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, errors.Wrap(err, "store url")
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, errors.Errorf("store url %q must be http or https", baseURL)
	}
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &HTTPRepository{base: u, client: client}, nil
}

func (r *HTTPRepository) endpoint(id string) string {
	return r.base.String() + "/templates/" + url.PathEscape(id)
}

func (r *HTTPRepository) do(ctx context.Context, method, id string, body any) (*http.Response, error) {
	if !ValidDocumentID(id) {
		return nil, errors.Wrapf(ErrInvalidDocument, "bad template id %q", id)
	}
	var rdr io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, errors.Wrap(err, "encode request")
		}
		rdr = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, r.endpoint(id), rdr)
	if err != nil {
		return nil, errors.Wrap(err, "build request")
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := r.client.Do(req)
	if err != nil {
		return nil, errors.Wrapf(err, "%s %s", method, req.URL.Redacted())
	}
	return resp, nil
}

func statusError(resp *http.Response) error {
	msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	text := strings.TrimSpace(string(msg))
	if text == "" {
		text = http.StatusText(resp.StatusCode)
	}
	return fmt.Errorf("store responded %d: %s", resp.StatusCode, text)
}

func (r *HTTPRepository) Load(ctx context.Context, id string) (*form.Template, error) {
	resp, err := r.do(ctx, http.MethodGet, id, nil)
	if err != nil {
		return nil, boundaryError("load", id, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, boundaryError("load", id, ErrTemplateNotFound)
	case resp.StatusCode != http.StatusOK:
		return nil, boundaryError("load", id, statusError(resp))
	}

	var w WireTemplate
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxDocumentSize)).Decode(&w); err != nil {
		return nil, boundaryError("load", id, invalidDocument(err))
	}
	t, err := FromWire(id, w)
	return t, boundaryError("load", id, err)
}

func (r *HTTPRepository) Save(ctx context.Context, id string, req SaveRequest) error {
	if err := validateStruct(req); err != nil {
		return boundaryError("save", id, err)
	}
	return boundaryError("save", id, r.put(ctx, id, req))
}

func (r *HTTPRepository) Create(ctx context.Context, t *form.Template) error {
	w := ToWire(t)
	if _, err := FromWire(t.ID, w); err != nil {
		return boundaryError("create", t.ID, err)
	}
	return boundaryError("create", t.ID, r.put(ctx, t.ID, w))
}

func (r *HTTPRepository) put(ctx context.Context, id string, body any) error {
	resp, err := r.do(ctx, http.MethodPut, id, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	switch {
	case resp.StatusCode == http.StatusNotFound:
		return ErrTemplateNotFound
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return statusError(resp)
	}
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxDocumentSize))
	log.WithFields(log.Fields{"template": id, "store": r.base.Host}).Debug("template written")
	return nil
}
