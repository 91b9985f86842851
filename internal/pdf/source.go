package pdf

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/sync/singleflight"

	"github.com/a3tai/mcp-lab-forms/internal/log"
	"github.com/a3tai/mcp-lab-forms/internal/pdf/security"
)

// SourceOptions configures a Source
type SourceOptions struct {
	// BaseDir confines file URLs and plain paths
	BaseDir      string
	MaxFileSize  int64
	CacheEntries int
	// CacheBytes bounds the total cached size; zero means 8 x MaxFileSize
	CacheBytes int64
	Client     *http.Client
}

// Source resolves template PDF URLs to document bytes. Each URL is fetched once and
// then served from an LRU cache; concurrent fetches of the same URL share one load.
type Source struct {
	paths     *security.PathValidator
	validator *Validator
	client    *http.Client
	cache     *DocumentCache
	group     singleflight.Group
}

// NewSource creates a Source
func NewSource(opts SourceOptions) (*Source, error) {
	paths, err := security.NewPathValidator(opts.BaseDir)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create path validator")
	}
	client := opts.Client
	if client == nil {
		client = &http.Client{Timeout: 60 * time.Second}
	}
	cacheBytes := opts.CacheBytes
	if cacheBytes == 0 && opts.MaxFileSize > 0 {
		cacheBytes = 8 * opts.MaxFileSize
	}
	return &Source{
		paths:     paths,
		validator: NewValidator(opts.MaxFileSize),
		client:    client,
		cache:     NewDocumentCache(opts.CacheEntries, cacheBytes),
	}, nil
}

// Paths returns the validator confining local access
func (s *Source) Paths() *security.PathValidator { return s.paths }

// Validator returns the PDF validator used for every load
func (s *Source) Validator() *Validator { return s.validator }

// Stats reports cache usage
func (s *Source) Stats() CacheStats { return s.cache.Stats() }

// Fetch returns the document at rawURL, loading it on first use. Supported forms are
// http(s) URLs, file URLs and paths inside the base directory.
//
// The shared load is not tied to any one caller: a caller whose ctx ends stops
// waiting, while the load carries on for the others and still fills the cache.
func (s *Source) Fetch(ctx context.Context, rawURL string) (*Document, error) {
	if doc, ok := s.cache.Get(rawURL); ok {
		return doc, nil
	}

	loadCtx := context.WithoutCancel(ctx)
	ch := s.group.DoChan(rawURL, func() (interface{}, error) {
		if doc, ok := s.cache.Get(rawURL); ok {
			return doc, nil
		}
		b, err := s.load(loadCtx, rawURL)
		if err != nil {
			return nil, err
		}
		if err := s.validator.ValidateBytes(b); err != nil {
			return nil, errors.Wrapf(err, "load %s", rawURL)
		}
		doc := NewDocument(rawURL, b)
		s.cache.Put(doc)
		log.WithFields(log.Fields{"url": rawURL, "bytes": len(b)}).Debug("pdf loaded")
		return doc, nil
	})

	select {
	case <-ctx.Done():
		return nil, errors.Wrapf(ctx.Err(), "fetch %s", rawURL)
	case r := <-ch:
		if r.Err != nil {
			return nil, r.Err
		}
		if r.Shared {
			log.WithFields(log.Fields{"url": rawURL}).Debug("pdf load shared with concurrent fetch")
		}
		return r.Val.(*Document), nil
	}
}

func (s *Source) load(ctx context.Context, rawURL string) ([]byte, error) {
	u, err := url.Parse(rawURL)
	if err != nil || u.Scheme == "" || len(u.Scheme) == 1 {
		// plain path, or a Windows drive letter
		return s.readFile(rawURL)
	}
	switch strings.ToLower(u.Scheme) {
	case "http", "https":
		return s.download(ctx, u.String())
	case "file":
		return s.readFile(u.Path)
	}
	return nil, errors.Wrapf(ErrSourceDenied, "unsupported scheme %q", u.Scheme)
}

func (s *Source) readFile(path string) ([]byte, error) {
	resolved, err := s.paths.Resolve(path)
	if err != nil {
		return nil, errors.Wrap(ErrSourceDenied, err.Error())
	}
	info, err := os.Stat(resolved)
	if err != nil {
		return nil, errors.Wrap(err, "stat pdf")
	}
	if info.IsDir() {
		return nil, errors.Errorf("path is a directory, not a file: %s", path)
	}
	if err := s.validator.CheckSize(info.Size()); err != nil {
		return nil, err
	}
	b, err := os.ReadFile(resolved)
	return b, errors.Wrap(err, "read pdf")
}

func (s *Source) download(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, errors.Wrap(err, "build request")
	}
	req.Header.Set("Accept", "application/pdf")
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, errors.Wrapf(err, "fetch %s", rawURL)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, errors.Errorf("fetch %s: unexpected status %s", rawURL, resp.Status)
	}
	if err := s.validator.CheckSize(resp.ContentLength); err != nil {
		return nil, err
	}

	body := io.Reader(resp.Body)
	if limit := s.validator.MaxFileSize(); limit > 0 {
		body = io.LimitReader(resp.Body, limit+1)
	}
	b, err := io.ReadAll(body)
	if err != nil {
		return nil, errors.Wrapf(err, "read %s", rawURL)
	}
	if err := s.validator.CheckSize(int64(len(b))); err != nil {
		return nil, err
	}
	return b, nil
}
