package pdf

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/a3tai/mcp-lab-forms/internal/pdf/pdftest"
)

func newTestSource(t *testing.T, maxSize int64) (*Source, string) {
	t.Helper()
	dir := t.TempDir()
	s, err := NewSource(SourceOptions{BaseDir: dir, MaxFileSize: maxSize, CacheEntries: 4})
	require.NoError(t, err)
	return s, dir
}

func TestSource_FetchLocalPath(t *testing.T) {
	s, dir := newTestSource(t, 1<<20)
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "pdfs"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "pdfs", "lab1.pdf"), pdftest.Letter(2), 0o600))

	doc, err := s.Fetch(context.Background(), "pdfs/lab1.pdf")
	require.NoError(t, err)
	assert.Equal(t, "pdfs/lab1.pdf", doc.URL)

	again, err := s.Fetch(context.Background(), "pdfs/lab1.pdf")
	require.NoError(t, err)
	assert.Same(t, doc, again)
	assert.Equal(t, int64(1), s.Stats().Hits)

	fileURL := "file://" + filepath.ToSlash(filepath.Join(dir, "pdfs", "lab1.pdf"))
	_, err = s.Fetch(context.Background(), fileURL)
	assert.NoError(t, err)
}

func TestSource_RejectsOutsidePaths(t *testing.T) {
	s, _ := newTestSource(t, 1<<20)

	for _, u := range []string{"../secret.pdf", "/etc/passwd", "file:///etc/passwd", "ftp://example.com/a.pdf"} {
		_, err := s.Fetch(context.Background(), u)
		assert.True(t, errors.Is(err, ErrSourceDenied), "%s: %v", u, err)
	}
}

func TestSource_FetchHTTPOnce(t *testing.T) {
	var hits int32
	body := pdftest.Letter(1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.Header().Set("Content-Type", "application/pdf")
		_, _ = w.Write(body)
	}))
	defer srv.Close()

	s, _ := newTestSource(t, 1<<20)
	url := srv.URL + "/files/lab.pdf"

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.Fetch(context.Background(), url)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	doc, err := s.Fetch(context.Background(), url)
	require.NoError(t, err)
	assert.Equal(t, body, doc.Bytes)
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))
}

func TestSource_HTTPErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/missing.pdf":
			http.NotFound(w, r)
		case "/big.pdf":
			_, _ = w.Write(pdftest.Letter(3))
		default:
			_, _ = w.Write([]byte("<html>not a pdf</html>"))
		}
	}))
	defer srv.Close()

	s, _ := newTestSource(t, 256)

	_, err := s.Fetch(context.Background(), srv.URL+"/missing.pdf")
	assert.Error(t, err)

	_, err = s.Fetch(context.Background(), srv.URL+"/big.pdf")
	assert.True(t, errors.Is(err, ErrTooLarge))

	_, err = s.Fetch(context.Background(), srv.URL+"/page.html")
	assert.True(t, errors.Is(err, ErrInvalidPDF))
}

func TestSource_CancelledCallerDoesNotFailSharedLoad(t *testing.T) {
	var hits int32
	started := make(chan struct{})
	release := make(chan struct{})
	body := pdftest.Letter(1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&hits, 1) == 1 {
			close(started)
		}
		<-release
		_, _ = w.Write(body)
	}))
	defer srv.Close()

	s, _ := newTestSource(t, 1<<20)
	url := srv.URL + "/lab.pdf"

	firstCtx, cancel := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, err := s.Fetch(firstCtx, url)
		firstErr <- err
	}()
	<-started

	type result struct {
		doc *Document
		err error
	}
	second := make(chan result, 1)
	go func() {
		doc, err := s.Fetch(context.Background(), url)
		second <- result{doc, err}
	}()

	cancel()
	assert.True(t, errors.Is(<-firstErr, context.Canceled))

	close(release)
	r := <-second
	require.NoError(t, r.err)
	assert.Equal(t, body, r.doc.Bytes)
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))
	assert.Equal(t, 1, s.Stats().Entries)
}
