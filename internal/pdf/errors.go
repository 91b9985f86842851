package pdf

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	// ErrRenderFailed matches every *RenderError
	ErrRenderFailed = errors.New("render failed")

	ErrSourceDenied   = errors.New("pdf source not allowed")
	ErrTooLarge       = errors.New("pdf exceeds size limit")
	ErrInvalidPDF     = errors.New("invalid pdf")
	ErrPageOutOfRange = errors.New("page out of range")
)

// RenderError reports a failure to measure or render one page of a document.
// Other pages of the same document may still render.
type RenderError struct {
	URL  string `json:"url,omitempty"`
	Page int    `json:"page,omitempty"`
	Err  error  `json:"-"`
}

func (e *RenderError) Error() string {
	if e.Page > 0 {
		return fmt.Sprintf("render %s page %d: %v", e.URL, e.Page, e.Err)
	}
	return fmt.Sprintf("render %s: %v", e.URL, e.Err)
}

func (e *RenderError) Unwrap() error { return e.Err }

// Is makes every RenderError match ErrRenderFailed
func (e *RenderError) Is(target error) bool { return target == ErrRenderFailed }

func renderError(url string, page int, err error) error {
	return &RenderError{URL: url, Page: page, Err: err}
}

// recoverInto turns a panic from the PDF parser into an error stored in *err
func recoverInto(err *error, url string, page int) {
	if r := recover(); r != nil {
		*err = renderError(url, page, errors.Wrapf(ErrInvalidPDF, "parser panic: %v", r))
	}
}
