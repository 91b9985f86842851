package pdf

import (
	"bytes"
	"os"
	"strings"

	"github.com/pkg/errors"
)

var pdfHeader = []byte("%PDF-")

// Validator checks PDF bytes and files against the configured size limit
type Validator struct {
	maxFileSize int64
}

// NewValidator creates a validator; a non-positive limit disables the size check
func NewValidator(maxFileSize int64) *Validator {
	return &Validator{maxFileSize: maxFileSize}
}

// MaxFileSize returns the configured limit in bytes
func (v *Validator) MaxFileSize() int64 { return v.maxFileSize }

// CheckSize fails with ErrTooLarge when n exceeds the limit
func (v *Validator) CheckSize(n int64) error {
	if v.maxFileSize > 0 && n > v.maxFileSize {
		return errors.Wrapf(ErrTooLarge, "%d bytes (max: %d bytes)", n, v.maxFileSize)
	}
	return nil
}

// ValidateBytes checks that b is a parseable PDF within the size limit
func (v *Validator) ValidateBytes(b []byte) (err error) {
	if len(b) == 0 {
		return errors.Wrap(ErrInvalidPDF, "empty document")
	}
	if err := v.CheckSize(int64(len(b))); err != nil {
		return err
	}
	// some producers put junk before the header; readers accept it within the first KB
	head := b
	if len(head) > 1024 {
		head = head[:1024]
	}
	if !bytes.Contains(head, pdfHeader) {
		return errors.Wrap(ErrInvalidPDF, "missing %PDF header")
	}

	defer func() {
		if r := recover(); r != nil {
			err = errors.Wrapf(ErrInvalidPDF, "parser panic: %v", r)
		}
	}()
	if _, err := NewDocument("", b).reader(); err != nil {
		return errors.Wrap(ErrInvalidPDF, err.Error())
	}
	return nil
}

// ValidateFile checks a PDF on disk
func (v *Validator) ValidateFile(path string) error {
	if path == "" {
		return errors.New("path cannot be empty")
	}
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return errors.Errorf("file does not exist: %s", path)
	}
	if err != nil {
		return errors.Wrap(err, "cannot access file")
	}
	if info.IsDir() {
		return errors.Errorf("path is a directory, not a file: %s", path)
	}
	if !strings.HasSuffix(strings.ToLower(path), ".pdf") {
		return errors.Errorf("file is not a PDF: %s", path)
	}
	if err := v.CheckSize(info.Size()); err != nil {
		return err
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrap(err, "read file")
	}
	return v.ValidateBytes(b)
}
