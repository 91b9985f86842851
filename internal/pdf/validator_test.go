package pdf

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/a3tai/mcp-lab-forms/internal/pdf/pdftest"
)

func TestValidator_ValidateBytes(t *testing.T) {
	v := NewValidator(1 << 20)

	assert.NoError(t, v.ValidateBytes(pdftest.Letter(1)))

	tests := []struct {
		name string
		data []byte
		want error
	}{
		{"empty", nil, ErrInvalidPDF},
		{"no header", []byte("hello world"), ErrInvalidPDF},
		{"truncated", pdftest.Letter(1)[:60], ErrInvalidPDF},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.True(t, errors.Is(v.ValidateBytes(tt.data), tt.want))
		})
	}
}

func TestValidator_SizeLimit(t *testing.T) {
	v := NewValidator(64)
	err := v.ValidateBytes(pdftest.Letter(1))
	assert.True(t, errors.Is(err, ErrTooLarge))

	assert.NoError(t, NewValidator(0).CheckSize(1<<40))
}

func TestValidator_ValidateFile(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "form.pdf")
	require.NoError(t, os.WriteFile(good, pdftest.Letter(2), 0o600))
	txt := filepath.Join(dir, "notes.txt")
	require.NoError(t, os.WriteFile(txt, []byte("x"), 0o600))

	v := NewValidator(1 << 20)
	assert.NoError(t, v.ValidateFile(good))
	assert.Error(t, v.ValidateFile(txt))
	assert.Error(t, v.ValidateFile(dir))
	assert.Error(t, v.ValidateFile(filepath.Join(dir, "missing.pdf")))
	assert.Error(t, v.ValidateFile(""))
}
