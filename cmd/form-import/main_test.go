package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/a3tai/mcp-lab-forms/internal/pdf/pdftest"
	"github.com/a3tai/mcp-lab-forms/internal/store"
)

func writeForm(t *testing.T, dir string) string {
	t.Helper()
	b := pdftest.Build(pdftest.Options{
		Pages: []pdftest.Page{{Width: 612, Height: 792}},
		Widgets: []pdftest.Widget{
			{Name: "student", FT: "Tx", Page: 1, Rect: [4]float64{72, 662, 272, 692}},
			{Name: "goggles", FT: "Btn", Page: 1, Rect: [4]float64{72, 600, 92, 620}},
		},
	})
	path := filepath.Join(dir, "titration.pdf")
	require.NoError(t, os.WriteFile(path, b, 0o644))
	return path
}

func TestParseArgs(t *testing.T) {
	opts, path, err := parseArgs([]string{"--title", "Lab", "forms/titration.pdf"}, io.Discard)
	require.NoError(t, err)
	assert.Equal(t, "forms/titration.pdf", path)
	assert.Equal(t, "titration", opts.id)
	assert.Equal(t, "Lab", opts.title)
	assert.Equal(t, "text", opts.format)

	_, _, err = parseArgs(nil, io.Discard)
	assert.Error(t, err)

	_, _, err = parseArgs([]string{"--format", "xml", "a.pdf"}, io.Discard)
	assert.Error(t, err)

	_, _, err = parseArgs([]string{"--id", "../x", "a.pdf"}, io.Discard)
	assert.Error(t, err)
}

func TestImportTemplate_SavesInsideDataDir(t *testing.T) {
	dir := t.TempDir()
	path := writeForm(t, dir)

	opts, _, err := parseArgs([]string{"--data-dir", dir, path}, io.Discard)
	require.NoError(t, err)
	tpl, result, err := importTemplate(path, opts)
	require.NoError(t, err)
	assert.Equal(t, "titration.pdf", tpl.PDFURL)
	assert.Equal(t, 1, tpl.PageCount)
	assert.Equal(t, 612.0, tpl.Dimensions.Width)
	require.Len(t, tpl.Fields, 2, "skipped: %v", result.Skipped)

	repo, err := store.NewFileRepository(dir)
	require.NoError(t, err)
	require.NoError(t, repo.Create(context.Background(), tpl))
	loaded, err := repo.Load(context.Background(), "titration")
	require.NoError(t, err)
	assert.Len(t, loaded.Fields, 2)

	var out bytes.Buffer
	require.NoError(t, writeResult(&out, "json", tpl, result))
	var decoded struct {
		Template store.WireTemplate `json:"template"`
	}
	require.NoError(t, json.Unmarshal(out.Bytes(), &decoded))
	assert.Len(t, decoded.Template.Fields, 2)
	assert.NotEmpty(t, decoded.Template.Fields[0].FieldID)

	out.Reset()
	require.NoError(t, writeResult(&out, "text", tpl, result))
	assert.Contains(t, out.String(), "Fields:   2")
	assert.Contains(t, out.String(), `"student"`)
}

func TestImportTemplate_RejectsNonPDF(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "notes.pdf")
	require.NoError(t, os.WriteFile(path, []byte("plain text"), 0o644))

	opts, _, err := parseArgs([]string{"--data-dir", dir, path}, io.Discard)
	require.NoError(t, err)
	_, _, err = importTemplate(path, opts)
	assert.Error(t, err)
}
