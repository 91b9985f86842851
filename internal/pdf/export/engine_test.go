package export

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/a3tai/mcp-lab-forms/internal/form"
	"github.com/a3tai/mcp-lab-forms/internal/pdf/pdftest"
)

func labFields() []form.Field {
	return []form.Field{
		{ID: "name", Type: form.FieldTypeText, Page: 1, X: 72, Y: 100, Width: 200, Height: 30},
		{ID: "done", Type: form.FieldTypeCheckbox, Page: 2, X: 72, Y: 200, Width: 20, Height: 20},
		{ID: "notes", Type: form.FieldTypeMultiline, Page: 2, X: 72, Y: 300, Width: 200, Height: 90},
	}
}

func TestEngine_PageSizes(t *testing.T) {
	sizes, err := New().PageSizes(pdftest.Build(pdftest.Options{
		InheritedBox: true,
		Pages:        []pdftest.Page{{Width: 595, Height: 842}, {}},
	}))
	require.NoError(t, err)
	assert.Equal(t, []form.Size{{Width: 595, Height: 842}, {Width: 595, Height: 842}}, sizes)
}

func TestEngine_Export(t *testing.T) {
	src := pdftest.Letter(2)
	values := form.Values{
		"name":  form.StringValue("Ada Lovelace"),
		"done":  form.BoolValue(true),
		"notes": form.StringValue("titration complete"),
	}

	out, err := New().Export(context.Background(), src, labFields(), values)
	require.NoError(t, err)
	assert.NotEqual(t, src, out)

	ctx, err := api.ReadContext(bytes.NewReader(out), New().conf)
	require.NoError(t, err)
	require.NoError(t, ctx.EnsurePageCount())
	assert.Equal(t, 2, ctx.PageCount)
}

func TestEngine_ExportNothingToDraw(t *testing.T) {
	src := pdftest.Letter(2)
	values := form.Values{"name": form.StringValue(""), "done": form.BoolValue(false)}

	out, err := New().Export(context.Background(), src, labFields(), values)
	require.NoError(t, err)
	assert.Equal(t, src, out)

	out[0] = 'x'
	assert.Equal(t, byte('%'), src[0], "the input is never modified")
}

func TestEngine_ExportFailures(t *testing.T) {
	values := form.Values{"name": form.StringValue("x")}

	_, err := New().Export(context.Background(), nil, labFields(), values)
	assert.True(t, errors.Is(err, ErrExportFailed))

	out, err := New().Export(context.Background(), []byte("%PDF-1.4 garbage"), labFields(), values)
	assert.Nil(t, out)
	var xerr *ExportError
	require.True(t, errors.As(err, &xerr))
	assert.Equal(t, "load", xerr.Stage)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	out, err = New().Export(ctx, pdftest.Letter(1), labFields(), values)
	assert.Nil(t, out)
	assert.True(t, errors.Is(err, ErrExportFailed))
	assert.True(t, errors.Is(err, context.Canceled))
}

// drawnText returns the text runs of a page of doc that were not part of the source
// page label, with consecutive glyphs on one baseline joined into runs
func drawnText(t *testing.T, doc []byte, page int) []pdf.Text {
	t.Helper()
	r, err := pdf.NewReader(bytes.NewReader(doc), int64(len(doc)))
	require.NoError(t, err)
	var runs []pdf.Text
	var cur *pdf.Text
	for _, g := range r.Page(page).Content().Text {
		if g.Y == 720 {
			continue // "Page n" label drawn by the fixture
		}
		if cur != nil && cur.Y == g.Y && cur.FontSize == g.FontSize {
			cur.S += g.S
			continue
		}
		runs = append(runs, g)
		cur = &runs[len(runs)-1]
	}
	return runs
}

func TestEngine_ExportDrawsOnPlannedBaseline(t *testing.T) {
	small := 10.5
	fields := []form.Field{
		{ID: "name", Type: form.FieldTypeText, Page: 1, X: 72, Y: 100, Width: 200, Height: 30},
		{ID: "ph", Type: form.FieldTypeNumber, Page: 1, X: 300, Y: 200, Width: 80, Height: 20, FontSize: &small},
		{ID: "done", Type: form.FieldTypeCheckbox, Page: 2, X: 100, Y: 200, Width: 25, Height: 25},
	}
	values := form.Values{
		"name": form.StringValue("Hyg"),
		"ph":   form.StringValue("7.25"),
		"done": form.BoolValue(true),
	}

	out, err := New().Export(context.Background(), pdftest.Letter(2), fields, values)
	require.NoError(t, err)

	page1 := drawnText(t, out, 1)
	require.Len(t, page1, 2)
	assert.Equal(t, "Hyg", page1[0].S)
	assert.Equal(t, "Helvetica", page1[0].Font)
	assert.InDelta(t, 72, page1[0].X, 1e-6)
	assert.InDelta(t, 680, page1[0].Y, 1e-6, "baseline is pageHeight - y - fontSize")
	assert.InDelta(t, 12, page1[0].FontSize, 1e-6)

	assert.Equal(t, "7.25", page1[1].S)
	assert.InDelta(t, 300, page1[1].X, 1e-6)
	assert.InDelta(t, 792-200-10.5, page1[1].Y, 1e-6)
	assert.InDelta(t, 10.5, page1[1].FontSize, 1e-6, "fractional sizes are drawn exactly")

	page2 := drawnText(t, out, 2)
	require.Len(t, page2, 1)
	assert.Equal(t, "X", page2[0].S)
	assert.InDelta(t, 100+25*0.2, page2[0].X, 1e-6)
	assert.InDelta(t, 792-200-25*0.8, page2[0].Y, 1e-6)
	assert.InDelta(t, 17.5, page2[0].FontSize, 1e-6)

	label := pageText(t, out, 2)
	assert.Contains(t, label, "Page 2", "existing content is kept")
}

func pageText(t *testing.T, doc []byte, page int) string {
	t.Helper()
	r, err := pdf.NewReader(bytes.NewReader(doc), int64(len(doc)))
	require.NoError(t, err)
	var b strings.Builder
	for _, g := range r.Page(page).Content().Text {
		b.WriteString(g.S)
	}
	return b.String()
}

func TestEncodeText(t *testing.T) {
	assert.Equal(t, `a\(b\)\\`, encodeText(`a(b)\`))
	assert.Equal(t, "caf\xe9 \x80 ?", encodeText("café € ✓"))
}
