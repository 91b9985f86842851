package store

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/a3tai/mcp-lab-forms/internal/form"
)

func size(v float64) *float64 { return &v }

// sampleTemplate has one field of every supported type
func sampleTemplate() *form.Template {
	t := &form.Template{
		ID:         "lab-1",
		Title:      "Titration",
		PDFURL:     "https://files.example/lab-1.pdf",
		PageCount:  2,
		Dimensions: form.Size{Width: 612, Height: 792},
	}
	for i, ft := range form.FieldTypes {
		f := form.NewField(ft, 1+i%2, 50+float64(i)*10, 100+float64(i)*25.5)
		f.Label = "label " + string(ft)
		f.Required = i%2 == 0
		if i%3 == 0 {
			f.FontSize = size(9 + float64(i))
		}
		t.Fields = append(t.Fields, f)
	}
	return t
}

// memoryStore is a minimal document store speaking the template endpoints
type memoryStore struct {
	mu   sync.Mutex
	docs map[string]json.RawMessage
	puts []string
}

func (m *memoryStore) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/api/templates/")
	m.mu.Lock()
	defer m.mu.Unlock()
	switch r.Method {
	case http.MethodGet:
		doc, ok := m.docs[id]
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(doc)
	case http.MethodPut:
		body, _ := io.ReadAll(r.Body)
		m.puts = append(m.puts, string(body))
		if existing, ok := m.docs[id]; ok {
			var stored, update map[string]any
			_ = json.Unmarshal(existing, &stored)
			_ = json.Unmarshal(body, &update)
			for k, v := range update {
				stored[k] = v
			}
			body, _ = json.Marshal(stored)
		}
		m.docs[id] = body
		w.WriteHeader(http.StatusNoContent)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func newMemoryStore(t *testing.T) (*memoryStore, *HTTPRepository) {
	t.Helper()
	mem := &memoryStore{docs: map[string]json.RawMessage{}}
	srv := httptest.NewServer(mem)
	t.Cleanup(srv.Close)
	repo, err := NewHTTPRepository(srv.URL+"/api/", srv.Client())
	require.NoError(t, err)
	return mem, repo
}

func assertSameFields(t *testing.T, want, got []form.Field) {
	t.Helper()
	require.Len(t, got, len(want))
	for i := range want {
		assert.Equal(t, want[i], got[i], "field %d", i)
	}
}

func TestFieldWire_RenamesID(t *testing.T) {
	f := form.Field{ID: "abc", Type: form.FieldTypeCheckbox, Page: 1, X: 1, Y: 2, Width: 20, Height: 20}
	data, err := json.Marshal(FieldToWire(f))
	require.NoError(t, err)
	assert.Contains(t, string(data), `"fieldId":"abc"`)
	assert.NotContains(t, string(data), `"id"`)

	var w WireField
	require.NoError(t, json.Unmarshal(data, &w))
	assert.Equal(t, f, FieldFromWire(w))
}

func TestFromWire_KeepsCause(t *testing.T) {
	field := func(id string, page int) WireField {
		return WireField{FieldID: id, Type: "text", Page: page, Width: 10, Height: 10}
	}
	tests := []struct {
		name   string
		fields []WireField
		cause  error
	}{
		{"page past end", []WireField{field("a", 3)}, form.ErrFieldOutOfBounds},
		{"duplicate id", []WireField{field("a", 1), field("a", 1)}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := FromWire("lab-1", WireTemplate{Title: "x", PDFURL: "a.pdf", PageCount: 1, Fields: tt.fields})
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidDocument))
			if tt.cause != nil {
				assert.True(t, errors.Is(err, tt.cause))
			}
			assert.True(t, strings.HasPrefix(err.Error(), "invalid document: "), err.Error())
		})
	}
}

func TestFileRepository_KeepsDecodeError(t *testing.T) {
	repo, err := NewFileRepository(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(repo.Dir(), "lab-1.json"), []byte("{not json"), 0o644))

	_, err = repo.Load(context.Background(), "lab-1")
	assert.True(t, errors.Is(err, ErrInvalidDocument))
	var syntax *json.SyntaxError
	assert.True(t, errors.As(err, &syntax))
}

func TestHTTPRepository_RoundTrip(t *testing.T) {
	mem, repo := newMemoryStore(t)
	ctx := context.Background()
	tpl := sampleTemplate()

	require.NoError(t, repo.Create(ctx, tpl))
	loaded, err := repo.Load(ctx, tpl.ID)
	require.NoError(t, err)
	assert.Equal(t, tpl.Title, loaded.Title)
	assert.Equal(t, tpl.PDFURL, loaded.PDFURL)
	assert.Equal(t, 2, loaded.PageCount)
	assertSameFields(t, tpl.Fields, loaded.Fields)

	loaded.Fields[0].X = 321.25
	loaded.Title = "Titration II"
	require.NoError(t, SaveTemplate(ctx, repo, loaded))

	require.Len(t, mem.puts, 2)
	assert.Contains(t, mem.puts[1], `"fieldId"`)
	assert.NotContains(t, mem.puts[1], `"pdfUrl"`)

	again, err := repo.Load(ctx, tpl.ID)
	require.NoError(t, err)
	assert.Equal(t, "Titration II", again.Title)
	assert.Equal(t, 321.25, again.Fields[0].X)
	assertSameFields(t, loaded.Fields, again.Fields)
}

func TestHTTPRepository_Errors(t *testing.T) {
	mem, repo := newMemoryStore(t)
	ctx := context.Background()

	_, err := repo.Load(ctx, "missing")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrTemplateNotFound))
	var be *BoundaryError
	require.True(t, errors.As(err, &be))
	assert.Equal(t, "load", be.Op)
	assert.Equal(t, "missing", be.TemplateID)

	mem.docs["broken"] = json.RawMessage(`{"title":"x","pdfUrl":"a.pdf","pageCount":1,"fields":[{"fieldId":"f","type":"radio","page":1,"width":10,"height":10}]}`)
	_, err = repo.Load(ctx, "broken")
	assert.True(t, errors.Is(err, ErrInvalidDocument))
	assert.Contains(t, err.Error(), "fields[0].type")

	mem.docs["outside"] = json.RawMessage(`{"title":"x","pdfUrl":"a.pdf","pageCount":1,"fields":[{"fieldId":"f","type":"text","page":3,"width":10,"height":10}]}`)
	_, err = repo.Load(ctx, "outside")
	assert.True(t, errors.Is(err, ErrInvalidDocument))
	assert.True(t, errors.Is(err, form.ErrFieldOutOfBounds))

	_, err = repo.Load(ctx, "../etc")
	assert.True(t, errors.Is(err, ErrInvalidDocument))

	_, err = NewHTTPRepository("ftp://store", nil)
	assert.Error(t, err)
}

func TestFileRepository_RoundTrip(t *testing.T) {
	repo, err := NewFileRepository(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()
	tpl := sampleTemplate()

	err = repo.Save(ctx, tpl.ID, NewSaveRequest(tpl))
	assert.True(t, errors.Is(err, ErrTemplateNotFound))

	require.NoError(t, repo.Create(ctx, tpl))
	ids, err := repo.List()
	require.NoError(t, err)
	assert.Equal(t, []string{"lab-1"}, ids)

	loaded, err := repo.Load(ctx, tpl.ID)
	require.NoError(t, err)
	assertSameFields(t, tpl.Fields, loaded.Fields)

	// a save without isPublished keeps the stored flag
	loaded.IsPublished = true
	require.NoError(t, SaveTemplate(ctx, repo, loaded))
	req := NewSaveRequest(loaded)
	req.IsPublished = nil
	req.Fields = req.Fields[:3]
	require.NoError(t, repo.Save(ctx, tpl.ID, req))

	again, err := repo.Load(ctx, tpl.ID)
	require.NoError(t, err)
	assert.True(t, again.IsPublished)
	assertSameFields(t, loaded.Fields[:3], again.Fields)
}

func TestFileRepository_RejectsInvalidSave(t *testing.T) {
	repo, err := NewFileRepository(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()
	tpl := sampleTemplate()
	require.NoError(t, repo.Create(ctx, tpl))

	bad := NewSaveRequest(tpl)
	bad.Fields[0].Width = 0
	err = repo.Save(ctx, tpl.ID, bad)
	assert.True(t, errors.Is(err, ErrInvalidDocument))

	bad = NewSaveRequest(tpl)
	bad.Fields[1].FieldID = bad.Fields[0].FieldID
	err = repo.Save(ctx, tpl.ID, bad)
	assert.True(t, errors.Is(err, ErrInvalidDocument))

	loaded, err := repo.Load(ctx, tpl.ID)
	require.NoError(t, err)
	assertSameFields(t, tpl.Fields, loaded.Fields)

	_, err = Open(ctx, repo, "a/b")
	assert.True(t, errors.Is(err, ErrInvalidDocument))
}

func TestStudentRef(t *testing.T) {
	var raw StudentRef
	require.NoError(t, json.Unmarshal([]byte(`"s-42"`), &raw))
	assert.Equal(t, StudentRaw, raw.Kind())
	assert.Equal(t, "s-42", raw.ID())
	_, ok := raw.Student()
	assert.False(t, ok)

	var expanded StudentRef
	require.NoError(t, json.Unmarshal([]byte(`{"_id":"s-42","name":"Ada","email":"ada@example.edu"}`), &expanded))
	assert.Equal(t, StudentExpanded, expanded.Kind())
	assert.Equal(t, "s-42", expanded.ID())
	st, ok := expanded.Student()
	require.True(t, ok)
	assert.Equal(t, "Ada", st.Name)

	var alt StudentRef
	require.NoError(t, json.Unmarshal([]byte(`{"id":"s-7"}`), &alt))
	assert.Equal(t, "s-7", alt.ID())

	data, err := json.Marshal(raw)
	require.NoError(t, err)
	assert.JSONEq(t, `"s-42"`, string(data))

	assert.Error(t, json.Unmarshal([]byte(`[1]`), &alt))
}

func TestDecodeSubmission(t *testing.T) {
	fields := []form.Field{
		{ID: "name", Type: form.FieldTypeText, Page: 1, Width: 100, Height: 20, Required: true},
		{ID: "done", Type: form.FieldTypeCheckbox, Page: 1, Width: 20, Height: 20, Label: "Done", Required: true},
		{ID: "count", Type: form.FieldTypeNumber, Page: 1, Width: 50, Height: 20},
	}

	sub, err := DecodeSubmission([]byte(`{
		"templateId": "lab-1",
		"studentId": {"_id": "s-1", "name": "Ada"},
		"values": {"name": "Ada", "Done": "on", "count": 3, "ignored": null}
	}`), fields)
	require.NoError(t, err)
	assert.Equal(t, "s-1", sub.Student.ID())
	assert.Equal(t, form.KindBool, sub.Values["Done"].Kind())
	assert.True(t, sub.Values["Done"].Checked())
	assert.Equal(t, "3", sub.Values["count"].String())
	assert.NotContains(t, sub.Values, "ignored")
	assert.Empty(t, sub.Missing(fields))

	sub, err = DecodeSubmission([]byte(`{"templateId":"lab-1","studentId":"s-2","values":{"done":"off"}}`), fields)
	require.NoError(t, err)
	assert.Equal(t, StudentRaw, sub.Student.Kind())
	missing := sub.Missing(fields)
	require.Len(t, missing, 2)
	assert.Equal(t, "name", missing[0].ID)
	assert.Equal(t, "done", missing[1].ID)

	_, err = DecodeSubmission([]byte(`{"templateId":"lab-1","studentId":"","values":{}}`), fields)
	assert.True(t, errors.Is(err, ErrInvalidDocument))

	_, err = DecodeSubmission([]byte(`{"studentId":"s","values":{}}`), fields)
	assert.True(t, errors.Is(err, ErrInvalidDocument))

	_, err = DecodeSubmission([]byte(`{"templateId":"lab-1","studentId":"s","values":{"name":[1]}}`), fields)
	assert.True(t, errors.Is(err, ErrInvalidDocument))
}
