package overlay

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/a3tai/mcp-lab-forms/internal/form"
)

func sampleFields() []form.Field {
	size := 10.0
	return []form.Field{
		{ID: "name", Type: form.FieldTypeText, Page: 1, X: 100, Y: 50, Width: 200, Height: 30, Label: "Name", Required: true},
		{ID: "notes", Type: form.FieldTypeMultiline, Page: 1, X: 100, Y: 100, Width: 250, Height: 90, Label: "Notes", FontSize: &size},
		{ID: "ok", Type: form.FieldTypeCheckbox, Page: 1, X: 400, Y: 50, Width: 30, Height: 20, Label: "Done"},
		{ID: "other", Type: form.FieldTypeText, Page: 2, X: 10, Y: 10, Width: 100, Height: 30},
	}
}

func TestParseMode(t *testing.T) {
	for _, m := range []Mode{ModeEdit, ModeFill, ModeReview} {
		got, err := ParseMode(m.String())
		require.NoError(t, err)
		assert.Equal(t, m, got)
	}
	_, err := ParseMode("print")
	assert.Error(t, err)
}

func TestCompose_ScalesGeometry(t *testing.T) {
	els := Compositor{}.Compose(sampleFields(), 1, 1.5, nil, ModeEdit)
	require.Len(t, els, 3, "only fields on the requested page")

	assert.Equal(t, "name", els[0].FieldID)
	assert.Equal(t, form.Rect{X: 150, Y: 75, Width: 300, Height: 45}, els[0].Box)
	assert.Equal(t, 18.0, els[0].FontSize)
	assert.Equal(t, AnchorMiddle, els[0].Anchor)

	assert.Equal(t, 15.0, els[1].FontSize)
	assert.Equal(t, AnchorTop, els[1].Anchor, "multiline text is top-anchored")
}

func TestCompose_CheckboxMarkCentered(t *testing.T) {
	els := Compositor{}.Compose(sampleFields(), 1, 2, nil, ModeEdit)
	cb := els[2]
	require.NotNil(t, cb.Mark)
	// box is (800,100) 60x40: the mark is a 40px square centered horizontally
	assert.Equal(t, form.Rect{X: 810, Y: 100, Width: 40, Height: 40}, *cb.Mark)
	assert.Nil(t, els[0].Mark)
}

func TestCompose_EditModeCaptionsAndSelection(t *testing.T) {
	c := Compositor{IsSelected: func(id string) bool { return id == "notes" }}
	els := c.Compose(sampleFields(), 1, 1, nil, ModeEdit)

	assert.Equal(t, "Name", els[0].Placeholder)
	assert.False(t, els[0].Selected)
	assert.True(t, els[1].Selected)
	assert.False(t, els[0].Editable)

	unlabeled := c.Compose(sampleFields(), 2, 1, nil, ModeEdit)
	assert.Equal(t, "text", unlabeled[0].Placeholder)
}

func TestCompose_FillMode(t *testing.T) {
	values := form.Values{
		"name": form.StringValue("Ada"),
		"ok":   form.BoolValue(true),
	}
	els := Compositor{}.Compose(sampleFields(), 1, 1, values, ModeFill)

	assert.True(t, els[0].Editable)
	assert.Equal(t, "Ada", els[0].Text)
	assert.Equal(t, "", els[1].Text)
	assert.Equal(t, "Notes", els[1].Placeholder)
	assert.True(t, els[2].Checked)
}

func TestCompose_ReviewLooksUpByIDThenLabel(t *testing.T) {
	values := form.Values{
		"name":  form.StringValue("by id"),
		"Name":  form.StringValue("by label"),
		"Notes": form.StringValue("label only"),
		"Done":  form.StringValue("on"),
	}
	els := Compositor{}.Compose(sampleFields(), 1, 1, values, ModeReview)

	assert.Equal(t, "by id", els[0].Text)
	assert.Equal(t, "label only", els[1].Text)
	assert.True(t, els[2].Checked)
	for _, el := range els {
		assert.False(t, el.Editable)
		assert.Empty(t, el.Placeholder)
	}
}

func TestCompose_Idempotent(t *testing.T) {
	values := form.Values{"name": form.StringValue("x")}
	a := Compositor{}.Compose(sampleFields(), 1, 1.25, values, ModeFill)
	b := Compositor{}.Compose(sampleFields(), 1, 1.25, values, ModeFill)
	assert.Equal(t, a, b)
}
