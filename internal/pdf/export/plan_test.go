package export

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/a3tai/mcp-lab-forms/internal/form"
)

var letterPages = []form.Size{{Width: 612, Height: 792}, {Width: 612, Height: 792}}

func TestPlan_VerticalFlip(t *testing.T) {
	fields := []form.Field{{ID: "name", Type: form.FieldTypeText, Page: 1, X: 72, Y: 100, Width: 200, Height: 30}}
	stamps := Plan(fields, form.Values{"name": form.StringValue("Ada")}, letterPages)

	require.Len(t, stamps, 1)
	assert.Equal(t, 680.0, stamps[0].Y, "792 - 100 - 12")
	assert.Equal(t, 72.0, stamps[0].X)
	assert.Equal(t, 12.0, stamps[0].FontSize)
	assert.Equal(t, "Ada", stamps[0].Text)
}

func TestPlan_CustomFontSize(t *testing.T) {
	size := 20.0
	fields := []form.Field{{ID: "a", Type: form.FieldTypeNumber, Page: 2, X: 10, Y: 50, Width: 100, Height: 30, FontSize: &size}}
	stamps := Plan(fields, form.Values{"a": form.NumberValue(42.5)}, letterPages)

	require.Len(t, stamps, 1)
	assert.Equal(t, 2, stamps[0].Page)
	assert.Equal(t, 722.0, stamps[0].Y)
	assert.Equal(t, "42.5", stamps[0].Text)
}

func TestPlan_CheckboxMark(t *testing.T) {
	fields := []form.Field{{ID: "ok", Type: form.FieldTypeCheckbox, Page: 1, X: 300, Y: 200, Width: 20, Height: 20}}

	stamps := Plan(fields, form.Values{"ok": form.StringValue("on")}, letterPages)
	require.Len(t, stamps, 1)
	s := stamps[0]
	assert.Equal(t, "X", s.Text)
	assert.InDelta(t, 304, s.X, 1e-9, "20% of the width inward")
	assert.InDelta(t, 576, s.Y, 1e-9, "792 - 200 - 0.8*20")
	assert.InDelta(t, 14, s.FontSize, 1e-9, "70% of the height")

	assert.Empty(t, Plan(fields, form.Values{"ok": form.BoolValue(false)}, letterPages))
	assert.Empty(t, Plan(fields, form.Values{"ok": form.StringValue("")}, letterPages))
}

func TestPlan_SkipsEmptyAndMissing(t *testing.T) {
	fields := []form.Field{
		{ID: "blank", Type: form.FieldTypeText, Page: 1, X: 10, Y: 10, Width: 100, Height: 30},
		{ID: "spaces", Type: form.FieldTypeText, Page: 1, X: 10, Y: 50, Width: 100, Height: 30},
		{ID: "absent", Type: form.FieldTypeDate, Page: 1, X: 10, Y: 90, Width: 100, Height: 30},
		{ID: "offpage", Type: form.FieldTypeText, Page: 3, X: 10, Y: 10, Width: 100, Height: 30},
	}
	values := form.Values{
		"blank":   form.StringValue(""),
		"spaces":  form.StringValue("   "),
		"offpage": form.StringValue("lost"),
	}
	assert.Empty(t, Plan(fields, values, letterPages))
}

func TestPlan_LabelFallback(t *testing.T) {
	fields := []form.Field{{ID: "f1", Type: form.FieldTypeText, Label: "Roll No", Page: 1, X: 10, Y: 10, Width: 100, Height: 30}}
	stamps := Plan(fields, form.Values{"Roll No": form.StringValue("CS-17")}, letterPages)
	require.Len(t, stamps, 1)
	assert.Equal(t, "CS-17", stamps[0].Text)
}

func TestPlan_WrapsToFieldWidth(t *testing.T) {
	fields := []form.Field{{ID: "obs", Type: form.FieldTypeMultiline, Page: 1, X: 50, Y: 100, Width: 120, Height: 90}}
	text := "the solution turned pale blue after adding three drops of indicator"
	stamps := Plan(fields, form.Values{"obs": form.StringValue(text)}, letterPages)

	require.Greater(t, len(stamps), 1)
	for i, s := range stamps {
		assert.LessOrEqual(t, TextWidth(s.Text, 12), 120.0, s.Text)
		assert.InDelta(t, 680-float64(i)*12*1.2, s.Y, 1e-9)
		assert.Equal(t, 50.0, s.X)
	}
}

func TestWrap(t *testing.T) {
	assert.Equal(t, []string{"short"}, Wrap("short", 200, 12))
	assert.Equal(t, []string{"a", "", "b"}, Wrap("a\n\nb", 200, 12))

	parts := Wrap("Supercalifragilisticexpialidocious", 40, 12)
	require.Greater(t, len(parts), 1)
	for _, p := range parts {
		assert.LessOrEqual(t, TextWidth(p, 12), 40.0)
	}
}
