package form

import (
	"math"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate(t *testing.T) {
	zero := 0.0
	tests := []struct {
		name    string
		field   Field
		wantErr error
	}{
		{"valid", Field{ID: "a", Type: FieldTypeText, Page: 2, Width: 10, Height: 10}, nil},
		{"page zero", Field{ID: "a", Page: 0, Width: 10, Height: 10}, ErrFieldOutOfBounds},
		{"page past end", Field{ID: "a", Page: 4, Width: 10, Height: 10}, ErrFieldOutOfBounds},
		{"zero width", Field{ID: "a", Page: 1, Width: 0, Height: 10}, ErrInvalidDimensions},
		{"negative height", Field{ID: "a", Page: 1, Width: 10, Height: -1}, ErrInvalidDimensions},
		{"infinite width", Field{ID: "a", Page: 1, Width: math.Inf(1), Height: 5}, ErrInvalidDimensions},
		{"nan x", Field{ID: "a", Page: 1, X: math.NaN(), Width: 5, Height: 5}, ErrInvalidDimensions},
		{"zero font", Field{ID: "a", Page: 1, Width: 5, Height: 5, FontSize: &zero}, ErrInvalidDimensions},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.field, 3)
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)
		})
	}
}

func TestNewField_DefaultSizes(t *testing.T) {
	for _, ft := range FieldTypes {
		f := NewField(ft, 1, 5, 6)
		assert.NotEmpty(t, f.ID)
		assert.Equal(t, ft, f.Type)
		assert.NoError(t, Validate(f, 1), "type %s", ft)
	}

	cb := NewField(FieldTypeCheckbox, 1, 0, 0)
	assert.Equal(t, cb.Width, cb.Height, "checkbox starts square")
}

func TestField_EffectiveFontSize(t *testing.T) {
	size := 9.0
	assert.Equal(t, DefaultFontSize, Field{}.EffectiveFontSize())
	assert.Equal(t, 9.0, Field{FontSize: &size}.EffectiveFontSize())
}

func TestTemplate_Duplicate(t *testing.T) {
	size := 14.0
	src := &Template{
		ID:          "tpl-1",
		Title:       "Titration",
		PageCount:   2,
		IsPublished: true,
		Fields: []Field{
			{ID: "f1", Type: FieldTypeText, Page: 1, X: 10, Y: 10, Width: 100, Height: 20, FontSize: &size},
			{ID: "f2", Type: FieldTypeCheckbox, Page: 2, X: 50, Y: 60, Width: 20, Height: 20},
		},
	}

	dup := src.Duplicate("tpl-2", "Titration (copy)")

	require.Len(t, dup.Fields, 2)
	assert.Equal(t, "tpl-2", dup.ID)
	assert.False(t, dup.IsPublished)
	for i := range dup.Fields {
		assert.NotEqual(t, src.Fields[i].ID, dup.Fields[i].ID)
		assert.Equal(t, src.Fields[i].X, dup.Fields[i].X)
		assert.Equal(t, src.Fields[i].Page, dup.Fields[i].Page)
	}

	*dup.Fields[0].FontSize = 20
	assert.Equal(t, 14.0, *src.Fields[0].FontSize, "font size must not be shared")
	assert.NoError(t, dup.Validate())
}

func TestTemplate_ValidateDuplicateIDs(t *testing.T) {
	tpl := &Template{
		ID:        "t",
		PageCount: 1,
		Fields: []Field{
			{ID: "x", Type: FieldTypeText, Page: 1, Width: 1, Height: 1},
			{ID: "x", Type: FieldTypeText, Page: 1, Width: 1, Height: 1},
		},
	}
	assert.Error(t, tpl.Validate())

	tpl.Fields[1].ID = "y"
	tpl.Fields[1].Type = "radio"
	err := tpl.Validate()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnknownFieldType))
}

func TestFilterPage(t *testing.T) {
	fields := []Field{{ID: "a", Page: 1}, {ID: "b", Page: 2}, {ID: "c", Page: 1}}
	got := FilterPage(fields, 1)
	require.Len(t, got, 2)
	assert.Equal(t, "a", got[0].ID)
	assert.Equal(t, "c", got[1].ID)
}
