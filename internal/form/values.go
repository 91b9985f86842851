package form

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// ErrUnsupportedValue is returned for submitted values that are not scalars
var ErrUnsupportedValue = errors.New("unsupported value")

// ValueKind discriminates the Value union
type ValueKind int

const (
	KindString ValueKind = iota
	KindNumber
	KindBool
)

// Value is one submitted scalar: a string, a number or a boolean.
// Checkbox values are always held as booleans.
type Value struct {
	kind ValueKind
	str  string
	num  float64
	flag bool
}

func StringValue(s string) Value { return Value{kind: KindString, str: s} }
func NumberValue(n float64) Value { return Value{kind: KindNumber, num: n} }
func BoolValue(b bool) Value { return Value{kind: KindBool, flag: b} }

// Kind returns the active member of the union
func (v Value) Kind() ValueKind { return v.kind }

// IsEmpty reports whether the value should be treated as not filled in
func (v Value) IsEmpty() bool {
	return v.kind == KindString && strings.TrimSpace(v.str) == ""
}

// String renders the value the way it is drawn onto a form
func (v Value) String() string {
	switch v.kind {
	case KindNumber:
		return strconv.FormatFloat(v.num, 'f', -1, 64)
	case KindBool:
		return strconv.FormatBool(v.flag)
	default:
		return v.str
	}
}

// Checked reports whether the value marks a checkbox as checked
func (v Value) Checked() bool {
	switch v.kind {
	case KindBool:
		return v.flag
	case KindNumber:
		return v.num != 0
	default:
		return isCheckedString(v.str)
	}
}

// MarshalJSON encodes the value as a bare JSON scalar
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindNumber:
		return json.Marshal(v.num)
	case KindBool:
		return json.Marshal(v.flag)
	default:
		return json.Marshal(v.str)
	}
}

// UnmarshalJSON decodes a bare JSON scalar
func (v *Value) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	parsed, ok, err := scalar(raw)
	if err != nil {
		return err
	}
	if !ok {
		*v = StringValue("")
		return nil
	}
	*v = parsed
	return nil
}

func isCheckedString(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "on", "yes", "1", "x", "checked":
		return true
	}
	return false
}

// scalar converts a decoded JSON value. ok is false for null.
func scalar(raw any) (Value, bool, error) {
	switch t := raw.(type) {
	case nil:
		return Value{}, false, nil
	case string:
		return StringValue(t), true, nil
	case bool:
		return BoolValue(t), true, nil
	case float64:
		return NumberValue(t), true, nil
	case float32:
		return NumberValue(float64(t)), true, nil
	case int:
		return NumberValue(float64(t)), true, nil
	case int64:
		return NumberValue(float64(t)), true, nil
	case json.Number:
		n, err := t.Float64()
		if err != nil {
			return StringValue(t.String()), true, nil
		}
		return NumberValue(n), true, nil
	default:
		return Value{}, false, errors.Wrapf(ErrUnsupportedValue, "%T", raw)
	}
}

// Values maps field ids (or, as a fallback, field labels) to submitted values
type Values map[string]Value

// Lookup finds the value for f, preferring its id over its label
func (vs Values) Lookup(f Field) (Value, bool) {
	if v, ok := vs[f.ID]; ok {
		return v, true
	}
	if f.Label != "" {
		if v, ok := vs[f.Label]; ok {
			return v, true
		}
	}
	return Value{}, false
}

// ParseValues normalises raw submitted values. Keys may be field ids or labels.
// Checkbox values are parsed leniently (true, "true", "on", ...) into booleans;
// null entries are dropped.
func ParseValues(raw map[string]any, fields []Field) (Values, error) {
	byKey := make(map[string]Field, len(fields)*2)
	for _, f := range fields {
		if f.Label != "" {
			if _, taken := byKey[f.Label]; !taken {
				byKey[f.Label] = f
			}
		}
	}
	for _, f := range fields {
		byKey[f.ID] = f
	}

	out := make(Values, len(raw))
	for key, r := range raw {
		v, ok, err := scalar(r)
		if err != nil {
			return nil, errors.Wrapf(err, "value for %q", key)
		}
		if !ok {
			continue
		}
		if f, known := byKey[key]; known && f.Type == FieldTypeCheckbox {
			v = BoolValue(v.Checked())
		}
		out[key] = v
	}
	return out, nil
}

// MissingRequired returns the required fields that have no usable value
func MissingRequired(fields []Field, values Values) []Field {
	var missing []Field
	for _, f := range fields {
		if !f.Required {
			continue
		}
		v, ok := values.Lookup(f)
		switch {
		case !ok:
			missing = append(missing, f)
		case f.Type == FieldTypeCheckbox && !v.Checked():
			missing = append(missing, f)
		case f.Type != FieldTypeCheckbox && v.IsEmpty():
			missing = append(missing, f)
		}
	}
	return missing
}
