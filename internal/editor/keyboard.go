package editor

import (
	"strings"

	"github.com/a3tai/mcp-lab-forms/internal/form"
)

// Key names follow the DOM KeyboardEvent.key values
const (
	KeyArrowUp    = "ArrowUp"
	KeyArrowDown  = "ArrowDown"
	KeyArrowLeft  = "ArrowLeft"
	KeyArrowRight = "ArrowRight"
	KeyDelete     = "Delete"
	KeyBackspace  = "Backspace"
	KeyEscape     = "Escape"

	NudgeStep      = 1.0
	NudgeShiftStep = 10.0
)

// KeyEvent is one key press on the editor canvas
type KeyEvent struct {
	Key   string `json:"key"`
	Shift bool   `json:"shift,omitempty"`
	Ctrl  bool   `json:"ctrl,omitempty"`
	Meta  bool   `json:"meta,omitempty"`
	Alt   bool   `json:"alt,omitempty"`
	// InTextInput is set while an input or textarea has focus
	InTextInput bool `json:"inTextInput,omitempty"`
}

// Shortcuts maps single-letter keys to the field type they create
var Shortcuts = map[string]form.FieldType{
	"t": form.FieldTypeText,
	"a": form.FieldTypeMultiline,
	"n": form.FieldTypeNumber,
	"c": form.FieldTypeCheckbox,
	"d": form.FieldTypeDate,
	"s": form.FieldTypeSignature,
}

// KeyResult describes what a key press did
type KeyResult struct {
	Handled bool
	Action  string
	Created *form.Field
	Count   int
}

// Key handles a key press. Events while a text input has focus are never handled.
func (e *Engine) Key(ev KeyEvent) (KeyResult, error) {
	if ev.InTextInput {
		return KeyResult{}, nil
	}

	if ev.Ctrl || ev.Meta {
		if strings.EqualFold(ev.Key, "a") {
			e.store.SelectAll()
			return KeyResult{Handled: true, Action: "select-all", Count: e.store.SelectionLen()}, nil
		}
		return KeyResult{}, nil
	}

	switch ev.Key {
	case KeyArrowUp, KeyArrowDown, KeyArrowLeft, KeyArrowRight:
		return e.nudge(ev)
	case KeyDelete, KeyBackspace:
		ids := e.store.SelectedIDs()
		if len(ids) == 0 {
			return KeyResult{}, nil
		}
		n, err := e.store.RemoveMany(ids)
		if err != nil {
			return KeyResult{}, err
		}
		return KeyResult{Handled: true, Action: "delete", Count: n}, nil
	case KeyEscape:
		e.Cancel()
		e.store.ClearSelection()
		return KeyResult{Handled: true, Action: "clear"}, nil
	}

	if ev.Alt {
		return KeyResult{}, nil
	}
	t, ok := Shortcuts[strings.ToLower(ev.Key)]
	if !ok {
		return KeyResult{}, nil
	}
	f, err := e.CreateAtPointer(t)
	if err != nil {
		return KeyResult{}, err
	}
	return KeyResult{Handled: true, Action: "create", Created: &f, Count: 1}, nil
}

func (e *Engine) nudge(ev KeyEvent) (KeyResult, error) {
	ids := e.store.SelectedIDs()
	if len(ids) == 0 {
		return KeyResult{}, nil
	}
	step := NudgeStep
	if ev.Shift {
		step = NudgeShiftStep
	}

	var dx, dy float64
	switch ev.Key {
	case KeyArrowUp:
		dy = -step
	case KeyArrowDown:
		dy = step
	case KeyArrowLeft:
		dx = -step
	case KeyArrowRight:
		dx = step
	}
	n, err := e.store.MoveMany(ids, dx, dy)
	if err != nil {
		return KeyResult{}, err
	}
	return KeyResult{Handled: true, Action: "nudge", Count: n}, nil
}
