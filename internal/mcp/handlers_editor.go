package mcp

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/pkg/errors"

	"github.com/a3tai/mcp-lab-forms/internal/editor"
	"github.com/a3tai/mcp-lab-forms/internal/form"
	"github.com/a3tai/mcp-lab-forms/internal/overlay"
	"github.com/a3tai/mcp-lab-forms/internal/session"
)

// editorView is what the editor tools report after each event
type editorView struct {
	Gesture  string       `json:"gesture"`
	Marquee  *form.Rect   `json:"marquee,omitempty"`
	Selected []form.Field `json:"selected"`
	Action   string       `json:"action,omitempty"`
	Created  *form.Field  `json:"created,omitempty"`
	Count    int          `json:"count,omitempty"`
}

func viewOf(sess *session.Session, ed *editor.Engine) editorView {
	v := editorView{Gesture: ed.Gesture().String(), Selected: []form.Field{}}
	if r, ok := ed.Marquee(); ok {
		v.Marquee = &r
	}
	for _, fid := range sess.Store().SelectedIDs() {
		if f, ok := sess.Store().Get(fid); ok {
			v.Selected = append(v.Selected, f)
		}
	}
	return v
}

// sessionState is the editor_state report
type sessionState struct {
	Session session.Info      `json:"session"`
	Layout  []editor.PageBox  `json:"layout"`
	Gesture string            `json:"gesture,omitempty"`
	Fields  []form.Field      `json:"fields"`
	Values  map[string]string `json:"values,omitempty"`
}

func (s *Server) handleEditorPointer(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := request.RequireString("session_id")
	if err != nil {
		return toolError(err)
	}
	action, err := request.RequireString("action")
	if err != nil {
		return toolError(err)
	}
	var p form.Point
	if action != "cancel" {
		if p.X, err = request.RequireFloat("x"); err != nil {
			return toolError(err)
		}
		if p.Y, err = request.RequireFloat("y"); err != nil {
			return toolError(err)
		}
	}

	var view editorView
	err = s.manager.Do(id, func(sess *session.Session) error {
		ed, err := sess.Editor()
		if err != nil {
			return err
		}
		switch action {
		case "down":
			ed.PointerDown(p)
		case "move":
			err = ed.PointerMove(p)
		case "up":
			err = ed.PointerUp(p)
		case "cancel":
			ed.Cancel()
		default:
			return errors.Errorf("unknown pointer action %q (must be down, move, up or cancel)", action)
		}
		view = viewOf(sess, ed)
		return err
	})
	if err != nil {
		return toolError(err)
	}
	return jsonResult(fmt.Sprintf("Pointer %s at (%g, %g): gesture %s, %d selected",
		action, p.X, p.Y, view.Gesture, len(view.Selected)), view)
}

func (s *Server) handleEditorKey(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := request.RequireString("session_id")
	if err != nil {
		return toolError(err)
	}
	key, err := request.RequireString("key")
	if err != nil {
		return toolError(err)
	}
	ev := editor.KeyEvent{
		Key:         key,
		Shift:       request.GetBool("shift", false),
		Ctrl:        request.GetBool("ctrl", false),
		Meta:        request.GetBool("meta", false),
		Alt:         request.GetBool("alt", false),
		InTextInput: request.GetBool("in_text_input", false),
	}

	var view editorView
	var handled bool
	err = s.manager.Do(id, func(sess *session.Session) error {
		ed, err := sess.Editor()
		if err != nil {
			return err
		}
		res, err := ed.Key(ev)
		if err != nil {
			return err
		}
		handled = res.Handled
		view = viewOf(sess, ed)
		view.Action, view.Created, view.Count = res.Action, res.Created, res.Count
		return nil
	})
	if err != nil {
		return toolError(err)
	}
	if !handled {
		return jsonResult(fmt.Sprintf("Key %q ignored", key), view)
	}
	return jsonResult(fmt.Sprintf("Key %q: %s (%d)", key, view.Action, view.Count), view)
}

func (s *Server) handleEditorState(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := request.RequireString("session_id")
	if err != nil {
		return toolError(err)
	}
	page := request.GetInt("page", 0)

	var state sessionState
	err = s.manager.Do(id, func(sess *session.Session) error {
		state.Session = sess.Info()
		state.Layout = sess.PageBoxes()
		if page > 0 {
			state.Fields = sess.Store().FieldsOnPage(page)
		} else {
			state.Fields = sess.Store().Fields()
		}
		if ed, err := sess.Editor(); err == nil {
			state.Gesture = ed.Gesture().String()
		}
		if sess.Mode() != overlay.ModeEdit && len(sess.Values()) > 0 {
			state.Values = make(map[string]string, len(sess.Values()))
			for k, v := range sess.Values() {
				state.Values[k] = v.String()
			}
		}
		return nil
	})
	if err != nil {
		return toolError(err)
	}
	return jsonResult(fmt.Sprintf("Session %s: %s mode, %d fields shown, %d selected, scale %.2f",
		id, state.Session.Mode, len(state.Fields), len(state.Session.Selected), state.Session.Scale), state)
}

func (s *Server) handleViewZoom(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := request.RequireString("session_id")
	if err != nil {
		return toolError(err)
	}
	scale, err := request.RequireFloat("scale")
	if err != nil {
		return toolError(err)
	}

	var info session.Info
	var applied float64
	err = s.manager.Do(id, func(sess *session.Session) error {
		applied = sess.SetScale(scale)
		info = sess.Info()
		return nil
	})
	if err != nil {
		return toolError(err)
	}
	summary := fmt.Sprintf("Scale set to %.2f", applied)
	if applied != scale {
		summary = fmt.Sprintf("Scale %.2f clamped to %.2f", scale, applied)
	}
	return jsonResult(summary, info)
}
