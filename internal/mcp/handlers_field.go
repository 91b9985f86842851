package mcp

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/pkg/errors"

	"github.com/a3tai/mcp-lab-forms/internal/fieldstore"
	"github.com/a3tai/mcp-lab-forms/internal/form"
	"github.com/a3tai/mcp-lab-forms/internal/session"
)

// optFloat returns the number under key, or nil when the caller left it out
func optFloat(request mcp.CallToolRequest, key string) *float64 {
	if _, ok := request.GetArguments()[key]; !ok {
		return nil
	}
	v := request.GetFloat(key, 0)
	return &v
}

func optString(request mcp.CallToolRequest, key string) *string {
	v, ok := request.GetArguments()[key].(string)
	if !ok {
		return nil
	}
	return &v
}

func optBool(request mcp.CallToolRequest, key string) *bool {
	if _, ok := request.GetArguments()[key]; !ok {
		return nil
	}
	v := request.GetBool(key, false)
	return &v
}

// patchFromRequest collects the field properties present in request
func patchFromRequest(request mcp.CallToolRequest) fieldstore.FieldPatch {
	var patch fieldstore.FieldPatch
	if t := optString(request, "type"); t != nil {
		ft := form.FieldType(*t)
		patch.Type = &ft
	}
	if _, ok := request.GetArguments()["page"]; ok {
		page := request.GetInt("page", 0)
		patch.Page = &page
	}
	patch.X = optFloat(request, "x")
	patch.Y = optFloat(request, "y")
	patch.Width = optFloat(request, "width")
	patch.Height = optFloat(request, "height")
	patch.Label = optString(request, "label")
	patch.Required = optBool(request, "required")
	patch.FontSize = optFloat(request, "font_size")
	return patch
}

// withEditor runs fn on the editing engine of session id
func (s *Server) withEditor(id string, fn func(sess *session.Session) error) error {
	return s.manager.Do(id, func(sess *session.Session) error {
		if _, err := sess.Editor(); err != nil {
			return err
		}
		return fn(sess)
	})
}

func (s *Server) handleFieldAdd(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := request.RequireString("session_id")
	if err != nil {
		return toolError(err)
	}
	typ, err := request.RequireString("type")
	if err != nil {
		return toolError(err)
	}
	page, err := request.RequireInt("page")
	if err != nil {
		return toolError(err)
	}
	x, err := request.RequireFloat("x")
	if err != nil {
		return toolError(err)
	}
	y, err := request.RequireFloat("y")
	if err != nil {
		return toolError(err)
	}

	f := form.NewField(form.FieldType(typ), page, x, y)
	if fieldID := request.GetString("field_id", ""); fieldID != "" {
		f.ID = fieldID
	}
	patch := patchFromRequest(request)
	patch.Type, patch.Page, patch.X, patch.Y = nil, nil, nil, nil
	fieldstore.ApplyPatch(&f, patch)

	err = s.withEditor(id, func(sess *session.Session) error {
		ed, _ := sess.Editor()
		return ed.AddField(f)
	})
	if err != nil {
		return toolError(err)
	}
	return jsonResult(fmt.Sprintf("Added %s field %s on page %d", f.Type, f.ID, f.Page), f)
}

func (s *Server) handleFieldUpdate(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := request.RequireString("session_id")
	if err != nil {
		return toolError(err)
	}
	fieldID, err := request.RequireString("field_id")
	if err != nil {
		return toolError(err)
	}
	patch := patchFromRequest(request)

	var updated form.Field
	err = s.withEditor(id, func(sess *session.Session) error {
		ed, _ := sess.Editor()
		updated, err = ed.EditField(fieldID, patch)
		return err
	})
	if err != nil {
		return toolError(err)
	}
	return jsonResult(fmt.Sprintf("Updated field %s", fieldID), updated)
}

func (s *Server) handleFieldResize(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := request.RequireString("session_id")
	if err != nil {
		return toolError(err)
	}
	fieldID, err := request.RequireString("field_id")
	if err != nil {
		return toolError(err)
	}
	w, err := request.RequireFloat("width")
	if err != nil {
		return toolError(err)
	}
	h, err := request.RequireFloat("height")
	if err != nil {
		return toolError(err)
	}

	var resized form.Field
	err = s.withEditor(id, func(sess *session.Session) error {
		ed, _ := sess.Editor()
		resized, err = ed.ResizeTo(fieldID, w, h)
		return err
	})
	if err != nil {
		return toolError(err)
	}
	return jsonResult(fmt.Sprintf("Resized field %s to %gx%g pt", fieldID, resized.Width, resized.Height), resized)
}

func (s *Server) handleFieldRemove(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := request.RequireString("session_id")
	if err != nil {
		return toolError(err)
	}
	ids := request.GetStringSlice("field_ids", nil)
	if len(ids) == 0 {
		return toolError(errors.New("field_ids must list at least one field"))
	}

	var removed int
	var info session.Info
	err = s.withEditor(id, func(sess *session.Session) error {
		removed, err = sess.Store().RemoveMany(ids)
		info = sess.Info()
		return err
	})
	if err != nil {
		return toolError(err)
	}
	return jsonResult(fmt.Sprintf("Removed %d of %d fields", removed, len(ids)), info)
}

func (s *Server) handleFieldSelect(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := request.RequireString("session_id")
	if err != nil {
		return toolError(err)
	}

	var selected []string
	err = s.withEditor(id, func(sess *session.Session) error {
		fs := sess.Store()
		switch {
		case request.GetBool("clear", false):
			fs.ClearSelection()
		case request.GetBool("all", false):
			fs.SelectAll()
		default:
			fs.Select(request.GetStringSlice("field_ids", nil)...)
		}
		selected = fs.SelectedIDs()
		return nil
	})
	if err != nil {
		return toolError(err)
	}
	return jsonResult(fmt.Sprintf("%d fields selected", len(selected)), selected)
}
