package mcp

import (
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/pkg/errors"

	"github.com/a3tai/mcp-lab-forms/internal/form"
	"github.com/a3tai/mcp-lab-forms/internal/overlay"
	"github.com/a3tai/mcp-lab-forms/internal/session"
	"github.com/a3tai/mcp-lab-forms/internal/store"
)

// importResult is the outcome of template_import_acroform
type importResult struct {
	Session session.Info `json:"session"`
	Skipped []string     `json:"skipped,omitempty"`
}

func (s *Server) handleTemplateOpen(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	templateID, err := request.RequireString("template_id")
	if err != nil {
		return toolError(err)
	}
	mode, err := overlay.ParseMode(request.GetString("mode", "edit"))
	if err != nil {
		return toolError(err)
	}

	info, err := s.manager.Open(ctx, templateID, mode)
	if err != nil {
		return toolError(err)
	}
	return jsonResult(fmt.Sprintf("Opened %q in %s mode: session %s, %d pages, %d fields",
		info.Title, info.Mode, info.SessionID, info.PageCount, info.FieldCount), info)
}

// newTemplate builds an empty template over the PDF at pdfURL using its real geometry
func (s *Server) newTemplate(ctx context.Context, id, title, pdfURL string) (*form.Template, []byte, error) {
	if !store.ValidDocumentID(id) {
		return nil, nil, errors.Wrapf(store.ErrInvalidDocument, "bad template id %q", id)
	}
	doc, geom, err := s.manager.Inspect(ctx, pdfURL)
	if err != nil {
		return nil, nil, err
	}
	return &form.Template{
		ID:         id,
		Title:      title,
		PDFURL:     pdfURL,
		PageCount:  geom.PageCount,
		Dimensions: geom.FirstPage(),
	}, doc.Bytes, nil
}

func (s *Server) handleTemplateCreate(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := request.RequireString("template_id")
	if err != nil {
		return toolError(err)
	}
	title, err := request.RequireString("title")
	if err != nil {
		return toolError(err)
	}
	pdfURL, err := request.RequireString("pdf_url")
	if err != nil {
		return toolError(err)
	}

	tpl, _, err := s.newTemplate(ctx, id, title, pdfURL)
	if err != nil {
		return toolError(err)
	}
	info, err := s.manager.Create(ctx, tpl)
	if err != nil {
		return toolError(err)
	}
	return jsonResult(fmt.Sprintf("Created template %s (%d pages) and opened edit session %s",
		tpl.ID, tpl.PageCount, info.SessionID), info)
}

func (s *Server) handleTemplateDuplicate(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	srcID, err := request.RequireString("template_id")
	if err != nil {
		return toolError(err)
	}
	newID := request.GetString("new_id", "")
	if newID == "" {
		newID = uuid.NewString()
	}
	if !store.ValidDocumentID(newID) {
		return toolError(errors.Wrapf(store.ErrInvalidDocument, "bad template id %q", newID))
	}

	dup, err := s.manager.Duplicate(ctx, srcID, newID, request.GetString("title", ""))
	if err != nil {
		return toolError(err)
	}
	return jsonResult(fmt.Sprintf("Duplicated %s as %s (%q, %d fields, unpublished)",
		srcID, dup.ID, dup.Title, len(dup.Fields)), store.ToWire(dup))
}

func (s *Server) handleTemplateImport(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	pdfURL, err := request.RequireString("pdf_url")
	if err != nil {
		return toolError(err)
	}
	id := request.GetString("template_id", "")
	if id == "" {
		id = uuid.NewString()
	}
	title := request.GetString("title", "")
	if title == "" {
		base := path.Base(pdfURL)
		title = strings.TrimSuffix(base, path.Ext(base))
	}

	tpl, data, err := s.newTemplate(ctx, id, title, pdfURL)
	if err != nil {
		return toolError(err)
	}
	res, err := s.importer.ImportBytes(data)
	if err != nil {
		return toolError(err)
	}
	tpl.Fields = res.Fields

	info, err := s.manager.Create(ctx, tpl)
	if err != nil {
		return toolError(err)
	}
	return jsonResult(fmt.Sprintf("Imported %d fields from %s into template %s (%d skipped); edit session %s",
		len(res.Fields), pdfURL, tpl.ID, len(res.Skipped), info.SessionID),
		importResult{Session: info, Skipped: res.Skipped})
}

func (s *Server) handleTemplateSave(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := request.RequireString("session_id")
	if err != nil {
		return toolError(err)
	}

	var info session.Info
	err = s.manager.Do(id, func(sess *session.Session) error {
		if err := sess.Save(ctx); err != nil {
			return err
		}
		info = sess.Info()
		return nil
	})
	if err != nil {
		return toolError(err)
	}
	return jsonResult(fmt.Sprintf("Saved template %s (%d fields)", info.TemplateID, info.FieldCount), info)
}

func (s *Server) handleTemplateUpdate(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := request.RequireString("session_id")
	if err != nil {
		return toolError(err)
	}
	args := request.GetArguments()

	var info session.Info
	err = s.manager.Do(id, func(sess *session.Session) error {
		if _, err := sess.Editor(); err != nil {
			return err
		}
		if title, ok := args["title"].(string); ok {
			sess.Store().SetTitle(title)
		}
		if _, ok := args["published"]; ok {
			if err := sess.Store().SetPublished(request.GetBool("published", false)); err != nil {
				return err
			}
		}
		info = sess.Info()
		return nil
	})
	if err != nil {
		return toolError(err)
	}
	return jsonResult(fmt.Sprintf("Template %s: %q, published=%t (unsaved until template_save)",
		info.TemplateID, info.Title, info.Published), info)
}

func (s *Server) handleSessionClose(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := request.RequireString("session_id")
	if err != nil {
		return toolError(err)
	}
	info, err := s.manager.Close(id)
	if err != nil {
		return toolError(err)
	}
	summary := fmt.Sprintf("Closed session %s on %s", id, info.TemplateID)
	if info.Dirty {
		summary += " (unsaved edits were discarded)"
	}
	return jsonResult(summary, info)
}

func (s *Server) handleSessionList(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessions := s.manager.List()
	return jsonResult(fmt.Sprintf("%d open sessions", len(sessions)), sessions)
}
