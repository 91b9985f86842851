package mcp

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"image/png"
	"os"
	"path/filepath"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/pkg/errors"

	"github.com/a3tai/mcp-lab-forms/internal/form"
	"github.com/a3tai/mcp-lab-forms/internal/log"
	"github.com/a3tai/mcp-lab-forms/internal/pdf"
	"github.com/a3tai/mcp-lab-forms/internal/pdf/security"
	"github.com/a3tai/mcp-lab-forms/internal/session"
)

// valuesReport describes the value set of a fill or review session
type valuesReport struct {
	Applied   int      `json:"applied"`
	StudentID string   `json:"studentId,omitempty"`
	Missing   []string `json:"missingRequired"`
}

// exportReport describes a written export
type exportReport struct {
	Path   string `json:"path"`
	Bytes  int    `json:"bytes"`
	SHA256 string `json:"sha256"`
}

func missingNames(fields []form.Field) []string {
	names := make([]string, 0, len(fields))
	for _, f := range fields {
		if f.Label != "" {
			names = append(names, f.Label)
		} else {
			names = append(names, f.ID)
		}
	}
	return names
}

func (s *Server) handleValuesSet(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := request.RequireString("session_id")
	if err != nil {
		return toolError(err)
	}
	raw, ok := request.GetArguments()["values"].(map[string]any)
	if !ok {
		return toolError(errors.New("values must be an object keyed by field id or label"))
	}

	var report valuesReport
	err = s.manager.Do(id, func(sess *session.Session) error {
		if request.GetBool("clear", false) {
			if err := sess.ClearValues(); err != nil {
				return err
			}
		}
		n, err := sess.SetValues(raw)
		if err != nil {
			return err
		}
		report.Applied = n
		report.Missing = missingNames(sess.Missing())
		return nil
	})
	if err != nil {
		return toolError(err)
	}
	return jsonResult(fmt.Sprintf("Applied %d values; %d required fields still empty",
		report.Applied, len(report.Missing)), report)
}

func (s *Server) handleSubmissionLoad(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := request.RequireString("session_id")
	if err != nil {
		return toolError(err)
	}

	var data []byte
	switch v := request.GetArguments()["submission"].(type) {
	case string:
		data = []byte(v)
	case map[string]any:
		if data, err = json.Marshal(v); err != nil {
			return toolError(errors.Wrap(err, "failed to encode submission"))
		}
	default:
		return toolError(errors.New("submission must be a JSON document"))
	}

	var report valuesReport
	err = s.manager.Do(id, func(sess *session.Session) error {
		sub, err := sess.LoadSubmission(data)
		if err != nil {
			return err
		}
		report.Applied = len(sub.Values)
		report.StudentID = sub.Student.ID()
		report.Missing = missingNames(sess.Missing())
		return nil
	})
	if err != nil {
		return toolError(err)
	}
	return jsonResult(fmt.Sprintf("Loaded submission of student %s with %d values",
		report.StudentID, report.Applied), report)
}

func (s *Server) handleOverlayRender(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := request.RequireString("session_id")
	if err != nil {
		return toolError(err)
	}
	page := request.GetInt("page", 1)

	var buf bytes.Buffer
	var summary string
	err = s.manager.Do(id, func(sess *session.Session) error {
		zoomed := sess.Info().Masked
		img, renderErr := sess.RenderPage(ctx, page)
		if img == nil {
			return renderErr
		}
		if err := png.Encode(&buf, img); err != nil {
			return errors.Wrap(err, "failed to encode page image")
		}
		b := img.Bounds()
		summary = fmt.Sprintf("Page %d of %s in %s mode at %.2fx (%dx%d px)",
			page, sess.Store().TemplateID(), sess.Mode(), sess.Scale(), b.Dx(), b.Dy())
		if zoomed {
			summary += "; overlay redrawn at the new zoom"
		}
		if renderErr != nil {
			summary += fmt.Sprintf("; page could not be rendered (%v), fields drawn on a blank page", renderErr)
		}
		return nil
	})
	if err != nil {
		return toolError(err)
	}
	return mcp.NewToolResultImage(summary, base64.StdEncoding.EncodeToString(buf.Bytes()), "image/png"), nil
}

// exportName returns the output file name for an export, defaulting to
// <template>-<session prefix>.pdf
func exportName(requested, templateID, sessionID string) string {
	name := requested
	if name == "" {
		prefix := sessionID
		if len(prefix) > 8 {
			prefix = prefix[:8]
		}
		name = fmt.Sprintf("%s-%s", templateID, prefix)
	}
	if !strings.EqualFold(filepath.Ext(name), ".pdf") {
		name += ".pdf"
	}
	return name
}

func (s *Server) handleSubmissionExport(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := request.RequireString("session_id")
	if err != nil {
		return toolError(err)
	}
	requested := request.GetString("file_name", "")
	if requested != "" && filepath.Base(requested) != requested {
		return toolError(errors.Errorf("file_name %q must be a plain file name", requested))
	}

	var out []byte
	var templateID string
	err = s.manager.Do(id, func(sess *session.Session) error {
		templateID = sess.Store().TemplateID()
		out, err = sess.Export(ctx, request.GetBool("require_complete", true))
		return err
	})
	if err != nil {
		return toolError(err)
	}

	exports, err := security.NewPathValidator(s.config.ExportDirectory())
	if err != nil {
		return toolError(err)
	}
	if err := exports.EnsureDir(); err != nil {
		return toolError(err)
	}
	path, err := exports.Resolve(exportName(requested, templateID, id))
	if err != nil {
		return toolError(err)
	}
	if err := os.WriteFile(path, out, 0o644); err != nil {
		return toolError(errors.Wrapf(err, "failed to write %s", path))
	}

	report := exportReport{Path: path, Bytes: len(out), SHA256: pdf.NewDocument(path, out).Digest()}
	log.WithFields(log.Fields{"session": id, "template": templateID, "path": path}).Info("submission exported")
	return jsonResult(fmt.Sprintf("Exported %s (%d bytes)", path, len(out)), report)
}
