package mcp

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/a3tai/mcp-lab-forms/internal/descriptions"
)

// templateLister is implemented by repositories that can enumerate their templates
type templateLister interface {
	List() ([]string, error)
}

func (s *Server) handleServerInfo(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(s.formatServerInfo()), nil
}

func (s *Server) formatServerInfo() string {
	cfg := s.config
	var b strings.Builder

	fmt.Fprintf(&b, "🧪 %s v%s\n\n", cfg.ServerName, cfg.Version)

	b.WriteString("⚙️  Configuration:\n")
	fmt.Fprintf(&b, "  Mode: %s\n", cfg.Mode)
	fmt.Fprintf(&b, "  Data directory: %s\n", cfg.DataDirectory)
	fmt.Fprintf(&b, "  Export directory: %s\n", cfg.ExportDirectory())
	if cfg.StoreURL != "" {
		fmt.Fprintf(&b, "  Template store: %s\n", cfg.StoreURL)
	}
	fmt.Fprintf(&b, "  Lock policy: %s\n", cfg.Lock())
	fmt.Fprintf(&b, "  Editor zoom: %.2f - %.2f\n", cfg.EditScale.Min, cfg.EditScale.Max)
	fmt.Fprintf(&b, "  Filler zoom: %.2f - %.2f\n", cfg.FillScale.Min, cfg.FillScale.Max)
	fmt.Fprintf(&b, "  Zoom mask: %s\n", cfg.ZoomMask)
	fmt.Fprintf(&b, "  Max file size: %d bytes\n\n", cfg.MaxFileSize)

	stats := s.manager.Source().Stats()
	b.WriteString("📦 Document cache:\n")
	fmt.Fprintf(&b, "  Entries: %d of %d (%d bytes)\n", stats.Entries, stats.Capacity, stats.Bytes)
	fmt.Fprintf(&b, "  Hit rate: %.0f%% (%d hits, %d misses)\n\n", stats.HitRate*100, stats.Hits, stats.Misses)

	fmt.Fprintf(&b, "📝 Open sessions: %d\n\n", len(s.manager.List()))

	if lister, ok := s.manager.Repository().(templateLister); ok {
		ids, err := lister.List()
		switch {
		case err != nil:
			fmt.Fprintf(&b, "📂 Templates: unavailable (%v)\n\n", err)
		case len(ids) == 0:
			b.WriteString("📂 Templates: none yet, use template_create or template_import_acroform\n\n")
		default:
			fmt.Fprintf(&b, "📂 Templates (%d):\n", len(ids))
			for _, id := range ids {
				fmt.Fprintf(&b, "  • %s\n", id)
			}
			b.WriteString("\n")
		}
	}

	b.WriteString("🛠️  Available Tools:\n")
	for _, name := range descriptions.GetAllToolNames() {
		fmt.Fprintf(&b, "  • %s: %s\n", name, descriptions.Summary(name))
	}
	return b.String()
}
