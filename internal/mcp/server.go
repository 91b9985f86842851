package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/pkg/errors"

	"github.com/a3tai/mcp-lab-forms/internal/config"
	"github.com/a3tai/mcp-lab-forms/internal/log"
	"github.com/a3tai/mcp-lab-forms/internal/pdf/importer"
	"github.com/a3tai/mcp-lab-forms/internal/session"
)

// shutdownTimeout bounds the graceful stop of the HTTP transport
const shutdownTimeout = 5 * time.Second

// Server represents the MCP server instance
type Server struct {
	config    *config.Config
	manager   *session.Manager
	importer  *importer.Importer
	mcpServer *server.MCPServer
}

// NewServer creates a new MCP server instance
func NewServer(cfg *config.Config, manager *session.Manager) (*Server, error) {
	if cfg == nil {
		return nil, errors.New("config cannot be nil")
	}
	if manager == nil {
		return nil, errors.New("session manager cannot be nil")
	}

	mcpServer := server.NewMCPServer(
		cfg.ServerName,
		cfg.Version,
		server.WithToolCapabilities(false),
		server.WithRecovery(),
	)

	s := &Server{
		config:    cfg,
		manager:   manager,
		importer:  importer.New(),
		mcpServer: mcpServer,
	}

	s.registerTools()

	return s, nil
}

// MCPServer exposes the underlying protocol server
func (s *Server) MCPServer() *server.MCPServer { return s.mcpServer }

// Handler returns the streamable HTTP transport as an http.Handler
func (s *Server) Handler() http.Handler {
	return server.NewStreamableHTTPServer(s.mcpServer)
}

// Run starts the MCP server in the configured mode
func (s *Server) Run(ctx context.Context) error {
	defer s.manager.CloseAll()
	if s.config.IsServerMode() {
		return s.runServerMode(ctx)
	}
	return s.runStdioMode(ctx)
}

// runStdioMode runs the server in stdio mode
func (s *Server) runStdioMode(_ context.Context) error {
	log.WithFields(log.Fields{
		"dir":   s.config.DataDirectory,
		"store": s.config.StoreURL,
	}).Debug("starting lab forms MCP server in stdio mode")

	if err := server.ServeStdio(s.mcpServer); err != nil {
		return errors.Wrap(err, "failed to serve stdio")
	}
	return nil
}

// runServerMode serves the streamable HTTP transport until ctx is cancelled
func (s *Server) runServerMode(ctx context.Context) error {
	httpServer := server.NewStreamableHTTPServer(s.mcpServer)
	addr := s.config.Address()

	errCh := make(chan error, 1)
	go func() {
		log.WithFields(log.Fields{"addr": addr}).Info("starting lab forms MCP server in HTTP mode")
		errCh <- httpServer.Start(addr)
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return errors.Wrapf(err, "failed to serve %s", addr)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return errors.Wrap(err, "failed to shut down HTTP server")
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	log.Info("HTTP server stopped")
	return nil
}

// toolError reports err to the caller as a tool failure
func toolError(err error) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultError(err.Error()), nil
}

// jsonResult returns summary followed by v as indented JSON
func jsonResult(summary string, v any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return toolError(errors.Wrap(err, "failed to encode result"))
	}
	return mcp.NewToolResultText(fmt.Sprintf("%s\n\n%s", summary, data)), nil
}
