package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/pkg/errors"

	"github.com/a3tai/mcp-lab-forms/internal/config"
	"github.com/a3tai/mcp-lab-forms/internal/log"
	"github.com/a3tai/mcp-lab-forms/internal/mcp"
	"github.com/a3tai/mcp-lab-forms/internal/pdf"
	"github.com/a3tai/mcp-lab-forms/internal/session"
	"github.com/a3tai/mcp-lab-forms/internal/store"
)

var (
	version   = "dev"     // This will be set by build flags
	buildTime = "unknown" // This will be set by build flags
	gitCommit = "unknown" // This will be set by build flags
)

// setupLogging configures logging based on the server mode
func setupLogging(cfg *config.Config) {
	log.SetLevel(log.ParseLevel(cfg.LogLevel))
	if cfg.IsStdioMode() {
		// stdout carries the MCP protocol
		if cfg.IsDebug() {
			log.SetOutput(os.Stderr)
		} else {
			log.SetOutput(io.Discard)
		}
		return
	}
	log.SetOutput(os.Stdout)
}

// newRepository picks the remote document store when one is configured
func newRepository(cfg *config.Config) (store.Repository, error) {
	if cfg.StoreURL != "" {
		return store.NewHTTPRepository(cfg.StoreURL, nil)
	}
	return store.NewFileRepository(cfg.DataDirectory)
}

// newServer wires the template store, PDF source and session manager behind the MCP server
func newServer(ctx context.Context, cfg *config.Config) (*mcp.Server, error) {
	repo, err := newRepository(cfg)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open template store")
	}
	src, err := pdf.NewSource(pdf.SourceOptions{
		BaseDir:      cfg.DataDirectory,
		MaxFileSize:  cfg.MaxFileSize,
		CacheEntries: cfg.CacheEntries,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to create PDF source")
	}
	manager, err := session.NewManager(ctx, session.Options{
		Repository: repo,
		Source:     src,
		Lock:       cfg.Lock(),
		EditScale:  cfg.EditScale,
		FillScale:  cfg.FillScale,
		ZoomMask:   cfg.ZoomMask,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to create session manager")
	}
	return mcp.NewServer(cfg, manager)
}

func main() {
	cfg, err := config.LoadFromFlags()
	if err != nil {
		if err.Error() == "version requested" {
			printVersion()
			return
		}
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Set version if it was provided during build
	if version != "dev" {
		cfg.Version = version
	}

	setupLogging(cfg)
	if cfg.IsServerMode() {
		log.Debugf("Starting with configuration: %s", cfg.String())
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
	defer stop()

	server, err := newServer(ctx, cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create MCP server: %v\n", err)
		os.Exit(1)
	}

	if err := server.Run(ctx); err != nil {
		log.Errorf("Server error: %v", err)
		stop()
		os.Exit(1)
	}
	log.Info("Server stopped")
}

// printVersion prints version information
func printVersion() {
	fmt.Printf("MCP Lab Forms\n")
	fmt.Printf("Version: %s\n", version)
	fmt.Printf("Build Time: %s\n", buildTime)
	fmt.Printf("Git Commit: %s\n", gitCommit)
	fmt.Printf("Built with: %s\n", runtime.Version())
}
