package main

import (
	"bytes"
	"context"
	"io"
	"os"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/a3tai/mcp-lab-forms/internal/config"
	"github.com/a3tai/mcp-lab-forms/internal/log"
	"github.com/a3tai/mcp-lab-forms/internal/store"
)

const testVersion = "1.2.3"

func captureStdout(t *testing.T, fn func()) string {
	t.Helper()
	originalStdout := os.Stdout
	r, w, err := os.Pipe()
	require.NoError(t, err)
	os.Stdout = w
	defer func() { os.Stdout = originalStdout }()

	done := make(chan struct{})
	go func() {
		defer close(done)
		fn()
		w.Close()
	}()

	var buf bytes.Buffer
	_, _ = io.Copy(&buf, r)
	<-done
	return buf.String()
}

// restoreLogger puts the process logger back the way the test found it
func restoreLogger(t *testing.T) {
	t.Helper()
	out, level := log.Logger.Out, log.Logger.GetLevel()
	t.Cleanup(func() {
		log.Logger.SetOutput(out)
		log.Logger.SetLevel(level)
	})
}

func TestPrintVersion(t *testing.T) {
	oldVersion, oldBuildTime, oldGitCommit := version, buildTime, gitCommit
	version, buildTime, gitCommit = testVersion, "2024-09-01_10:30:00", "abc123"
	defer func() {
		version, buildTime, gitCommit = oldVersion, oldBuildTime, oldGitCommit
	}()

	output := captureStdout(t, printVersion)

	for _, expected := range []string{
		"MCP Lab Forms",
		"Version: " + testVersion,
		"Build Time: 2024-09-01_10:30:00",
		"Git Commit: abc123",
		"Built with:",
	} {
		assert.Contains(t, output, expected)
	}
}

func TestPrintVersionWithDefaults(t *testing.T) {
	output := captureStdout(t, printVersion)
	assert.Contains(t, output, "Version: "+version)
	assert.Equal(t, 5, strings.Count(output, "\n"))
}

func TestSetupLogging(t *testing.T) {
	tests := []struct {
		name      string
		mode      string
		logLevel  string
		wantOut   io.Writer
		wantLevel logrus.Level
	}{
		{"stdio discards by default", config.ModeStdio, "info", io.Discard, logrus.InfoLevel},
		{"stdio debug goes to stderr", config.ModeStdio, "debug", os.Stderr, logrus.DebugLevel},
		{"server logs to stdout", config.ModeServer, "warn", os.Stdout, logrus.WarnLevel},
		{"unknown level falls back to info", config.ModeServer, "chatty", os.Stdout, logrus.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			restoreLogger(t)
			cfg := config.DefaultConfig()
			cfg.Mode = tt.mode
			cfg.LogLevel = tt.logLevel

			setupLogging(cfg)

			assert.Equal(t, tt.wantOut, log.Logger.Out)
			assert.Equal(t, tt.wantLevel, log.Logger.GetLevel())
		})
	}
}

func TestNewRepository(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.DataDirectory = t.TempDir()

	repo, err := newRepository(cfg)
	require.NoError(t, err)
	assert.IsType(t, &store.FileRepository{}, repo)

	cfg.StoreURL = "https://forms.example.edu/api"
	repo, err = newRepository(cfg)
	require.NoError(t, err)
	assert.IsType(t, &store.HTTPRepository{}, repo)

	cfg.StoreURL = "ftp://forms.example.edu"
	_, err = newRepository(cfg)
	assert.Error(t, err)
}

func TestNewServer(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.DataDirectory = t.TempDir()
	cfg.ServerName = "lab-forms-main-test"

	server, err := newServer(context.Background(), cfg)
	require.NoError(t, err)
	require.NotNil(t, server)
	assert.NotNil(t, server.MCPServer())

	cfg.StoreURL = "not a url\x7f"
	_, err = newServer(context.Background(), cfg)
	assert.Error(t, err)
}
