package main

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/drive-assess/drive-assess/internal/config"
)

// newTestCLIContext returns a CLIContext writing to a buffer, with report
// files placed in a temp dir.
func newTestCLIContext(t *testing.T, source, dest string) (*CLIContext, *bytes.Buffer) {
	t.Helper()

	dir := t.TempDir()
	cfg := config.DefaultConfig()
	cfg.SourceFolderID = source
	cfg.DestinationFolderID = dest
	cfg.CountReportFile = filepath.Join(dir, "report1.json")
	cfg.ReportFile = filepath.Join(dir, "report2.json")
	cfg.TokenFile = filepath.Join(dir, "token.json")

	var out bytes.Buffer

	return &CLIContext{
		Cfg:    cfg,
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		Out:    &out,
	}, &out
}

// errWriter fails every write.
type errWriter struct{}

func (errWriter) Write([]byte) (int, error) {
	return 0, fmt.Errorf("broken pipe")
}
