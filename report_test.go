package main

import (
	"context"
	"encoding/json"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/drive-assess/drive-assess/internal/drivetest"
	"github.com/drive-assess/drive-assess/internal/report"
)

func reportFixture() *drivetest.Fake {
	f := drivetest.New()
	f.AddFolder(drivetest.RootID, "A", "Alpha")
	f.AddFolder("A", "B", "Beta")
	f.AddFile("B", "", "one.bin", 1024)
	f.AddFile("B", "", "two.bin", 2048)
	f.AddFile(drivetest.RootID, "", "loose.txt", 5)

	return f
}

func TestReportAndSave_JSON(t *testing.T) {
	cc, out := newTestCLIContext(t, drivetest.RootID, "")
	cc.Flags.Quiet = true

	require.NoError(t, reportAndSave(context.Background(), cc, reportFixture(), false))

	assert.Contains(t, out.String(), `"top_level_folders"`)
	assert.Contains(t, out.String(), "Report has been saved to "+cc.Cfg.ReportFile)

	data, err := os.ReadFile(cc.Cfg.ReportFile)
	require.NoError(t, err)

	var saved report.Report
	require.NoError(t, json.Unmarshal(data, &saved))
	require.Len(t, saved.Folders, 1)
	assert.Equal(t, 2, saved.Folders[0].FileCount)
	assert.Equal(t, 1, saved.Folders[0].FolderCount)
	assert.Equal(t, int64(3072), saved.Folders[0].TotalSize)
	assert.Len(t, saved.Files, 1)
	assert.Equal(t, 1, saved.TotalNestedFolders)
}

func TestReportAndSave_Table(t *testing.T) {
	cc, out := newTestCLIContext(t, drivetest.RootID, "")
	cc.Flags.Quiet = true

	require.NoError(t, reportAndSave(context.Background(), cc, reportFixture(), true))

	text := out.String()
	assert.Contains(t, text, "FOLDER")
	assert.Contains(t, text, "Alpha")
	assert.Contains(t, text, "3.0 KiB")
	assert.Contains(t, text, "Top-level files: 1")
	assert.Contains(t, text, "Total nested folders: 1")
	assert.NotContains(t, text, `"top_level_folders"`)

	_, err := os.Stat(cc.Cfg.ReportFile)
	assert.NoError(t, err)
}

func TestReportAndSave_MissingRoot(t *testing.T) {
	cc, _ := newTestCLIContext(t, "missing", "")
	cc.Flags.Quiet = true

	err := reportAndSave(context.Background(), cc, drivetest.New(), false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "building report")
}
