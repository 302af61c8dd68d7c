package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/drive-assess/drive-assess/internal/report"
	"github.com/drive-assess/drive-assess/internal/tree"
)

var flagTable bool

func newReportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Report recursive totals for each top-level folder in the source",
		Long: `Walk every folder directly inside the source folder and total the files,
folders and known sizes in its subtree. Files directly inside the source are
listed without expansion. The report is printed as JSON (or a table with
--table) and saved to report_file (report2.json).

Native Google documents have no stored size and count as 0 bytes.`,
		Args: cobra.NoArgs,
		RunE: runReport,
	}

	cmd.Flags().BoolVar(&flagTable, "table", false, "print a human-readable table instead of JSON")

	return cmd
}

func runReport(cmd *cobra.Command, _ []string) error {
	cc := mustCLIContext(cmd.Context())

	if err := cc.Cfg.RequireSource(); err != nil {
		return err
	}

	ctx, cancel := shutdownContext(cmd.Context(), cc.Logger)
	defer cancel()

	client, err := newDriveClient(ctx, cc)
	if err != nil {
		return err
	}

	return reportAndSave(ctx, cc, client, flagTable)
}

// reportAndSave builds the folder report, prints it and writes it to disk.
func reportAndSave(ctx context.Context, cc *CLIContext, src tree.Source, table bool) error {
	cc.Statusf("Building report for folder %s...\n", cc.Cfg.SourceFolderID)

	rep, err := report.NewBuilder(src, cc.Logger).Build(ctx, cc.Cfg.SourceFolderID)
	if err != nil {
		return fmt.Errorf("building report: %w", err)
	}

	if table {
		printReportTable(cc.Out, rep)
	} else {
		data, err := report.Marshal(rep)
		if err != nil {
			return err
		}

		if _, err := cc.Out.Write(data); err != nil {
			return fmt.Errorf("writing output: %w", err)
		}
	}

	if err := report.Save(cc.Cfg.ReportFile, rep); err != nil {
		return err
	}

	fmt.Fprintf(cc.Out, "Report has been saved to %s\n", cc.Cfg.ReportFile)

	return nil
}

func printReportTable(w io.Writer, rep *report.Report) {
	headers := []string{"FOLDER", "ID", "FILES", "FOLDERS", "ITEMS", "SIZE"}
	rows := make([][]string, 0, len(rep.Folders))

	for i := range rep.Folders {
		s := &rep.Folders[i]
		rows = append(rows, []string{
			s.Name,
			s.ID,
			formatCount(s.FileCount),
			formatCount(s.FolderCount),
			formatCount(s.TotalItems),
			formatSize(s.TotalSize),
		})
	}

	printTable(w, headers, rows)

	fmt.Fprintf(w, "\nTop-level files: %s\n", formatCount(len(rep.Files)))
	fmt.Fprintf(w, "Total nested folders: %s\n", formatCount(rep.TotalNestedFolders))

	for _, s := range rep.Skipped {
		fmt.Fprintf(w, "Skipped %s (%s): %s\n", s.Path, s.ID, s.Reason)
	}
}
