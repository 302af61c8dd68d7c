package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/drive-assess/drive-assess/internal/report"
	"github.com/drive-assess/drive-assess/internal/tree"
)

func newCountCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "count",
		Short: "Count files and folders directly inside the source folder",
		Long: `Count the immediate children of the source folder without recursing.
The result is printed as JSON and saved to count_report_file (report1.json).`,
		Args: cobra.NoArgs,
		RunE: runCount,
	}
}

func runCount(cmd *cobra.Command, _ []string) error {
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

	return countAndSave(ctx, cc, client)
}

// countAndSave builds the count report, prints it and writes it to disk.
func countAndSave(ctx context.Context, cc *CLIContext, src tree.Source) error {
	rep, err := report.NewBuilder(src, cc.Logger).Count(ctx, cc.Cfg.SourceFolderID)
	if err != nil {
		return fmt.Errorf("counting source folder: %w", err)
	}

	data, err := report.Marshal(rep)
	if err != nil {
		return err
	}

	if _, err := cc.Out.Write(data); err != nil {
		return fmt.Errorf("writing output: %w", err)
	}

	if err := report.Save(cc.Cfg.CountReportFile, rep); err != nil {
		return err
	}

	fmt.Fprintf(cc.Out, "Report has been saved to %s\n", cc.Cfg.CountReportFile)

	return nil
}
