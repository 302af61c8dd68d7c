package main

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/drive-assess/drive-assess/internal/mirror"
)

// errCopyIncomplete is returned when a copy finished but some items were not
// placed. main exits non-zero without printing it again.
var errCopyIncomplete = errors.New("copy finished with failures")

func newCopyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "copy",
		Short: "Copy the contents of the source folder into the destination folder",
		Long: `Recreate every folder under the source inside the destination folder and
copy every file server-side. Native Google documents keep their type and
shortcuts are re-created pointing at the same target.

A folder that cannot be created is reported together with everything beneath
it. Running copy twice produces two copies; nothing is deduplicated.`,
		Args: cobra.NoArgs,
		RunE: runCopy,
	}
}

func runCopy(cmd *cobra.Command, _ []string) error {
	cc := mustCLIContext(cmd.Context())

	if err := cc.Cfg.RequireDestination(); err != nil {
		return err
	}

	ctx, cancel := shutdownContext(cmd.Context(), cc.Logger)
	defer cancel()

	client, err := newDriveClient(ctx, cc)
	if err != nil {
		return err
	}

	return copyTree(ctx, cc, client)
}

// copyTree mirrors the source into the destination and prints progress and
// a summary.
func copyTree(ctx context.Context, cc *CLIContext, d mirror.Drive) error {
	src, dst := cc.Cfg.SourceFolderID, cc.Cfg.DestinationFolderID

	fmt.Fprintf(cc.Out, "Starting to copy contents from folder %s to %s\n", src, dst)

	m := mirror.New(d, cc.Logger, mirror.WithProgress(func(ev mirror.Event) {
		printCopyEvent(cc.Out, ev)
	}))

	res, err := m.Run(ctx, src, dst)

	printCopySummary(cc.Out, res, err)

	if err != nil {
		return fmt.Errorf("copying folder %s: %w", src, err)
	}

	if res.HasFailures() {
		return fmt.Errorf("%w: %d items not copied", errCopyIncomplete, len(res.Failed))
	}

	return nil
}

// printCopyEvent prints top-level successes and every failure.
func printCopyEvent(w io.Writer, ev mirror.Event) {
	if f := ev.Failure; f != nil {
		if ev.Skipped {
			reason := f.Reason
			if reason == mirror.ReasonVanished {
				reason = "no longer exists"
			}

			fmt.Fprintf(w, "Skipped %s (%s): %s\n", f.Path, f.SourceID, reason)

			return
		}

		fmt.Fprintf(w, "Failed to copy %s (%s): %s\n", f.Path, f.SourceID, f.Reason)

		return
	}

	if ev.Entry.Depth != 1 {
		return
	}

	if ev.Entry.Node.IsFolder() {
		fmt.Fprintf(w, "Copied folder %s to %s\n", ev.Entry.Node.Name, ev.DestID)
		return
	}

	fmt.Fprintf(w, "Copied %s to %s\n", ev.Entry.Node.Name, ev.DestID)
}

func printCopySummary(w io.Writer, res *mirror.Result, runErr error) {
	if runErr != nil {
		fmt.Fprintln(w, "Copy process aborted.")
	} else {
		fmt.Fprintln(w, "Copy process completed.")
	}

	if res == nil {
		return
	}

	fmt.Fprintf(w, "Folders created: %s, items copied: %s, failed: %s, skipped: %s\n",
		formatCount(res.FoldersCreated),
		formatCount(res.ItemsCopied),
		formatCount(len(res.Failed)),
		formatCount(len(res.Skipped)),
	)
}
