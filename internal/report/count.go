package report

import (
	"context"
	"fmt"
)

// CountReport is the non-recursive tally of a folder's immediate children.
type CountReport struct {
	SourceFolderID string `json:"source_folder_id"`
	FileCount      int    `json:"file_count"`
	FolderCount    int    `json:"folder_count"`
	TotalItems     int    `json:"total_items"`
}

// Count tallies the immediate children of folderID. Native documents count
// as files.
func (b *Builder) Count(ctx context.Context, folderID string) (*CountReport, error) {
	rep := &CountReport{SourceFolderID: folderID}

	for node, err := range b.src.Children(ctx, folderID) {
		if err != nil {
			return nil, fmt.Errorf("report: counting folder %s: %w", folderID, err)
		}

		if node.IsFolder() {
			rep.FolderCount++
		} else {
			rep.FileCount++
		}
	}

	rep.TotalItems = rep.FileCount + rep.FolderCount

	return rep, nil
}
