// Package report aggregates walker output into the count and folder reports
// and persists them as JSON documents.
package report

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/drive-assess/drive-assess/internal/drive"
	"github.com/drive-assess/drive-assess/internal/tree"
)

// Item is the serialized form of a single node in a report.
type Item struct {
	ID         string     `json:"id"`
	Name       string     `json:"name"`
	Kind       string     `json:"kind"`
	MimeType   string     `json:"mime_type"`
	Size       *int64     `json:"size,omitempty"`
	CreatedAt  *time.Time `json:"created_time,omitempty"`
	ModifiedAt *time.Time `json:"modified_time,omitempty"`
}

// NewItem converts a node. Absent sizes and timestamps are omitted rather
// than reported as zero.
func NewItem(n *drive.Node) Item {
	it := Item{
		ID:       n.ID,
		Name:     n.Name,
		Kind:     n.Kind.String(),
		MimeType: n.MimeType,
	}

	if n.HasSize {
		size := n.Size
		it.Size = &size
	}

	if !n.CreatedAt.IsZero() {
		t := n.CreatedAt
		it.CreatedAt = &t
	}

	if !n.ModifiedAt.IsZero() {
		t := n.ModifiedAt
		it.ModifiedAt = &t
	}

	return it
}

// FolderSummary aggregates one top-level folder's full subtree. The folder
// itself is not counted.
type FolderSummary struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	FileCount   int    `json:"total_files"`
	FolderCount int    `json:"total_folders"`
	TotalItems  int    `json:"total_items"`

	// TotalSize sums known sizes only. Native documents report no size and
	// contribute 0.
	TotalSize int64 `json:"total_size"`

	// UnsizedItems counts the non-folder nodes that contributed no size.
	UnsizedItems int `json:"unsized_items"`

	ImmediateChildren []Item `json:"immediate_children"`
}

// SkippedItem records a node that vanished while the report was built.
type SkippedItem struct {
	ID     string `json:"id"`
	Path   string `json:"path"`
	Reason string `json:"reason"`
}

// Report is the recursive folder report. Folders keep the provider order of
// the initial root listing.
type Report struct {
	SourceFolderID     string          `json:"source_folder_id"`
	GeneratedAt        time.Time       `json:"generated_at"`
	Folders            []FolderSummary `json:"top_level_folders"`
	Files              []Item          `json:"top_level_files"`
	TotalNestedFolders int             `json:"total_nested_folders"`
	Skipped            []SkippedItem   `json:"skipped"`
}

// Folder returns the summary for a top-level folder id.
func (r *Report) Folder(id string) (*FolderSummary, bool) {
	for i := range r.Folders {
		if r.Folders[i].ID == id {
			return &r.Folders[i], true
		}
	}

	return nil, false
}

// Builder produces reports from a Drive source.
type Builder struct {
	src    tree.Source
	logger *slog.Logger
	now    func() time.Time
}

// NewBuilder creates a Builder reading from src.
func NewBuilder(src tree.Source, logger *slog.Logger) *Builder {
	if logger == nil {
		logger = slog.Default()
	}

	return &Builder{src: src, logger: logger, now: time.Now}
}

// Build lists the immediate children of rootID, walks every folder among
// them and aggregates its subtree. Top-level non-folders are listed
// individually without expansion. Nodes that vanish mid-walk are skipped and
// recorded; any other error aborts the build.
func (b *Builder) Build(ctx context.Context, rootID string) (*Report, error) {
	rep := &Report{
		SourceFolderID: rootID,
		GeneratedAt:    b.now().UTC(),
		Folders:        []FolderSummary{},
		Files:          []Item{},
		Skipped:        []SkippedItem{},
	}

	var top []drive.Node

	for node, err := range b.src.Children(ctx, rootID) {
		if err != nil {
			return nil, fmt.Errorf("report: listing source folder %s: %w", rootID, err)
		}

		top = append(top, node)
	}

	b.logger.Info("listed source folder",
		slog.String("folder_id", rootID),
		slog.Int("items", len(top)),
	)

	for i := range top {
		node := &top[i]

		if !node.IsFolder() {
			rep.Files = append(rep.Files, NewItem(node))
			continue
		}

		summary, ok, err := b.summarize(ctx, node, rep)
		if err != nil {
			return nil, err
		}

		if !ok {
			continue
		}

		rep.Folders = append(rep.Folders, *summary)
		rep.TotalNestedFolders += summary.FolderCount
	}

	return rep, nil
}

// summarize walks one top-level folder. ok is false when the folder itself
// vanished before it could be listed.
func (b *Builder) summarize(ctx context.Context, folder *drive.Node, rep *Report) (*FolderSummary, bool, error) {
	s := &FolderSummary{
		ID:                folder.ID,
		Name:              folder.Name,
		ImmediateChildren: []Item{},
	}

	walker := tree.NewWalker(b.src, b.logger)

	for entry, err := range walker.Walk(ctx, folder.ID) {
		if err != nil {
			var listErr *tree.ListError
			if !errors.As(err, &listErr) || !errors.Is(err, drive.ErrNotFound) {
				return nil, false, fmt.Errorf("report: walking folder %q (%s): %w", folder.Name, folder.ID, err)
			}

			path := joinPath(folder.Name, listErr.Path)

			b.logger.Warn("skipping vanished folder",
				slog.String("folder_id", listErr.FolderID),
				slog.String("path", path),
			)

			rep.Skipped = append(rep.Skipped, SkippedItem{ID: listErr.FolderID, Path: path, Reason: "not found"})

			if listErr.FolderID == folder.ID {
				return nil, false, nil
			}

			continue
		}

		n := &entry.Node

		if entry.Depth == 1 {
			s.ImmediateChildren = append(s.ImmediateChildren, NewItem(n))
		}

		if n.IsFolder() {
			s.FolderCount++
			continue
		}

		s.FileCount++

		if n.HasSize {
			s.TotalSize += n.Size
		} else {
			s.UnsizedItems++
		}
	}

	s.TotalItems = s.FileCount + s.FolderCount

	b.logger.Debug("summarized folder",
		slog.String("folder_id", folder.ID),
		slog.String("name", folder.Name),
		slog.Int("files", s.FileCount),
		slog.Int("folders", s.FolderCount),
		slog.Int64("size", s.TotalSize),
	)

	return s, true, nil
}

func joinPath(parent, rel string) string {
	if rel == "" {
		return parent
	}

	return parent + "/" + rel
}
