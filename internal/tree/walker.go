// Package tree walks a Drive folder hierarchy. The walk is breadth-first
// (FIFO pending queue), so every node is emitted after its parent and all
// nodes at depth d are emitted before any node at depth d+1. The report and
// mirror output orderings follow from this.
package tree

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log/slog"

	"golang.org/x/text/unicode/norm"

	"github.com/drive-assess/drive-assess/internal/drive"
)

// Source is the slice of the Drive client the walker needs.
type Source interface {
	Children(ctx context.Context, folderID string) iter.Seq2[drive.Node, error]
	GetNode(ctx context.Context, nodeID string) (*drive.Node, error)
}

// Entry is one node emitted by the walker.
type Entry struct {
	Node drive.Node

	// Depth is 1 for immediate children of the walk root, 0 for the root itself.
	Depth int

	// Path is the slash-joined display path relative to the walk root, with
	// names NFC-normalized. It is for logs and reports only; remote names are
	// always taken from Node.Name.
	Path string
}

// ListError reports a folder whose children could not be listed. When it
// wraps drive.ErrNotFound the folder vanished mid-walk and the sequence
// continues if the consumer keeps iterating; any other ListError ends it.
type ListError struct {
	FolderID string
	Path     string
	Err      error
}

func (e *ListError) Error() string {
	return fmt.Sprintf("tree: listing folder %s (%q): %v", e.FolderID, e.Path, e.Err)
}

func (e *ListError) Unwrap() error {
	return e.Err
}

// Option configures a Walker.
type Option func(*Walker)

// WithRoot makes the walk emit the root node itself before its descendants.
func WithRoot() Option {
	return func(w *Walker) {
		w.includeRoot = true
	}
}

// WithPrune stops the walk from descending into folders for which fn
// returns true. Pruned folders are still emitted.
func WithPrune(fn func(drive.Node) bool) Option {
	return func(w *Walker) {
		w.prune = fn
	}
}

// Walker performs the breadth-first traversal.
type Walker struct {
	src         Source
	logger      *slog.Logger
	includeRoot bool
	prune       func(drive.Node) bool
}

// NewWalker creates a Walker over src.
func NewWalker(src Source, logger *slog.Logger, opts ...Option) *Walker {
	if logger == nil {
		logger = slog.Default()
	}

	w := &Walker{src: src, logger: logger}
	for _, opt := range opts {
		opt(w)
	}

	return w
}

// pendingFolder is a queued folder awaiting expansion.
type pendingFolder struct {
	id    string
	path  string
	depth int
}

// Walk returns a lazy, finite sequence of every node reachable from rootID.
// Each node is emitted at most once; ids already seen (including the root)
// are skipped, so a malformed cyclic tree cannot loop forever.
//
// Emitted entries carry Node.ParentID set to the folder they were listed
// from, which may differ from the provider's first parent for multi-parent
// items.
func (w *Walker) Walk(ctx context.Context, rootID string) iter.Seq2[Entry, error] {
	return func(yield func(Entry, error) bool) {
		visited := map[string]bool{rootID: true}

		if w.includeRoot {
			root, err := w.src.GetNode(ctx, rootID)
			if err != nil {
				yield(Entry{}, fmt.Errorf("tree: fetching root %s: %w", rootID, err))
				return
			}

			root.ParentID = ""

			if !yield(Entry{Node: *root}, nil) {
				return
			}
		}

		queue := []pendingFolder{{id: rootID}}

		for len(queue) > 0 {
			if err := ctx.Err(); err != nil {
				yield(Entry{}, fmt.Errorf("tree: walk canceled: %w", err))
				return
			}

			cur := queue[0]
			queue = queue[1:]

			next, ok := w.expand(ctx, cur, visited, yield)
			if !ok {
				return
			}

			queue = append(queue, next...)
		}
	}
}

// expand lists one folder, yields its children and returns the sub-folders
// to enqueue. ok is false when iteration must stop.
func (w *Walker) expand(
	ctx context.Context,
	cur pendingFolder,
	visited map[string]bool,
	yield func(Entry, error) bool,
) ([]pendingFolder, bool) {
	var folders []pendingFolder

	for node, err := range w.src.Children(ctx, cur.id) {
		if err != nil {
			listErr := &ListError{FolderID: cur.id, Path: cur.path, Err: err}

			if !errors.Is(err, drive.ErrNotFound) {
				yield(Entry{}, listErr)
				return nil, false
			}

			w.logger.Warn("folder vanished during walk, skipping",
				slog.String("folder_id", cur.id),
				slog.String("path", cur.path),
			)

			// Children already discovered in this folder are still walked.
			return folders, yield(Entry{}, listErr)
		}

		if visited[node.ID] {
			w.logger.Warn("node already visited, skipping",
				slog.String("item_id", node.ID),
				slog.String("name", node.Name),
				slog.String("parent_path", cur.path),
			)

			continue
		}

		visited[node.ID] = true
		node.ParentID = cur.id

		entry := Entry{
			Node:  node,
			Depth: cur.depth + 1,
			Path:  joinPath(cur.path, node.Name),
		}

		if node.IsFolder() && !w.pruned(node) {
			folders = append(folders, pendingFolder{id: node.ID, path: entry.Path, depth: entry.Depth})
		}

		if !yield(entry, nil) {
			return nil, false
		}
	}

	return folders, true
}

func (w *Walker) pruned(node drive.Node) bool {
	if w.prune == nil || !w.prune(node) {
		return false
	}

	w.logger.Debug("not descending into pruned folder",
		slog.String("item_id", node.ID),
		slog.String("name", node.Name),
	)

	return true
}

// joinPath appends a normalized name to a display path.
func joinPath(parent, name string) string {
	name = norm.NFC.String(name)
	if parent == "" {
		return name
	}

	return parent + "/" + name
}
