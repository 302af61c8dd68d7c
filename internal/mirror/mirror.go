// Package mirror recreates a Drive folder tree under another folder.
//
// The source is walked once, breadth-first. A folder is created at the
// destination as soon as it is emitted, and its new id is recorded in the
// Plan before any of its children are emitted, so every child finds its
// destination parent already in place. Leaves are copied server-side as
// they are emitted.
//
// Runs are not idempotent: mirroring the same source twice into the same
// destination produces two independent copies. The destination must not lie
// inside the source, and folders created by the run are never walked.
package mirror

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/drive-assess/drive-assess/internal/drive"
	"github.com/drive-assess/drive-assess/internal/tree"
)

// Remote is the mutating half of the Drive client.
type Remote interface {
	CreateFolder(ctx context.Context, name, parentID string) (*drive.Node, error)
	CopyNode(ctx context.Context, node *drive.Node, destParentID string) (*drive.Node, error)
}

// Drive is everything the mirror needs from the provider.
type Drive interface {
	tree.Source
	Remote
}

// ErrDestinationInsideSource means the destination folder is the source
// folder or one of its descendants.
var ErrDestinationInsideSource = errors.New("mirror: destination folder is inside the source folder")

// ErrSourceNotFolder means the source id names something other than a folder.
var ErrSourceNotFolder = errors.New("mirror: source is not a folder")

// Failure reasons.
const (
	ReasonCreateFailed  = "folder creation failed"
	ReasonCopyFailed    = "copy failed"
	ReasonNotCopyable   = "type cannot be copied"
	ReasonParentMissing = "parent folder was not created"
	ReasonVanished      = "not found"
	ReasonIsDestination = "is part of the destination"
)

// Failure identifies one node that was not placed at the destination.
type Failure struct {
	SourceID string
	Name     string
	Path     string
	ParentID string
	Reason   string
	Err      error
}

// Result summarizes a run. It is returned even when the run aborts, so the
// caller can report what was already done.
type Result struct {
	Plan           *Plan
	FoldersCreated int
	ItemsCopied    int

	// Failed lists nodes that could not be placed, including every
	// descendant of a folder whose creation failed.
	Failed []Failure

	// Skipped lists nodes that vanished from the source mid-run and
	// destination folders met while walking the source.
	Skipped []Failure
}

// HasFailures reports whether any node failed to be placed.
func (r *Result) HasFailures() bool {
	return len(r.Failed) > 0
}

// Event describes one processed node, for progress output.
type Event struct {
	Entry  tree.Entry
	DestID string

	// Failure is set when the node was not placed.
	Failure *Failure

	// Skipped is true when Failure records a skip rather than a failure.
	Skipped bool
}

// Option configures a Mirror.
type Option func(*Mirror)

// WithProgress registers a callback invoked once per processed node.
func WithProgress(fn func(Event)) Option {
	return func(m *Mirror) {
		m.progress = fn
	}
}

// Mirror copies folder trees within one Drive.
type Mirror struct {
	drive    Drive
	logger   *slog.Logger
	progress func(Event)
}

// New creates a Mirror.
func New(d Drive, logger *slog.Logger, opts ...Option) *Mirror {
	if logger == nil {
		logger = slog.Default()
	}

	m := &Mirror{drive: d, logger: logger, progress: func(Event) {}}
	for _, opt := range opts {
		opt(m)
	}

	return m
}

// run holds the state of a single Run call.
type run struct {
	*Mirror
	res *Result

	// destRootID is the resolved id of the destination folder.
	destRootID string

	// failedFolders holds source folders with no destination counterpart.
	failedFolders map[string]bool
}

// Run recreates the contents of sourceRootID under destParentID.
//
// Individual copy failures are recorded and the run continues. A failed
// folder creation marks the folder and its whole subtree as failed. The run
// aborts on an exhausted retry budget, an authentication failure, a
// canceled context, or a defect (ErrMissingParent, drive.ErrInvalidParent).
//
// Nothing is written unless the source is an existing folder and the
// destination is an existing folder outside the source.
func (m *Mirror) Run(ctx context.Context, sourceRootID, destParentID string) (*Result, error) {
	r := &run{
		Mirror:        m,
		res:           &Result{Plan: NewPlan()},
		destRootID:    destParentID,
		failedFolders: make(map[string]bool),
	}

	m.logger.Info("mirror starting",
		slog.String("source_id", sourceRootID),
		slog.String("destination_id", destParentID),
	)

	if err := r.preflight(ctx, sourceRootID, destParentID); err != nil {
		m.logger.Error("mirror refused to start",
			slog.String("source_id", sourceRootID),
			slog.String("destination_id", destParentID),
			slog.String("error", err.Error()),
		)

		return r.res, err
	}

	r.res.Plan.Set(sourceRootID, destParentID)

	walker := tree.NewWalker(m.drive, m.logger, tree.WithPrune(func(n drive.Node) bool {
		return r.isDestination(n.ID)
	}))

	for entry, err := range walker.Walk(ctx, sourceRootID) {
		if err != nil {
			if err := r.handleWalkError(err, sourceRootID); err != nil {
				return r.res, err
			}

			continue
		}

		if err := r.place(ctx, entry); err != nil {
			return r.res, err
		}
	}

	m.logger.Info("mirror finished",
		slog.Int("folders_created", r.res.FoldersCreated),
		slog.Int("items_copied", r.res.ItemsCopied),
		slog.Int("failed", len(r.res.Failed)),
		slog.Int("skipped", len(r.res.Skipped)),
	)

	return r.res, nil
}

// preflight resolves both folders and rejects a destination that is
// missing, not a folder, or inside the source.
func (r *run) preflight(ctx context.Context, sourceRootID, destParentID string) error {
	src, err := r.drive.GetNode(ctx, sourceRootID)
	if err != nil {
		return fmt.Errorf("mirror: fetching source folder %s: %w", sourceRootID, err)
	}

	if !src.IsFolder() {
		return fmt.Errorf("%w: %s (%s)", ErrSourceNotFolder, sourceRootID, src.MimeType)
	}

	dest, err := r.drive.GetNode(ctx, destParentID)
	if err != nil {
		if errors.Is(err, drive.ErrNotFound) {
			return fmt.Errorf("mirror: destination folder %s: %w: %w", destParentID, drive.ErrInvalidParent, err)
		}

		return fmt.Errorf("mirror: fetching destination folder %s: %w", destParentID, err)
	}

	if !dest.IsFolder() {
		return fmt.Errorf("mirror: destination %s is not a folder: %w", destParentID, drive.ErrInvalidParent)
	}

	r.destRootID = dest.ID

	sourceIDs := map[string]bool{sourceRootID: true, src.ID: true}
	if sourceIDs[destParentID] || sourceIDs[dest.ID] {
		return fmt.Errorf("%w: %s", ErrDestinationInsideSource, destParentID)
	}

	return r.checkAncestors(ctx, dest, sourceIDs)
}

// checkAncestors follows first parents up from dest and fails if one of
// them is the source. An unreadable ancestor ends the climb.
func (r *run) checkAncestors(ctx context.Context, dest *drive.Node, sourceIDs map[string]bool) error {
	seen := map[string]bool{dest.ID: true}

	for id := dest.ParentID; id != "" && !seen[id]; {
		if sourceIDs[id] {
			return fmt.Errorf("%w: %s is below %s", ErrDestinationInsideSource, dest.ID, id)
		}

		seen[id] = true

		n, err := r.drive.GetNode(ctx, id)
		if err != nil {
			if isFatal(err) {
				return fmt.Errorf("mirror: checking destination ancestry: %w", err)
			}

			r.logger.Debug("destination ancestor not readable, stopping ancestry check",
				slog.String("item_id", id),
				slog.String("error", err.Error()),
			)

			return nil
		}

		id = n.ParentID
	}

	return nil
}

// isDestination reports ids that belong to the destination side of this run.
func (r *run) isDestination(id string) bool {
	return id == r.destRootID || r.res.Plan.IsDestination(id)
}

// handleWalkError records a vanished source folder or returns a fatal error.
// The source root itself vanishing is fatal.
func (r *run) handleWalkError(err error, sourceRootID string) error {
	var listErr *tree.ListError
	if !errors.As(err, &listErr) || !errors.Is(err, drive.ErrNotFound) || listErr.FolderID == sourceRootID {
		r.logger.Error("mirror aborted while walking source", slog.String("error", err.Error()))
		return fmt.Errorf("mirror: walking source: %w", err)
	}

	entry := tree.Entry{
		Node: drive.Node{ID: listErr.FolderID, Name: baseName(listErr.Path), Kind: drive.KindFolder},
		Path: listErr.Path,
	}

	f := r.failure(entry, ReasonVanished, err)
	r.res.Skipped = append(r.res.Skipped, f)

	r.logger.Warn("source folder vanished, skipping",
		slog.String("item_id", listErr.FolderID),
		slog.String("path", listErr.Path),
	)
	r.progress(Event{Entry: entry, Failure: &f, Skipped: true})

	return nil
}

// place recreates one node at the destination.
func (r *run) place(ctx context.Context, entry tree.Entry) error {
	node := &entry.Node

	if r.isDestination(node.ID) {
		r.skipDestination(entry)
		return nil
	}

	if r.failedFolders[node.ParentID] {
		if node.IsFolder() {
			r.failedFolders[node.ID] = true
		}

		r.fail(entry, ReasonParentMissing, nil)

		return nil
	}

	destParent, err := r.res.Plan.Lookup(node.ParentID)
	if err != nil {
		r.logger.Error("mirror defect: parent missing from plan",
			slog.String("item_id", node.ID),
			slog.String("name", node.Name),
			slog.String("parent_path", parentPath(entry.Path)),
		)

		return fmt.Errorf("mirror: placing %q: %w", entry.Path, err)
	}

	if node.IsFolder() {
		return r.createFolder(ctx, entry, destParent)
	}

	return r.copyLeaf(ctx, entry, destParent)
}

func (r *run) createFolder(ctx context.Context, entry tree.Entry, destParent string) error {
	node := &entry.Node

	created, err := r.drive.CreateFolder(ctx, node.Name, destParent)
	if err != nil {
		if isFatal(err) {
			return r.abort(entry, err)
		}

		r.failedFolders[node.ID] = true
		r.fail(entry, ReasonCreateFailed, err)

		return nil
	}

	r.res.Plan.Set(node.ID, created.ID)
	r.res.FoldersCreated++

	r.logger.Debug("created folder",
		slog.String("item_id", node.ID),
		slog.String("dest_id", created.ID),
		slog.String("path", entry.Path),
	)

	r.progress(Event{Entry: entry, DestID: created.ID})

	return nil
}

func (r *run) copyLeaf(ctx context.Context, entry tree.Entry, destParent string) error {
	node := &entry.Node

	copied, err := r.drive.CopyNode(ctx, node, destParent)

	switch {
	case err == nil:
	case isFatal(err):
		return r.abort(entry, err)
	case errors.Is(err, drive.ErrNotFound):
		return r.copyNotFound(ctx, entry, err)
	case errors.Is(err, drive.ErrNotCopyable):
		r.fail(entry, ReasonNotCopyable, err)
		return nil
	default:
		r.fail(entry, ReasonCopyFailed, err)
		return nil
	}

	r.res.Plan.Set(node.ID, copied.ID)
	r.res.ItemsCopied++

	r.logger.Debug("copied item",
		slog.String("item_id", node.ID),
		slog.String("dest_id", copied.ID),
		slog.String("kind", node.Kind.String()),
		slog.String("path", entry.Path),
	)

	r.progress(Event{Entry: entry, DestID: copied.ID})

	return nil
}

// copyNotFound handles a 404 from a copy. Drive answers 404 both for a
// vanished source and for an unusable destination parent, so the source is
// fetched again to tell them apart.
func (r *run) copyNotFound(ctx context.Context, entry tree.Entry, copyErr error) error {
	_, err := r.drive.GetNode(ctx, entry.Node.ID)

	switch {
	case errors.Is(err, drive.ErrNotFound):
		r.skip(entry, copyErr)
	case isFatal(err):
		return r.abort(entry, err)
	default:
		r.fail(entry, ReasonCopyFailed, copyErr)
	}

	return nil
}

func (r *run) fail(entry tree.Entry, reason string, err error) {
	f := r.failure(entry, reason, err)
	r.res.Failed = append(r.res.Failed, f)

	attrs := []any{
		slog.String("item_id", f.SourceID),
		slog.String("name", f.Name),
		slog.String("parent_path", parentPath(f.Path)),
		slog.String("reason", reason),
	}
	if err != nil {
		attrs = append(attrs, slog.String("error", err.Error()))
	}

	r.logger.Warn("item not copied", attrs...)
	r.progress(Event{Entry: entry, Failure: &f})
}

func (r *run) skip(entry tree.Entry, err error) {
	f := r.failure(entry, ReasonVanished, err)
	r.res.Skipped = append(r.res.Skipped, f)

	r.logger.Warn("source item vanished, skipping",
		slog.String("item_id", f.SourceID),
		slog.String("name", f.Name),
		slog.String("parent_path", parentPath(f.Path)),
	)
	r.progress(Event{Entry: entry, Failure: &f, Skipped: true})
}

func (r *run) skipDestination(entry tree.Entry) {
	f := r.failure(entry, ReasonIsDestination, nil)
	r.res.Skipped = append(r.res.Skipped, f)

	r.logger.Warn("destination item found in source, skipping",
		slog.String("item_id", f.SourceID),
		slog.String("name", f.Name),
		slog.String("parent_path", parentPath(f.Path)),
	)
	r.progress(Event{Entry: entry, Failure: &f, Skipped: true})
}

func (r *run) abort(entry tree.Entry, err error) error {
	node := &entry.Node

	r.logger.Error("mirror aborted",
		slog.String("item_id", node.ID),
		slog.String("name", node.Name),
		slog.String("parent_path", parentPath(entry.Path)),
		slog.String("error", err.Error()),
	)

	return fmt.Errorf("mirror: placing %q: %w", entry.Path, err)
}

func (r *run) failure(entry tree.Entry, reason string, err error) Failure {
	return Failure{
		SourceID: entry.Node.ID,
		Name:     entry.Node.Name,
		Path:     entry.Path,
		ParentID: entry.Node.ParentID,
		Reason:   reason,
		Err:      err,
	}
}

// isFatal reports errors that end the whole run rather than one item.
func isFatal(err error) bool {
	return errors.Is(err, drive.ErrRemoteUnavailable) ||
		errors.Is(err, drive.ErrAuth) ||
		errors.Is(err, drive.ErrUnauthorized) ||
		errors.Is(err, drive.ErrInvalidParent) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded)
}

// parentPath returns the display path of the folder containing p.
func parentPath(p string) string {
	i := strings.LastIndex(p, "/")
	if i < 0 {
		return "/"
	}

	return p[:i]
}

// baseName returns the last element of a display path.
func baseName(p string) string {
	return p[strings.LastIndex(p, "/")+1:]
}
