// Package drivetest provides an in-memory Drive used by walker, report, and
// mirror tests.
package drivetest

import (
	"context"
	"fmt"
	"iter"
	"strconv"

	"github.com/drive-assess/drive-assess/internal/drive"
)

// RootID is the id of the folder every Fake starts with.
const RootID = "root"

// Fake is an in-memory folder tree. Children are kept in insertion order,
// which plays the role of provider order.
type Fake struct {
	nodes    map[string]*drive.Node
	children map[string][]string
	nextID   int

	// ListErr injects an error when listing the keyed folder id.
	ListErr map[string]error

	// CreateErr injects an error when creating a folder with the keyed name.
	CreateErr map[string]error

	// CopyErr injects an error when copying the keyed source id.
	CopyErr map[string]error

	// GetErr injects an error when fetching the keyed node id.
	GetErr map[string]error

	// ListCalls counts listing requests per folder id.
	ListCalls map[string]int

	// Creates and Copies record mutating calls in order.
	Creates []string
	Copies  []string
}

// New returns a Fake containing only RootID.
func New() *Fake {
	f := &Fake{
		nodes:     make(map[string]*drive.Node),
		children:  make(map[string][]string),
		ListErr:   make(map[string]error),
		CreateErr: make(map[string]error),
		CopyErr:   make(map[string]error),
		GetErr:    make(map[string]error),
		ListCalls: make(map[string]int),
	}

	f.nodes[RootID] = &drive.Node{ID: RootID, Name: "My Drive", Kind: drive.KindFolder, MimeType: drive.MimeFolder}

	return f
}

func (f *Fake) add(parentID string, node drive.Node) string {
	if node.ID == "" {
		f.nextID++
		node.ID = "gen-" + strconv.Itoa(f.nextID)
	}

	node.ParentID = parentID
	f.nodes[node.ID] = &node
	f.children[parentID] = append(f.children[parentID], node.ID)

	return node.ID
}

// AddFolder adds a folder and returns its id.
func (f *Fake) AddFolder(parentID, id, name string) string {
	return f.add(parentID, drive.Node{ID: id, Name: name, Kind: drive.KindFolder, MimeType: drive.MimeFolder})
}

// AddFile adds an ordinary file with a known size.
func (f *Fake) AddFile(parentID, id, name string, size int64) string {
	return f.add(parentID, drive.Node{
		ID: id, Name: name, Kind: drive.KindFile, MimeType: "application/octet-stream",
		Size: size, HasSize: true,
	})
}

// AddNative adds a native document (no size) of the given MIME type.
func (f *Fake) AddNative(parentID, id, name, mimeType string) string {
	return f.add(parentID, drive.Node{ID: id, Name: name, Kind: drive.KindOf(mimeType), MimeType: mimeType})
}

// Link makes an existing node also appear under another folder, producing
// multi-parent or cyclic shapes.
func (f *Fake) Link(parentID, id string) {
	f.children[parentID] = append(f.children[parentID], id)
}

// Children implements tree.Source.
func (f *Fake) Children(_ context.Context, folderID string) iter.Seq2[drive.Node, error] {
	return func(yield func(drive.Node, error) bool) {
		f.ListCalls[folderID]++

		if err := f.ListErr[folderID]; err != nil {
			yield(drive.Node{}, err)
			return
		}

		if _, ok := f.nodes[folderID]; !ok {
			yield(drive.Node{}, fmt.Errorf("fake list %s: %w", folderID, drive.ErrNotFound))
			return
		}

		ids := f.children[folderID]
		for _, id := range ids {
			n, ok := f.nodes[id]
			if !ok {
				continue
			}

			if !yield(*n, nil) {
				return
			}
		}
	}
}

// GetNode implements tree.Source.
func (f *Fake) GetNode(_ context.Context, nodeID string) (*drive.Node, error) {
	if err := f.GetErr[nodeID]; err != nil {
		return nil, err
	}

	n, ok := f.nodes[nodeID]
	if !ok {
		return nil, fmt.Errorf("fake get %s: %w", nodeID, drive.ErrNotFound)
	}

	cp := *n

	return &cp, nil
}

// CreateFolder implements mirror.Remote.
func (f *Fake) CreateFolder(_ context.Context, name, parentID string) (*drive.Node, error) {
	f.Creates = append(f.Creates, name)

	if err := f.CreateErr[name]; err != nil {
		return nil, err
	}

	parent, ok := f.nodes[parentID]
	if !ok || !parent.IsFolder() {
		return nil, fmt.Errorf("fake create %q under %s: %w", name, parentID, drive.ErrInvalidParent)
	}

	id := f.AddFolder(parentID, "", name)
	cp := *f.nodes[id]

	return &cp, nil
}

// CopyNode implements mirror.Remote.
func (f *Fake) CopyNode(_ context.Context, node *drive.Node, destParentID string) (*drive.Node, error) {
	f.Copies = append(f.Copies, node.ID)

	if err := f.CopyErr[node.ID]; err != nil {
		return nil, err
	}

	if _, ok := f.nodes[node.ID]; !ok {
		return nil, fmt.Errorf("fake copy %s: %w", node.ID, drive.ErrNotFound)
	}

	if parent, ok := f.nodes[destParentID]; !ok || !parent.IsFolder() {
		return nil, fmt.Errorf("fake copy into %s: %w", destParentID, drive.ErrNotFound)
	}

	cp := *node
	cp.ID = ""
	id := f.add(destParentID, cp)
	out := *f.nodes[id]

	return &out, nil
}

// ChildrenOf returns the direct children of a folder in order.
func (f *Fake) ChildrenOf(folderID string) []drive.Node {
	ids := f.children[folderID]
	out := make([]drive.Node, 0, len(ids))

	for _, id := range ids {
		if n, ok := f.nodes[id]; ok {
			out = append(out, *n)
		}
	}

	return out
}

// ChildNames returns the names of a folder's direct children in order.
func (f *Fake) ChildNames(folderID string) []string {
	children := f.ChildrenOf(folderID)
	names := make([]string, 0, len(children))

	for i := range children {
		names = append(names, children[i].Name)
	}

	return names
}

// Remove deletes a node from the index, simulating concurrent external deletion.
func (f *Fake) Remove(id string) {
	delete(f.nodes, id)
}
