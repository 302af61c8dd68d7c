package drive

import (
	"strings"
	"time"
)

// Google Drive MIME types with special handling.
const (
	MimeFolder   = "application/vnd.google-apps.folder"
	MimeShortcut = "application/vnd.google-apps.shortcut"

	// nativePrefix marks Google Workspace formats that exist only inside Drive.
	nativePrefix = "application/vnd.google-apps."
)

// uncopyableMimeTypes are native types Drive refuses to duplicate server-side.
var uncopyableMimeTypes = map[string]bool{
	"application/vnd.google-apps.site":        true,
	"application/vnd.google-apps.map":         true,
	"application/vnd.google-apps.fusiontable": true,
}

// Kind classifies a Node for traversal and copy purposes.
type Kind int

// Node kinds. Native documents are leaves that need the type-preserving
// copy path; folders are the only kind the walker expands.
const (
	KindFile Kind = iota
	KindFolder
	KindNativeDocument
)

func (k Kind) String() string {
	switch k {
	case KindFolder:
		return "folder"
	case KindNativeDocument:
		return "native-document"
	default:
		return "file"
	}
}

// KindOf maps a Drive MIME type to a Kind.
func KindOf(mimeType string) Kind {
	switch {
	case mimeType == MimeFolder:
		return KindFolder
	case strings.HasPrefix(mimeType, nativePrefix):
		return KindNativeDocument
	default:
		return KindFile
	}
}

// Node represents one Drive file-system entry.
// Fields are normalized from the API response; callers never see raw API data.
type Node struct {
	ID               string
	Name             string // not unique among siblings
	Kind             Kind
	MimeType         string
	ParentID         string // first parent; empty at a traversal root with no parent
	Size             int64  // bytes; zero when HasSize is false
	HasSize          bool   // false for folders and most native documents
	CreatedAt        time.Time
	ModifiedAt       time.Time
	ShortcutTargetID string // set only for shortcuts
}

// IsFolder reports whether the node is a folder.
func (n *Node) IsFolder() bool {
	return n.Kind == KindFolder
}

// IsShortcut reports whether the node is a shortcut to another item.
func (n *Node) IsShortcut() bool {
	return n.MimeType == MimeShortcut
}
