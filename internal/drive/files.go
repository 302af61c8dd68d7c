package drive

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// maxPageSize is the largest pageSize files.list accepts.
const maxPageSize = 1000

// nodeFields is the partial-response field mask for a single file resource.
const nodeFields = "id,name,mimeType,size,parents,createdTime,modifiedTime,shortcutDetails(targetId,targetMimeType)"

// listFields is the partial-response field mask for files.list.
const listFields = "nextPageToken,files(" + nodeFields + ")"

// fileResponse mirrors the Drive v3 file resource JSON.
// Unexported; callers use Node via toNode().
type fileResponse struct {
	ID              string           `json:"id"`
	Name            string           `json:"name"`
	MimeType        string           `json:"mimeType"`
	Size            string           `json:"size"` // int64 encoded as a JSON string
	Parents         []string         `json:"parents"`
	CreatedTime     string           `json:"createdTime"`
	ModifiedTime    string           `json:"modifiedTime"`
	ShortcutDetails *shortcutDetails `json:"shortcutDetails"`
}

type shortcutDetails struct {
	TargetID       string `json:"targetId"`
	TargetMimeType string `json:"targetMimeType,omitempty"`
}

type listResponse struct {
	Files         []fileResponse `json:"files"`
	NextPageToken string         `json:"nextPageToken"`
}

// createRequest is the body for files.create and files.copy.
type createRequest struct {
	Name            string           `json:"name"`
	MimeType        string           `json:"mimeType,omitempty"`
	Parents         []string         `json:"parents"`
	ShortcutDetails *shortcutDetails `json:"shortcutDetails,omitempty"`
}

// toNode normalizes a Drive file resource into our Node type.
func (f *fileResponse) toNode(logger *slog.Logger) Node {
	node := Node{
		ID:       f.ID,
		Name:     f.Name,
		Kind:     KindOf(f.MimeType),
		MimeType: f.MimeType,
	}

	if len(f.Parents) > 0 {
		node.ParentID = f.Parents[0]
	}

	if f.Size != "" {
		size, err := strconv.ParseInt(f.Size, 10, 64)
		if err != nil {
			logger.Warn("invalid size, treating as absent",
				slog.String("item_id", f.ID),
				slog.String("raw", f.Size),
			)
		} else {
			node.Size = size
			node.HasSize = true
		}
	}

	if f.ShortcutDetails != nil {
		node.ShortcutTargetID = f.ShortcutDetails.TargetID
	}

	node.CreatedAt = parseTimestamp(f.CreatedTime, "createdTime", f.ID, logger)
	node.ModifiedAt = parseTimestamp(f.ModifiedTime, "modifiedTime", f.ID, logger)

	return node
}

// parseTimestamp parses an RFC3339 timestamp. Timestamps are optional: empty
// or invalid values yield the zero time, and invalid ones are logged.
func parseTimestamp(raw, field, itemID string, logger *slog.Logger) time.Time {
	if raw == "" {
		return time.Time{}
	}

	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		logger.Warn("invalid timestamp, ignoring",
			slog.String("field", field),
			slog.String("item_id", itemID),
			slog.String("raw", raw),
			slog.String("error", err.Error()),
		)

		return time.Time{}
	}

	return t
}

// childrenQuery builds the files.list search expression for a folder's
// non-trashed children.
func childrenQuery(folderID string) string {
	escaped := strings.ReplaceAll(folderID, `\`, `\\`)
	escaped = strings.ReplaceAll(escaped, `'`, `\'`)

	return fmt.Sprintf("'%s' in parents and trashed = false", escaped)
}

// listPath builds the files.list request path for one page.
// An empty pageToken requests the first page.
func (c *Client) listPath(folderID, pageToken string) string {
	q := url.Values{}
	q.Set("q", childrenQuery(folderID))
	q.Set("fields", listFields)
	q.Set("pageSize", strconv.Itoa(c.pageSize))
	q.Set("supportsAllDrives", "true")
	q.Set("includeItemsFromAllDrives", "true")

	if pageToken != "" {
		q.Set("pageToken", pageToken)
	}

	return "/files?" + q.Encode()
}

// listChildrenPage fetches a single page of children and returns the nodes
// and the continuation token (empty if no more pages).
func (c *Client) listChildrenPage(ctx context.Context, folderID, pageToken string, page int) ([]Node, string, error) {
	resp, err := c.Do(ctx, http.MethodGet, c.listPath(folderID, pageToken), nil)
	if err != nil {
		return nil, "", err
	}
	defer resp.Body.Close()

	var lr listResponse
	if err := json.NewDecoder(resp.Body).Decode(&lr); err != nil {
		return nil, "", fmt.Errorf("drive: decoding children response: %w", err)
	}

	nodes := make([]Node, 0, len(lr.Files))
	for i := range lr.Files {
		nodes = append(nodes, lr.Files[i].toNode(c.logger))
	}

	c.logger.Debug("fetched children page",
		slog.String("folder_id", folderID),
		slog.Int("page", page),
		slog.Int("count", len(nodes)),
	)

	return nodes, lr.NextPageToken, nil
}

// Children returns a lazy sequence over the non-trashed children of a folder,
// in provider order. Pages are fetched on demand; the sequence ends when the
// provider returns no continuation token. A failed page request is yielded
// once as an error and ends the sequence.
func (c *Client) Children(ctx context.Context, folderID string) iter.Seq2[Node, error] {
	return func(yield func(Node, error) bool) {
		c.logger.Debug("listing children", slog.String("folder_id", folderID))

		var (
			token string
			page  = 1
			total int
		)

		for {
			nodes, next, err := c.listChildrenPage(ctx, folderID, token, page)
			if err != nil {
				yield(Node{}, err)
				return
			}

			for i := range nodes {
				if !yield(nodes[i], nil) {
					return
				}
			}

			total += len(nodes)

			if next == "" {
				break
			}

			token = next
			page++
		}

		c.logger.Debug("listed children complete",
			slog.String("folder_id", folderID),
			slog.Int("pages", page),
			slog.Int("total_items", total),
		)
	}
}

// ListChildren returns all children of a folder, handling pagination automatically.
func (c *Client) ListChildren(ctx context.Context, folderID string) ([]Node, error) {
	var nodes []Node

	for node, err := range c.Children(ctx, folderID) {
		if err != nil {
			return nil, err
		}

		nodes = append(nodes, node)
	}

	return nodes, nil
}

// GetNode retrieves a single node by ID. Returns ErrNotFound if the item no
// longer exists.
func (c *Client) GetNode(ctx context.Context, nodeID string) (*Node, error) {
	c.logger.Debug("getting node", slog.String("item_id", nodeID))

	q := url.Values{}
	q.Set("fields", nodeFields)
	q.Set("supportsAllDrives", "true")

	return c.fileRequest(ctx, http.MethodGet, "/files/"+url.PathEscape(nodeID)+"?"+q.Encode(), nil)
}

// CreateFolder creates a new folder under the given parent. Drive permits
// duplicate sibling names, so no conflict check is made. A missing parent is
// reported as ErrInvalidParent.
func (c *Client) CreateFolder(ctx context.Context, name, parentID string) (*Node, error) {
	c.logger.Info("creating folder",
		slog.String("parent_id", parentID),
		slog.String("name", name),
	)

	node, err := c.create(ctx, createRequest{
		Name:     name,
		MimeType: MimeFolder,
		Parents:  []string{parentID},
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, fmt.Errorf("%w: parent %s: %w", ErrInvalidParent, parentID, err)
		}

		return nil, err
	}

	if !node.IsFolder() {
		return nil, fmt.Errorf("drive: created item %s is %s, not a folder", node.ID, node.Kind)
	}

	return node, nil
}

// CopyNode copies a non-folder node into destParentID, keeping its name.
// Ordinary files use the server-side copy. Native documents use the same
// endpoint with their MIME type pinned so no format conversion occurs.
// Shortcuts are re-linked: a new shortcut pointing at the same target is
// created at the destination.
func (c *Client) CopyNode(ctx context.Context, node *Node, destParentID string) (*Node, error) {
	if node.IsFolder() {
		return nil, fmt.Errorf("drive: CopyNode called on folder %s", node.ID)
	}

	if uncopyableMimeTypes[node.MimeType] {
		return nil, fmt.Errorf("%w: %s (%s)", ErrNotCopyable, node.Name, node.MimeType)
	}

	c.logger.Info("copying item",
		slog.String("item_id", node.ID),
		slog.String("name", node.Name),
		slog.String("kind", node.Kind.String()),
		slog.String("dest_parent_id", destParentID),
	)

	if node.IsShortcut() {
		return c.create(ctx, createRequest{
			Name:            node.Name,
			MimeType:        MimeShortcut,
			Parents:         []string{destParentID},
			ShortcutDetails: &shortcutDetails{TargetID: node.ShortcutTargetID},
		})
	}

	req := createRequest{
		Name:    node.Name,
		Parents: []string{destParentID},
	}

	if node.Kind == KindNativeDocument {
		req.MimeType = node.MimeType
	}

	q := url.Values{}
	q.Set("fields", nodeFields)
	q.Set("supportsAllDrives", "true")

	return c.fileRequest(ctx, http.MethodPost, "/files/"+url.PathEscape(node.ID)+"/copy?"+q.Encode(), &req)
}

// create issues files.create with a metadata-only body.
func (c *Client) create(ctx context.Context, req createRequest) (*Node, error) {
	q := url.Values{}
	q.Set("fields", nodeFields)
	q.Set("supportsAllDrives", "true")

	return c.fileRequest(ctx, http.MethodPost, "/files?"+q.Encode(), &req)
}

// fileRequest sends an optional JSON body and decodes a single file resource.
// Shared by GetNode, CopyNode and create to avoid duplication.
func (c *Client) fileRequest(ctx context.Context, method, apiPath string, reqBody *createRequest) (*Node, error) {
	var body *bytes.Reader

	if reqBody != nil {
		data, err := json.Marshal(reqBody)
		if err != nil {
			return nil, fmt.Errorf("drive: marshaling request: %w", err)
		}

		body = bytes.NewReader(data)
	}

	var (
		resp *http.Response
		err  error
	)

	if body != nil {
		resp, err = c.Do(ctx, method, apiPath, body)
	} else {
		resp, err = c.Do(ctx, method, apiPath, nil)
	}

	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var fr fileResponse
	if err := json.NewDecoder(resp.Body).Decode(&fr); err != nil {
		return nil, fmt.Errorf("drive: decoding file response: %w", err)
	}

	node := fr.toNode(c.logger)

	return &node, nil
}
