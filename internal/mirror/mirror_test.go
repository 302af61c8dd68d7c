package mirror

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/drive-assess/drive-assess/internal/drive"
	"github.com/drive-assess/drive-assess/internal/drivetest"
)

const (
	srcID  = "src"
	destID = "dest"
)

// newSample builds src/{f1.txt, sub/{f2.txt}} and an empty dest folder.
func newSample() *drivetest.Fake {
	f := drivetest.New()
	f.AddFolder(drivetest.RootID, srcID, "source")
	f.AddFolder(drivetest.RootID, destID, "destination")
	f.AddFile(srcID, "f1", "f1.txt", 1)
	f.AddFolder(srcID, "sub", "sub")
	f.AddFile("sub", "f2", "f2.txt", 2)

	return f
}

func findChild(t *testing.T, f *drivetest.Fake, parentID, name string) drive.Node {
	t.Helper()

	for _, n := range f.ChildrenOf(parentID) {
		if n.Name == name {
			return n
		}
	}

	require.Failf(t, "child not found", "%q under %s", name, parentID)

	return drive.Node{}
}

func TestRun_MirrorsTree(t *testing.T) {
	f := newSample()

	res, err := New(f, nil).Run(context.Background(), srcID, destID)
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{"f1.txt", "sub"}, f.ChildNames(destID))

	sub := findChild(t, f, destID, "sub")
	assert.True(t, sub.IsFolder())
	assert.Equal(t, []string{"f2.txt"}, f.ChildNames(sub.ID))

	assert.Equal(t, 1, res.FoldersCreated)
	assert.Equal(t, 2, res.ItemsCopied)
	assert.False(t, res.HasFailures())
	assert.Empty(t, res.Skipped)

	dest, err := res.Plan.Lookup("sub")
	require.NoError(t, err)
	assert.Equal(t, sub.ID, dest)

	root, err := res.Plan.Lookup(srcID)
	require.NoError(t, err)
	assert.Equal(t, destID, root)
}

func TestRun_FolderCreatedBeforeChildren(t *testing.T) {
	f := newSample()
	f.AddFolder("sub", "deeper", "deeper")
	f.AddFile("deeper", "f3", "f3.txt", 3)

	var order []string

	m := New(f, nil, WithProgress(func(ev Event) {
		order = append(order, ev.Entry.Path)
	}))

	_, err := m.Run(context.Background(), srcID, destID)
	require.NoError(t, err)

	pos := make(map[string]int, len(order))
	for i, p := range order {
		pos[p] = i
	}

	assert.Less(t, pos["sub"], pos["sub/f2.txt"])
	assert.Less(t, pos["sub"], pos["sub/deeper"])
	assert.Less(t, pos["sub/deeper"], pos["sub/deeper/f3.txt"])
	assert.Equal(t, []string{"sub", "deeper"}, f.Creates)
}

func TestRun_FailedFolderFailsSubtree(t *testing.T) {
	f := newSample()
	f.AddFolder("sub", "inner", "inner")
	f.AddFile("inner", "f3", "f3.txt", 3)
	f.CreateErr["sub"] = fmt.Errorf("create: %w", drive.ErrForbidden)

	res, err := New(f, nil).Run(context.Background(), srcID, destID)
	require.NoError(t, err)

	assert.Equal(t, []string{"f1.txt"}, f.ChildNames(destID))
	assert.NotContains(t, f.Copies, "f2")
	assert.NotContains(t, f.Copies, "f3")
	assert.Equal(t, []string{"sub"}, f.Creates)

	require.Len(t, res.Failed, 4)

	byID := make(map[string]Failure)
	for _, fl := range res.Failed {
		byID[fl.SourceID] = fl
	}

	assert.Equal(t, ReasonCreateFailed, byID["sub"].Reason)
	assert.ErrorIs(t, byID["sub"].Err, drive.ErrForbidden)
	assert.Equal(t, ReasonParentMissing, byID["f2"].Reason)
	assert.Equal(t, "sub/f2.txt", byID["f2"].Path)
	assert.Equal(t, "sub", byID["f2"].ParentID)
	assert.Equal(t, ReasonParentMissing, byID["inner"].Reason)
	assert.Equal(t, ReasonParentMissing, byID["f3"].Reason)
	assert.True(t, res.HasFailures())
	assert.Equal(t, 1, res.ItemsCopied)
}

func TestRun_CopyFailureContinues(t *testing.T) {
	f := newSample()
	f.CopyErr["f1"] = fmt.Errorf("copy: %w", drive.ErrForbidden)

	res, err := New(f, nil).Run(context.Background(), srcID, destID)
	require.NoError(t, err)

	require.Len(t, res.Failed, 1)
	assert.Equal(t, "f1", res.Failed[0].SourceID)
	assert.Equal(t, ReasonCopyFailed, res.Failed[0].Reason)

	sub := findChild(t, f, destID, "sub")
	assert.Equal(t, []string{"f2.txt"}, f.ChildNames(sub.ID))
}

func TestRun_NotCopyable(t *testing.T) {
	f := newSample()
	f.AddNative(srcID, "site", "Site", "application/vnd.google-apps.site")
	f.CopyErr["site"] = fmt.Errorf("copy: %w", drive.ErrNotCopyable)

	res, err := New(f, nil).Run(context.Background(), srcID, destID)
	require.NoError(t, err)

	require.Len(t, res.Failed, 1)
	assert.Equal(t, ReasonNotCopyable, res.Failed[0].Reason)
}

func TestRun_VanishedItemsAreSkipped(t *testing.T) {
	f := newSample()
	f.CopyErr["f1"] = fmt.Errorf("copy: %w", drive.ErrNotFound)
	f.GetErr["f1"] = fmt.Errorf("get: %w", drive.ErrNotFound)
	f.ListErr["sub"] = fmt.Errorf("list: %w", drive.ErrNotFound)

	var skipped []string

	m := New(f, nil, WithProgress(func(ev Event) {
		if ev.Skipped {
			skipped = append(skipped, ev.Failure.SourceID)
		}
	}))

	res, err := m.Run(context.Background(), srcID, destID)
	require.NoError(t, err)

	assert.Empty(t, res.Failed)
	require.Len(t, res.Skipped, 2)
	assert.Equal(t, "f1", res.Skipped[0].SourceID)
	assert.Equal(t, "sub", res.Skipped[1].SourceID)
	assert.Equal(t, "sub", res.Skipped[1].Path)
	assert.Equal(t, "sub", res.Skipped[1].Name)
	assert.Equal(t, []string{"f1", "sub"}, skipped)
}

func TestRun_CopyNotFoundWithSourcePresentFails(t *testing.T) {
	f := newSample()
	f.CopyErr["f1"] = fmt.Errorf("copy: %w", drive.ErrNotFound)

	res, err := New(f, nil).Run(context.Background(), srcID, destID)
	require.NoError(t, err)

	assert.Empty(t, res.Skipped)
	require.Len(t, res.Failed, 1)
	assert.Equal(t, "f1", res.Failed[0].SourceID)
	assert.Equal(t, ReasonCopyFailed, res.Failed[0].Reason)
	assert.ErrorIs(t, res.Failed[0].Err, drive.ErrNotFound)
	assert.True(t, res.HasFailures())
}

func TestRun_RemoteUnavailableAborts(t *testing.T) {
	f := newSample()
	f.CopyErr["f1"] = fmt.Errorf("copy: %w", drive.ErrRemoteUnavailable)

	res, err := New(f, nil).Run(context.Background(), srcID, destID)
	require.Error(t, err)
	assert.ErrorIs(t, err, drive.ErrRemoteUnavailable)
	require.NotNil(t, res)
	assert.Empty(t, f.Creates)
}

func TestRun_MissingDestinationRefused(t *testing.T) {
	f := drivetest.New()
	f.AddFolder(drivetest.RootID, srcID, "source")
	f.AddFile(srcID, "f1", "f1.txt", 1)
	f.AddFile(srcID, "f2", "f2.txt", 2)

	res, err := New(f, nil).Run(context.Background(), srcID, "no-such-dest")
	require.Error(t, err)
	assert.ErrorIs(t, err, drive.ErrInvalidParent)
	assert.Empty(t, f.Copies)
	assert.Empty(t, res.Skipped)
	assert.Zero(t, res.ItemsCopied)
}

func TestRun_DestinationNotFolderRefused(t *testing.T) {
	f := newSample()
	f.AddFile(drivetest.RootID, "plain", "plain.txt", 1)

	_, err := New(f, nil).Run(context.Background(), srcID, "plain")
	assert.ErrorIs(t, err, drive.ErrInvalidParent)
	assert.Empty(t, f.Creates)
	assert.Empty(t, f.Copies)
}

func TestRun_InvalidParentMidRunAborts(t *testing.T) {
	f := newSample()
	f.CreateErr["sub"] = fmt.Errorf("create: %w", drive.ErrInvalidParent)

	_, err := New(f, nil).Run(context.Background(), srcID, destID)
	require.Error(t, err)
	assert.ErrorIs(t, err, drive.ErrInvalidParent)
	assert.Equal(t, []string{"f1"}, f.Copies)
}

func TestRun_DestinationInsideSourceRefused(t *testing.T) {
	tests := []struct {
		name   string
		source string
		dest   string
	}{
		{"same folder", srcID, srcID},
		{"child", srcID, "sub"},
		{"grandchild", srcID, "deeper"},
		{"below drive root", drivetest.RootID, "sub"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newSample()
			f.AddFolder("sub", "deeper", "deeper")

			_, err := New(f, nil).Run(context.Background(), tt.source, tt.dest)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrDestinationInsideSource)
			assert.Empty(t, f.Creates)
			assert.Empty(t, f.Copies)
		})
	}
}

func TestRun_DestinationLinkedIntoSourceNotWalked(t *testing.T) {
	f := newSample()
	f.Link(srcID, destID)

	res, err := New(f, nil).Run(context.Background(), srcID, destID)
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{"f1.txt", "sub"}, f.ChildNames(destID))
	assert.Equal(t, []string{"sub"}, f.Creates)
	assert.Zero(t, f.ListCalls[destID])

	require.Len(t, res.Skipped, 1)
	assert.Equal(t, destID, res.Skipped[0].SourceID)
	assert.Equal(t, ReasonIsDestination, res.Skipped[0].Reason)
	assert.False(t, res.HasFailures())
}

func TestRun_MissingSourceRootFails(t *testing.T) {
	f := newSample()

	res, err := New(f, nil).Run(context.Background(), "no-such-folder", destID)
	require.Error(t, err)
	assert.ErrorIs(t, err, drive.ErrNotFound)
	assert.Empty(t, res.Skipped)
	assert.Empty(t, f.Creates)
	assert.Empty(t, f.Copies)
}

func TestRun_SourceRootVanishedDuringWalkFails(t *testing.T) {
	f := newSample()
	f.ListErr[srcID] = fmt.Errorf("list: %w", drive.ErrNotFound)

	res, err := New(f, nil).Run(context.Background(), srcID, destID)
	require.Error(t, err)
	assert.ErrorIs(t, err, drive.ErrNotFound)
	assert.Empty(t, res.Skipped)
}

func TestRun_SourceNotFolderRefused(t *testing.T) {
	f := newSample()

	_, err := New(f, nil).Run(context.Background(), "f1", destID)
	assert.ErrorIs(t, err, ErrSourceNotFolder)
	assert.Empty(t, f.Copies)
}

func TestRun_ListFailureAborts(t *testing.T) {
	f := newSample()
	f.ListErr["sub"] = fmt.Errorf("list: %w", drive.ErrRemoteUnavailable)

	res, err := New(f, nil).Run(context.Background(), srcID, destID)
	require.Error(t, err)
	assert.ErrorIs(t, err, drive.ErrRemoteUnavailable)
	assert.Equal(t, 1, res.FoldersCreated)
}

func TestRun_RerunDuplicates(t *testing.T) {
	f := newSample()
	m := New(f, nil)

	_, err := m.Run(context.Background(), srcID, destID)
	require.NoError(t, err)

	_, err = m.Run(context.Background(), srcID, destID)
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{"f1.txt", "sub", "f1.txt", "sub"}, f.ChildNames(destID))

	for _, n := range f.ChildrenOf(destID) {
		if n.IsFolder() {
			assert.Equal(t, []string{"f2.txt"}, f.ChildNames(n.ID))
		}
	}
}

func TestRun_EmptySource(t *testing.T) {
	f := drivetest.New()
	f.AddFolder(drivetest.RootID, srcID, "source")
	f.AddFolder(drivetest.RootID, destID, "destination")

	res, err := New(f, nil).Run(context.Background(), srcID, destID)
	require.NoError(t, err)
	assert.Zero(t, res.FoldersCreated)
	assert.Zero(t, res.ItemsCopied)
	assert.Empty(t, f.ChildNames(destID))
}

func TestRun_DuplicateNamesPreserved(t *testing.T) {
	f := drivetest.New()
	f.AddFolder(drivetest.RootID, srcID, "source")
	f.AddFolder(drivetest.RootID, destID, "destination")
	f.AddFolder(srcID, "", "same")
	f.AddFolder(srcID, "", "same")

	res, err := New(f, nil).Run(context.Background(), srcID, destID)
	require.NoError(t, err)
	assert.Equal(t, 2, res.FoldersCreated)
	assert.Equal(t, []string{"same", "same"}, f.ChildNames(destID))
}

func TestRun_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New(newSample(), nil).Run(ctx, srcID, destID)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestPlan_LookupMissing(t *testing.T) {
	p := NewPlan()
	p.Set("a", "b")

	got, err := p.Lookup("a")
	require.NoError(t, err)
	assert.Equal(t, "b", got)
	assert.Equal(t, 1, p.Len())

	_, err = p.Lookup("zzz")
	assert.ErrorIs(t, err, ErrMissingParent)

	assert.True(t, p.IsDestination("b"))
	assert.False(t, p.IsDestination("a"))
}

func TestParentPath(t *testing.T) {
	assert.Equal(t, "/", parentPath("top.txt"))
	assert.Equal(t, "a/b", parentPath("a/b/c.txt"))
	assert.Equal(t, "c.txt", baseName("a/b/c.txt"))
	assert.Equal(t, "top", baseName("top"))
}
