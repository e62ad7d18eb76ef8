package walk

import (
	"errors"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func touch(t *testing.T, dir, name string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
	require.NoError(t, os.WriteFile(p, []byte("x"), 0o644))
	return p
}

func collect(t *testing.T, root string, recursive bool) ([]string, error) {
	t.Helper()
	var files []string
	for p, err := range Walk(root, recursive) {
		if err != nil {
			return files, err
		}
		files = append(files, p)
	}
	sort.Strings(files)
	return files, nil
}

func tree(t *testing.T) (string, []string, []string) {
	dir := t.TempDir()
	top := []string{
		touch(t, dir, "a.png"),
		touch(t, dir, "b.txt"),
	}
	nested := []string{
		touch(t, dir, "sub/c.png"),
		touch(t, dir, "sub/deeper/d.jxl"),
		touch(t, dir, "other/e.jpg"),
	}
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "empty"), 0o755))
	return dir, top, nested
}

func TestWalk_NonRecursiveSkipsDirectories(t *testing.T) {
	dir, top, _ := tree(t)

	got, err := collect(t, dir, false)
	require.NoError(t, err)
	assert.ElementsMatch(t, top, got)
}

func TestWalk_RecursiveVisitsEverything(t *testing.T) {
	dir, top, nested := tree(t)

	got, err := collect(t, dir, true)
	require.NoError(t, err)
	assert.ElementsMatch(t, append(top, nested...), got)
}

func TestWalk_DepthFirstKeepsSubtreesContiguous(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "x/1.png")
	touch(t, dir, "x/y/2.png")
	touch(t, dir, "x/3.png")
	touch(t, dir, "z/4.png")

	var order []string
	for p, err := range Walk(dir, true) {
		require.NoError(t, err)
		rel, _ := filepath.Rel(dir, p)
		order = append(order, filepath.Dir(rel))
	}
	require.Len(t, order, 4)

	// every file under x/ is seen before or after every file under z/, never interleaved
	first := order[0][:1]
	switched := false
	for _, d := range order {
		if d[:1] != first {
			switched = true
		} else if switched {
			t.Fatalf("subtrees interleaved: %v", order)
		}
	}
}

func TestWalk_RootNotADirectory(t *testing.T) {
	file := touch(t, t.TempDir(), "single.png")

	_, err := collect(t, file, true)
	var dre *DirectoryReadError
	require.True(t, errors.As(err, &dre), "expected DirectoryReadError, got %v", err)
	assert.Equal(t, file, dre.Dir)
}

func TestWalk_MissingRoot(t *testing.T) {
	_, err := collect(t, filepath.Join(t.TempDir(), "absent"), false)
	var dre *DirectoryReadError
	require.ErrorAs(t, err, &dre)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestWalk_SymlinkCycleTerminates(t *testing.T) {
	dir := t.TempDir()
	f := touch(t, dir, "a/img.png")
	if err := os.Symlink(dir, filepath.Join(dir, "a", "loop")); err != nil {
		t.Skipf("symlinks unsupported: %v", err)
	}

	got, err := collect(t, dir, true)
	require.NoError(t, err)
	assert.Equal(t, []string{f}, got)
}

func TestWalk_SymlinkedFileIsYielded(t *testing.T) {
	dir := t.TempDir()
	target := touch(t, t.TempDir(), "outside.png")
	link := filepath.Join(dir, "link.png")
	if err := os.Symlink(target, link); err != nil {
		t.Skipf("symlinks unsupported: %v", err)
	}
	// dangling links are ignored
	require.NoError(t, os.Symlink(filepath.Join(dir, "nowhere"), filepath.Join(dir, "dangling.png")))

	got, err := collect(t, dir, false)
	require.NoError(t, err)
	assert.Equal(t, []string{link}, got)
}

func TestWalk_StopsWhenConsumerBreaks(t *testing.T) {
	dir, _, _ := tree(t)

	n := 0
	for _, err := range Walk(dir, true) {
		require.NoError(t, err)
		n++
		break
	}
	assert.Equal(t, 1, n)
}
