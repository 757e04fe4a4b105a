package localfs

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsHidden(t *testing.T) {
	tests := []struct {
		path     string
		expected bool
	}{
		{".hidden", true},
		{".gitignore", true},
		{"visible.txt", false},
		{"normal", false},
		{"/path/to/.hidden", true},
		{"/path/to/visible.txt", false},
		{"../.hidden", true},
		{"../visible.txt", false},
		{"..", false}, // Special case: parent dir reference
		{".", false},  // Special case: current dir reference
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			result := IsHidden(tt.path)
			if result != tt.expected {
				t.Errorf("IsHidden(%q) = %v, want %v", tt.path, result, tt.expected)
			}
		})
	}
}

func TestIsHiddenName(t *testing.T) {
	tests := []struct {
		name     string
		expected bool
	}{
		{".hidden", true},
		{".gitignore", true},
		{"visible.txt", false},
		{"..", false},
		{".", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := IsHiddenName(tt.name)
			if result != tt.expected {
				t.Errorf("IsHiddenName(%q) = %v, want %v", tt.name, result, tt.expected)
			}
		})
	}
}

func TestListDirectory(t *testing.T) {
	tmpDir := t.TempDir()

	for _, f := range []string{"visible.txt", ".hidden", "another.txt"} {
		require.NoError(t, os.WriteFile(filepath.Join(tmpDir, f), []byte("test"), 0644))
	}
	require.NoError(t, os.Mkdir(filepath.Join(tmpDir, "subdir"), 0755))

	entries, err := ListDirectory(tmpDir, ListOptions{})
	require.NoError(t, err)

	var names []string
	for _, e := range entries {
		names = append(names, e.Name)
	}
	assert.Equal(t, []string{"subdir", "another.txt", "visible.txt"}, names)
	assert.True(t, entries[0].IsDir)
	assert.Equal(t, int64(0), entries[0].Size)
	assert.Equal(t, int64(4), entries[1].Size)

	all, err := ListDirectory(tmpDir, ListOptions{IncludeHidden: true})
	require.NoError(t, err)
	assert.Len(t, all, 4)

	_, err = ListDirectory(filepath.Join(tmpDir, "missing"), ListOptions{})
	assert.Error(t, err)
}

func TestSaver_WritesAndAvoidsCollisions(t *testing.T) {
	dir := t.TempDir()
	s := NewSaver(dir)

	first, err := s.Save(context.Background(), "b.zip", strings.NewReader("one"), 3)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "b.zip"), first)

	second, err := s.Save(context.Background(), "b.zip", strings.NewReader("two"), 3)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "b (1).zip"), second)

	data, err := os.ReadFile(second)
	require.NoError(t, err)
	assert.Equal(t, "two", string(data))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 2, "no temporary files left behind")
}

func TestSaver_Overwrite(t *testing.T) {
	dir := t.TempDir()
	s := &Saver{Dir: dir, Overwrite: true}

	_, err := s.Save(context.Background(), "a.txt", strings.NewReader("old"), -1)
	require.NoError(t, err)
	path, err := s.Save(context.Background(), "a.txt", strings.NewReader("new"), -1)
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "new", string(data))
}

func TestSaver_RejectsBadNames(t *testing.T) {
	s := NewSaver(t.TempDir())
	for _, name := range []string{"", "..", "../escape.txt", "a/b.txt"} {
		_, err := s.Save(context.Background(), name, strings.NewReader("x"), 1)
		assert.Error(t, err, "name %q", name)
	}
}

type failingReader struct{}

func (failingReader) Read(p []byte) (int, error) { return 0, io.ErrUnexpectedEOF }

func TestSaver_FailedCopyLeavesNothing(t *testing.T) {
	dir := t.TempDir()
	s := NewSaver(dir)

	_, err := s.Save(context.Background(), "a.txt", failingReader{}, -1)
	require.Error(t, err)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestSaver_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewSaver(t.TempDir()).Save(ctx, "a.txt", strings.NewReader("x"), 1)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestOpenSource(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "report.csv")
	require.NoError(t, os.WriteFile(path, []byte("a,b\n"), 0644))

	src, err := OpenSource(path)
	require.NoError(t, err)
	defer src.Close()
	assert.Equal(t, "report.csv", src.Name)
	assert.Equal(t, int64(4), src.Size)

	_, err = OpenSource(dir)
	assert.Error(t, err, "directories are refused")

	_, err = OpenSource(filepath.Join(dir, "missing"))
	assert.Error(t, err)
}

func TestResolvePath(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	got, err := ResolvePath("~/downloads-not-there")
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(got, "downloads-not-there"))
	assert.True(t, filepath.IsAbs(got))
	assert.NotContains(t, got, "~")

	dir := t.TempDir()
	resolvedDir, err := filepath.EvalSymlinks(dir)
	require.NoError(t, err)
	got, err = ResolvePath(filepath.Join(dir, "a", "b"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(resolvedDir, "a", "b"), got)

	link := filepath.Join(t.TempDir(), "link")
	require.NoError(t, os.Symlink(dir, link))
	got, err = ResolvePath(filepath.Join(link, "new"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(resolvedDir, "new"), got)

	wd, err := os.Getwd()
	require.NoError(t, err)
	got, err = ResolvePath("")
	require.NoError(t, err)
	assert.Equal(t, wd, got)
}
