package browser

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/proactive/dataspace-browser/internal/dataspace"
)

func TestBuildListing_MapsMetadata(t *testing.T) {
	md := metadata([]string{"a.txt"}, []string{"b"})

	l := BuildListing("", "*", md, false)

	require.Len(t, l.Files, 1)
	require.Len(t, l.Directories, 1)

	f := l.Files[0]
	assert.Equal(t, "a.txt", f.Name)
	assert.Equal(t, KindFile, f.Kind)
	assert.Equal(t, "a.txt", f.Path)
	assert.Equal(t, "rw-", f.Permissions)
	assert.Equal(t, int64(12), f.Size)
	assert.Equal(t, time.UnixMilli(1700000000000), f.LastModified)

	d := l.Directories[0]
	assert.Equal(t, "b", d.Name)
	assert.Equal(t, KindDirectory, d.Kind)
	assert.Equal(t, "b/", d.Path)
	assert.Equal(t, int64(0), d.Size, "directories carry no size")
}

func TestBuildListing_NestedPaths(t *testing.T) {
	md := metadata([]string{"x.csv"}, []string{"d/"})

	l := BuildListing("b/c/", "*", md, false)

	assert.Equal(t, "b/c/x.csv", l.Files[0].Path)
	assert.Equal(t, "d", l.Directories[0].Name, "trailing slash from the server is trimmed")
	assert.Equal(t, "b/c/d/", l.Directories[0].Path)
}

func TestBuildListing_HiddenEntries(t *testing.T) {
	md := metadata([]string{".env", "a.txt"}, []string{".cache", "b"})

	hidden := BuildListing("", "*", md, false)
	assert.Equal(t, 2, hidden.Len())
	_, ok := hidden.Lookup(".env")
	assert.False(t, ok)

	shown := BuildListing("", "*", md, true)
	assert.Equal(t, 4, shown.Len())
	_, ok = shown.Lookup(".cache/")
	assert.True(t, ok)
}

func TestListing_Lookup(t *testing.T) {
	l := BuildListing("", "*", metadata([]string{"same", "a.txt"}, []string{"same"}), false)

	e, ok := l.Lookup("same")
	require.True(t, ok)
	assert.True(t, e.IsDir(), "directory wins on a name clash")

	_, ok = l.Lookup("a.txt/")
	assert.False(t, ok, "trailing slash only matches directories")

	var nilListing *Listing
	_, ok = nilListing.Lookup("a.txt")
	assert.False(t, ok)
	assert.False(t, nilListing.Contains(fileA))
}

func TestFetcher_DefaultPatternAndRootToken(t *testing.T) {
	remote := newFakeRemote()
	f := NewFetcher(remote, dataspace.Credential{SessionID: "sid"})

	_, _, err := f.Fetch(context.Background(), "", "", false)
	require.NoError(t, err)

	calls := remote.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, "*", calls[0].Pattern)
	assert.Equal(t, "sid", calls[0].Session)
}

func TestFetcher_ErrorMessages(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{
			name: "auth uses status text",
			err:  &dataspace.AuthError{StatusCode: 403, StatusText: "Forbidden"},
			want: "Failed to access b/: Forbidden",
		},
		{
			name: "remote uses server message",
			err:  &dataspace.RemoteError{StatusCode: 500, StatusText: "Internal Server Error", Message: "disk on fire"},
			want: "Failed to access b/: disk on fire",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			remote := newFakeRemote()
			remote.listErr = tt.err
			f := NewFetcher(remote, dataspace.Credential{})

			_, _, err := f.Fetch(context.Background(), "b/", "*", false)
			require.Error(t, err)
			assert.Equal(t, tt.want, err.Error())
			assert.ErrorIs(t, err, tt.err)
		})
	}
}

func TestFetcher_Sequence(t *testing.T) {
	f := NewFetcher(newFakeRemote(), dataspace.Credential{})

	_, first, _ := f.Fetch(context.Background(), "", "*", false)
	_, second, _ := f.Fetch(context.Background(), "", "*", false)

	assert.False(t, f.Latest(first))
	assert.True(t, f.Latest(second))
}
