package browser

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	fileA = Entry{Name: "a.txt", Kind: KindFile, Path: "a.txt"}
	dirB  = Entry{Name: "b", Kind: KindDirectory, Path: "b/"}
)

func TestSelection_SingleEntry(t *testing.T) {
	s := NewSelectionModel(false)

	s.Select(fileA)
	s.Select(dirB)
	cur, ok := s.Current()
	require.True(t, ok)
	assert.Equal(t, dirB, cur, "selecting replaces the previous entry")

	s.Deselect()
	_, ok = s.Current()
	assert.False(t, ok)
}

func TestSelection_Toggle(t *testing.T) {
	s := NewSelectionModel(false)

	assert.True(t, s.Toggle(fileA))
	assert.True(t, s.Toggle(dirB), "toggling another entry replaces the selection")
	assert.False(t, s.Toggle(dirB), "toggling the selected entry clears it")

	_, ok := s.Current()
	assert.False(t, ok)
}

func TestSelection_Resolve(t *testing.T) {
	tests := []struct {
		name         string
		selectFolder bool
		selected     *Entry
		wantPath     string
		wantErr      string
		noSelection  bool
		wrongKind    bool
	}{
		{
			name:         "folder mode, directory selected",
			selectFolder: true,
			selected:     &dirB,
			wantPath:     "b",
		},
		{
			name:         "file mode, file selected",
			selectFolder: false,
			selected:     &fileA,
			wantPath:     "a.txt",
		},
		{
			name:         "folder mode, nothing selected",
			selectFolder: true,
			wantErr:      "Cannot find any folder selected: please select a folder !",
			noSelection:  true,
		},
		{
			name:         "file mode, nothing selected",
			selectFolder: false,
			wantErr:      "Cannot find any file selected: please select a regular file !",
			noSelection:  true,
		},
		{
			name:         "folder mode, file selected",
			selectFolder: true,
			selected:     &fileA,
			wantErr:      "The regular file is disallowed to be the variable value: please select a directory !",
			wrongKind:    true,
		},
		{
			name:         "file mode, directory selected",
			selectFolder: false,
			selected:     &dirB,
			wantErr:      "The directory is disallowed to be the variable value: please select a regular file !",
			wrongKind:    true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewSelectionModel(tt.selectFolder)
			if tt.selected != nil {
				s.Select(*tt.selected)
			}

			path, err := s.Resolve()
			if tt.wantErr == "" {
				require.NoError(t, err)
				assert.Equal(t, tt.wantPath, path)
				return
			}

			require.Error(t, err)
			assert.Equal(t, tt.wantErr, err.Error())
			assert.True(t, IsValidation(err))

			var ns *NoSelectionError
			var wk *WrongKindError
			assert.Equal(t, tt.noSelection, errors.As(err, &ns))
			assert.Equal(t, tt.wrongKind, errors.As(err, &wk))
		})
	}
}

func TestSelection_ResolveNestedDirectoryStripsSlash(t *testing.T) {
	s := NewSelectionModel(true)
	s.Select(Entry{Name: "c", Kind: KindDirectory, Path: "b/c/"})

	path, err := s.Resolve()
	require.NoError(t, err)
	assert.Equal(t, "b/c", path)
}

func TestSelection_Reconcile(t *testing.T) {
	s := NewSelectionModel(false)
	s.Select(fileA)

	s.Reconcile(&Listing{Files: []Entry{fileA}})
	_, ok := s.Current()
	assert.True(t, ok, "entry still listed")

	s.Reconcile(&Listing{Files: []Entry{{Name: "other", Kind: KindFile, Path: "other"}}})
	_, ok = s.Current()
	assert.False(t, ok, "entry gone from listing")
}
