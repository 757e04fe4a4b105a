package browser

import (
	"context"
	"io"
	"strings"
	"sync/atomic"
	"time"

	"github.com/proactive/dataspace-browser/internal/constants"
	"github.com/proactive/dataspace-browser/internal/dataspace"
	"github.com/proactive/dataspace-browser/internal/localfs"
)

// Kind distinguishes files from directories.
type Kind string

const (
	KindFile      Kind = "file"
	KindDirectory Kind = "directory"
)

// Entry is one listed item. Size is only meaningful for files.
type Entry struct {
	Name         string
	Kind         Kind
	Type         string // raw server type ("FILE", "DIRECTORY")
	Permissions  string
	LastModified time.Time
	Size         int64
	Path         string // full path; directories end with "/"
}

// IsDir reports whether e is a directory.
func (e Entry) IsDir() bool {
	return e.Kind == KindDirectory
}

// Same reports whether e and o denote the same entry (name, kind and path).
func (e Entry) Same(o Entry) bool {
	return e.Name == o.Name && e.Kind == o.Kind && e.Path == o.Path
}

// Listing is the result of exactly one fetch. It is never mutated once built.
type Listing struct {
	Path        string
	Pattern     string
	Files       []Entry
	Directories []Entry
}

// Contains reports whether e is part of the listing.
func (l *Listing) Contains(e Entry) bool {
	if l == nil {
		return false
	}
	entries := l.Files
	if e.IsDir() {
		entries = l.Directories
	}
	for _, x := range entries {
		if x.Same(e) {
			return true
		}
	}
	return false
}

// Lookup finds an entry by name. A trailing "/" restricts the match to directories.
// Directories win when a file and a directory share a name.
func (l *Listing) Lookup(name string) (Entry, bool) {
	if l == nil {
		return Entry{}, false
	}
	dirOnly := strings.HasSuffix(name, "/")
	name = strings.TrimSuffix(name, "/")
	for _, d := range l.Directories {
		if d.Name == name {
			return d, true
		}
	}
	if dirOnly {
		return Entry{}, false
	}
	for _, f := range l.Files {
		if f.Name == name {
			return f, true
		}
	}
	return Entry{}, false
}

// Len returns the number of entries.
func (l *Listing) Len() int {
	if l == nil {
		return 0
	}
	return len(l.Files) + len(l.Directories)
}

// Remote is the part of the dataspace client a session needs.
type Remote interface {
	List(ctx context.Context, cred dataspace.Credential, path, pattern string) (*dataspace.Metadata, error)
	Put(ctx context.Context, cred dataspace.Credential, path string, body io.Reader, size int64) error
	CreateFolder(ctx context.Context, cred dataspace.Credential, path string) error
	Delete(ctx context.Context, cred dataspace.Credential, path string) error
	Download(ctx context.Context, cred dataspace.Credential, path, encoding string) (io.ReadCloser, int64, error)
}

// Fetcher retrieves listings and numbers every request so that only the
// most recently issued one is installed.
type Fetcher struct {
	remote Remote
	cred   dataspace.Credential
	seq    atomic.Uint64
}

// NewFetcher creates a fetcher sending cred with each listing request.
func NewFetcher(remote Remote, cred dataspace.Credential) *Fetcher {
	return &Fetcher{remote: remote, cred: cred}
}

// Fetch lists path and returns the listing along with the sequence number of
// this request. Hidden entries are dropped unless includeHidden is set.
func (f *Fetcher) Fetch(ctx context.Context, path, pattern string, includeHidden bool) (*Listing, uint64, error) {
	seq := f.seq.Add(1)
	if pattern == "" {
		pattern = constants.DefaultFilterPattern
	}

	md, err := f.remote.List(ctx, f.cred, path, pattern)
	if err != nil {
		return nil, seq, &OperationError{
			Title:   "Error",
			Message: "Failed to access " + displayPath(path) + ": " + dataspace.Detail(err),
			Err:     err,
		}
	}
	return BuildListing(path, pattern, md, includeHidden), seq, nil
}

// Latest reports whether seq is the most recently issued fetch.
func (f *Fetcher) Latest(seq uint64) bool {
	return f.seq.Load() == seq
}

// BuildListing maps the parallel metadata maps into entries.
func BuildListing(path, pattern string, md *dataspace.Metadata, includeHidden bool) *Listing {
	l := &Listing{
		Path:        path,
		Pattern:     pattern,
		Files:       make([]Entry, 0, len(md.FileListing)),
		Directories: make([]Entry, 0, len(md.DirectoryListing)),
	}

	for _, name := range md.FileListing {
		if !includeHidden && localfs.IsHiddenName(name) {
			continue
		}
		l.Files = append(l.Files, Entry{
			Name:         name,
			Kind:         KindFile,
			Type:         md.Types[name],
			Permissions:  md.Permissions[name],
			LastModified: md.Modified(name),
			Size:         md.Size(name),
			Path:         path + name,
		})
	}

	for _, raw := range md.DirectoryListing {
		name := strings.TrimSuffix(raw, "/")
		if name == "" || (!includeHidden && localfs.IsHiddenName(name)) {
			continue
		}
		l.Directories = append(l.Directories, Entry{
			Name:         name,
			Kind:         KindDirectory,
			Type:         md.Types[raw],
			Permissions:  md.Permissions[raw],
			LastModified: md.Modified(raw),
			Path:         path + name + "/",
		})
	}

	return l
}

// displayPath renders a path in messages; the root shows as ".".
func displayPath(path string) string {
	if path == "" {
		return "."
	}
	return path
}
