// Package browser is the navigation, selection and transfer state of one
// dataspace browsing session, independent of any presentation layer.
package browser

import (
	"strings"

	"github.com/pkg/errors"
)

// Crumb is one element of the breadcrumb trail above a listing.
type Crumb struct {
	Name string
	Path string
}

// PathModel tracks the current directory relative to the dataspace root.
// The root is ""; any other directory ends with "/" ("b/", "b/c/").
// It is not safe for concurrent use; BrowserSession guards it.
type PathModel struct {
	current string
}

// NewPathModel starts at the root.
func NewPathModel() *PathModel {
	return &PathModel{}
}

// Current returns the current directory path.
func (p *PathModel) Current() string {
	return p.current
}

// Enter moves to path. The caller is expected to refresh afterwards.
func (p *PathModel) Enter(path string) {
	p.current = NormalizeDir(path)
}

// AscendTo jumps to an ancestor of the current directory (or to the current
// directory itself).
func (p *PathModel) AscendTo(path string) error {
	dir := NormalizeDir(path)
	if !strings.HasPrefix(p.current, dir) {
		return errors.Errorf("%q is not an ancestor of %q", dir, p.current)
	}
	p.current = dir
	return nil
}

// Up moves to the parent directory. It reports false at the root.
func (p *PathModel) Up() bool {
	if p.current == "" {
		return false
	}
	p.current = Parent(p.current)
	return true
}

// Join returns the path of a child named name in the current directory.
func (p *PathModel) Join(name string) string {
	return p.current + name
}

// Breadcrumbs lists the root followed by every ancestor down to the current directory.
func (p *PathModel) Breadcrumbs() []Crumb {
	crumbs := []Crumb{{Name: "/", Path: ""}}
	if p.current == "" {
		return crumbs
	}
	var acc string
	for _, seg := range strings.Split(strings.TrimSuffix(p.current, "/"), "/") {
		acc += seg + "/"
		crumbs = append(crumbs, Crumb{Name: seg, Path: acc})
	}
	return crumbs
}

// NormalizeDir turns a user supplied directory ("/b/c", "b/c/", ".") into the
// canonical "b/c/" form; the root becomes "".
func NormalizeDir(path string) string {
	path = strings.Trim(strings.TrimSpace(path), "/")
	if path == "" || path == "." {
		return ""
	}
	return path + "/"
}

// Parent returns the directory containing dir, which must be in canonical form.
func Parent(dir string) string {
	trimmed := strings.TrimSuffix(dir, "/")
	i := strings.LastIndex(trimmed, "/")
	if i < 0 {
		return ""
	}
	return trimmed[:i+1]
}

// StripTrailingSlash returns path without its directory marker.
func StripTrailingSlash(path string) string {
	return strings.TrimSuffix(path, "/")
}
