// Package dstest provides an in-memory dataspace server for tests.
package dstest

import (
	"archive/zip"
	"bytes"
	"io"
	nethttp "net/http"
	"net/http/httptest"
	"path"
	"sort"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/segmentio/encoding/json"
)

// Server speaks the dataspace REST contract over an in-memory tree.
// Paths are relative to a dataspace root; directories end with "/".
type Server struct {
	*httptest.Server

	SessionID string

	mu       sync.Mutex
	files    map[string][]byte // "user/a/b.txt"
	dirs     map[string]bool   // "user/a/"
	requests []string
	failures map[string]failure // "DELETE user/a.txt" -> planned failure
}

type failure struct {
	skip   int // matching requests still served normally
	status int
}

// NewServer starts a server accepting sessionID. It is closed with the test.
func NewServer(t testing.TB, sessionID string) *Server {
	t.Helper()
	s := &Server{
		SessionID: sessionID,
		files:     make(map[string][]byte),
		dirs:      map[string]bool{"user/": true, "global/": true},
		failures:  make(map[string]failure),
	}
	s.Server = httptest.NewServer(nethttp.HandlerFunc(s.handle))
	t.Cleanup(s.Close)
	return s
}

// AddFile stores data at p in dataspace ds, creating parent directories.
func (s *Server) AddFile(ds, p string, data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := ds + "/" + strings.TrimPrefix(p, "/")
	s.files[key] = data
	s.addParents(key)
}

// AddDir creates the directory p in dataspace ds with its parents.
func (s *Server) AddDir(ds, p string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := ds + "/" + strings.Trim(p, "/") + "/"
	s.dirs[key] = true
	s.addParents(key)
}

// File returns the content stored at p.
func (s *Server) File(ds, p string) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.files[ds+"/"+strings.TrimPrefix(p, "/")]
	return data, ok
}

// HasDir reports whether the directory p exists.
func (s *Server) HasDir(ds, p string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dirs[ds+"/"+strings.Trim(p, "/")+"/"]
}

// FailNext makes the next request with method on p answer status.
func (s *Server) FailNext(method, ds, p string, status int) {
	s.FailAfter(method, ds, p, 0, status)
}

// FailAfter serves skip requests with method on p normally, then answers
// the following one with status.
func (s *Server) FailAfter(method, ds, p string, skip, status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[method+" "+ds+"/"+p] = failure{skip: skip, status: status}
}

// Requests returns "METHOD dataspace/path" for every request served.
func (s *Server) Requests() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.requests...)
}

func (s *Server) addParents(key string) {
	dir := strings.TrimSuffix(key, "/")
	for {
		i := strings.LastIndex(dir, "/")
		if i < 0 {
			return
		}
		dir = dir[:i]
		s.dirs[dir+"/"] = true
	}
}

func (s *Server) handle(w nethttp.ResponseWriter, r *nethttp.Request) {
	const prefix = "/rest/data/"
	if !strings.HasPrefix(r.URL.Path, prefix) {
		nethttp.NotFound(w, r)
		return
	}
	if r.Header.Get("sessionid") != s.SessionID {
		w.WriteHeader(nethttp.StatusUnauthorized)
		return
	}

	rest := strings.TrimPrefix(r.URL.Path, prefix)
	ds, p, _ := strings.Cut(rest, "/")
	if p == "%2E" || p == "." {
		p = ""
	}
	key := ds + "/" + p

	s.mu.Lock()
	s.requests = append(s.requests, r.Method+" "+key)
	planned, fail := s.failures[r.Method+" "+key]
	if fail && planned.skip > 0 {
		planned.skip--
		s.failures[r.Method+" "+key] = planned
		fail = false
	} else {
		delete(s.failures, r.Method+" "+key)
	}
	s.mu.Unlock()

	if fail {
		writeError(w, planned.status, nethttp.StatusText(planned.status))
		return
	}

	switch r.Method {
	case nethttp.MethodGet:
		if r.URL.Query().Get("comp") == "list-metadata" {
			s.list(w, key, r.URL.Query().Get("includes"))
			return
		}
		s.download(w, key, r.URL.Query().Get("encoding"))
	case nethttp.MethodPut:
		data, err := io.ReadAll(r.Body)
		if err != nil {
			writeError(w, nethttp.StatusBadRequest, err.Error())
			return
		}
		s.mu.Lock()
		s.files[key] = data
		s.addParents(key)
		s.mu.Unlock()
		w.WriteHeader(nethttp.StatusCreated)
	case nethttp.MethodPost:
		if err := r.ParseForm(); err != nil || r.PostForm.Get("mimetype") != "application/folder" {
			writeError(w, nethttp.StatusBadRequest, "unsupported mimetype")
			return
		}
		s.mu.Lock()
		s.dirs[strings.TrimSuffix(key, "/")+"/"] = true
		s.addParents(strings.TrimSuffix(key, "/") + "/")
		s.mu.Unlock()
		w.WriteHeader(nethttp.StatusCreated)
	case nethttp.MethodDelete:
		s.remove(w, key)
	default:
		w.WriteHeader(nethttp.StatusMethodNotAllowed)
	}
}

type metadata struct {
	FileListing       []string          `json:"fileListing"`
	DirectoryListing  []string          `json:"directoryListing"`
	Types             map[string]string `json:"types"`
	Permissions       map[string]string `json:"permissions"`
	LastModifiedDates map[string]int64  `json:"lastModifiedDates"`
	Sizes             map[string]int64  `json:"sizes"`
}

func (s *Server) list(w nethttp.ResponseWriter, key, pattern string) {
	dir := strings.TrimSuffix(key, "/") + "/"
	if pattern == "" {
		pattern = "*"
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.dirs[dir] {
		writeError(w, nethttp.StatusNotFound, "Directory "+dir+" does not exist")
		return
	}

	md := metadata{
		FileListing:       []string{},
		DirectoryListing:  []string{},
		Types:             map[string]string{},
		Permissions:       map[string]string{},
		LastModifiedDates: map[string]int64{},
		Sizes:             map[string]int64{},
	}
	for k, data := range s.files {
		if name, ok := child(dir, k); ok && match(pattern, name) {
			md.FileListing = append(md.FileListing, name)
			md.Types[name] = "FILE"
			md.Permissions[name] = "rw-"
			md.LastModifiedDates[name] = 1700000000000
			md.Sizes[name] = int64(len(data))
		}
	}
	for k := range s.dirs {
		if name, ok := child(dir, strings.TrimSuffix(k, "/")); ok && match(pattern, name) {
			md.DirectoryListing = append(md.DirectoryListing, name)
			md.Types[name] = "DIRECTORY"
			md.Permissions[name] = "rwx"
		}
	}
	sort.Strings(md.FileListing)
	sort.Strings(md.DirectoryListing)

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(md)
}

func (s *Server) download(w nethttp.ResponseWriter, key, encoding string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if encoding != "zip" {
		data, ok := s.files[key]
		if !ok {
			writeError(w, nethttp.StatusNotFound, "File "+key+" does not exist")
			return
		}
		w.Header().Set("Content-Length", strconv.Itoa(len(data)))
		_, _ = w.Write(data)
		return
	}

	dir := strings.TrimSuffix(key, "/") + "/"
	if !s.dirs[dir] {
		writeError(w, nethttp.StatusNotFound, "Directory "+dir+" does not exist")
		return
	}
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for k, data := range s.files {
		if strings.HasPrefix(k, dir) {
			f, _ := zw.Create(strings.TrimPrefix(k, dir))
			_, _ = f.Write(data)
		}
	}
	_ = zw.Close()
	w.Header().Set("Content-Type", "application/zip")
	_, _ = w.Write(buf.Bytes())
}

func (s *Server) remove(w nethttp.ResponseWriter, key string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.files[key]; ok {
		delete(s.files, key)
		w.WriteHeader(nethttp.StatusNoContent)
		return
	}
	dir := strings.TrimSuffix(key, "/") + "/"
	if !s.dirs[dir] {
		writeError(w, nethttp.StatusNotFound, "Not found")
		return
	}
	for k := range s.files {
		if strings.HasPrefix(k, dir) {
			delete(s.files, k)
		}
	}
	for k := range s.dirs {
		if strings.HasPrefix(k, dir) {
			delete(s.dirs, k)
		}
	}
	w.WriteHeader(nethttp.StatusNoContent)
}

// child returns the name of k when it sits directly in dir.
func child(dir, k string) (string, bool) {
	if !strings.HasPrefix(k, dir) {
		return "", false
	}
	name := strings.TrimPrefix(k, dir)
	if name == "" || strings.Contains(name, "/") {
		return "", false
	}
	return name, true
}

func match(pattern, name string) bool {
	ok, err := path.Match(pattern, name)
	return err == nil && ok
}

func writeError(w nethttp.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"httpErrorCode": status,
		"errorMessage":  message,
	})
}
