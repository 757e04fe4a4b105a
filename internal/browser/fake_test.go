package browser

import (
	"bytes"
	"context"
	"io"
	"strings"
	"sync"

	"github.com/segmentio/encoding/json"

	"github.com/proactive/dataspace-browser/internal/dataspace"
)

type call struct {
	Method   string
	Path     string
	Pattern  string
	Encoding string
	Body     string
	Session  string
}

// fakeRemote is an in-memory dataspace keyed by directory path.
type fakeRemote struct {
	mu       sync.Mutex
	dirs     map[string]*dataspace.Metadata
	calls    []call
	listErr  error
	putErr   error
	mkdirErr error
	delErr   error
	getErr   error
	content  map[string]string

	// listHook, when set, runs before a listing is answered.
	listHook func(ctx context.Context, path string)
	// putHook, when set, runs while an upload is in flight.
	putHook func(ctx context.Context) error
}

func newFakeRemote() *fakeRemote {
	return &fakeRemote{
		dirs:    map[string]*dataspace.Metadata{"": metadata(nil, nil)},
		content: map[string]string{},
	}
}

func metadata(files, dirs []string) *dataspace.Metadata {
	md := &dataspace.Metadata{
		FileListing:       files,
		DirectoryListing:  dirs,
		Types:             map[string]string{},
		Permissions:       map[string]string{},
		LastModifiedDates: map[string]json.RawMessage{},
		Sizes:             map[string]json.RawMessage{},
	}
	for _, f := range files {
		md.Types[f] = "FILE"
		md.Permissions[f] = "rw-"
		md.LastModifiedDates[f] = json.RawMessage("1700000000000")
		md.Sizes[f] = json.RawMessage("12")
	}
	for _, d := range dirs {
		md.Types[d] = "DIRECTORY"
		md.Permissions[d] = "rwx"
		md.LastModifiedDates[d] = json.RawMessage("1700000000000")
	}
	return md
}

func (f *fakeRemote) set(path string, files, dirs []string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.dirs[path] = metadata(files, dirs)
}

func (f *fakeRemote) record(c call) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, c)
}

func (f *fakeRemote) Calls() []call {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]call(nil), f.calls...)
}

func (f *fakeRemote) callsOf(method string) []call {
	var out []call
	for _, c := range f.Calls() {
		if c.Method == method {
			out = append(out, c)
		}
	}
	return out
}

func (f *fakeRemote) List(ctx context.Context, cred dataspace.Credential, path, pattern string) (*dataspace.Metadata, error) {
	f.record(call{Method: "LIST", Path: path, Pattern: pattern, Session: cred.SessionID})
	if f.listHook != nil {
		f.listHook(ctx, path)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	md, ok := f.dirs[path]
	if !ok {
		return nil, &dataspace.RemoteError{StatusCode: 404, StatusText: "Not Found", Message: "no such directory"}
	}
	return md, nil
}

func (f *fakeRemote) Put(ctx context.Context, cred dataspace.Credential, path string, body io.Reader, size int64) error {
	data, _ := io.ReadAll(body)
	f.record(call{Method: "PUT", Path: path, Body: string(data), Session: cred.SessionID})
	if f.putHook != nil {
		if err := f.putHook(ctx); err != nil {
			return err
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.putErr != nil {
		return f.putErr
	}
	f.content[path] = string(data)
	return nil
}

func (f *fakeRemote) CreateFolder(ctx context.Context, cred dataspace.Credential, path string) error {
	f.record(call{Method: "MKDIR", Path: path, Session: cred.SessionID})
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.mkdirErr
}

func (f *fakeRemote) Delete(ctx context.Context, cred dataspace.Credential, path string) error {
	f.record(call{Method: "DELETE", Path: path, Session: cred.SessionID})
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.delErr
}

func (f *fakeRemote) Download(ctx context.Context, cred dataspace.Credential, path, encoding string) (io.ReadCloser, int64, error) {
	f.record(call{Method: "GET", Path: path, Encoding: encoding, Session: cred.SessionID})
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, 0, f.getErr
	}
	data := f.content[path]
	if data == "" {
		data = "content of " + path
	}
	return io.NopCloser(strings.NewReader(data)), int64(len(data)), nil
}

// memorySaver keeps downloads in memory.
type memorySaver struct {
	mu    sync.Mutex
	saved map[string]string
	err   error // returned after the content was read
}

func (m *memorySaver) Save(ctx context.Context, name string, r io.Reader, size int64) (string, error) {
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, r); err != nil {
		return "", err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return "", m.err
	}
	if m.saved == nil {
		m.saved = map[string]string{}
	}
	m.saved[name] = buf.String()
	return "mem://" + name, nil
}

// scriptedConfirmer answers every confirmation with answer and records messages.
type scriptedConfirmer struct {
	mu       sync.Mutex
	answer   bool
	messages []string
}

func (c *scriptedConfirmer) Confirm(ctx context.Context, message string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.messages = append(c.messages, message)
	return c.answer, nil
}

func (c *scriptedConfirmer) Messages() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.messages...)
}
