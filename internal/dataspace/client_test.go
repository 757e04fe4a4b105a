package dataspace

import (
	"context"
	"io"
	nethttp "net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/proactive/dataspace-browser/internal/config"
	"github.com/proactive/dataspace-browser/internal/logging"
)

var testCred = Credential{SessionID: "s3ss10n"}

func newTestClient(t *testing.T, handler nethttp.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	cfg := config.New()
	cfg.BaseURL = srv.URL
	cfg.RatePerSec = 1000
	cfg.RateBurst = 1000

	client, err := NewClient(cfg, logging.NewNopLogger())
	require.NoError(t, err)
	return client, srv
}

func TestEscapePath(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"", "%252E"},
		{"a.txt", "a.txt"},
		{"b/c/", "b%2Fc%2F"},
		{"with space", "with%20space"},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.want, escapePath(tt.path))
		})
	}
}

func TestList_RootRequest(t *testing.T) {
	var seen *nethttp.Request
	client, _ := newTestClient(t, func(w nethttp.ResponseWriter, r *nethttp.Request) {
		seen = r.Clone(context.Background())
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{
			"fileListing": ["a.txt"],
			"directoryListing": ["b"],
			"types": {"a.txt": "FILE", "b": "DIRECTORY"},
			"permissions": {"a.txt": "rw-", "b": "rwx"},
			"lastModifiedDates": {"a.txt": 1700000000000, "b": "1700000001000"},
			"sizes": {"a.txt": 42, "b": "0"}
		}`)
	})

	md, err := client.List(context.Background(), testCred, "", "")
	require.NoError(t, err)

	require.NotNil(t, seen)
	assert.Equal(t, nethttp.MethodGet, seen.Method)
	assert.Equal(t, "/rest/data/user/%252E", seen.URL.EscapedPath())
	assert.Equal(t, "list-metadata", seen.URL.Query().Get("comp"))
	assert.Equal(t, "*", seen.URL.Query().Get("includes"))
	assert.Equal(t, "s3ss10n", seen.Header.Get("sessionid"))

	assert.Equal(t, []string{"a.txt"}, md.FileListing)
	assert.Equal(t, []string{"b"}, md.DirectoryListing)
	assert.Equal(t, "FILE", md.Types["a.txt"])
	assert.Equal(t, int64(42), md.Size("a.txt"))
	assert.Equal(t, int64(0), md.Size("missing"))
	assert.Equal(t, time.UnixMilli(1700000000000), md.Modified("a.txt"))
	assert.Equal(t, time.UnixMilli(1700000001000), md.Modified("b"))
	assert.True(t, md.Modified("missing").IsZero())
}

func TestList_SubdirectoryAndPattern(t *testing.T) {
	var path, includes string
	client, _ := newTestClient(t, func(w nethttp.ResponseWriter, r *nethttp.Request) {
		path = r.URL.EscapedPath()
		includes = r.URL.Query().Get("includes")
		_, _ = io.WriteString(w, `{"fileListing":[],"directoryListing":[]}`)
	})

	_, err := client.List(context.Background(), testCred, "b/c/", "*.txt")
	require.NoError(t, err)
	assert.Equal(t, "/rest/data/user/b%2Fc%2F", path)
	assert.Equal(t, "*.txt", includes)
}

func TestList_Errors(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		body       string
		wantAuth   bool
		wantDetail string
		wantStatus string
	}{
		{"unauthorized", nethttp.StatusUnauthorized, `{"errorMessage":"ignored"}`, true, "Unauthorized", "Unauthorized"},
		{"forbidden", nethttp.StatusForbidden, "", true, "Forbidden", "Forbidden"},
		{"server message", nethttp.StatusNotFound, `{"httpErrorCode":404,"errorMessage":"no such folder"}`, false, "no such folder", "Not Found"},
		{"no body", nethttp.StatusInternalServerError, "", false, "Internal Server Error", "Internal Server Error"},
		{"non json body", nethttp.StatusBadGateway, "<html>oops</html>", false, "Bad Gateway", "Bad Gateway"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, _ := newTestClient(t, func(w nethttp.ResponseWriter, r *nethttp.Request) {
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, tt.body)
			})

			_, err := client.List(context.Background(), testCred, "x/", "*")
			require.Error(t, err)
			assert.Equal(t, tt.wantAuth, IsAuth(err))
			assert.Equal(t, tt.wantDetail, Detail(err))
			assert.Equal(t, tt.wantStatus, StatusText(err))
		})
	}
}

func TestPut_StreamsBody(t *testing.T) {
	var method, path, body, session string
	client, _ := newTestClient(t, func(w nethttp.ResponseWriter, r *nethttp.Request) {
		method = r.Method
		path = r.URL.EscapedPath()
		session = r.Header.Get("sessionid")
		data, _ := io.ReadAll(r.Body)
		body = string(data)
		w.WriteHeader(nethttp.StatusCreated)
	})

	err := client.Put(context.Background(), testCred, "b/report.txt", strings.NewReader("hello"), 5)
	require.NoError(t, err)
	assert.Equal(t, nethttp.MethodPut, method)
	assert.Equal(t, "/rest/data/user/b%2Freport.txt", path)
	assert.Equal(t, "hello", body)
	assert.Equal(t, "s3ss10n", session)
}

func TestCreateFolder_PostsMimeType(t *testing.T) {
	var method, mimetype string
	client, _ := newTestClient(t, func(w nethttp.ResponseWriter, r *nethttp.Request) {
		method = r.Method
		_ = r.ParseForm()
		mimetype = r.PostForm.Get("mimetype")
		w.WriteHeader(nethttp.StatusCreated)
	})

	require.NoError(t, client.CreateFolder(context.Background(), testCred, "untitled-folder"))
	assert.Equal(t, nethttp.MethodPost, method)
	assert.Equal(t, "application/folder", mimetype)
}

func TestCreateFolder_StatusText(t *testing.T) {
	client, _ := newTestClient(t, func(w nethttp.ResponseWriter, r *nethttp.Request) {
		w.WriteHeader(nethttp.StatusConflict)
	})

	err := client.CreateFolder(context.Background(), testCred, "dup")
	require.Error(t, err)
	assert.Equal(t, "Conflict", StatusText(err))
}

func TestDelete(t *testing.T) {
	var method, path string
	client, _ := newTestClient(t, func(w nethttp.ResponseWriter, r *nethttp.Request) {
		method = r.Method
		path = r.URL.EscapedPath()
		w.WriteHeader(nethttp.StatusNoContent)
	})

	require.NoError(t, client.Delete(context.Background(), testCred, "a.txt"))
	assert.Equal(t, nethttp.MethodDelete, method)
	assert.Equal(t, "/rest/data/user/a.txt", path)
}

func TestDownload_Encoding(t *testing.T) {
	var encoding string
	client, _ := newTestClient(t, func(w nethttp.ResponseWriter, r *nethttp.Request) {
		encoding = r.URL.Query().Get("encoding")
		_, _ = io.WriteString(w, "PK\x03\x04")
	})

	rc, size, err := client.Download(context.Background(), testCred, "b/", "zip")
	require.NoError(t, err)
	defer rc.Close()

	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "zip", encoding)
	assert.Equal(t, "PK\x03\x04", string(data))
	assert.Equal(t, int64(4), size)
}

func TestDownload_Failure(t *testing.T) {
	client, _ := newTestClient(t, func(w nethttp.ResponseWriter, r *nethttp.Request) {
		w.WriteHeader(nethttp.StatusNotFound)
	})

	_, _, err := client.Download(context.Background(), testCred, "gone.txt", "identity")
	require.Error(t, err)
	assert.Equal(t, "Not Found", StatusText(err))
}

func TestNoRetryOnServerError(t *testing.T) {
	var calls atomic.Int32
	client, _ := newTestClient(t, func(w nethttp.ResponseWriter, r *nethttp.Request) {
		calls.Add(1)
		w.WriteHeader(nethttp.StatusServiceUnavailable)
	})

	err := client.Delete(context.Background(), testCred, "a.txt")
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())
}

func TestCancelledContext(t *testing.T) {
	block := make(chan struct{})
	client, _ := newTestClient(t, func(w nethttp.ResponseWriter, r *nethttp.Request) {
		select {
		case <-block:
		case <-r.Context().Done():
		}
	})
	defer close(block)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	err := client.Put(ctx, testCred, "big.bin", strings.NewReader("data"), 4)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestDataspaceLabels(t *testing.T) {
	ds, err := Parse("GLOBAL")
	require.NoError(t, err)
	assert.Equal(t, Global, ds)
	assert.Equal(t, "GLOBAL DataSpace", ds.Location())
	assert.Contains(t, User.Description(), "personal")

	_, err = Parse("shared")
	assert.Error(t, err)
}
