package dataspace

import (
	"context"
	"io"
	nethttp "net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/segmentio/encoding/json"

	"github.com/proactive/dataspace-browser/internal/config"
	"github.com/proactive/dataspace-browser/internal/constants"
	httpclient "github.com/proactive/dataspace-browser/internal/http"
	"github.com/proactive/dataspace-browser/internal/logging"
	"github.com/proactive/dataspace-browser/internal/ratelimit"
)

// Client talks to one dataspace root. It holds no credential; every call
// receives the one to attach.
type Client struct {
	metadata       *nethttp.Client // listing, folder creation, deletion
	transfer       *nethttp.Client // streamed upload and download bodies
	rootURL        string          // {baseURL}/rest/data/{dataspace}/
	limiter        *ratelimit.RateLimiter
	requestTimeout time.Duration
	logger         *logging.Logger
}

// NewClient builds a client for the dataspace configured in cfg.
func NewClient(cfg *config.Config, logger *logging.Logger) (*Client, error) {
	if logger == nil {
		logger = logging.NewNopLogger()
	}

	metadata, err := httpclient.NewMetadataClient(cfg, logger)
	if err != nil {
		return nil, errors.Wrap(err, "failed to configure metadata client")
	}
	transfer, err := httpclient.NewTransferClient(cfg)
	if err != nil {
		return nil, errors.Wrap(err, "failed to configure transfer client")
	}

	return &Client{
		metadata:       metadata,
		transfer:       transfer,
		rootURL:        cfg.DataspaceURL(constants.DataspaceRestPath),
		limiter:        ratelimit.NewRateLimiter(cfg.RatePerSec, cfg.RateBurst),
		requestTimeout: cfg.RequestTimeout,
		logger:         logger,
	}, nil
}

// escapePath encodes a dataspace path as a single URL segment. The root is
// sent as the reserved token "%2E" since the server needs a non-empty name.
func escapePath(path string) string {
	if path == "" {
		path = constants.RootPathToken
	}
	return url.PathEscape(path)
}

func (c *Client) endpoint(path string, query url.Values) string {
	u := c.rootURL + escapePath(path)
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	return u
}

// newRequest waits for the rate limiter and builds a request carrying the session header.
func (c *Client) newRequest(ctx context.Context, cred Credential, method, path string, query url.Values, body io.Reader) (*nethttp.Request, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, errors.Wrap(err, "rate limiter cancelled")
	}

	req, err := nethttp.NewRequestWithContext(ctx, method, c.endpoint(path, query), body)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create request")
	}
	req.Header.Set(constants.SessionHeader, cred.SessionID)
	return req, nil
}

// withTimeout bounds a metadata exchange by the configured request timeout.
func (c *Client) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.requestTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, c.requestTimeout)
}

// do sends req and converts any non-2xx answer into an *AuthError or *RemoteError.
// On success the caller owns resp.Body.
func (c *Client) do(client *nethttp.Client, req *nethttp.Request) (*nethttp.Response, error) {
	start := time.Now()
	resp, err := client.Do(req)
	if err != nil {
		if ctxErr := req.Context().Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, errors.Wrapf(err, "%s %s", req.Method, req.URL.Redacted())
	}

	c.logger.Debug().
		Str("method", req.Method).
		Str("url", req.URL.Redacted()).
		Int("status", resp.StatusCode).
		Dur("elapsed", time.Since(start)).
		Msg("dataspace request")

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		defer resp.Body.Close()
		return nil, errorFromResponse(resp)
	}
	return resp, nil
}

// List returns the metadata of the directory at path, filtered by the
// include pattern. An empty pattern means "*".
func (c *Client) List(ctx context.Context, cred Credential, path, pattern string) (*Metadata, error) {
	if pattern == "" {
		pattern = constants.DefaultFilterPattern
	}

	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	query := url.Values{}
	query.Set("comp", constants.ListMetadataComponent)
	query.Set("includes", pattern)

	req, err := c.newRequest(ctx, cred, nethttp.MethodGet, path, query, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.do(c.metadata, req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var md Metadata
	if err := json.NewDecoder(resp.Body).Decode(&md); err != nil {
		return nil, errors.Wrap(err, "failed to decode listing")
	}
	return &md, nil
}

// Put creates or overwrites the file at path with the bytes read from body.
// size may be -1 when unknown.
func (c *Client) Put(ctx context.Context, cred Credential, path string, body io.Reader, size int64) error {
	req, err := c.newRequest(ctx, cred, nethttp.MethodPut, path, nil, body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/octet-stream")
	if size >= 0 {
		req.ContentLength = size
	}

	resp, err := c.do(c.transfer, req)
	if err != nil {
		return err
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return resp.Body.Close()
}

// CreateFolder creates the directory at path.
func (c *Client) CreateFolder(ctx context.Context, cred Credential, path string) error {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	form := url.Values{}
	form.Set("mimetype", constants.FolderMimeType)

	req, err := c.newRequest(ctx, cred, nethttp.MethodPost, path, nil, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.do(c.metadata, req)
	if err != nil {
		return err
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return resp.Body.Close()
}

// Delete removes the file or directory at path. Directories are removed recursively.
func (c *Client) Delete(ctx context.Context, cred Credential, path string) error {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	req, err := c.newRequest(ctx, cred, nethttp.MethodDelete, path, nil, nil)
	if err != nil {
		return err
	}

	resp, err := c.do(c.metadata, req)
	if err != nil {
		return err
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return resp.Body.Close()
}

// Download opens the content at path with the given encoding
// (constants.EncodingIdentity for files, constants.EncodingZip for directories).
// The returned size is -1 when the server does not announce it. The caller
// must close the reader.
func (c *Client) Download(ctx context.Context, cred Credential, path, encoding string) (io.ReadCloser, int64, error) {
	query := url.Values{}
	query.Set("encoding", encoding)

	req, err := c.newRequest(ctx, cred, nethttp.MethodGet, path, query, nil)
	if err != nil {
		return nil, 0, err
	}

	resp, err := c.do(c.transfer, req)
	if err != nil {
		return nil, 0, err
	}

	size := resp.ContentLength
	if size < 0 {
		if n, err := strconv.ParseInt(resp.Header.Get("Content-Length"), 10, 64); err == nil {
			size = n
		}
	}
	return resp.Body, size, nil
}
