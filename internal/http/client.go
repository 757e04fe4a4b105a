// Package http builds the HTTP clients used to talk to the dataspace server.
package http

import (
	"context"
	"crypto/tls"
	nethttp "net/http"
	"os"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"golang.org/x/net/http2"

	"github.com/proactive/dataspace-browser/internal/config"
	"github.com/proactive/dataspace-browser/internal/logging"
)

// retryLogger adapts retryablehttp.LeveledLogger to the zerolog wrapper.
type retryLogger struct {
	logger *logging.Logger
}

func (l *retryLogger) Error(msg string, keysAndValues ...interface{}) {
	l.logger.Error().Fields(keysAndValues).Msg(msg)
}

func (l *retryLogger) Info(msg string, keysAndValues ...interface{}) {
	// Request-level info lines are too noisy for the CLI.
}

func (l *retryLogger) Debug(msg string, keysAndValues ...interface{}) {
	l.logger.Debug().Fields(keysAndValues).Msg(msg)
}

func (l *retryLogger) Warn(msg string, keysAndValues ...interface{}) {
	l.logger.Warn().Fields(keysAndValues).Msg(msg)
}

// NewMetadataClient returns the client used for small request/response calls
// (listing, folder creation, deletion).
//
// Retries are limited to failures where no response was received at all, and
// only when cfg.MaxRetries > 0; an HTTP error status is never retried so every
// server answer reaches the caller unchanged.
func NewMetadataClient(cfg *config.Config, logger *logging.Logger) (*nethttp.Client, error) {
	base, err := ConfigureHTTPClient(cfg)
	if err != nil {
		return nil, err
	}

	retryClient := retryablehttp.NewClient()
	retryClient.HTTPClient = base
	retryClient.RetryMax = cfg.MaxRetries
	retryClient.RetryWaitMin = 500 * time.Millisecond
	retryClient.RetryWaitMax = 5 * time.Second
	retryClient.Logger = &retryLogger{logger: logger}
	retryClient.CheckRetry = connectionErrorsOnly
	// Hand the last response back untouched instead of retryablehttp's generic error.
	retryClient.ErrorHandler = retryablehttp.PassthroughErrorHandler

	return retryClient.StandardClient(), nil
}

// connectionErrorsOnly retries when the request never produced a response.
func connectionErrorsOnly(ctx context.Context, resp *nethttp.Response, err error) (bool, error) {
	if ctx.Err() != nil {
		return false, ctx.Err()
	}
	if err != nil && resp == nil {
		return retryablehttp.DefaultRetryPolicy(ctx, resp, err)
	}
	return false, nil
}

// NewTransferClient returns the client used for streaming uploads and downloads.
// Bodies are streamed, so nothing here buffers or replays a request.
//
// Set DISABLE_HTTP2=true to force HTTP/1.1 when a server or proxy misbehaves.
func NewTransferClient(cfg *config.Config) (*nethttp.Client, error) {
	client, err := ConfigureHTTPClient(cfg)
	if err != nil {
		return nil, err
	}

	tr, ok := client.Transport.(*nethttp.Transport)
	if !ok {
		// NTLM wraps the transport; keep it as-is.
		return client, nil
	}

	// Archives and uploaded files are usually compressed already.
	tr.DisableCompression = true

	if os.Getenv("DISABLE_HTTP2") == "true" || cfg.ProxyMode == "basic" {
		tr.ForceAttemptHTTP2 = false
		tr.TLSNextProto = make(map[string]func(string, *tls.Conn) nethttp.RoundTripper)
	} else {
		_ = http2.ConfigureTransport(tr)
	}

	client.Transport = tr
	return client, nil
}
