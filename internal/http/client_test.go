package http

import (
	"context"
	"errors"
	nethttp "net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/proactive/dataspace-browser/internal/config"
	"github.com/proactive/dataspace-browser/internal/logging"
)

func TestConnectionErrorsOnly(t *testing.T) {
	ctx := context.Background()

	retry, err := connectionErrorsOnly(ctx, &nethttp.Response{StatusCode: 503}, nil)
	if retry || err != nil {
		t.Errorf("HTTP status must never be retried, got retry=%v err=%v", retry, err)
	}

	retry, _ = connectionErrorsOnly(ctx, nil, errors.New("connection refused"))
	if !retry {
		t.Error("expected retry for connection error without response")
	}

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	retry, err = connectionErrorsOnly(cancelled, nil, errors.New("connection refused"))
	if retry || err == nil {
		t.Error("cancelled context must stop retries")
	}
}

func TestMetadataClient_DoesNotRetryStatusErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(nethttp.HandlerFunc(func(w nethttp.ResponseWriter, r *nethttp.Request) {
		calls.Add(1)
		w.WriteHeader(nethttp.StatusInternalServerError)
	}))
	defer srv.Close()

	cfg := config.New()
	cfg.MaxRetries = 3
	client, err := NewMetadataClient(cfg, logging.NewNopLogger())
	if err != nil {
		t.Fatalf("NewMetadataClient() error = %v", err)
	}

	resp, err := client.Get(srv.URL)
	if err != nil {
		t.Fatalf("expected response, got error %v", err)
	}
	resp.Body.Close()

	if resp.StatusCode != nethttp.StatusInternalServerError {
		t.Errorf("expected 500 passed through, got %d", resp.StatusCode)
	}
	if calls.Load() != 1 {
		t.Errorf("expected exactly 1 call, got %d", calls.Load())
	}
}

func TestNewTransferClient(t *testing.T) {
	client, err := NewTransferClient(config.New())
	if err != nil {
		t.Fatalf("NewTransferClient() error = %v", err)
	}
	tr, ok := client.Transport.(*nethttp.Transport)
	if !ok {
		t.Fatalf("expected *http.Transport, got %T", client.Transport)
	}
	if !tr.DisableCompression {
		t.Error("expected compression disabled for transfers")
	}
	if client.Timeout != 0 {
		t.Error("transfer client must not carry an overall timeout")
	}
}
