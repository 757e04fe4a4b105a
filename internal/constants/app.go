package constants

import (
	"time"
)

// Dataspace REST contract
const (
	// DataspaceRestPath - prefix appended to the server base URL, followed by the dataspace name
	DataspaceRestPath = "/rest/data/"

	// SessionHeader - header carrying the session credential on every request
	SessionHeader = "sessionid"

	// RootPathToken - the root path "." must be sent as "%2E", never as an empty segment
	RootPathToken = "%2E"

	// DefaultFilterPattern - include pattern used whenever the filter is cleared
	DefaultFilterPattern = "*"

	// ListMetadataComponent - value of the "comp" query parameter for listings
	ListMetadataComponent = "list-metadata"

	// FolderMimeType - form value of "mimetype" used to create a directory
	FolderMimeType = "application/folder"

	// ZipSuffix - appended to a directory name when downloaded as an archive
	ZipSuffix = ".zip"

	// DefaultNewFolderName - name proposed when the user creates a folder without naming it
	DefaultNewFolderName = "untitled-folder"
)

// Download encodings
const (
	EncodingIdentity = "identity"
	EncodingZip      = "zip"
)

// HTTP Client Timeouts
const (
	// HTTPDialTimeout - timeout for establishing TCP connections (30s)
	HTTPDialTimeout = 30 * time.Second

	// HTTPDialKeepAlive - keep-alive period for active connections (30s)
	HTTPDialKeepAlive = 30 * time.Second

	// HTTPIdleConnTimeout - how long idle connections stay in the pool (90s)
	HTTPIdleConnTimeout = 90 * time.Second

	// HTTPTLSHandshakeTimeout - timeout for TLS handshake (30s)
	HTTPTLSHandshakeTimeout = 30 * time.Second

	// HTTPExpectContinueTimeout - timeout for 100-continue responses (1s)
	HTTPExpectContinueTimeout = 1 * time.Second

	// DefaultRequestTimeout - per-request timeout for metadata calls (listing, mkdir, delete)
	// Uploads and downloads are bounded only by their context.
	DefaultRequestTimeout = 60 * time.Second
)

// Request pacing
const (
	// DefaultRatePerSec - requests per second allowed against the dataspace server
	DefaultRatePerSec = 10.0

	// DefaultRateBurst - burst capacity of the request limiter
	DefaultRateBurst = 20.0
)

// Event System
const (
	// EventBusDefaultBuffer - default buffer size for event channels
	EventBusDefaultBuffer = 256

	// EventBusMaxBuffer - maximum buffer size for event channels
	EventBusMaxBuffer = 4096
)

// UI Updates
const (
	// ProgressUpdateInterval - interval for progress bar updates (250ms)
	ProgressUpdateInterval = 250 * time.Millisecond
)
