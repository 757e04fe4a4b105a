package dataspace

import (
	"strconv"
	"strings"
	"time"

	"github.com/segmentio/encoding/json"
)

// Metadata is the list-metadata document: name sequences plus parallel maps
// keyed by entry name.
type Metadata struct {
	FileListing       []string                   `json:"fileListing"`
	DirectoryListing  []string                   `json:"directoryListing"`
	Types             map[string]string          `json:"types"`
	Permissions       map[string]string          `json:"permissions"`
	LastModifiedDates map[string]json.RawMessage `json:"lastModifiedDates"`
	Sizes             map[string]json.RawMessage `json:"sizes"`
}

// Modified returns the last modification time of name, or the zero time when
// the server sent nothing usable. Both epoch milliseconds and date strings occur.
func (m *Metadata) Modified(name string) time.Time {
	raw, ok := m.LastModifiedDates[name]
	if !ok || len(raw) == 0 {
		return time.Time{}
	}

	var millis int64
	if err := json.Unmarshal(raw, &millis); err == nil {
		return time.UnixMilli(millis)
	}

	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return time.Time{}
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.UnixMilli(n)
	}
	for _, layout := range []string{
		time.RFC3339Nano,
		"2006-01-02T15:04:05.000-0700",
		"2006-01-02T15:04:05Z0700",
		"Mon Jan 02 15:04:05 MST 2006",
		"2006-01-02 15:04:05",
	} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

// Size returns the byte size of name. Sizes arrive as numbers or numeric strings.
func (m *Metadata) Size(name string) int64 {
	raw, ok := m.Sizes[name]
	if !ok || len(raw) == 0 {
		return 0
	}
	var n int64
	if err := json.Unmarshal(raw, &n); err == nil {
		return n
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64); err == nil {
			return n
		}
	}
	return 0
}
