// Package dataspace is the client side of the dataspace REST contract:
// path-addressed listing, upload, folder creation, deletion and download
// under a user or global root.
package dataspace

import (
	"strings"

	"github.com/pkg/errors"
)

// Dataspace selects which remote root is addressed. Fixed for a session.
type Dataspace string

const (
	User   Dataspace = "user"
	Global Dataspace = "global"
)

// Parse accepts "user" or "global" in any case.
func Parse(s string) (Dataspace, error) {
	switch Dataspace(strings.ToLower(strings.TrimSpace(s))) {
	case User:
		return User, nil
	case Global:
		return Global, nil
	}
	return "", errors.Errorf("unknown dataspace %q (expected user or global)", s)
}

// Location is the short label shown above a listing, e.g. "USER DataSpace".
func (d Dataspace) Location() string {
	return strings.ToUpper(string(d)) + " DataSpace"
}

// Description explains what the dataspace is for.
func (d Dataspace) Description() string {
	switch d {
	case Global:
		return "Global DataSpace is a shared storage on the server host where anyone can read/write files."
	case User:
		return "User DataSpace is a personal user data storage on the server host."
	}
	return ""
}

// Credential is the opaque session token attached to every request.
// It is handed to each call rather than read from shared state.
type Credential struct {
	SessionID string
}
