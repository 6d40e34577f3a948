// Package identity validates AT Protocol identifier syntax: handles
// (human-readable usernames) and DIDs (stable account identifiers).
package identity

import (
	"regexp"
	"strings"

	"github.com/pkg/errors"
)

const (
	maxHandleLength = 253
	maxDIDLength    = 2048
)

var (
	ErrInvalidHandle = errors.New("invalid handle")
	ErrInvalidDID    = errors.New("invalid did")
)

// Handle syntax: two or more dot-separated segments of 1-63 alphanumeric
// characters (hyphens allowed internally), with a letter-led TLD.
var handleRegex = regexp.MustCompile(
	`^([a-zA-Z0-9]([a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?\.)+[a-zA-Z]([a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?$`)

// DID syntax: "did:" method ":" method-specific identifier.
var didRegex = regexp.MustCompile(
	`^did:[a-z]+:[a-zA-Z0-9._:%-]*[a-zA-Z0-9._-]$`)

// ValidateHandle checks handle syntax only; it performs no resolution.
func ValidateHandle(handle string) error {
	handle = strings.TrimSpace(handle)
	if handle == "" || len(handle) > maxHandleLength {
		return ErrInvalidHandle
	}
	if !handleRegex.MatchString(handle) {
		return ErrInvalidHandle
	}
	return nil
}

// ValidateDID checks DID syntax only; it performs no resolution.
func ValidateDID(did string) error {
	if did == "" || len(did) > maxDIDLength {
		return ErrInvalidDID
	}
	if !didRegex.MatchString(did) {
		return ErrInvalidDID
	}
	return nil
}
