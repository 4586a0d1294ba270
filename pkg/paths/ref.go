package paths

import (
	"strings"

	"github.com/abhijitnavale/flatpak/pkg/storeerr"
	"github.com/abhijitnavale/flatpak/pkg/types"
)

// Kind and Ref live in pkg/types (ParseRef is here); paths re-exports
// the kind constants so callers mapping refs to locations don't need a
// second import for two constants.
type Kind = types.Kind

const (
	KindApp     = types.KindApp
	KindRuntime = types.KindRuntime
)

// Ref is an alias of types.Ref, kept local to this package's API surface.
type Ref = types.Ref

// ParseRef splits s on "/" and fails with *parse-error* if the part
// count is not exactly four.
func ParseRef(s string) (Ref, error) {
	parts := strings.Split(s, "/")
	if len(parts) != 4 {
		return Ref{}, storeerr.Newf(storeerr.ParseError, "invalid ref %q: expected exactly 4 parts, got %d", s, len(parts))
	}

	kind := Kind(parts[0])
	if kind != KindApp && kind != KindRuntime {
		return Ref{}, storeerr.Newf(storeerr.ParseError, "invalid ref %q: unknown kind %q", s, parts[0])
	}

	for i, p := range parts[1:] {
		if p == "" {
			return Ref{}, storeerr.Newf(storeerr.ParseError, "invalid ref %q: part %d is empty", s, i+1)
		}
	}

	return Ref{Kind: kind, Name: parts[1], Arch: parts[2], Branch: parts[3]}, nil
}

// IsChecksum reports whether s is exactly 64 lowercase hex characters,
// the deployment subdirectory naming convention.
func IsChecksum(s string) bool {
	if len(s) != types.ChecksumLen {
		return false
	}
	for _, c := range s {
		if !((c >= '0' && c <= '9') || (c >= 'a' && c <= 'f')) {
			return false
		}
	}
	return true
}
