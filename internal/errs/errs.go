// internal/errs/errs.go
package errs

import (
	"errors"
	"fmt"
)

// Kind classifies a sync failure so the run report can tell an operator what
// went wrong without parsing error strings.
type Kind string

const (
	// KindCredentialNotFound means no token row matched the repository's
	// registration; the repository is skipped.
	KindCredentialNotFound Kind = "credential_not_found"
	// KindPlatformAuth means the platform rejected the token (401/403
	// without a rate-limit signal). Distinct from a missing credential.
	KindPlatformAuth Kind = "platform_auth"
	// KindRateLimited means the platform's rate limit budget was exhausted
	// and the retry budget ran out.
	KindRateLimited Kind = "platform_rate_limited"
	// KindPlatformNotFound means the platform returned 404; the repository
	// may have been deleted or renamed upstream.
	KindPlatformNotFound Kind = "platform_not_found"
	// KindTransient covers network and 5xx failures that survived the
	// bounded retry budget.
	KindTransient Kind = "transient_network"
	// KindPersistence means the batch transaction failed and was rolled
	// back.
	KindPersistence Kind = "persistence"
	// KindUnsupportedPlatform means the registration's URL matched no known
	// platform.
	KindUnsupportedPlatform Kind = "unsupported_platform"
)

// Error carries a failure Kind alongside the underlying cause.
type Error struct {
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return string(e.Kind)
	}
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// E wraps err with the given kind. A nil err yields an error whose message is
// the kind itself.
func E(kind Kind, err error) error {
	return &Error{Kind: kind, Err: err}
}

// Errorf is E with fmt.Errorf formatting.
func Errorf(kind Kind, format string, args ...any) error {
	return &Error{Kind: kind, Err: fmt.Errorf(format, args...)}
}

// KindOf extracts the Kind from err, or "" if err carries none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}
