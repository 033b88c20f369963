// internal/vcs/platform.go
package vcs

import "strings"

// Platform is the closed set of hosting platforms a registered repository can
// live on. Adding a platform means adding one variant here and one Adapter;
// the syncer never branches on URLs itself.
type Platform int

const (
	Unrecognized Platform = iota
	GitHub
	GitLab
)

func (p Platform) String() string {
	switch p {
	case GitHub:
		return "github"
	case GitLab:
		return "gitlab"
	default:
		return "unrecognized"
	}
}

// Match maps a registered platform URL to its Platform variant. Self-hosted
// GitLab instances are recognized by the conventional "gitlab." host prefix.
func Match(rawURL string) Platform {
	host := hostOf(rawURL)
	switch {
	case host == "github.com" || host == "www.github.com":
		return GitHub
	case host == "gitlab.com" || strings.HasPrefix(host, "gitlab."):
		return GitLab
	default:
		return Unrecognized
	}
}

// hostOf extracts the lowercase hostname from a registry URL, which may be a
// bare host ("github.com") or carry a scheme, port or path.
func hostOf(raw string) string {
	s := strings.ToLower(strings.TrimSpace(raw))
	if i := strings.Index(s, "://"); i >= 0 {
		s = s[i+3:]
	}
	if i := strings.IndexAny(s, "/?#"); i >= 0 {
		s = s[:i]
	}
	if i := strings.LastIndex(s, ":"); i >= 0 {
		s = s[:i]
	}
	return s
}
