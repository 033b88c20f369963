// internal/vcs/platform_test.go
package vcs

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMatch(t *testing.T) {
	cases := []struct {
		name string
		url  string
		want Platform
	}{
		{"bare github host", "github.com", GitHub},
		{"github with scheme", "https://github.com", GitHub},
		{"github with www", "www.github.com", GitHub},
		{"github with path", "https://github.com/acme/widget", GitHub},
		{"github uppercase", "GitHub.com", GitHub},
		{"gitlab saas", "gitlab.com", GitLab},
		{"gitlab with scheme", "https://gitlab.com", GitLab},
		{"self-hosted gitlab", "gitlab.internal.example.com", GitLab},
		{"self-hosted gitlab with port", "https://gitlab.example.com:8443", GitLab},
		{"bitbucket", "bitbucket.org", Unrecognized},
		{"github lookalike", "notgithub.com", Unrecognized},
		{"gitlab as subdomain suffix", "mygitlab.example.com", Unrecognized},
		{"empty", "", Unrecognized},
		{"whitespace", "  github.com  ", GitHub},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Match(tc.url))
		})
	}
}

func TestPlatformString(t *testing.T) {
	assert.Equal(t, "github", GitHub.String())
	assert.Equal(t, "gitlab", GitLab.String())
	assert.Equal(t, "unrecognized", Unrecognized.String())
}
