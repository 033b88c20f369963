// internal/vcs/adapter.go
package vcs

import (
	"context"

	"repometer/internal/model"
)

// Canonical metric tags. Each adapter owns a static mapping from its
// platform's API shapes to these; a platform API change touches only the
// adapter, never the vocabulary.
//
// GitHub emits: stargazers, forks, views_total, views_unique, clones_total,
// clones_unique. GitLab emits: stargazers, forks, fetch_count.
const (
	TagStargazers   = "stargazers"
	TagForks        = "forks"
	TagViewsTotal   = "views_total"
	TagViewsUnique  = "views_unique"
	TagClonesTotal  = "clones_total"
	TagClonesUnique = "clones_unique"
	TagFetchCount   = "fetch_count"
)

// Adapter fetches engagement metrics from one hosting platform and
// normalizes them into canonical observations. Adapters are stateless per
// invocation: credentials arrive with each call and pagination is drained
// internally before the result is returned.
type Adapter interface {
	Platform() Platform
	Fetch(ctx context.Context, host, owner, repo, token string) ([]model.Observation, error)
}

// AdapterSet dispatches from a Platform variant to its Adapter.
type AdapterSet struct {
	byPlatform map[Platform]Adapter
}

func NewAdapterSet(adapters ...Adapter) *AdapterSet {
	s := &AdapterSet{byPlatform: make(map[Platform]Adapter, len(adapters))}
	for _, a := range adapters {
		s.byPlatform[a.Platform()] = a
	}
	return s
}

// For returns the adapter for p, if one is registered.
func (s *AdapterSet) For(p Platform) (Adapter, bool) {
	a, ok := s.byPlatform[p]
	return a, ok
}
