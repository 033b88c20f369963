// internal/syncer/report.go
package syncer

import (
	"fmt"
	"sort"
	"strings"

	"repometer/internal/errs"
	"repometer/internal/model"
)

// RepoFailure records why one repository's sync attempt failed.
type RepoFailure struct {
	Repo   model.RepoKey
	Kind   errs.Kind
	Reason string
}

// RunReport aggregates the outcome of one full pass over the repository
// registry. Failed repositories never abort the run; they land here instead.
type RunReport struct {
	Attempted             int
	Succeeded             int
	Failed                []RepoFailure
	ObservationsPersisted int64
}

// HasFailures reports whether any repository failed during the run.
func (r *RunReport) HasFailures() bool {
	return len(r.Failed) > 0
}

// Summary renders a human-readable account of the run, one line per failure.
func (r *RunReport) Summary() string {
	var b strings.Builder
	fmt.Fprintf(&b, "repositories attempted: %d, succeeded: %d, failed: %d, observations persisted: %d",
		r.Attempted, r.Succeeded, len(r.Failed), r.ObservationsPersisted)
	failures := append([]RepoFailure(nil), r.Failed...)
	sort.Slice(failures, func(i, j int) bool {
		return failures[i].Repo.String() < failures[j].Repo.String()
	})
	for _, f := range failures {
		fmt.Fprintf(&b, "\n  %s: %s (%s)", f.Repo, f.Kind, f.Reason)
	}
	return b.String()
}
