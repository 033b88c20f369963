// internal/model/models.go
package model

import (
	"fmt"
	"time"
)

// Customer is a named organization that owns accounts and repositories.
type Customer struct {
	Name string
}

// Account identifies a platform credential scope: a customer's username on a
// given hosting platform. The token itself is never carried around in this
// struct; it is resolved on demand by the store.
type Account struct {
	Customer string
	URL      string
	Username string
}

// Registration is one row of the repository registry. Two registrations that
// differ only in Username point at the same physical repository.
type Registration struct {
	URL        string
	Username   string
	Owner      string
	Repository string
}

// Key returns the identity of the physical repository behind this
// registration.
func (r Registration) Key() RepoKey {
	return RepoKey{URL: r.URL, Owner: r.Owner, Repository: r.Repository}
}

// RepoKey identifies a physical repository independent of which usernames it
// was registered under.
type RepoKey struct {
	URL        string
	Owner      string
	Repository string
}

func (k RepoKey) String() string {
	return fmt.Sprintf("%s/%s/%s", k.URL, k.Owner, k.Repository)
}

// Observation is a single normalized metric reading: one value for one tag on
// one calendar date. Dates are truncated to UTC midnight; platforms report
// daily granularity only.
type Observation struct {
	Date  time.Time
	Tag   string
	Value string
}

// Key returns the within-repository identity of the observation, used by the
// deduplication gate. Combined with a RepoKey it forms the full identity
// tuple (url, owner, repository, timestamp, tag).
func (o Observation) Key() ObservationKey {
	return ObservationKey{Date: o.Date.Format(DateLayout), Tag: o.Tag}
}

// ObservationKey is the dedup key of an observation within one repository.
type ObservationKey struct {
	Date string
	Tag  string
}

// DateLayout is the wire and storage format for observation dates.
const DateLayout = "2006-01-02"

// Day truncates t to its UTC calendar date.
func Day(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// TrafficRow is a persisted observation together with the registration tuple
// it was stored under.
type TrafficRow struct {
	URL        string
	Username   string
	Owner      string
	Repository string
	Date       time.Time
	Tag        string
	Value      string
}

// Counts holds per-table row counts for the status command.
type Counts struct {
	Customers    int64
	Accounts     int64
	Repositories int64
	Observations int64
}
