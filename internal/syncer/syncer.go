// internal/syncer/syncer.go
package syncer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"repometer/internal/errs"
	"repometer/internal/metrics"
	"repometer/internal/model"
	"repometer/internal/vcs"
)

// Store is the slice of the persistence layer the sync engine depends on.
type Store interface {
	ListRegistrations(ctx context.Context) ([]model.Registration, error)
	ListAccounts(ctx context.Context) ([]model.Account, error)
	ResolveToken(ctx context.Context, customer, url, username string) (string, error)
	ExistingObservationKeys(ctx context.Context, key model.RepoKey, from, to time.Time) (map[model.ObservationKey]struct{}, error)
	InsertObservations(ctx context.Context, regs []model.Registration, obs []model.Observation) (int64, error)
}

// Syncer drives one full fetch/dedupe/persist pass over the repository
// registry. Repositories are independent units of work; failures are
// collected per repository and never abort the run.
type Syncer struct {
	store       Store
	adapters    *vcs.AdapterSet
	logger      *slog.Logger
	concurrency int
}

func New(store Store, adapters *vcs.AdapterSet, logger *slog.Logger, concurrency int) *Syncer {
	return &Syncer{
		store:       store,
		adapters:    adapters,
		logger:      logger,
		concurrency: concurrency,
	}
}

// credScope is the lookup key for credential candidates: which customers hold
// a token for this username on this platform.
type credScope struct {
	url      string
	username string
}

// Run performs one complete pass. It returns an error only for run-fatal
// conditions (registry unreadable, or no registered repository matches any
// known platform); everything else lands in the report.
func (s *Syncer) Run(ctx context.Context) (*RunReport, error) {
	regs, err := s.store.ListRegistrations(ctx)
	if err != nil {
		metrics.SyncRunsTotal.WithLabelValues("failure").Inc()
		return nil, fmt.Errorf("reading repository registry: %w", err)
	}
	accounts, err := s.store.ListAccounts(ctx)
	if err != nil {
		metrics.SyncRunsTotal.WithLabelValues("failure").Inc()
		return nil, fmt.Errorf("reading credential registry: %w", err)
	}

	// Collapse duplicate registrations: one fetch per physical repository,
	// however many usernames it was registered under.
	byRepo := make(map[model.RepoKey][]model.Registration)
	var keys []model.RepoKey
	for _, r := range regs {
		k := r.Key()
		if _, seen := byRepo[k]; !seen {
			keys = append(keys, k)
		}
		byRepo[k] = append(byRepo[k], r)
	}

	if len(keys) > 0 {
		anyMatch := false
		for _, k := range keys {
			if _, ok := s.adapters.For(vcs.Match(k.URL)); ok {
				anyMatch = true
				break
			}
		}
		if !anyMatch {
			metrics.SyncRunsTotal.WithLabelValues("failure").Inc()
			return nil, errors.New("no platform mapping matches any registered repository")
		}
	}

	creds := make(map[credScope][]model.Account)
	for _, a := range accounts {
		scope := credScope{url: a.URL, username: a.Username}
		creds[scope] = append(creds[scope], a)
	}

	s.logger.Info("starting sync run", "repositories", len(keys), "concurrency", s.concurrency)

	report := &RunReport{Attempted: len(keys)}
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)

	for _, key := range keys {
		g.Go(func() error {
			if gctx.Err() != nil {
				mu.Lock()
				report.Failed = append(report.Failed, RepoFailure{
					Repo: key, Kind: errs.KindTransient, Reason: gctx.Err().Error(),
				})
				mu.Unlock()
				return nil
			}

			platform := vcs.Match(key.URL)
			start := time.Now()
			persisted, err := s.syncRepo(gctx, platform, key, byRepo[key], creds)
			metrics.RepoSyncDuration.WithLabelValues(platform.String()).Observe(time.Since(start).Seconds())

			mu.Lock()
			defer mu.Unlock()
			report.ObservationsPersisted += persisted
			if err != nil {
				metrics.RepoSyncsTotal.WithLabelValues(platform.String(), "failure").Inc()
				s.logger.Error("repository sync failed",
					"repo", key.String(), "kind", string(errs.KindOf(err)), "error", err)
				report.Failed = append(report.Failed, RepoFailure{
					Repo: key, Kind: errs.KindOf(err), Reason: err.Error(),
				})
				return nil
			}
			metrics.RepoSyncsTotal.WithLabelValues(platform.String(), "success").Inc()
			report.Succeeded++
			return nil
		})
	}
	_ = g.Wait()

	metrics.ObservationsPersistedTotal.Add(float64(report.ObservationsPersisted))
	if report.HasFailures() {
		metrics.SyncRunsTotal.WithLabelValues("partial").Inc()
	} else {
		metrics.SyncRunsTotal.WithLabelValues("success").Inc()
		metrics.LastRunSuccessTimestamp.SetToCurrentTime()
	}

	s.logger.Info("sync run finished",
		"attempted", report.Attempted,
		"succeeded", report.Succeeded,
		"failed", len(report.Failed),
		"observations_persisted", report.ObservationsPersisted)
	return report, nil
}

// syncRepo runs the fetch→dedupe→persist pipeline for one physical
// repository. The pipeline is strictly sequential within a repository.
func (s *Syncer) syncRepo(ctx context.Context, platform vcs.Platform, key model.RepoKey, regs []model.Registration, creds map[credScope][]model.Account) (int64, error) {
	adapter, ok := s.adapters.For(platform)
	if !ok {
		return 0, errs.Errorf(errs.KindUnsupportedPlatform, "no adapter for url %q", key.URL)
	}

	token, err := s.resolveAnyToken(ctx, key, regs, creds)
	if err != nil {
		return 0, err
	}

	obs, err := adapter.Fetch(ctx, key.URL, key.Owner, key.Repository, token)
	if err != nil {
		return 0, err
	}
	if len(obs) == 0 {
		return 0, nil
	}

	survivors, err := s.dedupe(ctx, key, obs)
	if err != nil {
		return 0, err
	}
	if len(survivors) == 0 {
		s.logger.Debug("all observations already stored", "repo", key.String())
		return 0, nil
	}

	// Rows are stored once per registration tuple so each registration
	// keeps its own traceable copy. All tuples commit in one transaction:
	// the dedup key ignores username, so a partial commit would leave the
	// remaining tuples unable to ever receive these observations.
	return s.store.InsertObservations(ctx, regs, survivors)
}

// resolveAnyToken finds a usable credential for the repository. Registrations
// are tried in username order; for each, any customer holding a credential
// for that (url, username) scope is a candidate. The first successful
// resolution wins.
func (s *Syncer) resolveAnyToken(ctx context.Context, key model.RepoKey, regs []model.Registration, creds map[credScope][]model.Account) (string, error) {
	sorted := append([]model.Registration(nil), regs...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Username < sorted[j].Username })

	var lastErr error
	for _, reg := range sorted {
		for _, account := range creds[credScope{url: reg.URL, username: reg.Username}] {
			token, err := s.store.ResolveToken(ctx, account.Customer, account.URL, account.Username)
			if err == nil {
				return token, nil
			}
			lastErr = err
		}
	}
	if lastErr != nil {
		return "", lastErr
	}
	return "", errs.Errorf(errs.KindCredentialNotFound, "no credential registered for %s", key)
}

// dedupe drops observations whose identity key already exists in the store.
// The lookback is bounded to the incoming batch's date range, since adapters
// only report a recent rolling window.
func (s *Syncer) dedupe(ctx context.Context, key model.RepoKey, obs []model.Observation) ([]model.Observation, error) {
	from, to := obs[0].Date, obs[0].Date
	for _, o := range obs[1:] {
		if o.Date.Before(from) {
			from = o.Date
		}
		if o.Date.After(to) {
			to = o.Date
		}
	}

	existing, err := s.store.ExistingObservationKeys(ctx, key, from, to)
	if err != nil {
		return nil, errs.Errorf(errs.KindPersistence, "dedup lookup for %s: %w", key, err)
	}

	survivors := make([]model.Observation, 0, len(obs))
	for _, o := range obs {
		if _, dup := existing[o.Key()]; dup {
			continue
		}
		survivors = append(survivors, o)
	}
	sort.Slice(survivors, func(i, j int) bool {
		if !survivors[i].Date.Equal(survivors[j].Date) {
			return survivors[i].Date.Before(survivors[j].Date)
		}
		return survivors[i].Tag < survivors[j].Tag
	})
	return survivors, nil
}

// Start runs the engine on a fixed interval until the context is cancelled.
// Used by the long-running serve mode; the collect command calls Run once.
func (s *Syncer) Start(ctx context.Context, interval time.Duration) {
	s.logger.Info("starting periodic sync", "interval", interval.String())
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.runOnce(ctx)
	for {
		select {
		case <-ticker.C:
			s.runOnce(ctx)
		case <-ctx.Done():
			s.logger.Info("periodic sync shutting down", "reason", ctx.Err())
			return
		}
	}
}

func (s *Syncer) runOnce(ctx context.Context) {
	report, err := s.Run(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		s.logger.Error("sync run aborted", "error", err)
		return
	}
	if report != nil && report.HasFailures() {
		s.logger.Warn("sync run completed with failures", "summary", report.Summary())
	}
}
