// internal/vcs/gitlab.go
package vcs

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	gitlab "gitlab.com/gitlab-org/api/client-go"

	"repometer/internal/errs"
	"repometer/internal/model"
)

// GitLabAdapter collects star and fork counts plus the rolling 30-day HTTP
// fetch statistics. Fetch statistics cover HTTP clones and pulls only; SSH
// fetches are not reported by the platform.
type GitLabAdapter struct {
	limits   *RateTracker
	logger   *slog.Logger
	attempts int
	backoff  time.Duration
	now      func() time.Time

	// apiBase overrides the API endpoint in tests.
	apiBase string
}

func NewGitLabAdapter(limits *RateTracker, logger *slog.Logger, attempts int) *GitLabAdapter {
	return &GitLabAdapter{
		limits:   limits,
		logger:   logger,
		attempts: attempts,
		backoff:  500 * time.Millisecond,
		now:      time.Now,
	}
}

func (a *GitLabAdapter) Platform() Platform { return GitLab }

func (a *GitLabAdapter) client(host, token string) (*gitlab.Client, error) {
	base := a.apiBase
	if base == "" {
		base = "https://" + hostOf(host)
	}
	// The retry policy lives in call; the library's own retries would
	// multiply the attempt budget.
	return gitlab.NewClient(token, gitlab.WithBaseURL(base), gitlab.WithoutRetries())
}

// projectStatistics is the subset of the additional-statistics payload the
// adapter consumes.
type projectStatistics struct {
	Fetches struct {
		Total int `json:"total"`
		Days  []struct {
			Count int    `json:"count"`
			Date  string `json:"date"`
		} `json:"days"`
	} `json:"fetches"`
}

func (a *GitLabAdapter) Fetch(ctx context.Context, host, owner, repo, token string) ([]model.Observation, error) {
	client, err := a.client(host, token)
	if err != nil {
		return nil, errs.Errorf(errs.KindTransient, "building gitlab client for %s: %w", host, err)
	}

	logger := a.logger.With("platform", "gitlab", "owner", owner, "repo", repo)
	pid := owner + "/" + repo
	today := model.Day(a.now())
	var obs []model.Observation

	var project *gitlab.Project
	if err := a.call(ctx, token, func() (*gitlab.Response, error) {
		p, resp, err := client.Projects.GetProject(pid, &gitlab.GetProjectOptions{}, gitlab.WithContext(ctx))
		project = p
		return resp, err
	}); err != nil {
		return nil, err
	}
	obs = append(obs, model.Observation{Date: today, Tag: TagStargazers, Value: strconv.Itoa(project.StarCount)})

	forks, err := a.countForks(ctx, client, pid, token)
	if err != nil {
		return nil, err
	}
	obs = append(obs, model.Observation{Date: today, Tag: TagForks, Value: strconv.Itoa(forks)})

	var stats projectStatistics
	if err := a.call(ctx, token, func() (*gitlab.Response, error) {
		req, err := client.NewRequest(http.MethodGet,
			fmt.Sprintf("projects/%s/statistics", url.PathEscape(pid)),
			nil, []gitlab.RequestOptionFunc{gitlab.WithContext(ctx)})
		if err != nil {
			return nil, err
		}
		return client.Do(req, &stats)
	}); err != nil {
		return nil, err
	}
	for _, day := range stats.Fetches.Days {
		date, err := time.ParseInLocation(model.DateLayout, day.Date, time.UTC)
		if err != nil {
			return nil, errs.Errorf(errs.KindTransient, "parsing fetch statistics date %q: %w", day.Date, err)
		}
		obs = append(obs, model.Observation{Date: date, Tag: TagFetchCount, Value: strconv.Itoa(day.Count)})
	}

	logger.Debug("fetched observations", "count", len(obs))
	return obs, nil
}

// countForks drains the paginated fork list to exhaustion and returns the
// total.
func (a *GitLabAdapter) countForks(ctx context.Context, client *gitlab.Client, pid, token string) (int, error) {
	opt := &gitlab.ListProjectsOptions{
		ListOptions: gitlab.ListOptions{PerPage: 100},
	}
	total := 0
	for {
		var (
			page []*gitlab.Project
			resp *gitlab.Response
		)
		if err := a.call(ctx, token, func() (*gitlab.Response, error) {
			p, r, err := client.Projects.ListProjectForks(pid, opt, gitlab.WithContext(ctx))
			page, resp = p, r
			return r, err
		}); err != nil {
			return 0, err
		}

		total += len(page)
		if resp.NextPage == 0 {
			break
		}
		opt.Page = resp.NextPage
	}
	return total, nil
}

// call runs one API request under the shared rate-limit tracker, retrying
// 429s and 5xx/transport failures up to the attempt budget. Classification is
// by HTTP status so it is independent of the client library's error types.
func (a *GitLabAdapter) call(ctx context.Context, token string, fn func() (*gitlab.Response, error)) error {
	var lastErr error
	rateLimited := false

	for attempt := 1; attempt <= a.attempts; attempt++ {
		if err := a.limits.Wait(ctx, token); err != nil {
			return err
		}

		resp, err := fn()
		status := 0
		if resp != nil && resp.Response != nil {
			status = resp.StatusCode
			a.updateLimits(token, resp)
		}
		if err == nil {
			return nil
		}
		lastErr = err

		switch {
		case status == http.StatusNotFound:
			return errs.E(errs.KindPlatformNotFound, err)
		case status == http.StatusTooManyRequests:
			rateLimited = true
			if attempt < a.attempts {
				wait := retryAfter(resp, a.backoff)
				a.logger.Warn("gitlab rate limited, backing off", "attempt", attempt, "wait", wait)
				if err := sleep(ctx, wait); err != nil {
					return err
				}
			}
		case status == http.StatusUnauthorized || status == http.StatusForbidden:
			return errs.E(errs.KindPlatformAuth, err)
		case status >= 500 || status == 0:
			if attempt < a.attempts {
				if err := sleep(ctx, time.Duration(attempt)*a.backoff); err != nil {
					return err
				}
			}
		default:
			return errs.E(errs.KindTransient, err)
		}
	}

	if rateLimited {
		return errs.Errorf(errs.KindRateLimited, "retry budget exhausted after %d attempts: %w", a.attempts, lastErr)
	}
	return errs.Errorf(errs.KindTransient, "retry budget exhausted after %d attempts: %w", a.attempts, lastErr)
}

func (a *GitLabAdapter) updateLimits(token string, resp *gitlab.Response) {
	remaining, err := strconv.Atoi(resp.Header.Get("RateLimit-Remaining"))
	if err != nil {
		return
	}
	reset := time.Time{}
	if sec, err := strconv.ParseInt(resp.Header.Get("RateLimit-Reset"), 10, 64); err == nil {
		reset = time.Unix(sec, 0)
	}
	a.limits.Update(token, remaining, reset)
}

// retryAfter reads the platform-indicated wait from a 429 response, falling
// back to the adapter backoff.
func retryAfter(resp *gitlab.Response, fallback time.Duration) time.Duration {
	if resp == nil || resp.Response == nil {
		return fallback
	}
	if sec, err := strconv.Atoi(resp.Header.Get("Retry-After")); err == nil && sec > 0 {
		return time.Duration(sec) * time.Second
	}
	if sec, err := strconv.ParseInt(resp.Header.Get("RateLimit-Reset"), 10, 64); err == nil {
		if d := time.Until(time.Unix(sec, 0)); d > 0 {
			return d
		}
	}
	return fallback
}
