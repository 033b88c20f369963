// internal/vcs/github.go
package vcs

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	gogithub "github.com/google/go-github/v62/github"
	"golang.org/x/oauth2"

	"repometer/internal/errs"
	"repometer/internal/model"
)

// GitHubAdapter collects stargazer and fork counts plus the rolling 14-day
// views and clones traffic series. The traffic endpoints require a token with
// push access to the repository.
type GitHubAdapter struct {
	limits   *RateTracker
	logger   *slog.Logger
	attempts int
	backoff  time.Duration
	now      func() time.Time

	// apiBase overrides the API endpoint in tests.
	apiBase string
}

func NewGitHubAdapter(limits *RateTracker, logger *slog.Logger, attempts int) *GitHubAdapter {
	return &GitHubAdapter{
		limits:   limits,
		logger:   logger,
		attempts: attempts,
		backoff:  500 * time.Millisecond,
		now:      time.Now,
	}
}

func (a *GitHubAdapter) Platform() Platform { return GitHub }

func (a *GitHubAdapter) client(ctx context.Context, token string) (*gogithub.Client, error) {
	var hc *http.Client
	if token != "" {
		hc = oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token}))
	}
	client := gogithub.NewClient(hc)
	if a.apiBase != "" {
		return client.WithEnterpriseURLs(a.apiBase, a.apiBase)
	}
	return client, nil
}

// Fetch returns the full normalized observation set for one repository. All
// underlying API calls share the retry and rate-limit policy of call.
func (a *GitHubAdapter) Fetch(ctx context.Context, host, owner, repo, token string) ([]model.Observation, error) {
	client, err := a.client(ctx, token)
	if err != nil {
		return nil, errs.Errorf(errs.KindTransient, "building github client: %w", err)
	}

	logger := a.logger.With("platform", "github", "owner", owner, "repo", repo)
	today := model.Day(a.now())
	var obs []model.Observation

	var repoInfo *gogithub.Repository
	if err := a.call(ctx, token, func() (*gogithub.Response, error) {
		r, resp, err := client.Repositories.Get(ctx, owner, repo)
		repoInfo = r
		return resp, err
	}); err != nil {
		return nil, err
	}
	obs = append(obs,
		model.Observation{Date: today, Tag: TagStargazers, Value: strconv.Itoa(repoInfo.GetStargazersCount())},
		model.Observation{Date: today, Tag: TagForks, Value: strconv.Itoa(repoInfo.GetForksCount())},
	)

	opts := &gogithub.TrafficBreakdownOptions{Per: "day"}

	var views *gogithub.TrafficViews
	if err := a.call(ctx, token, func() (*gogithub.Response, error) {
		v, resp, err := client.Repositories.ListTrafficViews(ctx, owner, repo, opts)
		views = v
		return resp, err
	}); err != nil {
		return nil, err
	}
	for _, v := range views.Views {
		date := model.Day(v.GetTimestamp().Time)
		obs = append(obs,
			model.Observation{Date: date, Tag: TagViewsTotal, Value: strconv.Itoa(v.GetCount())},
			model.Observation{Date: date, Tag: TagViewsUnique, Value: strconv.Itoa(v.GetUniques())},
		)
	}

	var clones *gogithub.TrafficClones
	if err := a.call(ctx, token, func() (*gogithub.Response, error) {
		c, resp, err := client.Repositories.ListTrafficClones(ctx, owner, repo, opts)
		clones = c
		return resp, err
	}); err != nil {
		return nil, err
	}
	for _, c := range clones.Clones {
		date := model.Day(c.GetTimestamp().Time)
		obs = append(obs,
			model.Observation{Date: date, Tag: TagClonesTotal, Value: strconv.Itoa(c.GetCount())},
			model.Observation{Date: date, Tag: TagClonesUnique, Value: strconv.Itoa(c.GetUniques())},
		)
	}

	logger.Debug("fetched observations", "count", len(obs))
	return obs, nil
}

// call runs one API request under the shared rate-limit tracker, retrying
// rate-limit and transient failures up to the attempt budget. Auth failures
// and 404s are returned immediately with their error kind attached.
func (a *GitHubAdapter) call(ctx context.Context, token string, fn func() (*gogithub.Response, error)) error {
	var lastErr error
	rateLimited := false

	for attempt := 1; attempt <= a.attempts; attempt++ {
		if err := a.limits.Wait(ctx, token); err != nil {
			return err
		}

		resp, err := fn()
		if resp != nil {
			a.limits.Update(token, resp.Rate.Remaining, resp.Rate.Reset.Time)
		}
		if err == nil {
			return nil
		}
		lastErr = err

		var (
			rateErr  *gogithub.RateLimitError
			abuseErr *gogithub.AbuseRateLimitError
			respErr  *gogithub.ErrorResponse
		)
		switch {
		case errors.As(err, &rateErr):
			rateLimited = true
			if attempt < a.attempts {
				a.logger.Warn("github rate limited, waiting for reset",
					"attempt", attempt, "reset", rateErr.Rate.Reset.Time)
				if err := sleep(ctx, time.Until(rateErr.Rate.Reset.Time)); err != nil {
					return err
				}
			}
		case errors.As(err, &abuseErr):
			rateLimited = true
			if attempt < a.attempts {
				wait := a.backoff
				if d := abuseErr.GetRetryAfter(); d > 0 {
					wait = d
				}
				if err := sleep(ctx, wait); err != nil {
					return err
				}
			}
		case errors.As(err, &respErr):
			code := respErr.Response.StatusCode
			switch {
			case code == http.StatusNotFound:
				return errs.E(errs.KindPlatformNotFound, err)
			case code == http.StatusUnauthorized || code == http.StatusForbidden:
				// A rate-limited 403 surfaces as RateLimitError above, so a
				// plain 403 here means the token lacks access.
				return errs.E(errs.KindPlatformAuth, err)
			case code >= 500:
				if attempt < a.attempts {
					if err := sleep(ctx, time.Duration(attempt)*a.backoff); err != nil {
						return err
					}
				}
			default:
				return errs.E(errs.KindTransient, err)
			}
		default:
			// Transport-level failure.
			if attempt < a.attempts {
				if err := sleep(ctx, time.Duration(attempt)*a.backoff); err != nil {
					return err
				}
			}
		}
	}

	if rateLimited {
		return errs.Errorf(errs.KindRateLimited, "retry budget exhausted after %d attempts: %w", a.attempts, lastErr)
	}
	return errs.Errorf(errs.KindTransient, "retry budget exhausted after %d attempts: %w", a.attempts, lastErr)
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}
