package index

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"rulescope/core"
)

// FreshnessState classifies the local index against the upstream repo.
type FreshnessState int

const (
	// FreshnessUnavailable means the check failed or never ran. It is a
	// value, not an error: the status line simply carries no marker.
	FreshnessUnavailable FreshnessState = iota
	// FreshnessCurrent means the index was built from the upstream head.
	FreshnessCurrent
	// FreshnessBehind means upstream has newer commits.
	FreshnessBehind
	// FreshnessDiverged means the index commit differs but is not older,
	// e.g. a pinned commit or another branch.
	FreshnessDiverged
)

// String names the state for logs and the status endpoint.
func (s FreshnessState) String() string {
	switch s {
	case FreshnessCurrent:
		return "current"
	case FreshnessBehind:
		return "behind"
	case FreshnessDiverged:
		return "diverged"
	default:
		return "unavailable"
	}
}

// Freshness is the explicit result of the upstream comparison.
type Freshness struct {
	State        FreshnessState
	RemoteCommit string
	RemoteDate   time.Time
}

// Marker returns the status-line annotation for this result.
func (f Freshness) Marker() string {
	switch f.State {
	case FreshnessCurrent, FreshnessDiverged:
		return "✓"
	case FreshnessBehind:
		return "⚠"
	default:
		return ""
	}
}

// Tooltip returns the explanatory text behind the marker.
func (f Freshness) Tooltip() string {
	switch f.State {
	case FreshnessCurrent:
		return "Up to date with the upstream rule repository"
	case FreshnessBehind:
		return fmt.Sprintf("Newer commits available upstream (latest: %.8s)", f.RemoteCommit)
	case FreshnessDiverged:
		return "Built from a pinned commit"
	default:
		return ""
	}
}

// commitResponse is the slice of the GitHub commits API we consume.
type commitResponse struct {
	SHA    string `json:"sha"`
	Commit struct {
		Committer struct {
			Date time.Time `json:"date"`
		} `json:"committer"`
	} `json:"commit"`
}

// FreshnessChecker compares the index's recorded commit with the upstream
// repository head. Every failure path returns Unavailable; nothing here is
// allowed to surface as a user-facing error.
type FreshnessChecker struct {
	url    string
	client *http.Client
	logger *zap.SugaredLogger
}

// NewFreshnessChecker creates a checker against the given commit-lookup
// endpoint (GitHub commits API shape).
func NewFreshnessChecker(url string, timeout time.Duration, logger *zap.SugaredLogger) *FreshnessChecker {
	return &FreshnessChecker{
		url:    url,
		client: &http.Client{Timeout: timeout},
		logger: logger,
	}
}

// Check fetches the upstream head and classifies the index against it.
func (c *FreshnessChecker) Check(ctx context.Context, idx *core.Index) Freshness {
	if idx.GitLastCommit == "" {
		return Freshness{State: FreshnessUnavailable}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		c.logger.Debugw("Freshness check request build failed", "error", err)
		return Freshness{State: FreshnessUnavailable}
	}
	req.Header.Set("Accept", "application/vnd.github.v3+json")

	resp, err := c.client.Do(req)
	if err != nil {
		c.logger.Debugw("Freshness check unavailable", "error", err)
		return Freshness{State: FreshnessUnavailable}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.logger.Debugw("Freshness check got non-200", "status", resp.StatusCode)
		return Freshness{State: FreshnessUnavailable}
	}

	var remote commitResponse
	if err := json.NewDecoder(resp.Body).Decode(&remote); err != nil {
		c.logger.Debugw("Freshness check decode failed", "error", err)
		return Freshness{State: FreshnessUnavailable}
	}
	if remote.SHA == "" {
		return Freshness{State: FreshnessUnavailable}
	}

	result := Freshness{
		RemoteCommit: remote.SHA,
		RemoteDate:   remote.Commit.Committer.Date,
	}

	if remote.SHA == idx.GitLastCommit {
		result.State = FreshnessCurrent
		return result
	}

	localDate := core.ParseRuleDate(idx.GitLastCommitDate)
	if !localDate.IsZero() && remote.Commit.Committer.Date.After(localDate) {
		result.State = FreshnessBehind
	} else {
		result.State = FreshnessDiverged
	}
	return result
}
