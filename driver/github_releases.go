package driver

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	apperrors "intel-agent/utils/errors"
)

// GitHubRelease is the subset of the releases API response the connector
// consumes.
type GitHubRelease struct {
	Name        string `json:"name"`
	TagName     string `json:"tag_name"`
	HTMLURL     string `json:"html_url"`
	Body        string `json:"body"`
	PublishedAt string `json:"published_at"`
}

// Title returns the release name, falling back to the tag when unnamed.
func (r *GitHubRelease) Title() string {
	if r.Name != "" {
		return r.Name
	}

	return fmt.Sprintf("Release %s", r.TagName)
}

// GitHubReleasesClient fetches public releases, unauthenticated.
type GitHubReleasesClient struct {
	apiBase    string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewGitHubReleasesClient creates a releases client against apiBase
// (normally https://api.github.com).
func NewGitHubReleasesClient(apiBase string, timeout time.Duration, logger *slog.Logger) *GitHubReleasesClient {
	return &GitHubReleasesClient{
		apiBase: strings.TrimRight(apiBase, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}
}

// FetchReleases returns up to limit releases for the repository referenced
// by repoURL (a github.com web URL such as https://github.com/vercel/vercel).
func (c *GitHubReleasesClient) FetchReleases(ctx context.Context, repoURL string, limit int) ([]GitHubRelease, error) {
	owner, repo, err := parseRepoURL(repoURL)
	if err != nil {
		return nil, err
	}

	endpoint := fmt.Sprintf("%s/repos/%s/%s/releases", c.apiBase, owner, repo)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, apperrors.ExternalAPIError("failed to create releases request", err, map[string]interface{}{"repo": repoURL})
	}

	req.Header.Set("Accept", "application/vnd.github+json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, apperrors.ExternalAPIError("releases request failed", err, map[string]interface{}{"repo": repoURL})
	}

	defer func() {
		if err := resp.Body.Close(); err != nil {
			c.logger.Error("failed to close response body", "error", err)
		}
	}()

	if resp.StatusCode != http.StatusOK {
		return nil, apperrors.ExternalAPIError(
			fmt.Sprintf("releases request failed with status %s", resp.Status),
			nil,
			map[string]interface{}{"repo": repoURL, "status_code": resp.StatusCode},
		)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apperrors.ExternalAPIError("failed to read releases response", err, map[string]interface{}{"repo": repoURL})
	}

	var releases []GitHubRelease
	if err := json.Unmarshal(body, &releases); err != nil {
		return nil, apperrors.ExternalAPIError("failed to parse releases response", err, map[string]interface{}{"repo": repoURL})
	}

	if limit > 0 && len(releases) > limit {
		releases = releases[:limit]
	}

	return releases, nil
}

// parseRepoURL extracts owner and repo from a github.com web URL. Trailing
// path segments such as /releases are ignored.
func parseRepoURL(repoURL string) (string, string, error) {
	u, err := url.Parse(repoURL)
	if err != nil {
		return "", "", apperrors.ValidationError("invalid repository URL", map[string]interface{}{"url": repoURL})
	}

	segments := strings.Split(strings.Trim(u.Path, "/"), "/")
	if len(segments) < 2 || segments[0] == "" || segments[1] == "" {
		return "", "", apperrors.ValidationError("repository URL missing owner/repo", map[string]interface{}{"url": repoURL})
	}

	return segments[0], segments[1], nil
}
