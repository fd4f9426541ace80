// Package version provides build version information and GitHub release
// checks for the update hint in `warder version`.
package version

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"runtime"
	"strconv"
	"strings"
	"time"
)

// Build metadata, overridden at link time via -ldflags.
//
//nolint:gochecknoglobals // Set by the linker
var (
	Version = "dev"
	Commit  = ""
)

const (
	// DefaultBaseURL is the GitHub API endpoint.
	DefaultBaseURL = "https://api.github.com"

	// DefaultTimeout bounds the release lookup.
	DefaultTimeout = 10 * time.Second

	maxResponseBodySize = 64 * 1024
)

// ErrReleaseLookupFailed is returned when the GitHub API request fails.
var ErrReleaseLookupFailed = errors.New("release lookup failed")

// Release is the subset of a GitHub release the CLI cares about.
type Release struct {
	TagName     string    `json:"tag_name"`
	Name        string    `json:"name"`
	Prerelease  bool      `json:"prerelease"`
	PublishedAt time.Time `json:"published_at"`
}

// Client fetches releases from the GitHub API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL sets a custom API base URL.
func WithBaseURL(url string) Option {
	return func(c *Client) {
		c.baseURL = strings.TrimSuffix(url, "/")
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		c.httpClient = client
	}
}

// NewClient creates a release client.
func NewClient(opts ...Option) *Client {
	c := &Client{
		baseURL:    DefaultBaseURL,
		httpClient: &http.Client{Timeout: DefaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// LatestRelease fetches the latest release for owner/repo.
func (c *Client) LatestRelease(ctx context.Context, owner, repo string) (*Release, error) {
	url := fmt.Sprintf("%s/repos/%s/%s/releases/latest", c.baseURL, owner, repo)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", fmt.Sprintf("warder/%s (%s/%s)", Version, runtime.GOOS, runtime.GOARCH))
	req.Header.Set("Accept", "application/vnd.github.v3+json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrReleaseLookupFailed, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d", ErrReleaseLookupFailed, resp.StatusCode)
	}

	var release Release
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBodySize)).Decode(&release); err != nil {
		return nil, fmt.Errorf("decoding release: %w", err)
	}
	return &release, nil
}

// Compare compares two version strings.
// Returns 1 if v1 > v2, 0 if equal, -1 if v1 < v2. A dev build or bare
// commit hash is always older than a tagged release.
func Compare(v1, v2 string) int {
	isDev1 := isDev(v1)
	isDev2 := isDev(v2)
	switch {
	case isDev1 && isDev2:
		return 0
	case isDev1:
		return -1
	case isDev2:
		return 1
	}

	parts1 := parseVersion(v1)
	parts2 := parseVersion(v2)
	for i := 0; i < 3; i++ {
		val1, val2 := 0, 0
		if i < len(parts1) {
			val1 = parts1[i]
		}
		if i < len(parts2) {
			val2 = parts2[i]
		}
		if val1 != val2 {
			if val1 > val2 {
				return 1
			}
			return -1
		}
	}
	return 0
}

// IsNewer reports whether latest is newer than current.
func IsNewer(current, latest string) bool {
	return Compare(latest, current) > 0
}

func isDev(v string) bool {
	v = strings.TrimPrefix(strings.TrimSpace(v), "v")
	return v == "" || v == "dev" || isCommitHash(v)
}

// parseVersion splits "1.2.3" into integer parts, dropping any
// pre-release or build suffix.
func parseVersion(version string) []int {
	version = strings.TrimPrefix(strings.TrimSpace(version), "v")
	if idx := strings.IndexAny(version, "-+"); idx != -1 {
		version = version[:idx]
	}

	parts := strings.Split(version, ".")
	result := make([]int, 0, len(parts))
	for _, part := range parts {
		num, err := strconv.Atoi(part)
		if err != nil {
			break
		}
		result = append(result, num)
	}
	return result
}

// isCommitHash reports whether s looks like a git commit hash: 7 to 40
// hex characters with at least one letter to rule out numeric versions.
func isCommitHash(s string) bool {
	s = strings.TrimSuffix(s, "-dirty")
	if len(s) < 7 || len(s) > 40 {
		return false
	}

	hasLetter := false
	for _, c := range s {
		switch {
		case c >= '0' && c <= '9':
		case c >= 'a' && c <= 'f', c >= 'A' && c <= 'F':
			hasLetter = true
		default:
			return false
		}
	}
	return hasLetter
}

// String returns the human-readable build version.
func String() string {
	if Commit != "" {
		return fmt.Sprintf("%s (%s)", Version, Commit)
	}
	return Version
}
