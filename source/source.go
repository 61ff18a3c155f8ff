package source

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/sirupsen/logrus"
)

// SourceType identifies the provider type
type SourceType string

const (
	TypeGitHub SourceType = "github"
	TypeGitLab SourceType = "gitlab"
)

// LatestFrom selects what "latest" means when looking up a repo's newest tag
type LatestFrom string

const (
	LatestFromTag     LatestFrom = "tag"
	LatestFromRelease LatestFrom = "release"
)

// ErrNoTags is returned when a repository has no tags (or no releases) to compare
var ErrNoTags = errors.New("no tags found")

// Repo represents a repository on any source
type Repo struct {
	OwnerRepo string     // The owner/name identifier as given on the command line
	Owner     string     // Account/namespace (can be nested for GitLab: group/subgroup)
	Name      string     // Repository name
}

func (r Repo) String() string {
	return r.OwnerRepo
}

// Tag is the newest tag (or release tag) of a repo
type Tag struct {
	Name      string    // Tag name, e.g. v1.2.0
	Ref       string    // Full git ref, e.g. refs/tags/v1.2.0
	CommitSha string    // The object the tag points at
	CreatedAt time.Time // Zero if the provider didn't report it
}

// ReleaseRequest describes a release to create
type ReleaseRequest struct {
	TagName         string
	Name            string
	Body            string
	TargetCommitish string // Empty means the repo's default branch
}

// Release represents a created release
type Release struct {
	Id      int64
	TagName string
	Url     string
}

// Config holds source-specific configuration
type Config struct {
	ApiUrl     string        // Override of the API base URL (enterprise/self-hosted); empty for the public instance
	Token      string        // Auth token
	LatestFrom LatestFrom    // Whether the latest tag comes from the tags or releases endpoint
	HttpClient *http.Client  // Client used for all API calls; carries the request timeout
	Logger     *logrus.Entry // Logger instance
}

// Source interface defines operations every provider must implement
type Source interface {
	// Type returns the source type identifier
	Type() SourceType

	// ParseRepo parses an owner/name identifier into a Repo struct
	ParseRepo(ownerRepo string) (Repo, error)

	// LatestTag returns the most recent tag of the repository
	LatestTag(ctx context.Context, repo Repo) (Tag, error)

	// CreateRelease creates a release in the repository
	CreateRelease(ctx context.Context, repo Repo, req ReleaseRequest) (Release, error)

	// ReleaseUrl returns the web URL of the release for the given tag
	ReleaseUrl(repo Repo, tag string) string
}

// ApiError is returned when the provider API answers with an unexpected HTTP status
type ApiError struct {
	StatusCode     int
	Url            string
	Message        string
	RateLimitReset time.Time // Set when the provider reported a rate limit
	AlreadyExists  bool      // Set when the provider rejected a create because the object exists
}

func (e *ApiError) Error() string {
	msg := fmt.Sprintf("HTTP %d from %s", e.StatusCode, e.Url)
	if e.Message != "" {
		msg = fmt.Sprintf("%s: %s", msg, e.Message)
	}
	if !e.RateLimitReset.IsZero() {
		msg = fmt.Sprintf("%s (rate limit resets %s)", msg, humanize.Time(e.RateLimitReset))
	}
	return msg
}

// IsRateLimited reports whether the error came from an exhausted rate limit
func (e *ApiError) IsRateLimited() bool {
	return e.StatusCode == http.StatusTooManyRequests || !e.RateLimitReset.IsZero()
}
