package github

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ChaseCares/yapdd-release-creator/source"
	"github.com/google/go-github/v60/github"
	"github.com/sirupsen/logrus"
)

const publicWebUrl = "https://github.com"

// GitHubSource implements source.Source for GitHub
type GitHubSource struct {
	config source.Config
	client *github.Client
	webUrl string
	logger *logrus.Entry
}

// NewGitHubSource creates a new GitHub source
func NewGitHubSource(config source.Config) (source.Source, error) {
	httpClient := config.HttpClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}

	client := github.NewClient(httpClient)
	if config.Token != "" {
		client = client.WithAuthToken(config.Token)
	}

	webUrl := publicWebUrl
	if config.ApiUrl != "" {
		baseUrl, err := url.Parse(strings.TrimSuffix(config.ApiUrl, "/") + "/")
		if err != nil {
			return nil, fmt.Errorf("GitHub API URL %s is malformed", config.ApiUrl)
		}
		client.BaseURL = baseUrl
		webUrl = webUrlForApi(baseUrl)

		if config.Logger != nil {
			config.Logger.Debugf("Using GitHub API at %s", baseUrl)
		}
	}

	return &GitHubSource{
		config: config,
		client: client,
		webUrl: webUrl,
		logger: config.Logger,
	}, nil
}

// Type returns the source type
func (s *GitHubSource) Type() source.SourceType {
	return source.TypeGitHub
}

// ParseRepo parses an owner/name identifier into a Repo struct
func (s *GitHubSource) ParseRepo(ownerRepo string) (source.Repo, error) {
	return source.ParseOwnerRepo(ownerRepo, false)
}

// LatestTag returns the newest tag of the repo, either from its git tag refs or from its latest release
func (s *GitHubSource) LatestTag(ctx context.Context, repo source.Repo) (source.Tag, error) {
	if s.config.LatestFrom == source.LatestFromRelease {
		return s.latestReleaseTag(ctx, repo)
	}
	return s.latestRefTag(ctx, repo)
}

// The matching-refs API returns tag refs in ascending order, so the newest is the last one on the last page
func (s *GitHubSource) latestRefTag(ctx context.Context, repo source.Repo) (source.Tag, error) {
	var tag source.Tag
	var latest *github.Reference

	// Set per_page to 100 (max) to reduce network calls
	opts := &github.ReferenceListOptions{
		Ref:         "tags",
		ListOptions: github.ListOptions{PerPage: 100},
	}

	for {
		refs, resp, err := s.client.Git.ListMatchingRefs(ctx, repo.Owner, repo.Name, opts)
		if err != nil {
			return tag, convertError(err)
		}

		if len(refs) > 0 {
			latest = refs[len(refs)-1]
		}

		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	if latest == nil {
		return tag, fmt.Errorf("%w in repository %s", source.ErrNoTags, repo)
	}

	ref := latest.GetRef()
	tag = source.Tag{
		Name:      strings.TrimPrefix(ref, "refs/tags/"),
		Ref:       ref,
		CommitSha: latest.GetObject().GetSHA(),
	}

	if s.logger != nil {
		s.logger.Debugf("Latest tag ref of %s is %s (%s)", repo, tag.Ref, tag.CommitSha)
	}

	return tag, nil
}

func (s *GitHubSource) latestReleaseTag(ctx context.Context, repo source.Repo) (source.Tag, error) {
	var tag source.Tag

	release, _, err := s.client.Repositories.GetLatestRelease(ctx, repo.Owner, repo.Name)
	if err != nil {
		return tag, convertError(err)
	}

	if release.GetTagName() == "" {
		return tag, fmt.Errorf("%w in latest release of repository %s", source.ErrNoTags, repo)
	}

	tag = source.Tag{
		Name:      release.GetTagName(),
		Ref:       "refs/tags/" + release.GetTagName(),
		CommitSha: release.GetTargetCommitish(),
		CreatedAt: release.GetCreatedAt().Time,
	}

	return tag, nil
}

// CreateRelease creates a release (and its tag, if missing) in the repo
func (s *GitHubSource) CreateRelease(ctx context.Context, repo source.Repo, req source.ReleaseRequest) (source.Release, error) {
	var release source.Release

	apiRelease := &github.RepositoryRelease{
		TagName: github.String(req.TagName),
		Name:    github.String(req.Name),
		Body:    github.String(req.Body),
	}
	if req.TargetCommitish != "" {
		apiRelease.TargetCommitish = github.String(req.TargetCommitish)
	}

	created, _, err := s.client.Repositories.CreateRelease(ctx, repo.Owner, repo.Name, apiRelease)
	if err != nil {
		return release, convertError(err)
	}

	release = source.Release{
		Id:      created.GetID(),
		TagName: created.GetTagName(),
		Url:     created.GetHTMLURL(),
	}

	if release.Url == "" {
		release.Url = s.ReleaseUrl(repo, req.TagName)
	}

	return release, nil
}

// ReleaseUrl returns the web URL of the release for the given tag
func (s *GitHubSource) ReleaseUrl(repo source.Repo, tag string) string {
	return fmt.Sprintf("%s/%s/%s/releases/tag/%s", s.webUrl, repo.Owner, repo.Name, url.PathEscape(tag))
}

// webUrlForApi derives the web host from an API base URL:
// https://api.github.com/ -> https://github.com, https://ghe.example.com/api/v3/ -> https://ghe.example.com
func webUrlForApi(apiUrl *url.URL) string {
	if apiUrl.Host == "api.github.com" {
		return publicWebUrl
	}
	return fmt.Sprintf("%s://%s", apiUrl.Scheme, apiUrl.Host)
}

// convertError turns go-github's error types into *source.ApiError so callers can inspect the status code
func convertError(err error) error {
	var rateErr *github.RateLimitError
	if errors.As(err, &rateErr) {
		return &source.ApiError{
			StatusCode:     statusCode(rateErr.Response, http.StatusForbidden),
			Url:            requestUrl(rateErr.Response),
			Message:        rateErr.Message,
			RateLimitReset: rateErr.Rate.Reset.Time,
		}
	}

	var abuseErr *github.AbuseRateLimitError
	if errors.As(err, &abuseErr) {
		return &source.ApiError{
			StatusCode:     statusCode(abuseErr.Response, http.StatusTooManyRequests),
			Url:            requestUrl(abuseErr.Response),
			Message:        abuseErr.Message,
			RateLimitReset: time.Now().Add(abuseErr.GetRetryAfter()),
		}
	}

	var respErr *github.ErrorResponse
	if errors.As(err, &respErr) {
		apiErr := &source.ApiError{
			StatusCode: statusCode(respErr.Response, 0),
			Url:        requestUrl(respErr.Response),
			Message:    respErr.Message,
		}
		for _, e := range respErr.Errors {
			if e.Code == "already_exists" {
				apiErr.AlreadyExists = true
			}
		}
		return apiErr
	}

	return err
}

func statusCode(resp *http.Response, fallback int) int {
	if resp == nil {
		return fallback
	}
	return resp.StatusCode
}

func requestUrl(resp *http.Response) string {
	if resp == nil || resp.Request == nil || resp.Request.URL == nil {
		return ""
	}
	return resp.Request.URL.String()
}

func init() {
	// Register the factory function
	source.NewGitHubSource = NewGitHubSource
}
