package gitlab

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/ChaseCares/yapdd-release-creator/source"
	"github.com/sirupsen/logrus"
)

const publicApiUrl = "https://gitlab.com/api/v4"

// GitLabSource implements source.Source for GitLab
type GitLabSource struct {
	config     source.Config
	apiUrl     string
	webUrl     string
	httpClient *http.Client
	logger     *logrus.Entry
}

// NewGitLabSource creates a new GitLab source
func NewGitLabSource(config source.Config) (source.Source, error) {
	apiUrl := publicApiUrl
	if config.ApiUrl != "" {
		apiUrl = strings.TrimSuffix(config.ApiUrl, "/")
	}

	u, err := url.Parse(apiUrl)
	if err != nil || u.Host == "" {
		return nil, fmt.Errorf("GitLab API URL %s is malformed", apiUrl)
	}

	httpClient := config.HttpClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}

	return &GitLabSource{
		config:     config,
		apiUrl:     apiUrl,
		webUrl:     fmt.Sprintf("%s://%s", u.Scheme, u.Host),
		httpClient: httpClient,
		logger:     config.Logger,
	}, nil
}

// Type returns the source type
func (s *GitLabSource) Type() source.SourceType {
	return source.TypeGitLab
}

// ParseRepo parses a GitLab project path into a Repo struct
// Supports nested subgroups: group/subgroup/project
func (s *GitLabSource) ParseRepo(ownerRepo string) (source.Repo, error) {
	return source.ParseOwnerRepo(ownerRepo, true)
}

// LatestTag returns the newest tag of the project, either by tag update order or from its latest release
func (s *GitLabSource) LatestTag(ctx context.Context, repo source.Repo) (source.Tag, error) {
	if s.config.LatestFrom == source.LatestFromRelease {
		return s.latestReleaseTag(ctx, repo)
	}
	return s.latestTag(ctx, repo)
}

func (s *GitLabSource) latestTag(ctx context.Context, repo source.Repo) (source.Tag, error) {
	var tag source.Tag

	projectId := encodeProjectPath(repo.Owner, repo.Name)
	tagsUrl := fmt.Sprintf("%s/projects/%s/repository/tags?order_by=updated&sort=desc&per_page=1", s.apiUrl, projectId)

	var apiTags []GitLabTagResponse
	if err := callGitLabApi(ctx, s.httpClient, http.MethodGet, tagsUrl, s.config.Token, nil, &apiTags); err != nil {
		return tag, err
	}

	if len(apiTags) == 0 {
		return tag, fmt.Errorf("%w in repository %s", source.ErrNoTags, repo)
	}

	latest := apiTags[0]
	tag = source.Tag{
		Name:      latest.Name,
		Ref:       "refs/tags/" + latest.Name,
		CommitSha: latest.Commit.Id,
	}
	if latest.CreatedAt != nil {
		tag.CreatedAt = *latest.CreatedAt
	} else if latest.Commit.CreatedAt != nil {
		tag.CreatedAt = *latest.Commit.CreatedAt
	}

	if s.logger != nil {
		s.logger.Debugf("Latest tag of %s is %s (%s)", repo, tag.Name, tag.CommitSha)
	}

	return tag, nil
}

func (s *GitLabSource) latestReleaseTag(ctx context.Context, repo source.Repo) (source.Tag, error) {
	var tag source.Tag

	projectId := encodeProjectPath(repo.Owner, repo.Name)
	releaseUrl := fmt.Sprintf("%s/projects/%s/releases/permalink/latest", s.apiUrl, projectId)

	var apiRelease GitLabReleaseResponse
	if err := callGitLabApi(ctx, s.httpClient, http.MethodGet, releaseUrl, s.config.Token, nil, &apiRelease); err != nil {
		return tag, err
	}

	if apiRelease.TagName == "" {
		return tag, fmt.Errorf("%w in latest release of repository %s", source.ErrNoTags, repo)
	}

	tag = source.Tag{
		Name:      apiRelease.TagName,
		Ref:       "refs/tags/" + apiRelease.TagName,
		CommitSha: apiRelease.Commit.Id,
	}
	if apiRelease.CreatedAt != nil {
		tag.CreatedAt = *apiRelease.CreatedAt
	}

	return tag, nil
}

// CreateRelease creates a release in the project. GitLab needs a ref to create a missing tag from, so
// when no commitish was given the project's default branch is looked up first.
func (s *GitLabSource) CreateRelease(ctx context.Context, repo source.Repo, req source.ReleaseRequest) (source.Release, error) {
	var release source.Release

	projectId := encodeProjectPath(repo.Owner, repo.Name)

	ref := req.TargetCommitish
	if ref == "" {
		var project GitLabProjectResponse
		projectUrl := fmt.Sprintf("%s/projects/%s", s.apiUrl, projectId)
		if err := callGitLabApi(ctx, s.httpClient, http.MethodGet, projectUrl, s.config.Token, nil, &project); err != nil {
			return release, err
		}
		ref = project.DefaultBranch
	}

	body := GitLabCreateReleaseRequest{
		TagName:     req.TagName,
		Name:        req.Name,
		Description: req.Body,
		Ref:         ref,
	}

	releasesUrl := fmt.Sprintf("%s/projects/%s/releases", s.apiUrl, projectId)
	var created GitLabReleaseResponse
	if err := callGitLabApi(ctx, s.httpClient, http.MethodPost, releasesUrl, s.config.Token, body, &created); err != nil {
		return release, err
	}

	release = source.Release{
		TagName: created.TagName,
		Url:     created.Links.Self,
	}
	if release.Url == "" {
		release.Url = s.ReleaseUrl(repo, req.TagName)
	}

	return release, nil
}

// ReleaseUrl returns the web URL of the release for the given tag
func (s *GitLabSource) ReleaseUrl(repo source.Repo, tag string) string {
	return fmt.Sprintf("%s/%s/%s/-/releases/%s", s.webUrl, repo.Owner, repo.Name, url.PathEscape(tag))
}

func init() {
	// Register the factory function
	source.NewGitLabSource = NewGitLabSource
}
