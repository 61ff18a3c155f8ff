package gitlab

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ChaseCares/yapdd-release-creator/source"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSource(t *testing.T, handler http.HandlerFunc, latestFrom source.LatestFrom) source.Source {
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	src, err := NewGitLabSource(source.Config{
		ApiUrl:     server.URL + "/api/v4",
		Token:      "glpat-test",
		LatestFrom: latestFrom,
		HttpClient: server.Client(),
	})
	require.NoError(t, err)

	return src
}

func TestParseRepo(t *testing.T) {
	t.Parallel()

	src, err := NewGitLabSource(source.Config{})
	require.NoError(t, err)

	cases := []struct {
		ownerRepo string
		owner     string
		name      string
	}{
		{"owner/project", "owner", "project"},
		{"group/subgroup/project", "group/subgroup", "project"},
		{"a/b/c/project", "a/b/c", "project"},
	}

	for _, tc := range cases {
		t.Run(tc.ownerRepo, func(t *testing.T) {
			repo, err := src.ParseRepo(tc.ownerRepo)
			require.NoError(t, err)

			assert.Equal(t, tc.owner, repo.Owner, "owner/namespace mismatch")
			assert.Equal(t, tc.name, repo.Name, "project name mismatch")
		})
	}
}

func TestParseRepoMalformed(t *testing.T) {
	t.Parallel()

	src, err := NewGitLabSource(source.Config{})
	require.NoError(t, err)

	cases := []struct {
		ownerRepo   string
		description string
	}{
		{"project", "Missing owner (only one path segment)"},
		{"/project", "Empty owner"},
		{"owner/", "Empty name"},
		{"group//project", "Empty subgroup"},
	}

	for _, tc := range cases {
		t.Run(tc.description, func(t *testing.T) {
			_, err := src.ParseRepo(tc.ownerRepo)
			assert.Error(t, err)
		})
	}
}

func TestType(t *testing.T) {
	src, err := NewGitLabSource(source.Config{})
	require.NoError(t, err)
	assert.Equal(t, source.TypeGitLab, src.Type())
}

func TestGetSourceDetectsGitLab(t *testing.T) {
	src, err := source.GetSource(source.TypeAuto, source.Config{ApiUrl: "https://gitlab.example.com/api/v4"})
	require.NoError(t, err)
	assert.IsType(t, &GitLabSource{}, src)

	repo, err := src.ParseRepo("group/sub/project")
	require.NoError(t, err)
	assert.Equal(t, "group/sub", repo.Owner)
}

func TestEncodeProjectPath(t *testing.T) {
	t.Parallel()

	cases := []struct {
		owner    string
		name     string
		expected string
	}{
		{"owner", "project", "owner%2Fproject"},
		{"group/subgroup", "project", "group%2Fsubgroup%2Fproject"},
		{"a/b/c", "repo", "a%2Fb%2Fc%2Frepo"},
	}

	for _, tc := range cases {
		t.Run(tc.owner+"/"+tc.name, func(t *testing.T) {
			encoded := encodeProjectPath(tc.owner, tc.name)
			assert.Equal(t, tc.expected, encoded)
		})
	}
}

func TestLatestTag(t *testing.T) {
	t.Parallel()

	src := newTestSource(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v4/projects/group%2Fsub%2Fproject/repository/tags", r.URL.EscapedPath())
		assert.Equal(t, "updated", r.URL.Query().Get("order_by"))
		assert.Equal(t, "glpat-test", r.Header.Get("PRIVATE-TOKEN"))
		fmt.Fprint(w, `[{"name": "v1.2.0", "commit": {"id": "abc123", "created_at": "2024-05-01T10:00:00Z"}}]`)
	}, source.LatestFromTag)

	repo, err := src.ParseRepo("group/sub/project")
	require.NoError(t, err)

	tag, err := src.LatestTag(context.Background(), repo)
	require.NoError(t, err)
	assert.Equal(t, "v1.2.0", tag.Name)
	assert.Equal(t, "abc123", tag.CommitSha)
	assert.False(t, tag.CreatedAt.IsZero())
}

func TestLatestTagNoTags(t *testing.T) {
	t.Parallel()

	src := newTestSource(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[]`)
	}, source.LatestFromTag)

	repo, err := src.ParseRepo("owner/project")
	require.NoError(t, err)

	_, err = src.LatestTag(context.Background(), repo)
	assert.ErrorIs(t, err, source.ErrNoTags)
}

func TestLatestTagFromRelease(t *testing.T) {
	t.Parallel()

	src := newTestSource(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v4/projects/owner%2Fproject/releases/permalink/latest", r.URL.EscapedPath())
		fmt.Fprint(w, `{"tag_name": "2024.05.1", "created_at": "2024-05-01T10:00:00Z", "commit": {"id": "def456"}}`)
	}, source.LatestFromRelease)

	repo, err := src.ParseRepo("owner/project")
	require.NoError(t, err)

	tag, err := src.LatestTag(context.Background(), repo)
	require.NoError(t, err)
	assert.Equal(t, "2024.05.1", tag.Name)
	assert.Equal(t, "def456", tag.CommitSha)
}

func TestLatestTagNotFound(t *testing.T) {
	t.Parallel()

	src := newTestSource(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprint(w, `{"message": "404 Project Not Found"}`)
	}, source.LatestFromTag)

	repo, err := src.ParseRepo("owner/project")
	require.NoError(t, err)

	_, err = src.LatestTag(context.Background(), repo)
	var apiErr *source.ApiError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusNotFound, apiErr.StatusCode)
	assert.Equal(t, "404 Project Not Found", apiErr.Message)
}

func TestLatestTagRateLimited(t *testing.T) {
	t.Parallel()

	src := newTestSource(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("RateLimit-Reset", "4102444800")
		w.WriteHeader(http.StatusTooManyRequests)
		fmt.Fprint(w, `{"message": "Retry later"}`)
	}, source.LatestFromTag)

	repo, err := src.ParseRepo("owner/project")
	require.NoError(t, err)

	_, err = src.LatestTag(context.Background(), repo)
	var apiErr *source.ApiError
	require.ErrorAs(t, err, &apiErr)
	assert.True(t, apiErr.IsRateLimited())
	assert.Equal(t, int64(4102444800), apiErr.RateLimitReset.Unix())
}

func TestCreateReleaseUsesDefaultBranch(t *testing.T) {
	t.Parallel()

	var received GitLabCreateReleaseRequest
	src := newTestSource(t, func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodGet && r.URL.EscapedPath() == "/api/v4/projects/owner%2Flocal":
			fmt.Fprint(w, `{"id": 1, "default_branch": "trunk"}`)
		case r.Method == http.MethodPost && r.URL.EscapedPath() == "/api/v4/projects/owner%2Flocal/releases":
			require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
			w.WriteHeader(http.StatusCreated)
			fmt.Fprint(w, `{"tag_name": "v1.2.0", "_links": {"self": "https://gitlab.example.com/owner/local/-/releases/v1.2.0"}}`)
		default:
			t.Errorf("unexpected request %s %s", r.Method, r.URL.EscapedPath())
			w.WriteHeader(http.StatusTeapot)
		}
	}, source.LatestFromTag)

	repo, err := src.ParseRepo("owner/local")
	require.NoError(t, err)

	release, err := src.CreateRelease(context.Background(), repo, source.ReleaseRequest{
		TagName: "v1.2.0",
		Name:    "v1.2.0",
		Body:    "mirrors upstream",
	})
	require.NoError(t, err)

	assert.Equal(t, "v1.2.0", release.TagName)
	assert.Equal(t, "https://gitlab.example.com/owner/local/-/releases/v1.2.0", release.Url)
	assert.Equal(t, "trunk", received.Ref)
	assert.Equal(t, "mirrors upstream", received.Description)
}

func TestCreateReleaseConflict(t *testing.T) {
	t.Parallel()

	src := newTestSource(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		fmt.Fprint(w, `{"message": "Release already exists"}`)
	}, source.LatestFromTag)

	repo, err := src.ParseRepo("owner/local")
	require.NoError(t, err)

	_, err = src.CreateRelease(context.Background(), repo, source.ReleaseRequest{
		TagName:         "v1.2.0",
		Name:            "v1.2.0",
		TargetCommitish: "main",
	})
	var apiErr *source.ApiError
	require.ErrorAs(t, err, &apiErr)
	assert.True(t, apiErr.AlreadyExists)
}

func TestReleaseUrl(t *testing.T) {
	t.Parallel()

	src, err := NewGitLabSource(source.Config{})
	require.NoError(t, err)

	repo, err := src.ParseRepo("group/sub/project")
	require.NoError(t, err)
	assert.Equal(t, "https://gitlab.com/group/sub/project/-/releases/v1.0.0", src.ReleaseUrl(repo, "v1.0.0"))
}
