package gitlab

import "time"

// GitLabTagResponse models GitLab API /projects/:id/repository/tags response
type GitLabTagResponse struct {
	Name      string     `json:"name"`
	Target    string     `json:"target"`
	CreatedAt *time.Time `json:"created_at"`
	Commit    struct {
		Id        string     `json:"id"`
		CreatedAt *time.Time `json:"created_at"`
	} `json:"commit"`
}

// GitLabReleaseResponse models GitLab API /projects/:id/releases/:tag response
type GitLabReleaseResponse struct {
	TagName     string     `json:"tag_name"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	CreatedAt   *time.Time `json:"created_at"`
	Commit      struct {
		Id string `json:"id"`
	} `json:"commit"`
	Links struct {
		Self string `json:"self"`
	} `json:"_links"`
}

// GitLabCreateReleaseRequest models the body of POST /projects/:id/releases
type GitLabCreateReleaseRequest struct {
	TagName     string `json:"tag_name"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Ref         string `json:"ref,omitempty"`
}

// GitLabProjectResponse models the fields we use from GET /projects/:id
type GitLabProjectResponse struct {
	Id            int    `json:"id"`
	DefaultBranch string `json:"default_branch"`
	WebUrl        string `json:"web_url"`
}

// GitLabErrorResponse models the error body GitLab returns on 4xx responses
type GitLabErrorResponse struct {
	Message interface{} `json:"message"`
	Error   string      `json:"error"`
}
