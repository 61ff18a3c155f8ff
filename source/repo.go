package source

import (
	"fmt"
	"regexp"
	"strings"
)

var ownerRepoRegex = regexp.MustCompile(`^[\w.-]+/[\w.-]+$`)
var nestedOwnerRepoRegex = regexp.MustCompile(`^[\w.-]+(/[\w.-]+)+$`)

// ParseOwnerRepo splits an "owner/name" identifier. When allowNested is set, the owner may
// itself contain slashes (GitLab groups and subgroups) and the last segment is the name.
func ParseOwnerRepo(ownerRepo string, allowNested bool) (Repo, error) {
	var repo Repo

	regex := ownerRepoRegex
	if allowNested {
		regex = nestedOwnerRepoRegex
	}

	if !regex.MatchString(ownerRepo) {
		return repo, fmt.Errorf("repository %q is not of the form owner/name", ownerRepo)
	}

	idx := strings.LastIndex(ownerRepo, "/")
	repo = Repo{
		OwnerRepo: ownerRepo,
		Owner:     ownerRepo[:idx],
		Name:      ownerRepo[idx+1:],
	}

	return repo, nil
}
