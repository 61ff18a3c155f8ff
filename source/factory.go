package source

import (
	"fmt"
	"net/url"
	"strings"
)

// TypeAuto asks DetectSourceType to pick the provider from the API URL
const TypeAuto SourceType = "auto"

// DetectSourceType determines provider from the API URL override
// An empty URL means public github.com
// Only gitlab.com (or a host starting with "gitlab.") is detected as GitLab;
// other self-hosted GitLab instances need --source gitlab
func DetectSourceType(apiUrl string) (SourceType, error) {
	if apiUrl == "" {
		return TypeGitHub, nil
	}

	u, err := url.Parse(apiUrl)
	if err != nil {
		return "", fmt.Errorf("invalid URL: %w", err)
	}

	host := strings.ToLower(u.Hostname())

	if host == "gitlab.com" || host == "www.gitlab.com" || strings.HasPrefix(host, "gitlab.") {
		return TypeGitLab, nil
	}

	// Anything else is treated as GitHub (or GitHub Enterprise)
	return TypeGitHub, nil
}

// ParseSourceType converts string to SourceType
func ParseSourceType(s string) (SourceType, error) {
	switch strings.ToLower(s) {
	case "github":
		return TypeGitHub, nil
	case "gitlab":
		return TypeGitLab, nil
	case "auto", "":
		return TypeAuto, nil
	default:
		return "", fmt.Errorf("unknown source type: %s (valid: github, gitlab, auto)", s)
	}
}

// ParseLatestFrom converts string to LatestFrom
func ParseLatestFrom(s string) (LatestFrom, error) {
	switch strings.ToLower(s) {
	case "tag", "":
		return LatestFromTag, nil
	case "release":
		return LatestFromRelease, nil
	default:
		return "", fmt.Errorf("unknown latest-from value: %s (valid: tag, release)", s)
	}
}

// GetSource auto-detects or uses explicit type to create a Source implementation
func GetSource(explicitType SourceType, config Config) (Source, error) {
	var srcType SourceType
	var err error

	if explicitType != "" && explicitType != TypeAuto {
		srcType = explicitType
	} else {
		srcType, err = DetectSourceType(config.ApiUrl)
		if err != nil {
			return nil, err
		}
	}

	return NewSource(srcType, config)
}

// NewSource creates a Source implementation based on type
func NewSource(sourceType SourceType, config Config) (Source, error) {
	switch sourceType {
	case TypeGitHub:
		if NewGitHubSource == nil {
			return nil, fmt.Errorf("github source is not registered")
		}
		return NewGitHubSource(config)
	case TypeGitLab:
		if NewGitLabSource == nil {
			return nil, fmt.Errorf("gitlab source is not registered")
		}
		return NewGitLabSource(config)
	default:
		return nil, fmt.Errorf("unsupported source type: %s", sourceType)
	}
}

// NewGitHubSource creates a GitHub source. Set by the github package's init.
var NewGitHubSource func(config Config) (Source, error)

// NewGitLabSource creates a GitLab source. Set by the gitlab package's init.
var NewGitLabSource func(config Config) (Source, error)
