package main

import (
	"fmt"
	"regexp"

	"github.com/hashicorp/go-version"
)

// The default pattern captures the whole tag, so tags are compared as plain strings
const defaultTagRegex = `^(.+)$`

// versionGroupName lets a pattern name the group holding the comparable token
const versionGroupName = "version"

// Comparison is the result of comparing the target tag against the local tag
type Comparison int

const (
	Equal Comparison = iota
	TargetNewer
	LocalNewer
	Incomparable
	ExtractionFailed
)

func (c Comparison) String() string {
	switch c {
	case Equal:
		return "equal"
	case TargetNewer:
		return "target newer"
	case LocalNewer:
		return "local newer"
	case Incomparable:
		return "incomparable"
	case ExtractionFailed:
		return "extraction failed"
	}
	return fmt.Sprintf("Comparison(%d)", int(c))
}

// needsRelease reports whether the local repo should get a release mirroring the target tag.
// Incomparable tokens still differ, so they get one too.
func (c Comparison) needsRelease() bool {
	return c == TargetNewer || c == Incomparable
}

// extractToken applies the pattern to a tag. The token is the group named "version" if the pattern has one,
// else the first capture group, else the whole match. A group that didn't participate falls back to the whole match.
func extractToken(pattern *regexp.Regexp, tag string) (string, bool) {
	matches := pattern.FindStringSubmatch(tag)
	if matches == nil {
		return "", false
	}

	idx := pattern.SubexpIndex(versionGroupName)
	if idx < 0 && len(matches) > 1 {
		idx = 1
	}

	if idx > 0 && matches[idx] != "" {
		return matches[idx], true
	}
	return matches[0], true
}

// compareTags extracts a token from each tag and compares them. Only identical tokens are Equal. Differing
// tokens that parse as distinct versions are ordered, and any other pair is Incomparable.
func compareTags(pattern *regexp.Regexp, targetTag string, localTag string) (Comparison, *releaseError) {
	targetToken, ok := extractToken(pattern, targetTag)
	if !ok {
		return ExtractionFailed, newError(patternMismatchError, tagDoesNotMatchPattern, "target tag", fmt.Sprintf("tag %q does not match pattern %q", targetTag, pattern))
	}

	localToken, ok := extractToken(pattern, localTag)
	if !ok {
		return ExtractionFailed, newError(patternMismatchError, tagDoesNotMatchPattern, "local tag", fmt.Sprintf("tag %q does not match pattern %q", localTag, pattern))
	}

	if targetToken == localToken {
		return Equal, nil
	}

	targetVersion, targetErr := version.NewVersion(targetToken)
	localVersion, localErr := version.NewVersion(localToken)
	if targetErr != nil || localErr != nil {
		return Incomparable, nil
	}

	switch {
	case targetVersion.GreaterThan(localVersion):
		return TargetNewer, nil
	case targetVersion.LessThan(localVersion):
		return LocalNewer, nil
	default:
		// Different strings naming the same version, e.g. 1.2 and 1.2.0
		return Incomparable, nil
	}
}
