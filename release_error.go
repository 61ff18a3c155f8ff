package main

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/ChaseCares/yapdd-release-creator/source"
)

// We define a custom error type so that we can provide friendlier error messages
type releaseError struct {
	kind      string // the step that failed, one of the error kinds in release_error_constants.go
	errorCode int    // an error code is an arbitrary int that allows for strongly typed identification of specific errors
	field     string // the input or repo the error relates to, if any
	details   string // the output of the underlying error message, if any
	err       error  // the underlying golang error, if any
}

// Implement the golang Error interface
func (e *releaseError) Error() string {
	if e.field == "" {
		return fmt.Sprintf("%s error: %s", e.kind, e.details)
	}
	return fmt.Sprintf("%s error (%s): %s", e.kind, e.field, e.details)
}

func (e *releaseError) Unwrap() error {
	return e.err
}

func newError(kind string, errorCode int, field string, details string) *releaseError {
	return &releaseError{
		kind:      kind,
		errorCode: errorCode,
		field:     field,
		details:   details,
	}
}

func wrapError(kind string, field string, err error) *releaseError {
	return &releaseError{
		kind:      kind,
		errorCode: errorCodeFor(err),
		field:     field,
		details:   err.Error(),
		err:       err,
	}
}

func newValidationError(field string, format string, args ...interface{}) *releaseError {
	return newError(validationError, invalidInput, field, fmt.Sprintf(format, args...))
}

// errorCodeFor leverages the HTTP response code of API errors as our error code
func errorCodeFor(err error) int {
	if errors.Is(err, source.ErrNoTags) {
		return noTagsFound
	}

	var apiErr *source.ApiError
	if !errors.As(err, &apiErr) {
		return failedToCallApi
	}

	switch {
	case apiErr.IsRateLimited():
		return rateLimitExceeded
	case apiErr.AlreadyExists:
		return releaseAlreadyExists
	case apiErr.StatusCode == http.StatusUnauthorized || apiErr.StatusCode == http.StatusForbidden:
		return invalidTokenOrAccessDenied
	case apiErr.StatusCode == http.StatusNotFound:
		return repoDoesNotExistOrAccessDenied
	default:
		return failedToCallApi
	}
}

// errorKind returns the step that failed, or "" if err is not one of ours
func errorKind(err error) string {
	var relErr *releaseError
	if errors.As(err, &relErr) {
		return relErr.kind
	}
	return ""
}

// exitCodeFor maps an error returned by a run to the process exit code
func exitCodeFor(err error) int {
	if err == nil {
		return 0
	}
	if errorKind(err) == validationError {
		return exitCodeInvalidInput
	}
	return exitCodeFailure
}

// getErrorMessage renders a friendlier explanation for the error codes users commonly hit
func getErrorMessage(err error) string {
	var relErr *releaseError
	if !errors.As(err, &relErr) {
		return err.Error()
	}

	switch relErr.errorCode {
	case invalidTokenOrAccessDenied:
		return fmt.Sprintf(`
Received an HTTP 401/403 Response when calling the API for %s.

This means that either your --%s token is invalid, or that the token is valid but does not have access
to the repo (or, when creating a release, lacks write permission on it).

Underlying error message:
%s
`, relErr.field, optionAuth, relErr.details)
	case repoDoesNotExistOrAccessDenied:
		return fmt.Sprintf(`
Received an HTTP 404 Response when calling the API for %s.

This means that either no repo exists with that owner/name, or that you don't have permission to access it.

Underlying error message:
%s
`, relErr.field, relErr.details)
	case rateLimitExceeded:
		return fmt.Sprintf(`
The API rate limit was exceeded while calling the API for %s. Wait for the limit to reset and try again.

Underlying error message:
%s
`, relErr.field, relErr.details)
	case releaseAlreadyExists:
		return fmt.Sprintf(`
A release for this tag already exists in %s. Nothing was created.

Underlying error message:
%s
`, relErr.field, relErr.details)
	case tagDoesNotMatchPattern:
		return fmt.Sprintf(`
%s
Check the --%s value; its first capture group (or a group named "version") is the compared token.
`, relErr.Error(), optionTagRegex)
	}

	return relErr.Error()
}
