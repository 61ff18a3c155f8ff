package gitlab

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/ChaseCares/yapdd-release-creator/source"
)

// callGitLabApi performs an HTTP request against the GitLab API and decodes a JSON response into out
func callGitLabApi(ctx context.Context, httpClient *http.Client, method, reqUrl, token string, body, out interface{}) error {
	var reqBody io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reqBody = bytes.NewReader(payload)
	}

	request, err := http.NewRequestWithContext(ctx, method, reqUrl, reqBody)
	if err != nil {
		return err
	}

	// GitLab uses PRIVATE-TOKEN header (different from GitHub)
	if token != "" {
		request.Header.Set("PRIVATE-TOKEN", token)
	}
	request.Header.Set("Accept", "application/json")
	if body != nil {
		request.Header.Set("Content-Type", "application/json")
	}

	resp, err := httpClient.Do(request)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	buf := new(bytes.Buffer)
	if _, err := buf.ReadFrom(resp.Body); err != nil {
		return err
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return newApiError(resp, reqUrl, buf.Bytes())
	}

	if out == nil {
		return nil
	}
	return json.Unmarshal(buf.Bytes(), out)
}

func newApiError(resp *http.Response, reqUrl string, respBody []byte) *source.ApiError {
	apiErr := &source.ApiError{
		StatusCode:    resp.StatusCode,
		Url:           reqUrl,
		Message:       string(respBody),
		AlreadyExists: resp.StatusCode == http.StatusConflict,
	}

	var errResp GitLabErrorResponse
	if err := json.Unmarshal(respBody, &errResp); err == nil {
		if errResp.Message != nil {
			apiErr.Message = fmt.Sprint(errResp.Message)
		} else if errResp.Error != "" {
			apiErr.Message = errResp.Error
		}
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		apiErr.RateLimitReset = rateLimitReset(resp.Header)
	}

	return apiErr
}

// rateLimitReset reads GitLab's RateLimit-Reset (unix seconds) or Retry-After (seconds) headers
func rateLimitReset(header http.Header) time.Time {
	if reset, err := strconv.ParseInt(header.Get("RateLimit-Reset"), 10, 64); err == nil {
		return time.Unix(reset, 0)
	}
	if retryAfter, err := strconv.Atoi(header.Get("Retry-After")); err == nil {
		return time.Now().Add(time.Duration(retryAfter) * time.Second)
	}
	return time.Time{}
}

// encodeProjectPath URL-encodes the project path for GitLab API
// GitLab requires owner/name to be URL-encoded (/ becomes %2F)
func encodeProjectPath(owner, name string) string {
	projectPath := owner + "/" + name
	return url.PathEscape(projectPath)
}
