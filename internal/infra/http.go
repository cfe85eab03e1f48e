package infra

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

// userAgent identifies the pipeline to upstream hosts.
const userAgent = "bondspread/1.0 (research replication; +https://github.com/openbondlab/bondspread)"

// httpClient is the shared client for all dataset downloads. Generous
// timeout: the factors zip and the WRDS extract are tens of megabytes.
var httpClient = &http.Client{Timeout: 5 * time.Minute}

// DoGet performs a GET request with the given headers and returns the
// response body and status code. The caller must close the body. Non-2xx
// statuses are returned as errors with the body drained and closed.
func DoGet(ctx context.Context, url string, headers map[string]string) (io.ReadCloser, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("build request %s: %w", url, err)
	}
	req.Header.Set("User-Agent", userAgent)
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("get %s: %w", url, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		resp.Body.Close()
		return nil, resp.StatusCode, fmt.Errorf("get %s: status %d", url, resp.StatusCode)
	}
	return resp.Body, resp.StatusCode, nil
}

// DoGetBasicAuth is DoGet with HTTP basic authentication, used for sources
// that gate data behind account credentials.
func DoGetBasicAuth(ctx context.Context, url, username, password string, headers map[string]string) (io.ReadCloser, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("build request %s: %w", url, err)
	}
	req.Header.Set("User-Agent", userAgent)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	req.SetBasicAuth(username, password)

	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("get %s: %w", url, err)
	}
	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		resp.Body.Close()
		return nil, resp.StatusCode, fmt.Errorf("get %s: authentication failed (status %d)", url, resp.StatusCode)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		resp.Body.Close()
		return nil, resp.StatusCode, fmt.Errorf("get %s: status %d", url, resp.StatusCode)
	}
	return resp.Body, resp.StatusCode, nil
}
