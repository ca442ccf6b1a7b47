package profile

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	stdhttp "net/http"
	"net/url"
	"strings"
)

// HTTPFetcher reads profiles from a remote profile service exposing
// GET {base}/api/users/{id}/profile.
type HTTPFetcher struct {
	baseURL string
	client  *stdhttp.Client
}

// NewHTTPFetcher creates a remote fetcher. A nil client means http.DefaultClient.
func NewHTTPFetcher(baseURL string, client *stdhttp.Client) *HTTPFetcher {
	if client == nil {
		client = stdhttp.DefaultClient
	}
	return &HTTPFetcher{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  client,
	}
}

// FetchProfile implements Fetcher.
func (f *HTTPFetcher) FetchProfile(ctx context.Context, id string) (*Profile, error) {
	endpoint := f.baseURL + "/api/users/" + url.PathEscape(id) + "/profile"
	req, err := stdhttp.NewRequestWithContext(ctx, stdhttp.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch profile: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == stdhttp.StatusNotFound:
		return nil, ErrNotFound
	case resp.StatusCode != stdhttp.StatusOK:
		return nil, fmt.Errorf("fetch profile: unexpected status %d", resp.StatusCode)
	}

	var p Profile
	if err := json.NewDecoder(io.LimitReader(resp.Body, 64<<10)).Decode(&p); err != nil {
		return nil, fmt.Errorf("decode profile: %w", err)
	}
	if p.AvatarRef == "" {
		return nil, ErrNotFound
	}
	if p.ID == "" {
		p.ID = id
	}
	return &p, nil
}
