// Package directory wraps the external user/address service. This core only
// needs existence checks plus a couple of display fields; role and permission
// storage stay on the other side of this boundary.
package directory

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

type User struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	Contact     string `json:"contact"`
}

type Address struct {
	ID      string `json:"id"`
	Street  string `json:"street"`
	City    string `json:"city"`
	Country string `json:"country"`
}

// Client resolves collaborator records. A nil result with nil error means the
// record does not exist.
type Client interface {
	ResolveUser(ctx context.Context, id string) (*User, error)
	ResolveAddress(ctx context.Context, id string) (*Address, error)
}

type HTTPClient struct {
	baseURL    string
	httpClient *http.Client
}

var _ Client = (*HTTPClient)(nil)

func NewHTTPClient(baseURL string, timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
	}
}

func (c *HTTPClient) ResolveUser(ctx context.Context, id string) (*User, error) {
	var u User
	ok, err := c.getJSON(ctx, fmt.Sprintf("%s/users/%s", c.baseURL, id), &u)
	if err != nil || !ok {
		return nil, err
	}
	return &u, nil
}

func (c *HTTPClient) ResolveAddress(ctx context.Context, id string) (*Address, error) {
	var a Address
	ok, err := c.getJSON(ctx, fmt.Sprintf("%s/addresses/%s", c.baseURL, id), &a)
	if err != nil || !ok {
		return nil, err
	}
	return &a, nil
}

func (c *HTTPClient) getJSON(ctx context.Context, url string, out any) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return false, err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return false, nil
	}
	if resp.StatusCode != http.StatusOK {
		return false, fmt.Errorf("directory service returned status %d", resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return false, err
	}
	return true, nil
}
