// Package ipam provides a minimal phpIPAM client used as a host
// enrichment source: given an IP address it returns the hostname and
// description recorded in the address plan.
package ipam

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/infraforge/infraforge/internal/config"
)

// Address is a phpIPAM address record.
type Address struct {
	Hostname    string `json:"hostname"`
	Description string `json:"description"`
}

// Client queries a phpIPAM instance through its REST API.
type Client struct {
	baseURL    string
	appID      string
	token      string
	httpClient *http.Client
}

// NewClient builds a client from IPAM settings.
func NewClient(cfg config.IPAMConfig) *Client {
	return &Client{
		baseURL:    strings.TrimRight(cfg.URL, "/"),
		appID:      cfg.AppID,
		token:      cfg.Token,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// SearchIP looks up an address record by IP. A missing address is not an
// error: it returns (nil, nil).
func (c *Client) SearchIP(ctx context.Context, ip string) (*Address, error) {
	endpoint := fmt.Sprintf("%s/api/%s/addresses/search/%s/",
		c.baseURL, url.PathEscape(c.appID), url.PathEscape(ip))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("token", c.token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	// phpIPAM answers 404 for addresses not in the plan.
	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("ipam: search for %s returned %s", ip, resp.Status)
	}

	var envelope struct {
		Success bool      `json:"success"`
		Data    []Address `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return nil, fmt.Errorf("ipam: failed to decode search response: %w", err)
	}
	if !envelope.Success || len(envelope.Data) == 0 {
		return nil, nil
	}
	return &envelope.Data[0], nil
}
