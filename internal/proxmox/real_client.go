package proxmox

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/infraforge/infraforge/internal/config"
	"github.com/infraforge/infraforge/internal/util/retry"
)

const apiTimeout = 15 * time.Second

// RealClient talks to a live Proxmox VE cluster over HTTPS.
type RealClient struct {
	cfg        config.ProxmoxConfig
	baseURL    string
	httpClient *http.Client

	mu     sync.Mutex
	ticket string
	csrf   string
}

// NewRealClient builds a client from connection settings. Call Connect
// before issuing requests.
func NewRealClient(cfg config.ProxmoxConfig) *RealClient {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	if !cfg.VerifySSL {
		// Proxmox ships a self-signed certificate by default.
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} // #nosec G402
	}

	return &RealClient{
		cfg:     cfg,
		baseURL: fmt.Sprintf("https://%s:%d/api2/json", cfg.Host, cfg.Port),
		httpClient: &http.Client{
			Timeout:   apiTimeout,
			Transport: transport,
		},
	}
}

// Connect authenticates (password auth acquires a ticket) and probes the
// API with a version request. Transient failures are retried briefly;
// authentication rejections are not.
func (c *RealClient) Connect(ctx context.Context) error {
	err := retry.WithExponentialBackoff(ctx, func() error {
		if c.cfg.AuthMethod != "token" {
			if err := c.login(ctx); err != nil {
				return err
			}
		}
		_, err := c.Version(ctx)
		return err
	}, retry.WithMaxRetries(2), retry.WithInitialDelay(time.Second))
	if err != nil {
		return &ConnectionError{Host: c.cfg.Host, Port: c.cfg.Port, Err: err}
	}
	return nil
}

// login exchanges username/password for a ticket and CSRF token.
func (c *RealClient) login(ctx context.Context) error {
	form := url.Values{
		"username": {c.cfg.User},
		"password": {c.cfg.Password},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/access/ticket", strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		return retry.Fatal(fmt.Errorf("authentication failed for user %q", c.cfg.User))
	}
	if resp.StatusCode != http.StatusOK {
		return &APIError{Method: "POST", Path: "/access/ticket", StatusCode: resp.StatusCode, Status: resp.Status}
	}

	var ticket struct {
		Ticket string `json:"ticket"`
		CSRF   string `json:"CSRFPreventionToken"`
	}
	if err := decodeEnvelope(resp.Body, &ticket); err != nil {
		return fmt.Errorf("failed to decode ticket response: %w", err)
	}

	c.mu.Lock()
	c.ticket = ticket.Ticket
	c.csrf = ticket.CSRF
	c.mu.Unlock()
	return nil
}

func (c *RealClient) do(ctx context.Context, method, path string, form url.Values, out interface{}) error {
	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}

	if c.cfg.AuthMethod == "token" {
		req.Header.Set("Authorization", fmt.Sprintf("PVEAPIToken=%s!%s=%s",
			c.cfg.User, c.cfg.TokenName, c.cfg.TokenValue))
	} else {
		c.mu.Lock()
		ticket, csrf := c.ticket, c.csrf
		c.mu.Unlock()
		req.AddCookie(&http.Cookie{Name: "PVEAuthCookie", Value: ticket})
		if method != http.MethodGet {
			req.Header.Set("CSRFPreventionToken", csrf)
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &APIError{Method: method, Path: path, StatusCode: resp.StatusCode, Status: resp.Status}
	}
	if out == nil {
		return nil
	}
	return decodeEnvelope(resp.Body, out)
}

// decodeEnvelope unwraps the {"data": ...} envelope every Proxmox response
// uses.
func decodeEnvelope(r io.Reader, out interface{}) error {
	var envelope struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.NewDecoder(r).Decode(&envelope); err != nil {
		return err
	}
	if envelope.Data == nil {
		return fmt.Errorf("response has no data field")
	}
	return json.Unmarshal(envelope.Data, out)
}

// Version implements Client.
func (c *RealClient) Version(ctx context.Context) (string, error) {
	var v struct {
		Version string `json:"version"`
		Release string `json:"release"`
	}
	if err := c.do(ctx, http.MethodGet, "/version", nil, &v); err != nil {
		return "", err
	}
	return v.Version, nil
}

// Nodes implements Client.
func (c *RealClient) Nodes(ctx context.Context) ([]Node, error) {
	var nodes []Node
	if err := c.do(ctx, http.MethodGet, "/nodes", nil, &nodes); err != nil {
		return nil, err
	}
	return nodes, nil
}

// NextVMID implements Client. The API returns the ID as a JSON string.
func (c *RealClient) NextVMID(ctx context.Context) (int, error) {
	var raw string
	if err := c.do(ctx, http.MethodGet, "/cluster/nextid", nil, &raw); err != nil {
		return 0, err
	}
	id, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("unexpected nextid response %q: %w", raw, err)
	}
	return id, nil
}

// NodeStorage implements Client.
func (c *RealClient) NodeStorage(ctx context.Context, node string) ([]Storage, error) {
	var storages []Storage
	path := fmt.Sprintf("/nodes/%s/storage", url.PathEscape(node))
	if err := c.do(ctx, http.MethodGet, path, nil, &storages); err != nil {
		return nil, err
	}
	return storages, nil
}

// StorageContent implements Client.
func (c *RealClient) StorageContent(ctx context.Context, node, storage string) ([]Volume, error) {
	var volumes []Volume
	path := fmt.Sprintf("/nodes/%s/storage/%s/content", url.PathEscape(node), url.PathEscape(storage))
	if err := c.do(ctx, http.MethodGet, path, nil, &volumes); err != nil {
		return nil, err
	}
	return volumes, nil
}

// ApplianceCatalog implements Client.
func (c *RealClient) ApplianceCatalog(ctx context.Context, node string) ([]Appliance, error) {
	var catalog []Appliance
	path := fmt.Sprintf("/nodes/%s/aplinfo", url.PathEscape(node))
	if err := c.do(ctx, http.MethodGet, path, nil, &catalog); err != nil {
		return nil, err
	}
	return catalog, nil
}

// DownloadAppliance implements Client.
func (c *RealClient) DownloadAppliance(ctx context.Context, node, storage, template string) (string, error) {
	form := url.Values{
		"storage":  {storage},
		"template": {template},
	}
	var upid string
	path := fmt.Sprintf("/nodes/%s/aplinfo", url.PathEscape(node))
	if err := c.do(ctx, http.MethodPost, path, form, &upid); err != nil {
		return "", err
	}
	return upid, nil
}

// NodeTasks implements Client.
func (c *RealClient) NodeTasks(ctx context.Context, node string, since int64, limit int) ([]Task, error) {
	var tasks []Task
	path := fmt.Sprintf("/nodes/%s/tasks?since=%d&limit=%d",
		url.PathEscape(node), since, limit)
	if err := c.do(ctx, http.MethodGet, path, nil, &tasks); err != nil {
		return nil, err
	}
	return tasks, nil
}

// TaskStatus implements Client.
func (c *RealClient) TaskStatus(ctx context.Context, node, upid string) (TaskStatus, error) {
	var status TaskStatus
	path := fmt.Sprintf("/nodes/%s/tasks/%s/status", url.PathEscape(node), url.PathEscape(upid))
	if err := c.do(ctx, http.MethodGet, path, nil, &status); err != nil {
		return TaskStatus{}, err
	}
	return status, nil
}

// TaskLog implements Client.
func (c *RealClient) TaskLog(ctx context.Context, node, upid string, start, limit int) ([]TaskLogLine, error) {
	var lines []TaskLogLine
	path := fmt.Sprintf("/nodes/%s/tasks/%s/log?start=%s&limit=%s",
		url.PathEscape(node), url.PathEscape(upid),
		strconv.Itoa(start), strconv.Itoa(limit))
	if err := c.do(ctx, http.MethodGet, path, nil, &lines); err != nil {
		return nil, err
	}
	return lines, nil
}

// ListTokens implements Client.
func (c *RealClient) ListTokens(ctx context.Context, user string) ([]TokenInfo, error) {
	var tokens []TokenInfo
	path := fmt.Sprintf("/access/users/%s/token", url.PathEscape(user))
	if err := c.do(ctx, http.MethodGet, path, nil, &tokens); err != nil {
		return nil, err
	}
	return tokens, nil
}

// CreateToken implements Client.
func (c *RealClient) CreateToken(ctx context.Context, user, tokenID string, privsep bool, comment string) (string, error) {
	form := url.Values{
		"comment": {comment},
		"privsep": {"1"},
	}
	if !privsep {
		form.Set("privsep", "0")
	}
	var created struct {
		Value string `json:"value"`
	}
	path := fmt.Sprintf("/access/users/%s/token/%s", url.PathEscape(user), url.PathEscape(tokenID))
	if err := c.do(ctx, http.MethodPost, path, form, &created); err != nil {
		return "", err
	}
	if created.Value == "" {
		return "", fmt.Errorf("token %s created but no secret returned", tokenID)
	}
	return created.Value, nil
}

// DeleteToken implements Client.
func (c *RealClient) DeleteToken(ctx context.Context, user, tokenID string) error {
	path := fmt.Sprintf("/access/users/%s/token/%s", url.PathEscape(user), url.PathEscape(tokenID))
	return c.do(ctx, http.MethodDelete, path, nil, nil)
}
