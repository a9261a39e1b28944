package terraform

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/infraforge/infraforge/internal/config"
	"github.com/infraforge/infraforge/internal/proxmox"
)

// tokenName is the API token InfraForge provisions for the Terraform
// provider, kept separate from the operator's own credentials so it can be
// rotated or revoked independently.
const tokenName = "infraforge-terraform"

const tokenCacheFile = ".tf-token.json"

type cachedToken struct {
	User    string `json:"user"`
	TokenID string `json:"token_id"`
	Secret  string `json:"secret"`
}

// apiToken renders the full token in the form the bpg provider expects.
func (c cachedToken) apiToken() string {
	return fmt.Sprintf("%s!%s=%s", c.User, c.TokenID, c.Secret)
}

// EnsureToken returns a working API token for the Terraform provider,
// creating one when needed. The secret is only shown once by the API, so it
// is cached in the workspace; a cache entry whose token no longer exists on
// the server is discarded, and a server token with no cached secret is
// deleted and recreated.
func (m *Manager) EnsureToken(ctx context.Context, client proxmox.Client, cfg config.ProxmoxConfig) (string, error) {
	if err := m.EnsureDirs(); err != nil {
		return "", err
	}
	cachePath := filepath.Join(m.Workspace, tokenCacheFile)

	tokens, err := client.ListTokens(ctx, cfg.User)
	if err != nil {
		return "", fmt.Errorf("listing API tokens for %s: %w", cfg.User, err)
	}
	existsOnServer := false
	for _, tok := range tokens {
		if tok.TokenID == tokenName {
			existsOnServer = true
			break
		}
	}

	if cached, err := readTokenCache(cachePath); err == nil && cached.User == cfg.User {
		if existsOnServer {
			return cached.apiToken(), nil
		}
		m.logf("cached token %s no longer exists on the server, recreating", tokenName)
	}

	// A server-side token without a cached secret is unusable.
	if existsOnServer {
		if err := client.DeleteToken(ctx, cfg.User, tokenName); err != nil {
			return "", fmt.Errorf("removing stale token %s: %w", tokenName, err)
		}
	}

	secret, err := client.CreateToken(ctx, cfg.User, tokenName, false, "Created by InfraForge for Terraform")
	if err != nil {
		return "", fmt.Errorf("creating token %s: %w", tokenName, err)
	}

	token := cachedToken{User: cfg.User, TokenID: tokenName, Secret: secret}
	if err := writeTokenCache(cachePath, token); err != nil {
		return "", err
	}
	m.logf("created API token %s!%s", cfg.User, tokenName)
	return token.apiToken(), nil
}

func readTokenCache(path string) (cachedToken, error) {
	var token cachedToken
	data, err := os.ReadFile(path)
	if err != nil {
		return token, err
	}
	if err := json.Unmarshal(data, &token); err != nil {
		return token, fmt.Errorf("parsing token cache %s: %w", path, err)
	}
	if token.User == "" || token.TokenID == "" || token.Secret == "" {
		return token, fmt.Errorf("token cache %s is incomplete", path)
	}
	return token, nil
}

func writeTokenCache(path string, token cachedToken) error {
	data, err := json.MarshalIndent(token, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("writing token cache: %w", err)
	}
	return nil
}
