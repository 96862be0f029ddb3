// Package envfile persists the API token pair in a local line-oriented
// KEY=value file, the same file an operator seeds by hand.
package envfile

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"

	"kaya-scraper/internal/domain"
)

const (
	keyAccessToken  = "KAYA_API_TOKEN"
	keyRefreshToken = "KAYA_REFRESH_TOKEN"
)

// Provider reads and writes the token file. Save rewrites the whole file in
// one pass so unrelated keys are never corrupted by a partial update, and
// keeps an in-process copy so later Loads observe the new pair immediately.
type Provider struct {
	path string

	mu     sync.Mutex
	cached *domain.CredentialPair
}

func New(path string) *Provider {
	return &Provider{path: path}
}

func (p *Provider) Load(_ context.Context) (domain.CredentialPair, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.cached != nil {
		return *p.cached, nil
	}
	data, err := os.ReadFile(p.path)
	if err != nil {
		return domain.CredentialPair{}, fmt.Errorf("envfile: reading %s: %w", p.path, err)
	}
	var pair domain.CredentialPair
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if k, v, ok := strings.Cut(line, "="); ok {
			switch k {
			case keyAccessToken:
				pair.AccessToken = v
			case keyRefreshToken:
				pair.RefreshToken = v
			}
		}
	}
	if pair.AccessToken == "" || pair.RefreshToken == "" {
		return domain.CredentialPair{}, fmt.Errorf(
			"envfile: %s and %s must both be set in %s", keyAccessToken, keyRefreshToken, p.path)
	}
	p.cached = &pair
	return pair, nil
}

func (p *Provider) Save(_ context.Context, pair domain.CredentialPair) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	var lines []string
	if data, err := os.ReadFile(p.path); err == nil {
		lines = strings.Split(strings.TrimRight(string(data), "\n"), "\n")
		if len(lines) == 1 && lines[0] == "" {
			lines = nil
		}
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("envfile: reading %s: %w", p.path, err)
	}
	lines = setVar(lines, keyAccessToken, pair.AccessToken)
	lines = setVar(lines, keyRefreshToken, pair.RefreshToken)

	out := strings.Join(lines, "\n") + "\n"
	if err := os.WriteFile(p.path, []byte(out), 0o600); err != nil {
		return fmt.Errorf("envfile: writing %s: %w", p.path, err)
	}
	p.cached = &pair
	return nil
}

// setVar replaces existing KEY= lines in place and appends the key when it is
// not present yet.
func setVar(lines []string, key, value string) []string {
	found := false
	for i, line := range lines {
		if strings.HasPrefix(strings.TrimSpace(line), key+"=") {
			lines[i] = key + "=" + value
			found = true
		}
	}
	if !found {
		lines = append(lines, key+"="+value)
	}
	return lines
}
