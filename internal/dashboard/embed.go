// Package dashboard wraps the vendor dashboard-embedding widget behind an
// explicit contract: an embed configuration, an injected token provider the
// widget calls when its token expires, and a mount guard so a container is
// never embedded twice.
package dashboard

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"

	"brickstore/internal/api"
	"brickstore/internal/logging"
)

// TokenProvider returns a fresh scoped embedding token. The widget invokes
// it whenever its current token stops working; the provider owns how a token
// is minted, so it can be swapped or faked independently of the widget.
type TokenProvider func(ctx context.Context) (string, error)

// EmbedConfig is everything the widget needs to render one dashboard.
type EmbedConfig struct {
	InstanceURL string
	WorkspaceID string
	DashboardID string
	Token       string
}

// Widget is the vendor embedding surface. The real widget renders into a
// browser container; the CLI implementation emits an embed URL.
type Widget interface {
	Initialize(cfg EmbedConfig) error
}

// ErrAlreadyMounted is returned when Mount is called on a mounted embedder.
var ErrAlreadyMounted = errors.New("dashboard already mounted")

// Embedder owns one widget mount. The mounted flag is the single source of
// truth for "already initialized"; nothing inspects rendered output.
type Embedder struct {
	widget   Widget
	provider TokenProvider

	mu      sync.Mutex
	mounted bool
	cfg     EmbedConfig
}

// NewEmbedder creates an unmounted embedder.
func NewEmbedder(widget Widget, provider TokenProvider) *Embedder {
	return &Embedder{widget: widget, provider: provider}
}

// Mount fetches an initial token and initializes the widget exactly once.
// A second Mount without an Unmount is rejected.
func (e *Embedder) Mount(ctx context.Context, cfg api.DashboardConfig) error {
	e.mu.Lock()
	if e.mounted {
		e.mu.Unlock()
		return ErrAlreadyMounted
	}
	// Claim the mount before initializing so a concurrent Mount cannot
	// produce a duplicate embed.
	e.mounted = true
	e.mu.Unlock()

	token, err := e.provider(ctx)
	if err != nil {
		e.mu.Lock()
		e.mounted = false
		e.mu.Unlock()
		return fmt.Errorf("fetching embed token: %w", err)
	}

	embedCfg := EmbedConfig{
		InstanceURL: cfg.InstanceURL,
		WorkspaceID: cfg.WorkspaceID,
		DashboardID: cfg.DashboardID,
		Token:       token,
	}

	if err := e.widget.Initialize(embedCfg); err != nil {
		e.mu.Lock()
		e.mounted = false
		e.mu.Unlock()
		return fmt.Errorf("initializing widget: %w", err)
	}

	e.mu.Lock()
	e.cfg = embedCfg
	e.mu.Unlock()

	logging.Dashboard("mounted dashboard %s", cfg.DashboardID)
	return nil
}

// Unmount clears the mount guard so the container may be embedded again.
func (e *Embedder) Unmount() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.mounted = false
	e.cfg = EmbedConfig{}
}

// Mounted reports whether the widget is currently mounted.
func (e *Embedder) Mounted() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.mounted
}

// RefreshToken is the getNewToken callback handed to the widget: it asks the
// provider for a replacement token and remembers it for later reads.
func (e *Embedder) RefreshToken(ctx context.Context) (string, error) {
	token, err := e.provider(ctx)
	if err != nil {
		logging.DashboardError("token refresh failed: %v", err)
		return "", err
	}

	e.mu.Lock()
	if e.mounted {
		e.cfg.Token = token
	}
	e.mu.Unlock()

	return token, nil
}

// EmbedURL builds the iframe URL for an embed configuration.
func EmbedURL(cfg EmbedConfig) string {
	base := strings.TrimRight(cfg.InstanceURL, "/")
	return fmt.Sprintf("%s/embed/dashboardsv3/%s?o=%s#token=%s",
		base,
		url.PathEscape(cfg.DashboardID),
		url.QueryEscape(cfg.WorkspaceID),
		url.QueryEscape(cfg.Token))
}
