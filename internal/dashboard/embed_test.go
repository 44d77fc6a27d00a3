package dashboard

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"brickstore/internal/api"
)

type recordingWidget struct {
	mu    sync.Mutex
	inits []EmbedConfig
	err   error
}

func (w *recordingWidget) Initialize(cfg EmbedConfig) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.err != nil {
		return w.err
	}
	w.inits = append(w.inits, cfg)
	return nil
}

func staticProvider(token string) TokenProvider {
	return func(ctx context.Context) (string, error) { return token, nil }
}

var testConfig = api.DashboardConfig{
	InstanceURL: "https://dbc.example.com",
	WorkspaceID: "ws-1",
	DashboardID: "dash-1",
}

func TestMount_InitializesWidgetOnce(t *testing.T) {
	widget := &recordingWidget{}
	e := NewEmbedder(widget, staticProvider("tok-1"))

	if err := e.Mount(context.Background(), testConfig); err != nil {
		t.Fatalf("Mount failed: %v", err)
	}
	if !e.Mounted() {
		t.Error("embedder should report mounted")
	}

	if err := e.Mount(context.Background(), testConfig); !errors.Is(err, ErrAlreadyMounted) {
		t.Errorf("second Mount: err = %v, want ErrAlreadyMounted", err)
	}

	if len(widget.inits) != 1 {
		t.Fatalf("widget initialized %d times, want 1", len(widget.inits))
	}
	got := widget.inits[0]
	if got.Token != "tok-1" || got.DashboardID != "dash-1" {
		t.Errorf("widget config = %+v", got)
	}
}

func TestMount_TokenFailureLeavesUnmounted(t *testing.T) {
	widget := &recordingWidget{}
	e := NewEmbedder(widget, func(ctx context.Context) (string, error) {
		return "", errors.New("mint failed")
	})

	if err := e.Mount(context.Background(), testConfig); err == nil {
		t.Fatal("expected error")
	}
	if e.Mounted() {
		t.Error("failed mount must not leave the guard set")
	}
	if len(widget.inits) != 0 {
		t.Error("widget must not be initialized without a token")
	}
}

func TestMount_WidgetFailureLeavesUnmounted(t *testing.T) {
	widget := &recordingWidget{err: errors.New("container missing")}
	e := NewEmbedder(widget, staticProvider("tok-1"))

	if err := e.Mount(context.Background(), testConfig); err == nil {
		t.Fatal("expected error")
	}
	if e.Mounted() {
		t.Error("failed mount must not leave the guard set")
	}
}

func TestUnmount_AllowsRemount(t *testing.T) {
	widget := &recordingWidget{}
	e := NewEmbedder(widget, staticProvider("tok-1"))

	if err := e.Mount(context.Background(), testConfig); err != nil {
		t.Fatal(err)
	}
	e.Unmount()
	if e.Mounted() {
		t.Error("Unmount should clear the guard")
	}
	if err := e.Mount(context.Background(), testConfig); err != nil {
		t.Fatalf("remount failed: %v", err)
	}
	if len(widget.inits) != 2 {
		t.Errorf("widget initialized %d times, want 2", len(widget.inits))
	}
}

func TestRefreshToken_UsesProvider(t *testing.T) {
	calls := 0
	provider := func(ctx context.Context) (string, error) {
		calls++
		if calls == 1 {
			return "tok-1", nil
		}
		return "tok-2", nil
	}

	e := NewEmbedder(&recordingWidget{}, provider)
	if err := e.Mount(context.Background(), testConfig); err != nil {
		t.Fatal(err)
	}

	tok, err := e.RefreshToken(context.Background())
	if err != nil {
		t.Fatalf("RefreshToken failed: %v", err)
	}
	if tok != "tok-2" {
		t.Errorf("token = %q, want tok-2", tok)
	}
}

func TestEmbedURL(t *testing.T) {
	u := EmbedURL(EmbedConfig{
		InstanceURL: "https://dbc.example.com/",
		WorkspaceID: "ws-1",
		DashboardID: "dash-1",
		Token:       "tok",
	})
	for _, want := range []string{"https://dbc.example.com/embed/dashboardsv3/dash-1", "o=ws-1", "token=tok"} {
		if !strings.Contains(u, want) {
			t.Errorf("EmbedURL %q missing %q", u, want)
		}
	}
}
