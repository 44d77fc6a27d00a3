package gate

import (
	"context"
	"testing"

	"brickstore/internal/session"
)

type staticAuth struct{ cred *session.Credential }

func (a *staticAuth) Authenticate(ctx context.Context, email, password string) (*session.Credential, error) {
	return a.cred, nil
}

func TestDecide(t *testing.T) {
	cases := []struct {
		name  string
		state session.State
		want  Outcome
	}{
		{"loading", session.State{Phase: session.PhaseLoading}, OutcomePlaceholder},
		{"unauthenticated", session.State{Phase: session.PhaseUnauthenticated}, OutcomeRedirectLogin},
		{"authenticated", session.State{Phase: session.PhaseAuthenticated, Credential: &session.Credential{Email: "u@x.com"}}, OutcomeRender},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Decide(tc.state); got != tc.want {
				t.Errorf("Decide(%v) = %v, want %v", tc.state.Phase, got, tc.want)
			}
		})
	}
}

func TestGate_NeverRendersWhileLoading(t *testing.T) {
	store := session.NewStore(&staticAuth{}, t.TempDir())
	g := New(store, nil)

	if g.Outcome() != OutcomePlaceholder {
		t.Errorf("Outcome = %v before Initialize, want placeholder", g.Outcome())
	}
}

func TestGate_FollowsStoreTransitions(t *testing.T) {
	cred := &session.Credential{
		Email:          "u@x.com",
		AssistantToken: "tok",
		Company:        "apex",
	}
	store := session.NewStore(&staticAuth{cred: cred}, t.TempDir())

	var seen []Outcome
	g := New(store, func(o Outcome) { seen = append(seen, o) })

	store.Initialize()
	if g.Outcome() != OutcomeRedirectLogin {
		t.Errorf("after empty Initialize: %v, want redirect", g.Outcome())
	}

	if _, err := store.Login(context.Background(), "u@x.com", "pw"); err != nil {
		t.Fatal(err)
	}
	if g.Outcome() != OutcomeRender {
		t.Errorf("after login: %v, want render", g.Outcome())
	}

	store.Logout()
	if g.Outcome() != OutcomeRedirectLogin {
		t.Errorf("after logout: %v, want redirect", g.Outcome())
	}

	want := []Outcome{OutcomeRedirectLogin, OutcomeRender, OutcomeRedirectLogin}
	if len(seen) != len(want) {
		t.Fatalf("onChange fired %d times, want %d", len(seen), len(want))
	}
	for i := range want {
		if seen[i] != want[i] {
			t.Errorf("onChange[%d] = %v, want %v", i, seen[i], want[i])
		}
	}
}
