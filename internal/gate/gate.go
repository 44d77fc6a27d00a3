// Package gate decides whether protected views may render. It holds no state
// machine of its own; it is a pure function of the session store's state,
// re-evaluated on every store notification.
package gate

import "brickstore/internal/session"

// Outcome is what the hosting view should do for the current session state.
type Outcome int

const (
	// OutcomePlaceholder renders a loading placeholder. Only seen before
	// the store's storage check completes.
	OutcomePlaceholder Outcome = iota
	// OutcomeRedirectLogin sends the user to the login flow.
	OutcomeRedirectLogin
	// OutcomeRender renders the protected subtree.
	OutcomeRender
)

func (o Outcome) String() string {
	switch o {
	case OutcomePlaceholder:
		return "placeholder"
	case OutcomeRedirectLogin:
		return "redirect-login"
	case OutcomeRender:
		return "render"
	default:
		return "unknown"
	}
}

// Decide maps a session state to a render outcome. Protected content is never
// rendered while the storage check is pending.
func Decide(st session.State) Outcome {
	switch st.Phase {
	case session.PhaseLoading:
		return OutcomePlaceholder
	case session.PhaseAuthenticated:
		return OutcomeRender
	default:
		return OutcomeRedirectLogin
	}
}

// Gate tracks the outcome reactively. It subscribes to the store at
// construction so every transition is observed, including the one produced
// by Initialize.
type Gate struct {
	outcome  Outcome
	onChange func(Outcome)
}

// New creates a gate bound to the store. onChange may be nil; when set it is
// invoked synchronously with each new outcome.
func New(store *session.Store, onChange func(Outcome)) *Gate {
	g := &Gate{
		outcome:  Decide(store.State()),
		onChange: onChange,
	}
	store.Subscribe(func(st session.State) {
		g.outcome = Decide(st)
		if g.onChange != nil {
			g.onChange(g.outcome)
		}
	})
	return g
}

// Outcome returns the most recently decided outcome.
func (g *Gate) Outcome() Outcome { return g.outcome }
