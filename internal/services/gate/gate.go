// Package gate decides whether a protected view may be shown for the
// current session state.
package gate

import "github.com/kikipou/Loopi-App/internal/services/session"

type Decision int

const (
	// DecisionWait defers: session status is not known yet, show a
	// placeholder and never redirect.
	DecisionWait Decision = iota
	DecisionRender
	DecisionRedirectToLogin
)

func (d Decision) String() string {
	switch d {
	case DecisionRender:
		return "render"
	case DecisionRedirectToLogin:
		return "redirect_to_login"
	default:
		return "wait"
	}
}

// Evaluate maps a session status to an access decision. It is pure; callers
// re-evaluate whenever the session store state changes.
func Evaluate(status session.Status) Decision {
	switch status {
	case session.StatusAuthenticated:
		return DecisionRender
	case session.StatusAnonymous:
		return DecisionRedirectToLogin
	default:
		return DecisionWait
	}
}

// EvaluateState is Evaluate over a full state snapshot.
func EvaluateState(state session.State) Decision {
	return Evaluate(state.Status)
}
