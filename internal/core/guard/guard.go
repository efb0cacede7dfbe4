// Package guard decides whether a view may render for the current session.
package guard

import (
	"github.com/neilberkman/docchat/internal/core/routes"
	"github.com/neilberkman/docchat/internal/core/session"
)

// Outcome of a guard check
type Outcome int

const (
	Allow Outcome = iota
	ShowLoading
	Redirect
)

func (o Outcome) String() string {
	switch o {
	case Allow:
		return "allow"
	case ShowLoading:
		return "loading"
	case Redirect:
		return "redirect"
	}
	return "unknown"
}

// Decision is the result of Check. Path is set only for Redirect.
type Decision struct {
	Outcome Outcome
	Path    string
}

// Check is a pure function of session state. It never redirects while the
// session is still being resolved.
func Check(s session.State, requireAuth bool) Decision {
	if s.Loading {
		return Decision{Outcome: ShowLoading}
	}
	if requireAuth && !s.Authenticated {
		return Decision{Outcome: Redirect, Path: routes.Login}
	}
	if !requireAuth && s.Authenticated {
		return Decision{Outcome: Redirect, Path: routes.Home()}
	}
	return Decision{Outcome: Allow}
}

// Resolve checks a path against the route table. Unknown paths are treated as
// protected and send anonymous users to the login view.
func Resolve(s session.State, path string) Decision {
	r, ok := routes.Lookup(path)
	if !ok {
		d := Check(s, true)
		if d.Outcome == Allow {
			return Decision{Outcome: Redirect, Path: routes.Home()}
		}
		return d
	}
	return Check(s, r.RequireAuth)
}
