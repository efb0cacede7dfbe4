// Package routes names the views of the client and whether they need a session.
package routes

const (
	Login     = "/login"
	Register  = "/register"
	Dashboard = "/dashboard"
	Documents = "/documents"
	Chat      = "/chat"
)

// Route describes one view
type Route struct {
	Path        string
	Title       string
	RequireAuth bool
}

var table = []Route{
	{Path: Login, Title: "Sign in", RequireAuth: false},
	{Path: Register, Title: "Create account", RequireAuth: false},
	{Path: Dashboard, Title: "Dashboard", RequireAuth: true},
	{Path: Documents, Title: "Documents", RequireAuth: true},
	{Path: Chat, Title: "Chat", RequireAuth: true},
}

// Lookup returns the route registered for path.
func Lookup(path string) (Route, bool) {
	for _, r := range table {
		if r.Path == path {
			return r, true
		}
	}
	return Route{}, false
}

// All returns the route table in navigation order.
func All() []Route {
	out := make([]Route, len(table))
	copy(out, table)
	return out
}

// Home is where an authenticated user lands.
func Home() string { return Dashboard }
