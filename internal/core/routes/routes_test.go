package routes

import "testing"

func TestLookup(t *testing.T) {
	tests := []struct {
		path     string
		found    bool
		needAuth bool
	}{
		{Login, true, false},
		{Register, true, false},
		{Dashboard, true, true},
		{Documents, true, true},
		{Chat, true, true},
		{"/settings", false, false},
	}

	for _, tt := range tests {
		r, ok := Lookup(tt.path)
		if ok != tt.found {
			t.Errorf("Lookup(%q) found = %v, want %v", tt.path, ok, tt.found)
			continue
		}
		if r.RequireAuth != tt.needAuth {
			t.Errorf("Lookup(%q).RequireAuth = %v, want %v", tt.path, r.RequireAuth, tt.needAuth)
		}
	}
}

func TestAllReturnsCopy(t *testing.T) {
	all := All()
	all[0].RequireAuth = true

	r, _ := Lookup(Login)
	if r.RequireAuth {
		t.Error("mutating All() result changed the route table")
	}
}

func TestHomeRequiresAuth(t *testing.T) {
	r, ok := Lookup(Home())
	if !ok || !r.RequireAuth {
		t.Errorf("Home() = %q should be a protected route", Home())
	}
}
