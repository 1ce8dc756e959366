package session

import "fmt"

// Role is the closed set of account roles. The backend stores roles as
// strings; parsing them here keeps an unexpected value from silently
// falling through a guard.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// ParseRole matches exactly. No case folding, no hierarchy.
func ParseRole(value string) (Role, error) {
	switch value {
	case string(RoleUser):
		return RoleUser, nil
	case string(RoleAdmin):
		return RoleAdmin, nil
	default:
		return "", fmt.Errorf("unrecognized role %q", value)
	}
}

// Decision is a guard's verdict for one navigation attempt.
type Decision int

const (
	Render Decision = iota
	RedirectToLogin
	RedirectToHome
)

func (d Decision) String() string {
	switch d {
	case Render:
		return "render"
	case RedirectToLogin:
		return "redirect-to-login"
	case RedirectToHome:
		return "redirect-to-home"
	default:
		return "unknown"
	}
}

type routeRule struct {
	requireAuth  bool
	requiredRole Role
}

// The fixed routing table. Paths not listed here redirect home rather than
// rendering nothing.
var routes = map[string]routeRule{
	"/":       {},
	"/signup": {},
	"/login":  {},

	"/checkinout": {requireAuth: true},
	"/calendar":   {requireAuth: true},
	"/forms":      {requireAuth: true},
	"/assignment": {requireAuth: true},

	"/admindashboard":   {requireAuth: true, requiredRole: RoleAdmin},
	"/admincheckin":     {requireAuth: true, requiredRole: RoleAdmin},
	"/users":            {requireAuth: true, requiredRole: RoleAdmin},
	"/adminupload":      {requireAuth: true, requiredRole: RoleAdmin},
	"/adminassignments": {requireAuth: true, requiredRole: RoleAdmin},
}

// Routes lists every known path.
func Routes() []string {
	paths := make([]string, 0, len(routes))
	for path := range routes {
		paths = append(paths, path)
	}
	return paths
}

// Resolve decides what navigating to path does for the current session. The
// auth check only tests local token presence; an expired token is caught by
// the server's 401 on the next call.
func (s *Store) Resolve(path string) Decision {
	rule, known := routes[path]
	if !known {
		return RedirectToHome
	}
	if !rule.requireAuth {
		return Render
	}
	if !s.IsAuthenticated() {
		return RedirectToLogin
	}
	if rule.requiredRole == "" {
		return Render
	}

	user := s.User()
	if user == nil {
		return RedirectToHome
	}
	role, err := ParseRole(user.Role)
	if err != nil {
		// Unrecognized role string: treat as unauthorized for any
		// role-gated screen.
		return RedirectToHome
	}
	if role != rule.requiredRole {
		return RedirectToHome
	}
	return Render
}
