package session

import (
	"context"
	"testing"

	"guruit/internal/portal"
)

func TestParseRole(t *testing.T) {
	if role, err := ParseRole("user"); err != nil || role != RoleUser {
		t.Fatalf("expected user role, got %v %v", role, err)
	}
	if role, err := ParseRole("admin"); err != nil || role != RoleAdmin {
		t.Fatalf("expected admin role, got %v %v", role, err)
	}
	for _, value := range []string{"", "Admin", "ADMIN", "superuser"} {
		if _, err := ParseRole(value); err == nil {
			t.Fatalf("expected %q to be rejected", value)
		}
	}
}

func TestPublicRoutesAlwaysRender(t *testing.T) {
	store, _ := newTestStore(t)
	for _, path := range []string{"/", "/signup", "/login"} {
		if decision := store.Resolve(path); decision != Render {
			t.Fatalf("expected %s to render, got %s", path, decision)
		}
	}
}

func TestAuthGuardRedirectsToLogin(t *testing.T) {
	store, _ := newTestStore(t)
	for _, path := range []string{"/checkinout", "/calendar", "/forms", "/assignment", "/users"} {
		if decision := store.Resolve(path); decision != RedirectToLogin {
			t.Fatalf("expected %s to redirect to login, got %s", path, decision)
		}
	}
}

func TestRoleGuardRedirectsNonAdminsHome(t *testing.T) {
	store, _ := newTestStore(t)
	if _, err := store.Login(context.Background(), "ann@guruit.test", "x"); err != nil {
		t.Fatalf("login: %v", err)
	}

	// Intern screens render.
	if decision := store.Resolve("/checkinout"); decision != Render {
		t.Fatalf("expected render, got %s", decision)
	}

	// Admin screens redirect home, silently.
	for _, path := range []string{"/admindashboard", "/admincheckin", "/users", "/adminupload", "/adminassignments"} {
		if decision := store.Resolve(path); decision != RedirectToHome {
			t.Fatalf("expected %s to redirect home, got %s", path, decision)
		}
	}
}

func TestRoleGuardAdmitsAdmins(t *testing.T) {
	store, _ := newTestStore(t)
	if _, err := store.Login(context.Background(), "boss@guruit.test", "x"); err != nil {
		t.Fatalf("login: %v", err)
	}
	for _, path := range []string{"/admindashboard", "/users", "/checkinout"} {
		if decision := store.Resolve(path); decision != Render {
			t.Fatalf("expected %s to render for admin, got %s", path, decision)
		}
	}
}

func TestUnrecognizedRoleRedirectsHome(t *testing.T) {
	backend := fakeBackend(t)
	storage := NewMemoryStorage()
	_ = storage.Set(tokenKey, "T1")
	_ = storage.Set(userKey, `{"name":"Odd","role":"superuser"}`)

	store := NewStore(storage, portal.NewClient(backend.URL))
	store.Restore()
	if decision := store.Resolve("/admindashboard"); decision != RedirectToHome {
		t.Fatalf("expected redirect home for unknown role, got %s", decision)
	}
}

func TestUnknownPathRedirectsHome(t *testing.T) {
	store, _ := newTestStore(t)
	for _, path := range []string{"/nope", "/admin", ""} {
		if decision := store.Resolve(path); decision != RedirectToHome {
			t.Fatalf("expected %s to redirect home, got %s", path, decision)
		}
	}
}

func TestGuardReactsToLogout(t *testing.T) {
	store, _ := newTestStore(t)
	if _, err := store.Login(context.Background(), "ann@guruit.test", "x"); err != nil {
		t.Fatalf("login: %v", err)
	}
	if decision := store.Resolve("/checkinout"); decision != Render {
		t.Fatalf("expected render while logged in, got %s", decision)
	}

	store.Logout()
	if decision := store.Resolve("/checkinout"); decision != RedirectToLogin {
		t.Fatalf("expected redirect to login after logout, got %s", decision)
	}
}
