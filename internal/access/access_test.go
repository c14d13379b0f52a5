package access

import (
	"errors"
	"net/http/httptest"
	"regexp"
	"testing"
)

func TestNewGate_CopiesAccounts(t *testing.T) {
	accounts := map[string]string{"alice": "s3cret"}
	g := NewGate(true, accounts)

	accounts["alice"] = "changed"
	r := httptest.NewRequest("GET", "/", nil)
	r.SetBasicAuth("alice", "s3cret")
	if err := g.Authorize(r); err != nil {
		t.Errorf("gate should keep its own copy of accounts: %v", err)
	}
}

func TestRequired(t *testing.T) {
	if NewGate(true, nil).Required() != true {
		t.Error("Required() = false for enforcing gate")
	}
	if NewGate(false, nil).Required() != false {
		t.Error("Required() = true for open gate")
	}
}

func TestAuthorize_NotRequired(t *testing.T) {
	g := NewGate(false, nil)
	r := httptest.NewRequest("GET", "/", nil)
	if err := g.Authorize(r); err != nil {
		t.Errorf("open gate should pass requests without credentials: %v", err)
	}
}

func TestAuthorize(t *testing.T) {
	g := NewGate(true, map[string]string{"alice": "s3cret"})

	tests := []struct {
		name     string
		user     string
		password string
		creds    bool
		wantErr  bool
	}{
		{"no credentials", "", "", false, true},
		{"valid", "alice", "s3cret", true, false},
		{"wrong password", "alice", "nope", true, true},
		{"unknown user", "mallory", "s3cret", true, true},
		{"empty password", "alice", "", true, true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			r := httptest.NewRequest("GET", "/", nil)
			if tc.creds {
				r.SetBasicAuth(tc.user, tc.password)
			}
			err := g.Authorize(r)
			if tc.wantErr {
				if !errors.Is(err, ErrDenied) {
					t.Errorf("Authorize() = %v, want ErrDenied", err)
				}
			} else if err != nil {
				t.Errorf("Authorize() = %v, want nil", err)
			}
		})
	}
}

func TestAddEphemeralAccount(t *testing.T) {
	g := NewGate(true, nil)
	user, password, err := g.AddEphemeralAccount()
	if err != nil {
		t.Fatalf("AddEphemeralAccount: %v", err)
	}
	if user != EphemeralUser {
		t.Errorf("user = %q, want %q", user, EphemeralUser)
	}
	if !regexp.MustCompile(`^[0-9a-f]{32}$`).MatchString(password) {
		t.Errorf("password = %q, want 32 hex chars", password)
	}

	r := httptest.NewRequest("GET", "/", nil)
	r.SetBasicAuth(user, password)
	if err := g.Authorize(r); err != nil {
		t.Errorf("ephemeral credentials rejected: %v", err)
	}

	// minting again replaces the old password
	_, password2, err := g.AddEphemeralAccount()
	if err != nil {
		t.Fatalf("AddEphemeralAccount: %v", err)
	}
	if password2 == password {
		t.Error("second ephemeral password should differ")
	}
	if err := g.Authorize(r); !errors.Is(err, ErrDenied) {
		t.Errorf("old ephemeral password should stop working, got %v", err)
	}
}
