// Package access gates requests behind HTTP Basic authentication.
// The gate is evaluated before any filesystem or space work so denied
// clients learn nothing about the content tree.
package access

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"net/http"

	"github.com/j4m-solutions/rudiweb/internal/xerrors"
)

// ErrDenied reports a request that failed authorization.
var ErrDenied = errors.New("authorization denied")

// EphemeralUser is the account name minted by AddEphemeralAccount.
const EphemeralUser = "user"

// Gate checks request credentials against configured accounts.
type Gate struct {
	require  bool
	accounts map[string]string
}

// NewGate builds a gate. When require is false Authorize always
// passes. The accounts map is copied.
func NewGate(require bool, accounts map[string]string) *Gate {
	g := &Gate{require: require, accounts: make(map[string]string, len(accounts))}
	for user, password := range accounts {
		g.accounts[user] = password
	}
	return g
}

// Required reports whether the gate enforces authorization.
func (g *Gate) Required() bool { return g.require }

// AddEphemeralAccount mints a random-password account valid for this
// process lifetime and returns the credentials so they can be printed
// at startup.
func (g *Gate) AddEphemeralAccount() (user, password string, err error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", "", xerrors.Wrap(err, "generate ephemeral password")
	}
	password = hex.EncodeToString(buf)
	g.accounts[EphemeralUser] = password
	return EphemeralUser, password, nil
}

// Authorize checks the request's Basic credentials. It returns
// ErrDenied for missing or wrong credentials when the gate is
// enforcing.
func (g *Gate) Authorize(r *http.Request) error {
	if !g.require {
		return nil
	}
	user, password, ok := r.BasicAuth()
	if !ok {
		return ErrDenied
	}
	want, ok := g.accounts[user]
	// Compare even for unknown users to keep timing uniform.
	if subtle.ConstantTimeCompare([]byte(password), []byte(want)) != 1 || !ok {
		return ErrDenied
	}
	return nil
}
