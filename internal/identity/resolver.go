package identity

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/gorilla/securecookie"
)

const (
	// CookieName is the client-side home of the guest token.
	CookieName = "guest_identifier"
	// CookieLifetime is how long a minted guest token stays valid.
	CookieLifetime = 365 * 24 * time.Hour

	tokenBytes = 32
)

// Principal is the signed-in account as far as identity cares.
type Principal struct {
	ID    uint
	Admin bool
}

// Mint is returned when a new guest token has to be persisted by the client.
type Mint struct {
	Token   string
	Value   string // signed cookie value
	Expires time.Time
}

// MaxAge is the cookie max-age in seconds.
func (m *Mint) MaxAge() int {
	return int(CookieLifetime / time.Second)
}

// Resolver signs and verifies guest tokens. It holds no per-request state.
type Resolver struct {
	codec *securecookie.SecureCookie
	now   func() time.Time
}

// NewResolver builds a resolver that signs guest cookies with hashKey.
func NewResolver(hashKey []byte) *Resolver {
	codec := securecookie.New(hashKey, nil)
	codec.MaxAge(int(CookieLifetime / time.Second))
	codec.SetSerializer(securecookie.JSONEncoder{})
	return &Resolver{codec: codec, now: time.Now}
}

// Resolve produces the actor for a request. A signed-in principal always wins.
// Otherwise a verified guest cookie is reused, and anything else (missing,
// forged, expired, malformed) yields a freshly minted token that the caller
// must persist.
func (r *Resolver) Resolve(p *Principal, presented string) (Actor, *Mint, error) {
	if actor, ok := r.known(p, presented); ok {
		return actor, nil, nil
	}

	token, err := newToken()
	if err != nil {
		return Actor{}, nil, err
	}
	value, err := r.codec.Encode(CookieName, token)
	if err != nil {
		return Actor{}, nil, fmt.Errorf("sign guest token: %w", err)
	}
	return Guest(token), &Mint{
		Token:   token,
		Value:   value,
		Expires: r.now().Add(CookieLifetime),
	}, nil
}

// Peek resolves without minting: callers without a valid cookie come back
// as Anonymous. Used by read paths that must not hand out cookies.
func (r *Resolver) Peek(p *Principal, presented string) Actor {
	if actor, ok := r.known(p, presented); ok {
		return actor
	}
	return Anonymous()
}

func (r *Resolver) known(p *Principal, presented string) (Actor, bool) {
	if p != nil {
		return User(p.ID, p.Admin), true
	}
	if token, ok := r.verify(presented); ok {
		return Guest(token), true
	}
	return Actor{}, false
}

func (r *Resolver) verify(value string) (string, bool) {
	if value == "" {
		return "", false
	}
	var token string
	if err := r.codec.Decode(CookieName, value, &token); err != nil {
		return "", false
	}
	if !wellFormed(token) {
		return "", false
	}
	return token, true
}

func newToken() (string, error) {
	b := make([]byte, tokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate guest token: %w", err)
	}
	return hex.EncodeToString(b), nil
}

func wellFormed(token string) bool {
	if len(token) != tokenBytes*2 {
		return false
	}
	_, err := hex.DecodeString(token)
	return err == nil
}
