// Package identity turns a request's login session and guest cookie into the
// single Actor that likes, comments and mutations are attributed to.
package identity

import "fmt"

// Kind tells which variant an Actor holds.
type Kind int

const (
	// KindAnonymous is a caller with no session and no guest token yet.
	KindAnonymous Kind = iota
	KindUser
	KindGuest
)

// Actor is a tagged union: exactly one of the user or guest fields is
// meaningful, chosen by kind. Build it with User or Guest.
type Actor struct {
	kind   Kind
	userID uint
	admin  bool
	token  string
}

// User returns the actor for a signed-in account.
func User(id uint, admin bool) Actor {
	return Actor{kind: KindUser, userID: id, admin: admin}
}

// Guest returns the actor for a caller identified by a guest token.
func Guest(token string) Actor {
	return Actor{kind: KindGuest, token: token}
}

// Anonymous is a caller that has neither signed in nor been issued a token.
func Anonymous() Actor {
	return Actor{}
}

func (a Actor) Kind() Kind        { return a.kind }
func (a Actor) IsUser() bool      { return a.kind == KindUser }
func (a Actor) IsGuest() bool     { return a.kind == KindGuest }
func (a Actor) IsAnonymous() bool { return a.kind == KindAnonymous }

// IsAdmin is only ever true for users.
func (a Actor) IsAdmin() bool {
	return a.kind == KindUser && a.admin
}

// UserID returns the account id when the actor is a user.
func (a Actor) UserID() (uint, bool) {
	if a.kind != KindUser {
		return 0, false
	}
	return a.userID, true
}

// GuestToken returns the bearer token when the actor is a guest.
func (a Actor) GuestToken() (string, bool) {
	if a.kind != KindGuest {
		return "", false
	}
	return a.token, true
}

// Key is the deduplication key for per-identity bookkeeping. Two requests
// from the same identity always produce equal keys.
func (a Actor) Key() string {
	switch a.kind {
	case KindUser:
		return fmt.Sprintf("user:%d", a.userID)
	case KindGuest:
		return "guest:" + a.token
	default:
		return ""
	}
}

func (a Actor) String() string {
	switch a.kind {
	case KindUser:
		if a.admin {
			return fmt.Sprintf("admin#%d", a.userID)
		}
		return fmt.Sprintf("user#%d", a.userID)
	case KindGuest:
		// never log the bearer token itself
		if len(a.token) > 8 {
			return "guest#" + a.token[:8]
		}
		return "guest"
	default:
		return "anonymous"
	}
}
