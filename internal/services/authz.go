package services

import (
	"plaza/internal/identity"
)

// CanMutate reports whether actor may edit or delete something owned by
// ownerID. A nil owner (guest authored content) is only mutable by admins.
// Guests never pass.
func CanMutate(actor identity.Actor, ownerID *uint) bool {
	uid, ok := actor.UserID()
	if !ok {
		return false
	}
	if actor.IsAdmin() {
		return true
	}
	return ownerID != nil && *ownerID == uid
}

// AuthorPolicy decides who may create posts.
type AuthorPolicy func(identity.Actor) bool

// AdminsOnly restricts post authoring to admin accounts.
func AdminsOnly(a identity.Actor) bool {
	return a.IsAdmin()
}

// SignedInUsers lets any account author posts.
func SignedInUsers(a identity.Actor) bool {
	return a.IsUser()
}

// PolicyByName maps the POST_AUTHORING setting to a policy.
func PolicyByName(name string) AuthorPolicy {
	if name == "users" {
		return SignedInUsers
	}
	return AdminsOnly
}
