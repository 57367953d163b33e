package middleware

import (
	"net/http"

	"plaza/internal/identity"

	"github.com/gin-gonic/gin"
)

const ActorKey = "actor"

// ResolveActor puts the request's actor into the context. Routes that record
// something for the caller pass mint=true: a guest without a valid cookie is
// issued a fresh token and the signed cookie is set on the response. Read
// routes pass mint=false and never hand out cookies.
func ResolveActor(resolver *identity.Resolver, mint bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		var principal *identity.Principal
		if user := CurrentUser(c); user != nil {
			principal = &identity.Principal{ID: user.ID, Admin: user.IsAdmin()}
		}
		presented, _ := c.Cookie(identity.CookieName)

		if !mint {
			c.Set(ActorKey, resolver.Peek(principal, presented))
			c.Next()
			return
		}

		actor, minted, err := resolver.Resolve(principal, presented)
		if err != nil {
			Log(c).WithError(err).Error("resolve guest identity")
			c.AbortWithStatus(http.StatusInternalServerError)
			return
		}
		if minted != nil {
			http.SetCookie(c.Writer, &http.Cookie{
				Name:     identity.CookieName,
				Value:    minted.Value,
				Path:     "/",
				Expires:  minted.Expires,
				MaxAge:   minted.MaxAge(),
				HttpOnly: true,
				Secure:   c.Request.TLS != nil,
				SameSite: http.SameSiteLaxMode,
			})
			Log(c).WithField("actor", actor.String()).Debug("minted guest identity")
		}
		c.Set(ActorKey, actor)
		c.Next()
	}
}

// CurrentActor returns the actor resolved for this request; Anonymous when
// the route did not run ResolveActor.
func CurrentActor(c *gin.Context) identity.Actor {
	if v, ok := c.Get(ActorKey); ok {
		if actor, ok := v.(identity.Actor); ok {
			return actor
		}
	}
	return identity.Anonymous()
}
