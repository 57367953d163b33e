package handlers

import (
	"errors"
	"net/http"

	"plaza/internal/middleware"
	"plaza/internal/services"

	"github.com/gin-gonic/gin"
)

type LikeHandler struct {
	ledger *services.Ledger
}

func NewLikeHandler(ledger *services.Ledger) *LikeHandler {
	return &LikeHandler{ledger: ledger}
}

// Create likes the post for the current actor. Repeating it is harmless.
func (h *LikeHandler) Create(c *gin.Context) {
	postID, ok := idParam(c, "id")
	if !ok {
		return
	}

	res, err := h.ledger.Like(c.Request.Context(), middleware.CurrentActor(c), postID)
	if err != nil {
		h.fail(c, err, postID)
		return
	}

	if middleware.WantsJSON(c) {
		likeID := res.LikeID
		c.JSON(http.StatusOK, likeView{Liked: true, LikeID: &likeID, Count: res.Count})
		return
	}
	Flash(c, flashNotice, "Post was successfully liked.")
	redirect(c, postPath(postID))
}

// Destroy removes the current actor's like. The like id in the path only
// names the resource; the row removed is always the caller's own, so one
// actor can never unlike on behalf of another.
func (h *LikeHandler) Destroy(c *gin.Context) {
	postID, ok := idParam(c, "id")
	if !ok {
		return
	}
	if _, ok := idParam(c, "likeId"); !ok {
		return
	}

	res, err := h.ledger.Unlike(c.Request.Context(), middleware.CurrentActor(c), postID)
	if err != nil {
		h.fail(c, err, postID)
		return
	}

	if middleware.WantsJSON(c) {
		c.JSON(http.StatusOK, likeView{Liked: false, Count: res.Count})
		return
	}
	Flash(c, flashNotice, "Like was successfully removed.")
	redirect(c, postPath(postID))
}

// fail answers JSON clients with 422 {error} for refused likes.
func (h *LikeHandler) fail(c *gin.Context, err error, postID uint) {
	var verr *services.ValidationError
	if middleware.WantsJSON(c) {
		switch {
		case errors.As(err, &verr):
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": verr.Messages()})
			return
		case errors.Is(err, services.ErrUnauthorized):
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": []string{msgUnauthorized}})
			return
		}
	}
	respondError(c, err, postPath(postID))
}
