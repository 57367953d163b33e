package handlers

import (
	"net/http"

	"plaza/internal/middleware"
	"plaza/internal/services"

	"github.com/gin-gonic/gin"
)

type CommentHandler struct {
	ledger *services.Ledger
}

func NewCommentHandler(ledger *services.Ledger) *CommentHandler {
	return &CommentHandler{ledger: ledger}
}

type commentForm struct {
	Content   string `form:"content" json:"content"`
	GuestName string `form:"guest_name" json:"guest_name"`
}

// Create adds a comment as the signed-in user or as the cookie guest.
func (h *CommentHandler) Create(c *gin.Context) {
	postID, ok := idParam(c, "id")
	if !ok {
		return
	}
	var form commentForm
	if err := c.ShouldBind(&form); err != nil {
		respondError(c, badRequest(err), postPath(postID))
		return
	}

	comment, err := h.ledger.AddComment(c.Request.Context(), middleware.CurrentActor(c), postID, form.Content, form.GuestName)
	if err != nil {
		respondInvalid(c, err, postPath(postID), formInput{"content": form.Content, "guest_name": form.GuestName})
		return
	}

	if middleware.WantsJSON(c) {
		c.JSON(http.StatusCreated, gin.H{"comment": newCommentView(comment)})
		return
	}
	Flash(c, flashNotice, "Comment was successfully created.")
	redirect(c, postPath(postID))
}

// Destroy removes a comment. Refusals send the browser back to the post
// with an alert rather than a bare 403 page.
func (h *CommentHandler) Destroy(c *gin.Context) {
	postID, ok := idParam(c, "id")
	if !ok {
		return
	}
	commentID, ok := idParam(c, "commentId")
	if !ok {
		return
	}

	if err := h.ledger.DeleteComment(c.Request.Context(), middleware.CurrentActor(c), postID, commentID); err != nil {
		respondError(c, err, postPath(postID))
		return
	}

	if middleware.WantsJSON(c) {
		c.Status(http.StatusNoContent)
		return
	}
	Flash(c, flashNotice, "Comment was successfully destroyed.")
	redirect(c, postPath(postID))
}
