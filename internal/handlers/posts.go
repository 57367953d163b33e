package handlers

import (
	"errors"
	"net/http"

	"plaza/internal/middleware"
	"plaza/internal/models"
	"plaza/internal/services"
	"plaza/internal/utils"

	"github.com/gin-gonic/gin"
)

type PostHandler struct {
	posts   *services.PostService
	queries *services.Queries
}

func NewPostHandler(posts *services.PostService, queries *services.Queries) *PostHandler {
	return &PostHandler{posts: posts, queries: queries}
}

type postForm struct {
	Title  *string `form:"title" json:"title"`
	Body   *string `form:"body" json:"body"`
	Status *string `form:"status" json:"status"`
}

func (f postForm) input() services.PostInput {
	in := services.PostInput{}
	if f.Title != nil {
		in.Title = *f.Title
	}
	if f.Body != nil {
		in.Body = *f.Body
	}
	if f.Status != nil {
		in.Status = models.PostStatus(*f.Status)
	}
	return in
}

func (f postForm) echo() formInput {
	input := formInput{}
	for name, v := range map[string]*string{"title": f.Title, "body": f.Body, "status": f.Status} {
		if v != nil {
			input[name] = *v
		}
	}
	return input
}

func (f postForm) changes() services.PostChanges {
	ch := services.PostChanges{Title: f.Title, Body: f.Body}
	if f.Status != nil {
		s := models.PostStatus(*f.Status)
		ch.Status = &s
	}
	return ch
}

// Index lists published posts, newest first.
func (h *PostHandler) Index(c *gin.Context) {
	limit := utils.StringToInt(c.Query("limit"))
	page, err := h.queries.ListPublished(c.Request.Context(), limit, c.Query("cursor"))
	if err != nil {
		respondError(c, err, "/posts")
		return
	}

	views := make([]postView, 0, len(page.Posts))
	for i := range page.Posts {
		views = append(views, newPostView(&page.Posts[i], false))
	}
	c.JSON(http.StatusOK, gin.H{
		"posts":       views,
		"next_cursor": page.NextCursor,
		"flash":       Flashes(c),
	})
}

// Show renders one post with its comments and the caller's like state.
func (h *PostHandler) Show(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	detail, err := h.queries.ShowPost(c.Request.Context(), middleware.CurrentActor(c), id)
	if err != nil {
		respondError(c, err, "/posts")
		return
	}

	comments := make([]commentView, 0, len(detail.Comments))
	for i := range detail.Comments {
		comments = append(comments, newCommentView(&detail.Comments[i]))
	}
	c.JSON(http.StatusOK, gin.H{
		"post":     newPostView(&detail.Post, true),
		"comments": comments,
		"likes":    newLikeView(detail.Likes),
		"flash":    Flashes(c),
	})
}

func (h *PostHandler) Create(c *gin.Context) {
	var form postForm
	if err := c.ShouldBind(&form); err != nil {
		respondError(c, badRequest(err), "/posts")
		return
	}

	post, err := h.posts.Create(c.Request.Context(), middleware.CurrentActor(c), form.input())
	if err != nil {
		respondInvalid(c, err, "/posts", form.echo())
		return
	}

	if middleware.WantsJSON(c) {
		c.JSON(http.StatusCreated, gin.H{"post": newPostView(post, true)})
		return
	}
	Flash(c, flashNotice, "Post was successfully created.")
	redirect(c, postPath(post.ID))
}

func (h *PostHandler) Update(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var form postForm
	if err := c.ShouldBind(&form); err != nil {
		respondError(c, badRequest(err), postPath(id))
		return
	}

	post, err := h.posts.Update(c.Request.Context(), middleware.CurrentActor(c), id, form.changes())
	if err != nil {
		// refused edits land on the listing, like refused deletes
		back := postPath(id)
		if errors.Is(err, services.ErrUnauthorized) {
			back = "/posts"
		}
		respondInvalid(c, err, back, form.echo())
		return
	}

	if middleware.WantsJSON(c) {
		c.JSON(http.StatusOK, gin.H{"post": newPostView(post, true)})
		return
	}
	Flash(c, flashNotice, "Post was successfully updated.")
	redirect(c, postPath(post.ID))
}

func (h *PostHandler) Destroy(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	if err := h.posts.Destroy(c.Request.Context(), middleware.CurrentActor(c), id); err != nil {
		respondError(c, err, "/posts")
		return
	}

	if middleware.WantsJSON(c) {
		c.Status(http.StatusNoContent)
		return
	}
	Flash(c, flashNotice, "Post was successfully destroyed.")
	redirect(c, "/posts")
}
