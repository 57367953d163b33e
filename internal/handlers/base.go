package handlers

import (
	"encoding/gob"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"plaza/internal/middleware"
	"plaza/internal/services"
	"plaza/internal/utils"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
)

const (
	flashNotice = "notice"
	flashAlert  = "alert"
	flashForm   = "form"

	msgUnauthorized = "You are not authorized to perform this action."
	msgNotFound     = "The page you were looking for doesn't exist."
)

// formInput is what the user submitted, kept across the redirect so a
// rejected form can be filled in again.
type formInput map[string]string

func init() {
	gob.Register(formInput{})
}

// Flash stores a message for the next request.
func Flash(c *gin.Context, kind, message string) {
	session := sessions.Default(c)
	session.AddFlash(message, kind)
	if err := session.Save(); err != nil {
		middleware.Log(c).WithError(err).Warn("save flash")
	}
}

// Flashes pops pending notices and alerts.
func Flashes(c *gin.Context) gin.H {
	session := sessions.Default(c)
	out := gin.H{}
	for _, kind := range []string{flashNotice, flashAlert} {
		var msgs []string
		for _, f := range session.Flashes(kind) {
			if s, ok := f.(string); ok {
				msgs = append(msgs, s)
			}
		}
		if len(msgs) > 0 {
			out[kind] = msgs
		}
	}
	for _, f := range session.Flashes(flashForm) {
		if input, ok := f.(formInput); ok {
			out[flashForm] = input
		}
	}
	if len(out) > 0 {
		_ = session.Save()
	}
	return out
}

// redirect after a mutation; 303 makes browsers follow with GET even for
// DELETE and PATCH forms.
func redirect(c *gin.Context, path string) {
	c.Redirect(http.StatusSeeOther, path)
}

func postPath(id uint) string {
	return fmt.Sprintf("/posts/%d", id)
}

func idParam(c *gin.Context, name string) (uint, bool) {
	id, ok := utils.ParseID(c.Param(name))
	if !ok {
		notFoundResponse(c)
	}
	return id, ok
}

func notFoundResponse(c *gin.Context) {
	if middleware.WantsJSON(c) {
		c.JSON(http.StatusNotFound, gin.H{"error": msgNotFound})
		return
	}
	c.String(http.StatusNotFound, msgNotFound)
}

// respondError maps service errors onto the response. HTML clients are sent
// back to `back` with an alert; JSON clients get a status and {error}.
func respondError(c *gin.Context, err error, back string) {
	var verr *services.ValidationError
	switch {
	case errors.As(err, &verr):
		if middleware.WantsJSON(c) {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": verr.Messages()})
			return
		}
		Flash(c, flashAlert, strings.Join(verr.Messages(), ", "))
		redirect(c, back)
	case errors.Is(err, services.ErrUnauthorized):
		if middleware.WantsJSON(c) {
			c.JSON(http.StatusForbidden, gin.H{"error": msgUnauthorized})
			return
		}
		Flash(c, flashAlert, msgUnauthorized)
		redirect(c, back)
	case errors.Is(err, services.ErrNotFound):
		notFoundResponse(c)
	default:
		serverError(c, err)
	}
}

// respondInvalid is respondError for form submissions: on a validation
// failure the submitted input goes back with the messages, in the 422 body
// for JSON clients and as a "form" flash for HTML ones.
func respondInvalid(c *gin.Context, err error, back string, input formInput) {
	var verr *services.ValidationError
	if !errors.As(err, &verr) {
		respondError(c, err, back)
		return
	}
	if middleware.WantsJSON(c) {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": verr.Messages(), "input": input})
		return
	}
	session := sessions.Default(c)
	session.AddFlash(input, flashForm)
	Flash(c, flashAlert, strings.Join(verr.Messages(), ", "))
	redirect(c, back)
}

func serverError(c *gin.Context, err error) {
	_ = c.Error(err)
	middleware.Log(c).WithError(err).Error("request failed")
	if middleware.WantsJSON(c) {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Something went wrong."})
		return
	}
	c.String(http.StatusInternalServerError, "Something went wrong.")
}

// badRequest turns a binding failure into a validation error so malformed
// bodies get the same treatment as invalid fields.
func badRequest(err error) error {
	verr := &services.ValidationError{}
	verr.Add("base", "Request could not be read: "+err.Error())
	return verr
}
