package handlers

import (
	"errors"
	"net/http"

	"plaza/internal/middleware"
	"plaza/internal/models"
	"plaza/internal/services"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
)

type AuthHandler struct {
	users *services.UserService
}

func NewAuthHandler(users *services.UserService) *AuthHandler {
	return &AuthHandler{users: users}
}

type signupForm struct {
	Email    string `form:"email" json:"email"`
	Name     string `form:"name" json:"name"`
	Password string `form:"password" json:"password"`
}

type loginForm struct {
	Email    string `form:"email" json:"email"`
	Password string `form:"password" json:"password"`
}

// ShowRegister and ShowLogin only report pending flashes; the forms
// themselves live in the front end.
func (h *AuthHandler) ShowRegister(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"fields": []string{"email", "name", "password"}, "flash": Flashes(c)})
}

func (h *AuthHandler) ShowLogin(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"fields": []string{"email", "password"}, "flash": Flashes(c)})
}

func (h *AuthHandler) Register(c *gin.Context) {
	var form signupForm
	if err := c.ShouldBind(&form); err != nil {
		respondError(c, badRequest(err), "/signup")
		return
	}

	user, err := h.users.Register(c.Request.Context(), services.SignupInput{
		Email:    form.Email,
		Name:     form.Name,
		Password: form.Password,
	})
	if err != nil {
		respondInvalid(c, err, "/signup", formInput{"email": form.Email, "name": form.Name})
		return
	}

	if err := h.signIn(c, user); err != nil {
		serverError(c, err)
		return
	}
	if middleware.WantsJSON(c) {
		c.JSON(http.StatusCreated, gin.H{"user": gin.H{"id": user.ID, "name": user.Name, "role": user.Role}})
		return
	}
	Flash(c, flashNotice, "Welcome! You have signed up successfully.")
	redirect(c, "/")
}

func (h *AuthHandler) Login(c *gin.Context) {
	var form loginForm
	if err := c.ShouldBind(&form); err != nil {
		respondError(c, badRequest(err), "/login")
		return
	}

	user, err := h.users.Authenticate(c.Request.Context(), form.Email, form.Password)
	if errors.Is(err, services.ErrInvalidCredentials) {
		if middleware.WantsJSON(c) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid email or password."})
			return
		}
		Flash(c, flashAlert, "Invalid email or password.")
		redirect(c, "/login")
		return
	}
	if err != nil {
		serverError(c, err)
		return
	}

	if err := h.signIn(c, user); err != nil {
		serverError(c, err)
		return
	}
	if middleware.WantsJSON(c) {
		c.JSON(http.StatusOK, gin.H{"user": gin.H{"id": user.ID, "name": user.Name, "role": user.Role}})
		return
	}
	Flash(c, flashNotice, "Signed in successfully.")
	redirect(c, "/")
}

func (h *AuthHandler) Logout(c *gin.Context) {
	session := sessions.Default(c)
	session.Clear()
	_ = session.Save()
	Flash(c, flashNotice, "Signed out successfully.")
	c.Redirect(http.StatusFound, "/")
}

// DestroyAccount deletes the signed-in user and everything they own.
func (h *AuthHandler) DestroyAccount(c *gin.Context) {
	user := middleware.CurrentUser(c)
	if err := h.users.Destroy(c.Request.Context(), middleware.CurrentActor(c), user.ID); err != nil {
		respondError(c, err, "/")
		return
	}

	session := sessions.Default(c)
	session.Clear()
	_ = session.Save()
	if middleware.WantsJSON(c) {
		c.Status(http.StatusNoContent)
		return
	}
	Flash(c, flashNotice, "Your account has been successfully cancelled.")
	redirect(c, "/")
}

func (h *AuthHandler) signIn(c *gin.Context, user *models.User) error {
	session := sessions.Default(c)
	session.Set(middleware.SessionUserKey, user.ID)
	return session.Save()
}
