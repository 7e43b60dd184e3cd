package handlers

import (
	"net/http"

	"stocks-trader/middleware"
	"stocks-trader/models"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type CredentialsInput struct {
	Username string `form:"username" json:"username"`
	Password string `form:"password" json:"password"`
}

type RegisterInput struct {
	Username     string `form:"username" json:"username"`
	Password     string `form:"password" json:"password"`
	Confirmation string `form:"confirmation" json:"confirmation"`
}

type ChangePasswordInput struct {
	Current      string `form:"current_password" json:"current_password"`
	New          string `form:"new_password" json:"new_password"`
	Confirmation string `form:"new_password_confirmation" json:"new_password_confirmation"`
}

type sessionResponse struct {
	User  *models.User `json:"user"`
	Token string       `json:"token"`
}

// LoginForm forgets any current session and shows the login page.
func (h *Handler) LoginForm(c *gin.Context) {
	h.endSession(c)
	h.respond(c, http.StatusOK, "login.html", gin.H{"Title": "Log In"}, gin.H{})
}

func (h *Handler) Login(c *gin.Context) {
	h.endSession(c)

	var input CredentialsInput
	if err := c.ShouldBind(&input); err != nil {
		h.badRequest(c, err)
		return
	}

	user, err := h.svc.Login(c.Request.Context(), input.Username, input.Password)
	if err != nil {
		h.fail(c, err)
		return
	}
	token, err := h.startSession(c, user.ID)
	if err != nil {
		h.fail(c, err)
		return
	}

	if wantsJSON(c) {
		c.JSON(http.StatusOK, sessionResponse{User: user, Token: token})
		return
	}
	c.Redirect(http.StatusSeeOther, "/")
}

func (h *Handler) Logout(c *gin.Context) {
	h.endSession(c)
	c.Redirect(http.StatusFound, "/login")
}

func (h *Handler) RegisterForm(c *gin.Context) {
	h.respond(c, http.StatusOK, "register.html", gin.H{"Title": "Register"}, gin.H{})
}

func (h *Handler) Register(c *gin.Context) {
	var input RegisterInput
	if err := c.ShouldBind(&input); err != nil {
		h.badRequest(c, err)
		return
	}

	user, err := h.svc.Register(c.Request.Context(), input.Username, input.Password, input.Confirmation)
	if err != nil {
		h.fail(c, err)
		return
	}
	token, err := h.startSession(c, user.ID)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.done(c, "Registered!", sessionResponse{User: user, Token: token})
}

func (h *Handler) ChangePasswordForm(c *gin.Context) {
	h.respond(c, http.StatusOK, "change_password.html", gin.H{"Title": "Change Password"}, gin.H{})
}

func (h *Handler) ChangePassword(c *gin.Context) {
	var input ChangePasswordInput
	if err := c.ShouldBind(&input); err != nil {
		h.badRequest(c, err)
		return
	}

	userID := middleware.UserID(c)
	if err := h.svc.ChangePassword(c.Request.Context(), userID, input.Current, input.New, input.Confirmation); err != nil {
		h.fail(c, err)
		return
	}
	h.done(c, "Changed!", gin.H{"message": "Changed!"})
}

func (h *Handler) startSession(c *gin.Context, userID uint) (string, error) {
	token, err := h.sessions.Issue(c.Request.Context(), userID)
	if err != nil {
		return "", err
	}
	h.setCookie(c, middleware.SessionCookie, token, int(h.sessions.TTL().Seconds()), true)
	return token, nil
}

// endSession revokes the caller's token, if any, and clears the cookie.
func (h *Handler) endSession(c *gin.Context) {
	if token := middleware.SessionToken(c); token != "" {
		if err := h.sessions.Revoke(c.Request.Context(), token); err != nil {
			middleware.Logger(c).Warn("failed to revoke session", zap.Error(err))
		}
	}
	h.setCookie(c, middleware.SessionCookie, "", -1, true)
}
