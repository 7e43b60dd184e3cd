package handlers

import (
	"errors"
	"net/http"

	"stocks-trader/middleware"
	"stocks-trader/services"
	"stocks-trader/session"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const flashCookie = "flash"

// Handler serves the HTML pages and their JSON counterparts.
type Handler struct {
	svc          *services.Service
	sessions     *session.Manager
	cookieSecure bool
}

func New(svc *services.Service, sessions *session.Manager, cookieSecure bool) *Handler {
	return &Handler{svc: svc, sessions: sessions, cookieSecure: cookieSecure}
}

// respond renders page for browsers and payload for clients asking for JSON.
func (h *Handler) respond(c *gin.Context, status int, page string, data gin.H, payload any) {
	c.Negotiate(status, gin.Negotiate{
		Offered:  []string{gin.MIMEHTML, gin.MIMEJSON},
		HTMLName: page,
		HTMLData: h.page(c, data),
		JSONData: payload,
	})
}

// page adds the values the layout needs. The flash message is read once.
func (h *Handler) page(c *gin.Context, data gin.H) gin.H {
	if data == nil {
		data = gin.H{}
	}
	_, loggedIn := middleware.CurrentUser(c)
	data["LoggedIn"] = loggedIn
	if msg, err := c.Cookie(flashCookie); err == nil && msg != "" {
		data["Flash"] = msg
		h.setCookie(c, flashCookie, "", -1, false)
	}
	return data
}

func wantsJSON(c *gin.Context) bool {
	return c.NegotiateFormat(gin.MIMEHTML, gin.MIMEJSON) == gin.MIMEJSON
}

// done finishes a successful form post: JSON clients get payload, browsers
// are sent home with a flash message.
func (h *Handler) done(c *gin.Context, flash string, payload any) {
	if wantsJSON(c) {
		c.JSON(http.StatusOK, payload)
		return
	}
	h.setCookie(c, flashCookie, flash, 60, true)
	c.Redirect(http.StatusSeeOther, "/")
}

func (h *Handler) fail(c *gin.Context, err error) {
	status, message := statusFor(err)
	if status == http.StatusInternalServerError {
		middleware.Logger(c).Error("request failed", zap.Error(err))
		_ = c.Error(err)
	}
	h.apology(c, status, message)
}

func (h *Handler) apology(c *gin.Context, status int, message string) {
	h.respond(c, status, "apology.html",
		gin.H{"Title": "Error", "Code": status, "Message": message},
		gin.H{"error": message})
}

func (h *Handler) tooManyRequests(c *gin.Context) {
	h.apology(c, http.StatusTooManyRequests, "too many requests")
}

func (h *Handler) notFound(c *gin.Context) {
	h.apology(c, http.StatusNotFound, "page not found")
}

func (h *Handler) badRequest(c *gin.Context, err error) {
	middleware.Logger(c).Debug("malformed request", zap.Error(err))
	h.fail(c, &services.Error{Kind: services.ErrValidation, Message: "malformed request"})
}

// statusFor maps a service error to an HTTP status and the message shown to the user.
func statusFor(err error) (int, string) {
	var e *services.Error
	if !errors.As(err, &e) {
		return http.StatusInternalServerError, "internal server error"
	}
	if errors.Is(e.Kind, services.ErrAuth) {
		return http.StatusForbidden, e.Message
	}
	return http.StatusBadRequest, e.Message
}

func (h *Handler) setCookie(c *gin.Context, name, value string, maxAge int, httpOnly bool) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(name, value, maxAge, "/", "", h.cookieSecure, httpOnly)
}

// Health pings the database.
func (h *Handler) Health(c *gin.Context) {
	if err := h.svc.Ping(c.Request.Context()); err != nil {
		middleware.Logger(c).Error("health check failed", zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
