package handlers

import (
	"fmt"

	"stocks-trader/middleware"
	"stocks-trader/templates"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// NewRouter wires every route. loginRatePerMinute limits login and
// registration attempts per client IP, zero disables the limit.
func NewRouter(h *Handler, log *zap.Logger, loginRatePerMinute int) (*gin.Engine, error) {
	tmpl, err := templates.Parse()
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}

	router := gin.New()
	router.SetHTMLTemplate(tmpl)
	router.Use(
		middleware.RequestLogger(log),
		gin.CustomRecovery(func(c *gin.Context, recovered any) {
			h.fail(c, fmt.Errorf("panic: %v", recovered))
			c.Abort()
		}),
		middleware.NoCache(),
	)

	limit := middleware.RateLimit(loginRatePerMinute, h.tooManyRequests)

	// Public routes
	router.GET("/healthz", h.Health)
	router.GET("/login", h.LoginForm)
	router.POST("/login", limit, h.Login)
	router.GET("/logout", h.Logout)
	router.GET("/register", h.RegisterForm)
	router.POST("/register", limit, h.Register)

	// Protected routes
	auth := router.Group("/")
	auth.Use(middleware.RequireSession(h.sessions))
	{
		auth.GET("/", h.Index)
		auth.GET("/buy", h.BuyForm)
		auth.POST("/buy", h.Buy)
		auth.GET("/sell", h.SellForm)
		auth.POST("/sell", h.Sell)
		auth.GET("/history", h.History)
		auth.GET("/quote", h.QuoteForm)
		auth.POST("/quote", h.Quote)
		auth.GET("/change_password", h.ChangePasswordForm)
		auth.POST("/change_password", h.ChangePassword)
		auth.GET("/funds/add", h.AddFundsForm)
		auth.POST("/funds/add", h.AddFunds)
	}

	router.NoRoute(h.notFound)
	return router, nil
}
