package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type QuoteInput struct {
	Symbol string `form:"symbol" json:"symbol"`
}

func (h *Handler) QuoteForm(c *gin.Context) {
	h.respond(c, http.StatusOK, "quote.html", gin.H{"Title": "Quote"}, gin.H{})
}

func (h *Handler) Quote(c *gin.Context) {
	var input QuoteInput
	if err := c.ShouldBind(&input); err != nil {
		h.badRequest(c, err)
		return
	}

	quote, err := h.svc.Quote(c.Request.Context(), input.Symbol)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.respond(c, http.StatusOK, "quoted.html", gin.H{"Title": "Quoted", "Quote": quote}, quote)
}
