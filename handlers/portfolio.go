package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"

	"stocks-trader/middleware"

	"github.com/gin-gonic/gin"
)

// numberInput holds a form value, or a JSON string or raw JSON literal, as
// typed. Parsing happens in the service so every client gets the same messages.
type numberInput string

func (n *numberInput) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*n = numberInput(s)
		return nil
	}
	*n = numberInput(bytes.TrimSpace(b))
	return nil
}

type TradeInput struct {
	Symbol string      `form:"symbol" json:"symbol"`
	Shares numberInput `form:"shares" json:"shares"`
}

type FundsInput struct {
	Amount numberInput `form:"amount" json:"amount"`
}

func (h *Handler) Index(c *gin.Context) {
	portfolio, err := h.svc.Portfolio(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	h.respond(c, http.StatusOK, "index.html", gin.H{"Title": "Portfolio", "Portfolio": portfolio}, portfolio)
}

func (h *Handler) BuyForm(c *gin.Context) {
	h.respond(c, http.StatusOK, "buy.html", gin.H{"Title": "Buy"}, gin.H{})
}

func (h *Handler) Buy(c *gin.Context) {
	var input TradeInput
	if err := c.ShouldBind(&input); err != nil {
		h.badRequest(c, err)
		return
	}

	entry, err := h.svc.Buy(c.Request.Context(), middleware.UserID(c), input.Symbol, string(input.Shares))
	if err != nil {
		h.fail(c, err)
		return
	}
	h.done(c, "Bought!", gin.H{"transaction": entry})
}

// SellForm offers the symbols currently held.
func (h *Handler) SellForm(c *gin.Context) {
	holdings, err := h.svc.Holdings(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	h.respond(c, http.StatusOK, "sell.html", gin.H{"Title": "Sell", "Holdings": holdings}, gin.H{"holdings": holdings})
}

func (h *Handler) Sell(c *gin.Context) {
	var input TradeInput
	if err := c.ShouldBind(&input); err != nil {
		h.badRequest(c, err)
		return
	}

	entry, err := h.svc.Sell(c.Request.Context(), middleware.UserID(c), input.Symbol, string(input.Shares))
	if err != nil {
		h.fail(c, err)
		return
	}
	h.done(c, "Sold!", gin.H{"transaction": entry})
}

func (h *Handler) History(c *gin.Context) {
	entries, err := h.svc.History(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	h.respond(c, http.StatusOK, "history.html", gin.H{"Title": "History", "Transactions": entries}, gin.H{"transactions": entries})
}

func (h *Handler) AddFundsForm(c *gin.Context) {
	h.respond(c, http.StatusOK, "add_funds.html", gin.H{"Title": "Add Funds"}, gin.H{})
}

func (h *Handler) AddFunds(c *gin.Context) {
	var input FundsInput
	if err := c.ShouldBind(&input); err != nil {
		h.badRequest(c, err)
		return
	}

	user, err := h.svc.AddFunds(c.Request.Context(), middleware.UserID(c), string(input.Amount))
	if err != nil {
		h.fail(c, err)
		return
	}
	h.done(c, "Funded!", gin.H{"cash": user.Cash})
}
