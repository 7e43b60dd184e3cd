package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"stocks-trader/database/dbtest"
	"stocks-trader/models"
	"stocks-trader/quotes"
	"stocks-trader/services"
	"stocks-trader/session"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type testApp struct {
	router *gin.Engine
	quotes *quotes.Static
}

func newTestApp(t *testing.T, loginRate int) *testApp {
	t.Helper()
	gw := quotes.NewStatic(
		models.Quote{Symbol: "AAPL", Name: "Apple Inc.", Price: decimal.NewFromInt(150)},
		models.Quote{Symbol: "MSFT", Name: "Microsoft Corporation", Price: decimal.NewFromInt(300)},
	)
	svc := services.New(dbtest.Open(t), gw, nil, zap.NewNop(), services.Options{
		StartingCash: decimal.NewFromInt(10000),
		BcryptCost:   bcrypt.MinCost,
	})
	sessions := session.NewManager("test-secret", time.Hour, session.NewMemoryStore())
	router, err := NewRouter(New(svc, sessions, false), zap.NewNop(), loginRate)
	require.NoError(t, err)
	return &testApp{router: router, quotes: gw}
}

// browser keeps cookies between requests the way a user agent would.
type browser struct {
	app     *testApp
	cookies map[string]*http.Cookie
}

func (a *testApp) browser() *browser {
	return &browser{app: a, cookies: map[string]*http.Cookie{}}
}

func (b *browser) do(method, path string, form url.Values) *httptest.ResponseRecorder {
	var body *strings.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	} else {
		body = strings.NewReader("")
	}
	req := httptest.NewRequest(method, path, body)
	req.Header.Set("Accept", "text/html")
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	for _, c := range b.cookies {
		req.AddCookie(c)
	}

	rec := httptest.NewRecorder()
	b.app.router.ServeHTTP(rec, req)
	for _, c := range rec.Result().Cookies() {
		if c.MaxAge < 0 || c.Value == "" {
			delete(b.cookies, c.Name)
			continue
		}
		b.cookies[c.Name] = c
	}
	return rec
}

func (a *testApp) api(method, path, token string, payload any) *httptest.ResponseRecorder {
	var body bytes.Buffer
	if payload != nil {
		_ = json.NewEncoder(&body).Encode(payload)
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	req.RemoteAddr = "192.0.2.1:1234"
	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func register(t *testing.T, a *testApp, username string) string {
	t.Helper()
	rec := a.api(http.MethodPost, "/register", "", gin.H{
		"username": username, "password": "pw", "confirmation": "pw",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	resp := decode[struct {
		User  models.User `json:"user"`
		Token string      `json:"token"`
	}](t, rec)
	require.NotEmpty(t, resp.Token)
	assert.Equal(t, username, resp.User.Username)
	return resp.Token
}

func TestProtectedRoutesRedirectToLogin(t *testing.T) {
	app := newTestApp(t, 0)
	for _, path := range []string{"/", "/buy", "/sell", "/history", "/quote", "/change_password", "/funds/add"} {
		rec := app.browser().do(http.MethodGet, path, nil)
		assert.Equal(t, http.StatusFound, rec.Code, path)
		assert.Equal(t, "/login", rec.Header().Get("Location"), path)
	}

	rec := app.api(http.MethodGet, "/", "not-a-token", nil)
	assert.Equal(t, http.StatusFound, rec.Code)
}

func TestBrowserRegisterBuyAndSell(t *testing.T) {
	app := newTestApp(t, 0)
	b := app.browser()

	rec := b.do(http.MethodPost, "/register", url.Values{
		"username": {"alice"}, "password": {"pw"}, "confirmation": {"pw"},
	})
	require.Equal(t, http.StatusSeeOther, rec.Code, rec.Body.String())
	assert.Equal(t, "/", rec.Header().Get("Location"))
	require.Contains(t, b.cookies, "session")

	rec = b.do(http.MethodGet, "/", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Registered!")
	assert.Contains(t, rec.Body.String(), "$10,000.00")

	// The flash message is shown once.
	rec = b.do(http.MethodGet, "/", nil)
	assert.NotContains(t, rec.Body.String(), "Registered!")

	rec = b.do(http.MethodPost, "/buy", url.Values{"symbol": {"aapl"}, "shares": {"10"}})
	require.Equal(t, http.StatusSeeOther, rec.Code, rec.Body.String())

	rec = b.do(http.MethodGet, "/", nil)
	body := rec.Body.String()
	assert.Contains(t, body, "Bought!")
	assert.Contains(t, body, "Apple Inc.")
	assert.Contains(t, body, "$1,500.00")
	assert.Contains(t, body, "$8,500.00")

	rec = b.do(http.MethodGet, "/sell", nil)
	assert.Contains(t, rec.Body.String(), `value="AAPL"`)

	rec = b.do(http.MethodPost, "/sell", url.Values{"symbol": {"AAPL"}, "shares": {"4"}})
	require.Equal(t, http.StatusSeeOther, rec.Code, rec.Body.String())

	rec = b.do(http.MethodGet, "/history", nil)
	body = rec.Body.String()
	assert.Contains(t, body, "Bought")
	assert.Contains(t, body, "Sold")
	assert.Contains(t, body, "$150.00")
}

func TestBrowserErrorsRenderApology(t *testing.T) {
	app := newTestApp(t, 0)
	b := app.browser()
	b.do(http.MethodPost, "/register", url.Values{
		"username": {"alice"}, "password": {"pw"}, "confirmation": {"pw"},
	})

	rec := b.do(http.MethodPost, "/buy", url.Values{"symbol": {"AAPL"}, "shares": {"1000"}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "not enough funds")

	rec = b.do(http.MethodPost, "/quote", url.Values{"symbol": {"NOPE"}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid symbol")

	rec = b.do(http.MethodPost, "/quote", url.Values{"symbol": {"msft"}})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Microsoft Corporation (MSFT) costs $300.00")

	rec = app.browser().do(http.MethodPost, "/login", url.Values{"username": {"alice"}, "password": {"wrong"}})
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid username and/or password")
}

func TestAPITradingFlow(t *testing.T) {
	app := newTestApp(t, 0)
	token := register(t, app, "alice")

	rec := app.api(http.MethodPost, "/buy", token, gin.H{"symbol": "AAPL", "shares": 10})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	bought := decode[struct {
		Transaction models.Transaction `json:"transaction"`
	}](t, rec)
	assert.Equal(t, int64(10), bought.Transaction.Shares)
	assert.True(t, bought.Transaction.PricePerShare.Equal(decimal.NewFromInt(150)))

	rec = app.api(http.MethodPost, "/sell", token, gin.H{"symbol": "AAPL", "shares": "3"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	app.quotes.Set(models.Quote{Symbol: "AAPL", Name: "Apple Inc.", Price: decimal.NewFromInt(200)})

	rec = app.api(http.MethodGet, "/", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	portfolio := decode[models.Portfolio](t, rec)
	require.Len(t, portfolio.Positions, 1)
	assert.Equal(t, int64(7), portfolio.Positions[0].TotalShares)
	assert.True(t, portfolio.Positions[0].MarketValue.Equal(decimal.NewFromInt(1400)))
	assert.True(t, portfolio.Cash.Equal(decimal.NewFromInt(8950)), "cash = %s", portfolio.Cash)
	assert.True(t, portfolio.Total.Equal(decimal.NewFromInt(10350)), "total = %s", portfolio.Total)

	rec = app.api(http.MethodGet, "/history", token, nil)
	history := decode[struct {
		Transactions []models.Transaction `json:"transactions"`
	}](t, rec)
	require.Len(t, history.Transactions, 2)
	assert.Equal(t, int64(-3), history.Transactions[1].Shares)

	rec = app.api(http.MethodPost, "/funds/add", token, gin.H{"amount": "50.5"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	funded := decode[struct {
		Cash decimal.Decimal `json:"cash"`
	}](t, rec)
	assert.True(t, funded.Cash.Equal(decimal.RequireFromString("9000.5")))
}

func TestAPIErrors(t *testing.T) {
	app := newTestApp(t, 0)
	token := register(t, app, "alice")

	cases := []struct {
		name    string
		path    string
		payload gin.H
		status  int
		message string
	}{
		{"fractional shares", "/buy", gin.H{"symbol": "AAPL", "shares": 1.5}, http.StatusBadRequest, "shares must be a positive integer"},
		{"zero shares", "/buy", gin.H{"symbol": "AAPL", "shares": 0}, http.StatusBadRequest, "shares must be a positive integer"},
		{"non-numeric shares", "/buy", gin.H{"symbol": "AAPL", "shares": "abc"}, http.StatusBadRequest, "shares must be a positive integer"},
		{"null shares", "/sell", gin.H{"symbol": "AAPL", "shares": nil}, http.StatusBadRequest, "shares must be a positive integer"},
		{"non-numeric amount", "/funds/add", gin.H{"amount": "lots"}, http.StatusBadRequest, "amount must be a positive real number"},
		{"amount beyond the cash column", "/funds/add", gin.H{"amount": "10000000000000000"}, http.StatusBadRequest, "balance would exceed the maximum"},
		{"password too long", "/change_password", gin.H{"current_password": "pw", "new_password": strings.Repeat("x", 73), "new_password_confirmation": strings.Repeat("x", 73)}, http.StatusBadRequest, "password too long"},
		{"unknown symbol", "/buy", gin.H{"symbol": "ZZZZ", "shares": 1}, http.StatusBadRequest, "invalid symbol"},
		{"oversell", "/sell", gin.H{"symbol": "AAPL", "shares": 1}, http.StatusBadRequest, "you can't sell less than 0 or more than you own"},
		{"negative funds", "/funds/add", gin.H{"amount": -5}, http.StatusBadRequest, "amount must be a positive real number"},
		{"wrong password", "/change_password", gin.H{"current_password": "nope", "new_password": "a", "new_password_confirmation": "a"}, http.StatusForbidden, "invalid password"},
		{"duplicate user", "/register", gin.H{"username": "alice", "password": "pw", "confirmation": "pw"}, http.StatusBadRequest, "username taken"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := app.api(http.MethodPost, tc.path, token, tc.payload)
			assert.Equal(t, tc.status, rec.Code, rec.Body.String())
			assert.Equal(t, tc.message, decode[map[string]string](t, rec)["error"])
		})
	}

	rec := app.api(http.MethodPost, "/login", "", gin.H{"username": "", "password": ""})
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "must provide username", decode[map[string]string](t, rec)["error"])
}

func TestLogoutRevokesSession(t *testing.T) {
	app := newTestApp(t, 0)
	token := register(t, app, "alice")

	rec := app.api(http.MethodGet, "/", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = app.api(http.MethodGet, "/logout", token, nil)
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/login", rec.Header().Get("Location"))

	rec = app.api(http.MethodGet, "/", token, nil)
	assert.Equal(t, http.StatusFound, rec.Code)
}

func TestLoginAfterPasswordChange(t *testing.T) {
	app := newTestApp(t, 0)
	token := register(t, app, "alice")

	rec := app.api(http.MethodPost, "/change_password", token, gin.H{
		"current_password": "pw", "new_password": "new", "new_password_confirmation": "new",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = app.api(http.MethodPost, "/login", "", gin.H{"username": "alice", "password": "pw"})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = app.api(http.MethodPost, "/login", "", gin.H{"username": "alice", "password": "new"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	resp := decode[struct {
		Token string `json:"token"`
	}](t, rec)

	rec = app.api(http.MethodGet, "/", resp.Token, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestResponsesAreNotCached(t *testing.T) {
	app := newTestApp(t, 0)
	rec := app.browser().do(http.MethodGet, "/login", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "no-cache, no-store, must-revalidate", rec.Header().Get("Cache-Control"))
	assert.Equal(t, "0", rec.Header().Get("Expires"))
	assert.Equal(t, "no-cache", rec.Header().Get("Pragma"))
}

func TestLoginRateLimit(t *testing.T) {
	app := newTestApp(t, 2)
	creds := gin.H{"username": "nobody", "password": "x"}

	assert.Equal(t, http.StatusForbidden, app.api(http.MethodPost, "/login", "", creds).Code)
	assert.Equal(t, http.StatusForbidden, app.api(http.MethodPost, "/login", "", creds).Code)

	rec := app.api(http.MethodPost, "/login", "", creds)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "too many requests", decode[map[string]string](t, rec)["error"])
}

func TestHealthAndNotFound(t *testing.T) {
	app := newTestApp(t, 0)

	rec := app.api(http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", decode[map[string]string](t, rec)["status"])

	rec = app.api(http.MethodGet, "/nope", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestStatusFor(t *testing.T) {
	cases := []struct {
		err     error
		status  int
		message string
	}{
		{&services.Error{Kind: services.ErrAuth, Message: "invalid password"}, http.StatusForbidden, "invalid password"},
		{&services.Error{Kind: services.ErrInsufficientFunds, Message: "not enough funds"}, http.StatusBadRequest, "not enough funds"},
		{&services.Error{Kind: services.ErrConflict, Message: "username taken"}, http.StatusBadRequest, "username taken"},
		{errors.New("connection refused"), http.StatusInternalServerError, "internal server error"},
	}
	for _, tc := range cases {
		status, message := statusFor(tc.err)
		assert.Equal(t, tc.status, status)
		assert.Equal(t, tc.message, message)
	}
}
