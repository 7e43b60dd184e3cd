package quotes

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"stocks-trader/models"

	"github.com/shopspring/decimal"
)

type globalQuoteResponse struct {
	GlobalQuote struct {
		Symbol string `json:"01. symbol"`
		Price  string `json:"05. price"`
	} `json:"Global Quote"`
	Note        string `json:"Note"`
	Information string `json:"Information"`
}

type symbolSearchResponse struct {
	BestMatches []struct {
		Symbol string `json:"1. symbol"`
		Name   string `json:"2. name"`
	} `json:"bestMatches"`
}

// AlphaVantage queries the Alpha Vantage GLOBAL_QUOTE and SYMBOL_SEARCH functions.
type AlphaVantage struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

func NewAlphaVantage(apiKey, baseURL string, timeout time.Duration) *AlphaVantage {
	return &AlphaVantage{
		apiKey:  apiKey,
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

func (a *AlphaVantage) Lookup(ctx context.Context, symbol string) (*models.Quote, error) {
	symbol, ok := Normalize(symbol)
	if !ok {
		return nil, ErrNotFound
	}

	var result globalQuoteResponse
	if err := a.get(ctx, url.Values{"function": {"GLOBAL_QUOTE"}, "symbol": {symbol}}, &result); err != nil {
		return nil, err
	}
	if result.Note != "" || result.Information != "" {
		return nil, fmt.Errorf("alpha vantage refused request: %s%s", result.Note, result.Information)
	}
	if result.GlobalQuote.Price == "" {
		return nil, ErrNotFound
	}
	price, err := decimal.NewFromString(result.GlobalQuote.Price)
	if err != nil {
		return nil, fmt.Errorf("parse price %q: %w", result.GlobalQuote.Price, err)
	}
	if !price.IsPositive() {
		return nil, ErrNotFound
	}

	quote := &models.Quote{
		Symbol:    symbol,
		Name:      symbol,
		Price:     price,
		FetchedAt: time.Now().UTC(),
	}
	if s := strings.ToUpper(result.GlobalQuote.Symbol); s != "" {
		quote.Symbol = s
	}
	if name := a.companyName(ctx, quote.Symbol); name != "" {
		quote.Name = name
	}
	return quote, nil
}

// companyName is best effort, the quote stays usable without it.
func (a *AlphaVantage) companyName(ctx context.Context, symbol string) string {
	var result symbolSearchResponse
	if err := a.get(ctx, url.Values{"function": {"SYMBOL_SEARCH"}, "keywords": {symbol}}, &result); err != nil {
		return ""
	}
	for _, m := range result.BestMatches {
		if strings.EqualFold(m.Symbol, symbol) {
			return m.Name
		}
	}
	return ""
}

func (a *AlphaVantage) get(ctx context.Context, params url.Values, out any) error {
	params.Set("apikey", a.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return err
	}
	resp, err := a.client.Do(req)
	if err != nil {
		return fmt.Errorf("fetch %s: %w", params.Get("function"), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("fetch %s: unexpected status %d", params.Get("function"), resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s: %w", params.Get("function"), err)
	}
	return nil
}
