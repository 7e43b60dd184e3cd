package quotes

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"stocks-trader/models"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v2"
)

type staticFile struct {
	Quotes []struct {
		Symbol string `yaml:"symbol"`
		Name   string `yaml:"name"`
		Price  string `yaml:"price"`
	} `yaml:"quotes"`
}

// Static serves quotes from a fixed table. Prices can be changed at runtime with Set.
type Static struct {
	mu     sync.RWMutex
	quotes map[string]models.Quote
}

func NewStatic(quotes ...models.Quote) *Static {
	s := &Static{quotes: make(map[string]models.Quote, len(quotes))}
	for _, q := range quotes {
		s.Set(q)
	}
	return s
}

// LoadStatic reads a YAML quote table:
//
//	quotes:
//	  - symbol: AAPL
//	    name: Apple Inc.
//	    price: "150.00"
func LoadStatic(path string) (*Static, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var f staticFile
	if err := yaml.Unmarshal(content, &f); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	s := NewStatic()
	for _, entry := range f.Quotes {
		price, err := decimal.NewFromString(entry.Price)
		if err != nil {
			return nil, fmt.Errorf("parse %s: price of %s: %w", path, entry.Symbol, err)
		}
		if !price.IsPositive() {
			return nil, fmt.Errorf("parse %s: price of %s must be positive, got %s", path, entry.Symbol, price)
		}
		s.Set(models.Quote{Symbol: entry.Symbol, Name: entry.Name, Price: price})
	}
	return s, nil
}

func (s *Static) Set(q models.Quote) {
	symbol, _ := Normalize(q.Symbol)
	q.Symbol = symbol
	if q.Name == "" {
		q.Name = symbol
	}
	s.mu.Lock()
	s.quotes[symbol] = q
	s.mu.Unlock()
}

func (s *Static) Delete(symbol string) {
	symbol, _ = Normalize(symbol)
	s.mu.Lock()
	delete(s.quotes, symbol)
	s.mu.Unlock()
}

func (s *Static) Lookup(_ context.Context, symbol string) (*models.Quote, error) {
	symbol, ok := Normalize(symbol)
	if !ok {
		return nil, ErrNotFound
	}
	s.mu.RLock()
	q, found := s.quotes[symbol]
	s.mu.RUnlock()
	if !found {
		return nil, ErrNotFound
	}
	q.FetchedAt = time.Now().UTC()
	return &q, nil
}
