// Package quotes looks up stock prices from external sources.
package quotes

import (
	"context"
	"errors"
	"regexp"
	"strings"

	"stocks-trader/models"
)

// ErrNotFound is returned when the source has no quote for the symbol.
var ErrNotFound = errors.New("quote not found")

// Gateway is the external quote source. Implementations must be safe for
// concurrent use.
type Gateway interface {
	Lookup(ctx context.Context, symbol string) (*models.Quote, error)
}

var symbolPattern = regexp.MustCompile(`^[A-Z0-9][A-Z0-9.\-]{0,14}$`)

// Normalize trims and upper-cases a user supplied ticker. It returns false when
// the result cannot be a ticker at all.
func Normalize(symbol string) (string, bool) {
	s := strings.ToUpper(strings.TrimSpace(symbol))
	return s, symbolPattern.MatchString(s)
}
