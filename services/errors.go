package services

import "errors"

// Error kinds. Every error returned to a caller because of bad input or a
// violated business rule wraps exactly one of them.
var (
	ErrValidation         = errors.New("validation error")
	ErrInvalidSymbol      = errors.New("invalid symbol")
	ErrInvalidQuantity    = errors.New("invalid quantity")
	ErrInsufficientFunds  = errors.New("insufficient funds")
	ErrInsufficientShares = errors.New("insufficient shares")
	ErrAuth               = errors.New("authentication failed")
	ErrConflict           = errors.New("conflict")
)

// Error is a user facing failure. Message is safe to show to the user.
type Error struct {
	Kind    error
	Message string
}

func (e *Error) Error() string { return e.Message }
func (e *Error) Unwrap() error { return e.Kind }

func fail(kind error, message string) error {
	return &Error{Kind: kind, Message: message}
}

// IsUserError reports whether err carries one of the error kinds above.
func IsUserError(err error) bool {
	var e *Error
	return errors.As(err, &e)
}
