package session

import (
	"errors"
	"fmt"
)

var (
	ErrUnexpectedAnswer = errors.New("unexpected answer")
	ErrDuplicateOffer   = errors.New("offer after remote description was accepted")
	ErrOfferInFlight    = errors.New("offer already in flight")
	ErrOfferDropped     = errors.New("offer dropped after retries")
	ErrSignalingClosed  = errors.New("signaling connection closed")
	ErrClosed           = errors.New("session closed")
)

// Error records the negotiation step that failed.
type Error struct {
	Op      string
	Err     error
	Details string
}

func (e *Error) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s: %v (%s)", e.Op, e.Err, e.Details)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func NewError(op string, err error) *Error {
	return &Error{Op: op, Err: err}
}

func WrapError(op string, err error, details string) *Error {
	return &Error{Op: op, Err: err, Details: details}
}
