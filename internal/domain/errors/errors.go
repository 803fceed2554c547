package errors

import (
	"errors"
	"fmt"
)

var (
	ErrAlreadyExists         = errors.New("already exists")
	ErrNotFound              = errors.New("not found")
	ErrTransitionRejected    = errors.New("transition rejected")
	ErrNothingToProcess      = errors.New("nothing to process")
	ErrPaymentAlreadyCreated = errors.New("payment already created")
	ErrPaymentNotCreated     = errors.New("payment not created")
	ErrInvalidCallback       = errors.New("invalid callback")
)

// TransitionError reports a status change refused because the order was not in an allowed state.
type TransitionError struct {
	OrderID int64
	From    string
	To      string
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("order %d: cannot move from %s to %s", e.OrderID, e.From, e.To)
}

func (e *TransitionError) Unwrap() error {
	return ErrTransitionRejected
}
