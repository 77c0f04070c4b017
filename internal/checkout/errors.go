package checkout

import "errors"

var (
	ErrEmptyCart          = errors.New("cart is empty, nothing to checkout")
	ErrIllegalTransition  = errors.New("illegal transition of checkout state")
	ErrSubmissionInFlight = errors.New("order submission already in progress")
)
