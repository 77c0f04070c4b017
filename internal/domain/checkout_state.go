package domain

type CheckoutState string

const (
	CheckoutIdle       CheckoutState = "IDLE"
	CheckoutConfirming CheckoutState = "CONFIRMING"
	CheckoutSubmitting CheckoutState = "SUBMITTING"
	CheckoutSubmitted  CheckoutState = "SUBMITTED"
)

var checkoutTransitions = map[CheckoutState][]CheckoutState{
	CheckoutIdle:       {CheckoutConfirming},
	CheckoutConfirming: {CheckoutIdle, CheckoutSubmitting},
	CheckoutSubmitting: {CheckoutSubmitted, CheckoutConfirming},
	CheckoutSubmitted:  {CheckoutIdle},
}

// CanTransitionTo reports whether the checkout flow may move from one state to another.
func CanTransitionTo(from, to CheckoutState) bool {
	for _, s := range checkoutTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// String representation (for logging)
func (s CheckoutState) String() string {
	return string(s)
}
