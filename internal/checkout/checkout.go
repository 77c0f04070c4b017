package checkout

import (
	"context"
	"fmt"
	"log/slog"
	"reflect"
	"sync"
	"time"

	"github.com/bruttobar/pos-client/internal/domain"
	"github.com/google/uuid"
)

// Cart is the part of the cart store the flow reads and clears.
type Cart interface {
	Total() domain.Money
	Lines() []domain.CartLine
	Clear()
}

// OrderSubmitter hands a confirmed order to whatever finalizes it.
type OrderSubmitter interface {
	Submit(ctx context.Context, order domain.Order) error
}

// Flow is the review-and-confirm state machine:
//
//	IDLE --OpenConfirm--> CONFIRMING --Cancel/ClearCart--> IDLE
//	CONFIRMING --Confirm--> SUBMITTING --ok--> SUBMITTED --> IDLE
//	                        SUBMITTING --error--> CONFIRMING
type Flow struct {
	cart      Cart
	submitter OrderSubmitter
	logger    *slog.Logger
	now       func() time.Time
	newID     func() string

	mu      sync.Mutex
	state   domain.CheckoutState
	pending *domain.Order // last failed order, resubmitted with the same id
	lastErr error
}

func NewFlow(cart Cart, submitter OrderSubmitter, logger *slog.Logger) *Flow {
	if logger == nil {
		logger = slog.Default()
	}
	return &Flow{
		cart:      cart,
		submitter: submitter,
		logger:    logger,
		now:       time.Now,
		newID:     func() string { return uuid.NewString() },
		state:     domain.CheckoutIdle,
	}
}

func (f *Flow) State() domain.CheckoutState {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// LastError is the most recent submission failure, cleared once the flow leaves CONFIRMING.
func (f *Flow) LastError() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastErr
}

// OpenConfirm starts the review. Rejected with ErrEmptyCart when the total is zero.
func (f *Flow) OpenConfirm() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.state != domain.CheckoutIdle {
		return f.illegal(domain.CheckoutConfirming)
	}
	if f.cart.Total() <= 0 {
		return ErrEmptyCart
	}
	return f.transition(domain.CheckoutConfirming)
}

// Cancel closes the review without touching the cart.
func (f *Flow) Cancel() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.state != domain.CheckoutConfirming {
		return f.illegal(domain.CheckoutIdle)
	}
	f.pending = nil
	f.lastErr = nil
	return f.transition(domain.CheckoutIdle)
}

// ClearCart empties the cart and closes the review.
func (f *Flow) ClearCart() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.state != domain.CheckoutConfirming {
		return f.illegal(domain.CheckoutIdle)
	}
	f.cart.Clear()
	f.pending = nil
	f.lastErr = nil
	return f.transition(domain.CheckoutIdle)
}

// Confirm submits a snapshot of the cart. On success the cart is cleared and the flow returns to
// IDLE; on failure it returns to CONFIRMING with the cart intact. Only one submission may be
// outstanding: a second Confirm during SUBMITTING gets ErrSubmissionInFlight.
func (f *Flow) Confirm(ctx context.Context) (*domain.Order, error) {
	f.mu.Lock()
	switch f.state {
	case domain.CheckoutSubmitting:
		f.mu.Unlock()
		return nil, ErrSubmissionInFlight
	case domain.CheckoutConfirming:
	default:
		err := f.illegal(domain.CheckoutSubmitting)
		f.mu.Unlock()
		return nil, err
	}

	lines := f.cart.Lines()
	if len(lines) == 0 {
		// cart emptied behind the review panel
		f.pending = nil
		_ = f.transition(domain.CheckoutIdle)
		f.mu.Unlock()
		return nil, ErrEmptyCart
	}

	order := f.buildOrder(lines)
	_ = f.transition(domain.CheckoutSubmitting)
	f.mu.Unlock()

	f.logger.InfoContext(ctx, "submitting order", "order_id", order.ID, "lines", len(order.Lines), "total", order.Total.String())
	err := f.submitter.Submit(ctx, order)

	f.mu.Lock()
	defer f.mu.Unlock()

	if err != nil {
		f.logger.WarnContext(ctx, "order submission failed", "order_id", order.ID, "error", err)
		f.pending = &order
		f.lastErr = err
		_ = f.transition(domain.CheckoutConfirming)
		return nil, fmt.Errorf("failed to submit order %s: %w", order.ID, err)
	}

	_ = f.transition(domain.CheckoutSubmitted)
	f.cart.Clear()
	f.pending = nil
	f.lastErr = nil
	_ = f.transition(domain.CheckoutIdle)
	return &order, nil
}

// buildOrder reuses the id of a failed order when the cart is unchanged so the
// receiver can dedupe the retry.
func (f *Flow) buildOrder(lines []domain.CartLine) domain.Order {
	var total domain.Money
	for _, l := range lines {
		total += l.Subtotal()
	}

	if f.pending != nil && reflect.DeepEqual(f.pending.Lines, lines) {
		return *f.pending
	}
	return domain.Order{
		ID:        f.newID(),
		Lines:     lines,
		Total:     total,
		CreatedAt: f.now(),
	}
}

func (f *Flow) transition(to domain.CheckoutState) error {
	if !domain.CanTransitionTo(f.state, to) {
		return f.illegal(to)
	}
	f.logger.Debug("checkout transition", "from", f.state.String(), "to", to.String())
	f.state = to
	return nil
}

func (f *Flow) illegal(to domain.CheckoutState) error {
	return fmt.Errorf("%w: %s -> %s", ErrIllegalTransition, f.state, to)
}
