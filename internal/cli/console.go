package cli

import (
	"context"
	"errors"
	"io"
	"strconv"
	"text/tabwriter"

	"github.com/bruttobar/pos-client/internal/app"
	"github.com/bruttobar/pos-client/internal/catalog"
	"github.com/bruttobar/pos-client/internal/checkout"
	"github.com/bruttobar/pos-client/internal/client"
	"github.com/bruttobar/pos-client/internal/domain"
	"github.com/prometheus/client_golang/prometheus"
)

// Console renders the app's screens as text. Each method is one user action.
type Console struct {
	app *app.App
	out io.Writer
}

func NewConsole(a *app.App, out io.Writer) *Console {
	return &Console{app: a, out: out}
}

func (c *Console) Status() {
	sess := c.app.Session.Current()
	printf(c.out, "screen: %s\n", c.app.Screen())
	if sess.Authenticated() {
		printf(c.out, "catalog: %s\n", c.app.Catalog.State().Status)
		printf(c.out, "cart: %d line(s), total %s\n", c.app.Cart.Len(), c.app.Cart.Total())
		printf(c.out, "checkout: %s\n", c.app.Checkout.State())
	}
}

func (c *Console) Login(ctx context.Context, username, password string) {
	if err := c.app.Login(ctx, username, password); err != nil {
		printf(c.out, "%s\n", loginErrorMessage(err))
		return
	}
	printf(c.out, "logged in\n")
	c.app.Wait()
	c.Catalog()
}

// loginErrorMessage is what the login form shows inline.
func loginErrorMessage(err error) string {
	var authErr *client.AuthenticationError
	if errors.As(err, &authErr) {
		return authErr.Error()
	}
	if err == nil || err.Error() == "" {
		return "Login failed"
	}
	return err.Error()
}

func (c *Console) Logout(ctx context.Context) {
	if err := c.app.Logout(ctx); err != nil {
		printf(c.out, "logout: %v\n", err)
		return
	}
	printf(c.out, "logged out\n")
}

// Catalog prints the product list, or the blocking load error in its place.
func (c *Console) Catalog() {
	if !c.requireMain() {
		return
	}
	st := c.app.Catalog.State()
	switch st.Status {
	case catalog.StatusLoading, catalog.StatusIdle:
		printf(c.out, "loading products...\n")
		return
	case catalog.StatusFailed:
		printf(c.out, "Error: %v\n", st.Err)
		return
	}

	tw := tabwriter.NewWriter(c.out, 0, 4, 2, ' ', 0)
	for _, sf := range st.Storefronts {
		for _, ev := range sf.Events {
			printf(tw, "%s / %s\n", sf.Name, ev.Name)
			for _, p := range ev.Products {
				printf(tw, "  %d\t%s\t%s\tx%d\t%s\n", p.ID, p.Name, p.Price, c.app.Cart.Quantity(p.Key()), p.DisplayImage())
			}
		}
	}
	_ = tw.Flush()
}

func (c *Console) Refresh(ctx context.Context) {
	if _, err := c.app.RefreshCatalog(ctx); err != nil {
		printf(c.out, "refresh: %v\n", err)
		return
	}
	c.Catalog()
}

func (c *Console) Add(arg string) {
	c.changeLine(arg, c.app.AddProduct)
}

func (c *Console) Remove(arg string) {
	c.changeLine(arg, c.app.RemoveProduct)
}

func (c *Console) changeLine(arg string, fn func(int64) (domain.CartLine, error)) {
	if !c.requireMain() {
		return
	}
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil {
		printf(c.out, "invalid product id %q\n", arg)
		return
	}
	line, err := fn(id)
	if err != nil {
		printf(c.out, "%v\n", err)
		return
	}
	printf(c.out, "%s x%d\n", line.Name, line.Quantity)
}

// Cart prints each line with its subtotal and the cart total.
func (c *Console) Cart() {
	lines := c.app.Cart.Lines()
	if len(lines) == 0 {
		printf(c.out, "cart is empty\n")
		return
	}
	tw := tabwriter.NewWriter(c.out, 0, 4, 2, ' ', 0)
	for _, l := range lines {
		printf(tw, "%s\t%d x %s\t%s\n", l.Name, l.Quantity, l.Price, l.Subtotal())
	}
	printf(tw, "Total\t\t%s\n", c.app.Cart.Total())
	_ = tw.Flush()
}

// Review opens the confirmation panel.
func (c *Console) Review() {
	if !c.requireMain() {
		return
	}
	if err := c.app.Checkout.OpenConfirm(); err != nil {
		if errors.Is(err, checkout.ErrEmptyCart) {
			printf(c.out, "nothing to buy\n")
			return
		}
		printf(c.out, "%v\n", err)
		return
	}
	printf(c.out, "Confirm purchase\n")
	c.Cart()
	printf(c.out, "confirm | cancel | clear\n")
}

func (c *Console) Confirm(ctx context.Context) {
	order, err := c.app.Checkout.Confirm(ctx)
	switch {
	case errors.Is(err, checkout.ErrSubmissionInFlight):
		printf(c.out, "already submitting\n")
	case errors.Is(err, checkout.ErrEmptyCart):
		printf(c.out, "cart is empty, review closed\n")
	case errors.Is(err, checkout.ErrIllegalTransition):
		printf(c.out, "open the review first (buy)\n")
	case err != nil:
		printf(c.out, "order failed: %v\nconfirm to retry, cancel to keep shopping\n", err)
	default:
		printf(c.out, "order %s placed, total %s\n", order.ID, order.Total)
	}
}

func (c *Console) Cancel() {
	if err := c.app.Checkout.Cancel(); err != nil {
		printf(c.out, "%v\n", err)
		return
	}
	printf(c.out, "review closed\n")
}

func (c *Console) Clear() {
	if err := c.app.ClearCart(); err != nil {
		printf(c.out, "%v\n", err)
		return
	}
	printf(c.out, "cart cleared\n")
}

// Stats prints the order counters gathered from reg.
func (c *Console) Stats(reg prometheus.Gatherer) {
	mfs, err := reg.Gather()
	if err != nil {
		printf(c.out, "stats: %v\n", err)
		return
	}
	var ok, failed float64
	var amount domain.Money
	for _, mf := range mfs {
		for _, m := range mf.GetMetric() {
			switch mf.GetName() {
			case "pos_orders_total":
				for _, l := range m.GetLabel() {
					if l.GetName() != "result" {
						continue
					}
					if l.GetValue() == "ok" {
						ok = m.GetCounter().GetValue()
					} else {
						failed = m.GetCounter().GetValue()
					}
				}
			case "pos_order_amount_minor_total":
				amount = domain.Money(m.GetCounter().GetValue())
			}
		}
	}
	printf(c.out, "orders: %.0f placed, %.0f failed, %s sold\n", ok, failed, amount)
}

func (c *Console) requireMain() bool {
	if c.app.Screen() != app.ScreenMain {
		printf(c.out, "not logged in (screen: %s)\n", c.app.Screen())
		return false
	}
	return true
}
