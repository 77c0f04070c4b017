package app

import (
	"context"

	"github.com/bruttobar/pos-client/internal/checkout"
	"github.com/bruttobar/pos-client/internal/domain"
	"github.com/prometheus/client_golang/prometheus"
)

type instrumentedSubmitter struct {
	next   checkout.OrderSubmitter
	orders *prometheus.CounterVec
	amount prometheus.Counter
}

func newInstrumentedSubmitter(next checkout.OrderSubmitter, reg prometheus.Registerer) *instrumentedSubmitter {
	s := &instrumentedSubmitter{
		next: next,
		orders: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pos_orders_total",
			Help: "Order submissions by result.",
		}, []string{"result"}),
		amount: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pos_order_amount_minor_total",
			Help: "Sum of submitted order totals in minor units.",
		}),
	}
	reg.MustRegister(s.orders, s.amount)
	return s
}

func (s *instrumentedSubmitter) Submit(ctx context.Context, order domain.Order) error {
	if err := s.next.Submit(ctx, order); err != nil {
		s.orders.WithLabelValues("failed").Inc()
		return err
	}
	s.orders.WithLabelValues("ok").Inc()
	s.amount.Add(float64(order.Total))
	return nil
}
