package publisher

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/bruttobar/pos-client/internal/domain"
	"github.com/segmentio/kafka-go"
)

const eventTypeOrderConfirmed = "pos.order_confirmed"

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// OrderPublisher submits confirmed orders to a Kafka topic, keyed by order id.
type OrderPublisher struct {
	writer  messageWriter
	timeout time.Duration
	logger  *slog.Logger
}

func NewOrderPublisher(topic string, logger *slog.Logger, brokers ...string) *OrderPublisher {
	w := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireAll,
		AllowAutoTopicCreation: true,
	}
	return newOrderPublisher(w, logger)
}

func newOrderPublisher(w messageWriter, logger *slog.Logger) *OrderPublisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &OrderPublisher{writer: w, timeout: 5 * time.Second, logger: logger}
}

type orderLine struct {
	ProductID string `json:"product_id"`
	Name      string `json:"name"`
	Quantity  int    `json:"quantity"`
	UnitPrice string `json:"unit_price"`
	Subtotal  string `json:"subtotal"`
}

type orderPayload struct {
	OrderID     string      `json:"order_id"`
	Lines       []orderLine `json:"lines"`
	TotalAmount string      `json:"total_amount"`
	CreatedAt   time.Time   `json:"created_at"`
}

func (p *OrderPublisher) Submit(ctx context.Context, order domain.Order) error {
	payload := orderPayload{
		OrderID:     order.ID,
		Lines:       make([]orderLine, 0, len(order.Lines)),
		TotalAmount: order.Total.String(),
		CreatedAt:   order.CreatedAt,
	}
	for _, l := range order.Lines {
		payload.Lines = append(payload.Lines, orderLine{
			ProductID: l.ID,
			Name:      l.Name,
			Quantity:  l.Quantity,
			UnitPrice: l.Price.String(),
			Subtotal:  l.Subtotal().String(),
		})
	}

	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal order payload: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(order.ID),
		Value: payloadJSON,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(eventTypeOrderConfirmed)},
		},
	}

	writeCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()
	if err := p.writer.WriteMessages(writeCtx, msg); err != nil {
		return fmt.Errorf("failed to publish order: %w", err)
	}

	p.logger.InfoContext(ctx, "order published", "order_id", order.ID)
	return nil
}

func (p *OrderPublisher) Close() error {
	return p.writer.Close()
}
