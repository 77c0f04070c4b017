package checkout

import (
	"context"
	"log/slog"

	"github.com/bruttobar/pos-client/internal/domain"
)

// LogSubmitter stands in for the order endpoint: it records the order and succeeds.
type LogSubmitter struct {
	logger *slog.Logger
}

func NewLogSubmitter(logger *slog.Logger) *LogSubmitter {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogSubmitter{logger: logger}
}

func (s *LogSubmitter) Submit(ctx context.Context, order domain.Order) error {
	items := make([]slog.Attr, 0, len(order.Lines))
	for _, l := range order.Lines {
		items = append(items, slog.Group(l.ID,
			slog.String("name", l.Name),
			slog.Int("quantity", l.Quantity),
			slog.String("subtotal", l.Subtotal().String()),
		))
	}
	s.logger.LogAttrs(ctx, slog.LevelInfo, "would POST order",
		slog.String("order_id", order.ID),
		slog.String("total", order.Total.String()),
		slog.Attr{Key: "items", Value: slog.GroupValue(items...)},
	)
	return nil
}
