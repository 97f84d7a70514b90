// internal/orders/postgres_stream.go
package orders

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"menuapp-notifier/internal/common/errors"
	"menuapp-notifier/internal/common/logger"
	"menuapp-notifier/internal/models"
)

const pollQuery = `
SELECT order_number, table_no, items, subtotal, status, created_at
FROM orders
WHERE merchant_id = $1 AND branch_id = $2 AND created_at > $3
ORDER BY created_at ASC`

// PostgresStream approximates a push feed by polling the orders table for
// rows created after a per-subscription high-water mark. Used by deployments
// without a Redis broker in front of the orders collection.
type PostgresStream struct {
	db       *sql.DB
	interval time.Duration
	logger   logger.Logger
	now      func() time.Time
}

func NewPostgresStream(db *sql.DB, interval time.Duration, log logger.Logger) *PostgresStream {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	return &PostgresStream{
		db:       db,
		interval: interval,
		logger:   log.WithFields(map[string]interface{}{"component": "order-stream-postgres"}),
		now:      time.Now,
	}
}

func (s *PostgresStream) Subscribe(ctx context.Context, scope models.Scope) (<-chan models.OrderEvent, error) {
	if err := s.db.PingContext(ctx); err != nil {
		return nil, errors.NewStreamFailedError(err.Error())
	}

	out := make(chan models.OrderEvent)

	go func() {
		defer close(out)

		// Only orders created after subscription start are emitted; history
		// is never replayed into the feed.
		highWater := s.now().UTC()

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				events, newHighWater, err := s.poll(ctx, scope, highWater)
				if err != nil {
					s.logger.Warn("order poll failed", map[string]interface{}{
						"scope": scope.String(),
						"error": err.Error(),
					})
					continue
				}
				highWater = newHighWater

				for _, ev := range events {
					select {
					case out <- ev:
					case <-ctx.Done():
						return
					}
				}
			}
		}
	}()

	return out, nil
}

// poll fetches orders created after highWater and advances the mark.
func (s *PostgresStream) poll(ctx context.Context, scope models.Scope, highWater time.Time) ([]models.OrderEvent, time.Time, error) {
	rows, err := s.db.QueryContext(ctx, pollQuery, scope.MerchantID, scope.BranchID, highWater)
	if err != nil {
		return nil, highWater, err
	}
	defer rows.Close()

	var events []models.OrderEvent
	for rows.Next() {
		var (
			order    models.Order
			rawItems []byte
		)
		if err := rows.Scan(&order.OrderNumber, &order.Table, &rawItems, &order.Subtotal, &order.Status, &order.CreatedAt); err != nil {
			return nil, highWater, err
		}
		if len(rawItems) > 0 {
			if err := json.Unmarshal(rawItems, &order.Items); err != nil {
				s.logger.Warn("dropping order with malformed items", map[string]interface{}{
					"orderNumber": order.OrderNumber,
					"error":       err.Error(),
				})
				continue
			}
		}

		if order.CreatedAt.After(highWater) {
			highWater = order.CreatedAt
		}
		events = append(events, models.OrderEvent{Scope: scope, Order: order})
	}

	return events, highWater, rows.Err()
}
