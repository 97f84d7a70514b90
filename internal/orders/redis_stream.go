// internal/orders/redis_stream.go
package orders

import (
	"context"
	"encoding/json"
	"fmt"

	"menuapp-notifier/internal/common/database"
	"menuapp-notifier/internal/common/errors"
	"menuapp-notifier/internal/common/logger"
	"menuapp-notifier/internal/models"
)

// RedisStream receives order-created events pushed by the ordering backend on
// a per-branch pub/sub channel.
type RedisStream struct {
	redis  *database.RedisClient
	logger logger.Logger
}

func NewRedisStream(redis *database.RedisClient, log logger.Logger) *RedisStream {
	return &RedisStream{
		redis:  redis,
		logger: log.WithFields(map[string]interface{}{"component": "order-stream-redis"}),
	}
}

// ChannelFor returns the pub/sub channel name for a scope. The ordering
// backend publishes the order document as JSON on this channel at creation.
func ChannelFor(scope models.Scope) string {
	return fmt.Sprintf("orders:%s:%s", scope.MerchantID, scope.BranchID)
}

func (s *RedisStream) Subscribe(ctx context.Context, scope models.Scope) (<-chan models.OrderEvent, error) {
	pubsub := s.redis.Subscribe(ctx, ChannelFor(scope))

	// Force the subscription onto the wire before returning so a publish
	// immediately after Subscribe is not lost.
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, errors.NewStreamFailedError(err.Error())
	}

	out := make(chan models.OrderEvent)

	go func() {
		defer close(out)
		defer pubsub.Close()

		msgs := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}

				var order models.Order
				if err := json.Unmarshal([]byte(msg.Payload), &order); err != nil {
					s.logger.Warn("dropping malformed order event", map[string]interface{}{
						"scope": scope.String(),
						"error": err.Error(),
					})
					continue
				}

				select {
				case out <- models.OrderEvent{Scope: scope, Order: order}:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return out, nil
}
