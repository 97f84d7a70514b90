// internal/orders/stream.go
package orders

import (
	"context"

	"menuapp-notifier/internal/models"
)

// Stream is the order feed abstraction: a lazy, infinite sequence of
// newly-created order events for one branch. Concrete transports (Redis
// pub/sub push, Postgres polling) are swappable without touching the
// listener's filtering or dispatch logic.
//
// The returned channel closes when ctx is cancelled or the transport fails
// permanently. A subscription is not restartable; callers subscribe again.
type Stream interface {
	Subscribe(ctx context.Context, scope models.Scope) (<-chan models.OrderEvent, error)
}
