// internal/listener/listener.go
package listener

import (
	"context"
	"sync"
	"time"

	"menuapp-notifier/internal/common/logger"
	"menuapp-notifier/internal/common/metrics"
	"menuapp-notifier/internal/models"
	"menuapp-notifier/internal/orders"
	"menuapp-notifier/internal/relay"
	"menuapp-notifier/internal/settings"

	"github.com/google/uuid"
)

// DefaultFreshnessWindow bounds how old an order may be and still trigger a
// notification. Reconnects replay historical inserts; anything older than
// this is treated as backfill and skipped.
const DefaultFreshnessWindow = 5 * time.Minute

// Listener watches per-branch order feeds and triggers at most one
// notification attempt per detected order. Dispatch failures are logged and
// counted, never retried; the listener itself survives indefinitely.
type Listener struct {
	stream          orders.Stream
	store           settings.Store
	dispatcher      relay.Dispatcher
	logger          logger.Logger
	freshness       time.Duration
	dispatchTimeout time.Duration
	now             func() time.Time

	mu   sync.Mutex
	subs map[string]*subscription
	wg   sync.WaitGroup
}

// subscription identifies one live feed; the pointer doubles as the identity
// token the run loop uses to detect it was replaced.
type subscription struct {
	cancel context.CancelFunc
}

type Options struct {
	FreshnessWindow time.Duration
	DispatchTimeout time.Duration
}

func New(stream orders.Stream, store settings.Store, dispatcher relay.Dispatcher, log logger.Logger, opts Options) *Listener {
	if opts.FreshnessWindow <= 0 {
		opts.FreshnessWindow = DefaultFreshnessWindow
	}
	if opts.DispatchTimeout <= 0 {
		opts.DispatchTimeout = 15 * time.Second
	}
	return &Listener{
		stream:          stream,
		store:           store,
		dispatcher:      dispatcher,
		logger:          log.WithFields(map[string]interface{}{"component": "order-listener"}),
		freshness:       opts.FreshnessWindow,
		dispatchTimeout: opts.DispatchTimeout,
		now:             time.Now,
		subs:            make(map[string]*subscription),
	}
}

// Start subscribes to the scope's order feed. Idempotent per scope: starting
// an already-watched scope replaces the prior subscription; there is never
// more than one live subscription per scope.
func (l *Listener) Start(ctx context.Context, scope models.Scope) error {
	l.mu.Lock()
	if prev, ok := l.subs[scope.String()]; ok {
		prev.cancel()
		delete(l.subs, scope.String())
		metrics.ActiveSubscriptions.Dec()
	}

	subCtx, cancel := context.WithCancel(ctx)
	events, err := l.stream.Subscribe(subCtx, scope)
	if err != nil {
		cancel()
		l.mu.Unlock()
		return err
	}

	sub := &subscription{cancel: cancel}
	l.subs[scope.String()] = sub
	metrics.ActiveSubscriptions.Inc()
	l.mu.Unlock()

	l.logger.Info("subscription started", map[string]interface{}{
		"scope": scope.String(),
	})

	l.wg.Add(1)
	go l.run(scope, sub, events)

	return nil
}

// Stop cancels the scope's subscription. No-op when not started. In-flight
// dispatches already spawned are allowed to complete.
func (l *Listener) Stop(scope models.Scope) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if sub, ok := l.subs[scope.String()]; ok {
		sub.cancel()
		delete(l.subs, scope.String())
		metrics.ActiveSubscriptions.Dec()
		l.logger.Info("subscription stopped", map[string]interface{}{
			"scope": scope.String(),
		})
	}
}

// StopAll cancels every subscription and waits for the feed loops (not the
// in-flight dispatches) to wind down.
func (l *Listener) StopAll() {
	l.mu.Lock()
	for key, sub := range l.subs {
		sub.cancel()
		delete(l.subs, key)
		metrics.ActiveSubscriptions.Dec()
	}
	l.mu.Unlock()

	l.wg.Wait()
}

func (l *Listener) run(scope models.Scope, sub *subscription, events <-chan models.OrderEvent) {
	defer l.wg.Done()

	for ev := range events {
		l.handleEvent(ev)
	}

	// Feed closed (cancelled or transport failure). Drop the registry entry
	// only if it still points at this subscription; a replacement keeps its own.
	l.mu.Lock()
	if current, ok := l.subs[scope.String()]; ok && current == sub {
		delete(l.subs, scope.String())
		metrics.ActiveSubscriptions.Dec()
	}
	l.mu.Unlock()

	l.logger.Info("order feed closed", map[string]interface{}{
		"scope": scope.String(),
	})
}

// handleEvent applies the freshness filter, then hands the order to an
// independent dispatch goroutine. Events in a burst are processed
// concurrently; they share no mutable state.
func (l *Listener) handleEvent(ev models.OrderEvent) {
	age := l.now().Sub(ev.Order.CreatedAt)
	if age > l.freshness {
		metrics.OrdersSkipped.WithLabelValues("stale").Inc()
		l.logger.Debug("skipping stale order", map[string]interface{}{
			"scope":       ev.Scope.String(),
			"orderNumber": ev.Order.OrderNumber,
			"age":         age.String(),
		})
		return
	}

	l.wg.Add(1)
	go func() {
		defer l.wg.Done()
		l.dispatch(ev)
	}()
}

// dispatch resolves settings and makes exactly one delivery attempt. It runs
// on its own context so stopping the subscription never cancels a send that
// already started.
func (l *Listener) dispatch(ev models.OrderEvent) {
	ctx, cancelTimeout := context.WithTimeout(context.Background(), l.dispatchTimeout)
	defer cancelTimeout()

	cfg, err := l.store.GetNotificationSettings(ctx, ev.Scope)
	if err != nil {
		// Fail-safe default: unreadable settings mean "notifications off".
		metrics.OrdersSkipped.WithLabelValues("settings_unavailable").Inc()
		l.logger.Info("settings unavailable, skipping order", map[string]interface{}{
			"scope":       ev.Scope.String(),
			"orderNumber": ev.Order.OrderNumber,
			"error":       err.Error(),
		})
		return
	}

	if !cfg.Enabled {
		metrics.OrdersSkipped.WithLabelValues("disabled").Inc()
		return
	}
	if cfg.Email == "" {
		metrics.OrdersSkipped.WithLabelValues("no_email").Inc()
		return
	}

	storeName := ""
	if branding, err := l.store.GetBranding(ctx, ev.Scope); err == nil {
		storeName = branding.StoreName
	}

	dispatchID := uuid.New().String()
	payload := &relay.OrderNotification{
		ToEmail:     cfg.Email,
		StoreName:   storeName,
		OrderNumber: ev.Order.OrderNumber,
		Table:       ev.Order.Table,
		Items:       ev.Order.Items,
		Subtotal:    ev.Order.Subtotal,
		CreatedAt:   ev.Order.CreatedAt.UTC().Format(time.RFC3339),
		Status:      ev.Order.Status,
	}

	result := l.dispatcher.SendOrderNotification(ctx, payload)
	if !result.Success {
		metrics.NotificationsDispatched.WithLabelValues("order", "failure").Inc()
		l.logger.Error("order notification failed", map[string]interface{}{
			"scope":       ev.Scope.String(),
			"orderNumber": ev.Order.OrderNumber,
			"dispatchId":  dispatchID,
			"error":       result.Error,
		})
		return
	}

	metrics.NotificationsDispatched.WithLabelValues("order", "success").Inc()
	l.logger.Info("order notification sent", map[string]interface{}{
		"scope":       ev.Scope.String(),
		"orderNumber": ev.Order.OrderNumber,
		"dispatchId":  dispatchID,
		"toEmail":     cfg.Email,
	})
}
