// internal/report/service.go
package report

import (
	"context"
	"fmt"
	"sort"

	"menuapp-notifier/internal/analytics"
	"menuapp-notifier/internal/common/errors"
	"menuapp-notifier/internal/common/logger"
	"menuapp-notifier/internal/common/metrics"
	"menuapp-notifier/internal/models"
	"menuapp-notifier/internal/relay"
	"menuapp-notifier/internal/settings"
)

// Service orchestrates a user-initiated sales report send: resolve the
// destination email, resolve branding, map the prebuilt aggregates into the
// relay payload, send. One linear sequence; any resolution failure aborts
// before the network call.
type Service struct {
	store            settings.Store
	source           analytics.Source
	dispatcher       relay.Dispatcher
	logger           logger.Logger
	defaultStoreName string
	topItemsLimit    int
}

type Options struct {
	DefaultStoreName string
	TopItemsLimit    int
}

func NewService(store settings.Store, source analytics.Source, dispatcher relay.Dispatcher, log logger.Logger, opts Options) *Service {
	if opts.DefaultStoreName == "" {
		opts.DefaultStoreName = "My Store"
	}
	if opts.TopItemsLimit <= 0 {
		opts.TopItemsLimit = TopItemsLimit
	}
	return &Service{
		store:            store,
		source:           source,
		dispatcher:       dispatcher,
		logger:           log.WithFields(map[string]interface{}{"component": "report"}),
		defaultStoreName: opts.DefaultStoreName,
		topItemsLimit:    opts.TopItemsLimit,
	}
}

// Execute runs the report flow for one scope. A missing destination email is
// the distinct NOT_CONFIGURED outcome, not a dispatch failure. Zero orders in
// the aggregates still send; only configuration blocks.
func (s *Service) Execute(ctx context.Context, scope models.Scope) (*Output, error) {
	cfg, err := s.store.GetNotificationSettings(ctx, scope)
	if err != nil {
		return nil, errors.NewNotConfiguredError(err.Error())
	}
	if cfg.Email == "" {
		return nil, errors.NewNotConfiguredError(fmt.Sprintf("no report email for %s", scope))
	}

	branding, err := s.store.GetBranding(ctx, scope)
	merchantName := s.defaultStoreName
	if err == nil && branding.StoreName != "" {
		merchantName = branding.StoreName
	}

	dashboard, err := s.source.GetDashboard(ctx, scope)
	if err != nil {
		return nil, err
	}

	payload := BuildPayload(dashboard, merchantName, cfg.Email, s.topItemsLimit)

	result := s.dispatcher.SendReport(ctx, payload)
	if !result.Success {
		metrics.NotificationsDispatched.WithLabelValues("report", "failure").Inc()
		s.logger.Error("report dispatch failed", map[string]interface{}{
			"scope":   scope.String(),
			"toEmail": cfg.Email,
			"error":   result.Error,
		})
	} else {
		metrics.NotificationsDispatched.WithLabelValues("report", "success").Inc()
		s.logger.Info("report sent", map[string]interface{}{
			"scope":   scope.String(),
			"toEmail": cfg.Email,
		})
	}

	return &Output{
		ToEmail:      cfg.Email,
		MerchantName: merchantName,
		Result:       result,
	}, nil
}

// BuildPayload maps dashboard aggregates into the relay's report shape.
// Top items keep the aggregator's descending-revenue order, capped at limit.
// Status buckets with a zero count are elided, not sent as zero.
func BuildPayload(dashboard *models.SalesAnalytics, merchantName, toEmail string, limit int) *relay.SalesReport {
	if limit <= 0 {
		limit = TopItemsLimit
	}

	topItems := dashboard.TopItems
	if len(topItems) > limit {
		topItems = topItems[:limit]
	}

	buckets := make([]relay.StatusCount, 0, len(dashboard.OrdersByStatus))
	for status, count := range dashboard.OrdersByStatus {
		if count == 0 {
			continue
		}
		buckets = append(buckets, relay.StatusCount{Status: status, Count: count})
	}
	sort.Slice(buckets, func(i, j int) bool {
		if buckets[i].Count != buckets[j].Count {
			return buckets[i].Count > buckets[j].Count
		}
		return buckets[i].Status < buckets[j].Status
	})

	return &relay.SalesReport{
		ToEmail:         toEmail,
		MerchantName:    merchantName,
		DateRangeLabel:  dashboard.DateRangeLabel,
		TotalOrders:     dashboard.TotalOrders,
		TotalRevenue:    dashboard.TotalRevenue,
		ServedOrders:    dashboard.ServedOrders,
		CancelledOrders: dashboard.CancelledOrders,
		AverageOrder:    dashboard.AverageOrder,
		TopItems:        topItems,
		OrdersByStatus:  buckets,
	}
}
