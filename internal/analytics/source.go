// internal/analytics/source.go
package analytics

import (
	"context"
	"encoding/json"
	"fmt"

	"menuapp-notifier/internal/common/database"
	"menuapp-notifier/internal/common/errors"
	"menuapp-notifier/internal/models"
)

// Source provides the prebuilt sales aggregates the report flow consumes.
// The aggregation itself happens in an external service; this side only
// fetches the latest snapshot.
type Source interface {
	GetDashboard(ctx context.Context, scope models.Scope) (*models.SalesAnalytics, error)
}

// ElasticsearchSource reads the latest analytics snapshot document for a
// scope. The external aggregator indexes one document per scope, id
// "<merchant>:<branch>".
type ElasticsearchSource struct {
	es    *database.ElasticsearchClient
	index string
}

func NewElasticsearchSource(es *database.ElasticsearchClient, index string) *ElasticsearchSource {
	if index == "" {
		index = "sales-analytics"
	}
	return &ElasticsearchSource{es: es, index: index}
}

func (s *ElasticsearchSource) GetDashboard(ctx context.Context, scope models.Scope) (*models.SalesAnalytics, error) {
	res, err := s.es.Client.Get(
		s.index,
		scope.String(),
		s.es.Client.Get.WithContext(ctx),
	)
	if err != nil {
		return nil, errors.NewAnalyticsUnavailableError(err.Error())
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, errors.NewAnalyticsUnavailableError(
			fmt.Sprintf("snapshot lookup for %s returned %s", scope, res.Status()),
		)
	}

	var doc struct {
		Source models.SalesAnalytics `json:"_source"`
	}
	if err := json.NewDecoder(res.Body).Decode(&doc); err != nil {
		return nil, errors.NewAnalyticsUnavailableError(fmt.Sprintf("decode snapshot: %v", err))
	}

	return &doc.Source, nil
}
