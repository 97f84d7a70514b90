// test/e2e/e2e_test.go
//
// End-to-end tests over the fully wired pipeline: settings and order
// events in Redis (miniredis), an HTTP relay stub, and for the report
// flow a stubbed Elasticsearch snapshot. No external services needed.
package e2e

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"menuapp-notifier/internal/analytics"
	"menuapp-notifier/internal/common/database"
	"menuapp-notifier/internal/common/logger"
	"menuapp-notifier/internal/listener"
	"menuapp-notifier/internal/models"
	"menuapp-notifier/internal/orders"
	"menuapp-notifier/internal/relay"
	"menuapp-notifier/internal/report"
	"menuapp-notifier/internal/settings"
)

// ==========================
// Fixtures
// ==========================

var e2eScope = models.Scope{MerchantID: "merchant-e2e", BranchID: "branch-1"}

// relayStub records every payload POSTed to it and answers success.
type relayStub struct {
	mu       sync.Mutex
	payloads []map[string]interface{}
	server   *httptest.Server
}

func newRelayStub(t *testing.T) *relayStub {
	t.Helper()
	stub := &relayStub{}
	stub.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		var payload map[string]interface{}
		require.NoError(t, json.Unmarshal(body, &payload))
		stub.mu.Lock()
		stub.payloads = append(stub.payloads, payload)
		stub.mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"success": true}`))
	}))
	t.Cleanup(stub.server.Close)
	return stub
}

func (s *relayStub) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.payloads)
}

func (s *relayStub) payload(i int) map[string]interface{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.payloads[i]
}

func newRedis(t *testing.T) (*miniredis.Miniredis, *database.RedisClient) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := database.NewRedisFromClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	t.Cleanup(func() { client.Close() })
	return mr, client
}

func publishOrder(t *testing.T, rdb *database.RedisClient, order models.Order) {
	t.Helper()
	raw, err := json.Marshal(order)
	require.NoError(t, err)
	err = rdb.GetClient().Publish(context.Background(), orders.ChannelFor(e2eScope), raw).Err()
	require.NoError(t, err)
}

// ==========================
// Order notification flow
// ==========================

func TestE2E_OrderNotificationFlow(t *testing.T) {
	_, rdb := newRedis(t)
	stub := newRelayStub(t)
	log := logger.NewTestLogger(t)

	store := settings.NewRedisStore(rdb)
	require.NoError(t, store.SaveNotificationSettings(context.Background(), e2eScope, &models.NotificationSettings{
		Enabled: true,
		Email:   "owner@example.com",
	}))

	dispatcher := relay.NewClient(stub.server.URL, 5*time.Second, log)
	stream := orders.NewRedisStream(rdb, log)
	lst := listener.New(stream, store, dispatcher, log, listener.Options{})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, lst.Start(ctx, e2eScope))

	publishOrder(t, rdb, models.Order{
		OrderNumber: "E2E-100",
		Table:       3,
		Items:       []models.OrderItem{{Name: "Latte", Quantity: 2, Price: 3.5}},
		Subtotal:    7.0,
		CreatedAt:   time.Now(),
		Status:      models.OrderStatusPending,
	})

	require.Eventually(t, func() bool { return stub.count() == 1 }, 3*time.Second, 10*time.Millisecond)

	payload := stub.payload(0)
	assert.Equal(t, "order", payload["type"])
	assert.Equal(t, "owner@example.com", payload["toEmail"])
	assert.Equal(t, "E2E-100", payload["orderNumber"])
	assert.Equal(t, 7.0, payload["subtotal"])

	lst.StopAll()
}

func TestE2E_StaleAndDisabledOrdersNeverReachRelay(t *testing.T) {
	_, rdb := newRedis(t)
	stub := newRelayStub(t)
	log := logger.NewTestLogger(t)

	store := settings.NewRedisStore(rdb)
	require.NoError(t, store.SaveNotificationSettings(context.Background(), e2eScope, &models.NotificationSettings{
		Enabled: true,
		Email:   "owner@example.com",
	}))

	dispatcher := relay.NewClient(stub.server.URL, 5*time.Second, log)
	lst := listener.New(orders.NewRedisStream(rdb, log), store, dispatcher, log, listener.Options{})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, lst.Start(ctx, e2eScope))

	// Backlog replay: created well outside the freshness window.
	publishOrder(t, rdb, models.Order{
		OrderNumber: "E2E-OLD",
		Items:       []models.OrderItem{{Name: "Tea", Quantity: 1, Price: 2.0}},
		Subtotal:    2.0,
		CreatedAt:   time.Now().Add(-time.Hour),
		Status:      models.OrderStatusPending,
	})

	// A fresh one right after so we can tell processing finished.
	publishOrder(t, rdb, models.Order{
		OrderNumber: "E2E-FRESH",
		Items:       []models.OrderItem{{Name: "Mocha", Quantity: 1, Price: 4.0}},
		Subtotal:    4.0,
		CreatedAt:   time.Now(),
		Status:      models.OrderStatusPending,
	})

	require.Eventually(t, func() bool { return stub.count() == 1 }, 3*time.Second, 10*time.Millisecond)
	assert.Equal(t, "E2E-FRESH", stub.payload(0)["orderNumber"])

	lst.StopAll()
}

// ==========================
// Report flow
// ==========================

func analyticsStub(t *testing.T, body string) *analytics.ElasticsearchSource {
	t.Helper()
	transport := roundTripFunc(func(r *http.Request) (*http.Response, error) {
		header := http.Header{}
		header.Set("X-Elastic-Product", "Elasticsearch")
		header.Set("Content-Type", "application/json")
		return &http.Response{
			StatusCode: http.StatusOK,
			Header:     header,
			Body:       io.NopCloser(strings.NewReader(body)),
		}, nil
	})
	es, err := database.NewElasticsearchWithTransport([]string{"http://localhost:9200"}, transport)
	require.NoError(t, err)
	return analytics.NewElasticsearchSource(es, "sales-analytics")
}

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

func TestE2E_ReportFlow(t *testing.T) {
	_, rdb := newRedis(t)
	stub := newRelayStub(t)
	log := logger.NewTestLogger(t)

	store := settings.NewRedisStore(rdb)
	require.NoError(t, store.SaveNotificationSettings(context.Background(), e2eScope, &models.NotificationSettings{
		Enabled: true,
		Email:   "owner@example.com",
	}))

	source := analyticsStub(t, `{
		"_source": {
			"dateRangeLabel": "last 7 days",
			"totalOrders": 10,
			"totalRevenue": 120.0,
			"servedOrders": 9,
			"cancelledOrders": 1,
			"averageOrder": 12.0,
			"topItems": [{"name": "Latte", "count": 6, "revenue": 21.0}],
			"ordersByStatus": {"served": 9, "cancelled": 1, "pending": 0}
		}
	}`)

	dispatcher := relay.NewClient(stub.server.URL, 5*time.Second, log)
	svc := report.NewService(store, source, dispatcher, log, report.Options{DefaultStoreName: "Your Store"})

	out, err := svc.Execute(context.Background(), e2eScope)
	require.NoError(t, err)
	require.True(t, out.Result.Success)

	require.Equal(t, 1, stub.count())
	payload := stub.payload(0)
	assert.Equal(t, "report", payload["type"])
	assert.Equal(t, "owner@example.com", payload["toEmail"])
	assert.Equal(t, float64(10), payload["totalOrders"])

	// Zero-count buckets are elided from the status breakdown.
	buckets, ok := payload["ordersByStatus"].([]interface{})
	require.True(t, ok)
	assert.Len(t, buckets, 2)
}
