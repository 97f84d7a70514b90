// internal/relay/client_test.go
package relay

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"menuapp-notifier/internal/common/logger"
	"menuapp-notifier/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Test Helper Functions
// ==========================

func testOrderPayload() *OrderNotification {
	return &OrderNotification{
		ToEmail:     "m@x.com",
		OrderNumber: "A-001",
		Table:       5,
		Items: []models.OrderItem{
			{Name: "Latte", Quantity: 2, Price: 3.5},
		},
		Subtotal:  7.0,
		CreatedAt: time.Now().UTC().Add(-2 * time.Minute).Format(time.RFC3339),
		Status:    models.OrderStatusPending,
	}
}

func testReportPayload() *SalesReport {
	return &SalesReport{
		ToEmail:        "m@x.com",
		MerchantName:   "Corner Cafe",
		DateRangeLabel: "last 7 days",
		TotalOrders:    42,
		TotalRevenue:   512.5,
		ServedOrders:   40,
		AverageOrder:   12.2,
		TopItems: []models.ItemSales{
			{Name: "Latte", Count: 21, Revenue: 73.5},
		},
		OrdersByStatus: []StatusCount{
			{Status: models.OrderStatusServed, Count: 40},
			{Status: models.OrderStatusCancelled, Count: 2},
		},
	}
}

func newRelayServer(t *testing.T, status int, body string, capture *[]byte) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		if capture != nil {
			*capture = raw
		}
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
}

// ==========================
// Order Notification Tests
// ==========================

func TestClient_SendOrderNotification_Success(t *testing.T) {
	var captured []byte
	server := newRelayServer(t, http.StatusOK, `{"success":true}`, &captured)
	defer server.Close()

	client := NewClient(server.URL, time.Second, logger.NewNoOpLogger())
	result := client.SendOrderNotification(context.Background(), testOrderPayload())

	require.True(t, result.Success)
	assert.Empty(t, result.Error)

	// Wire payload carries the order fields and the type discriminator.
	var sent map[string]interface{}
	require.NoError(t, json.Unmarshal(captured, &sent))
	assert.Equal(t, "order", sent["type"])
	assert.Equal(t, "A-001", sent["orderNumber"])
	assert.Equal(t, float64(5), sent["table"])
	assert.InDelta(t, 7.0, sent["subtotal"].(float64), 0.001)

	items := sent["items"].([]interface{})
	require.Len(t, items, 1)
	assert.Equal(t, "Latte", items[0].(map[string]interface{})["name"])
}

func TestClient_SendOrderNotification_Non2xx(t *testing.T) {
	server := newRelayServer(t, http.StatusInternalServerError, `boom`, nil)
	defer server.Close()

	client := NewClient(server.URL, time.Second, logger.NewNoOpLogger())
	result := client.SendOrderNotification(context.Background(), testOrderPayload())

	require.False(t, result.Success)
	assert.NotEmpty(t, result.Error)
	assert.Contains(t, result.Error, "500")
}

func TestClient_SendOrderNotification_MalformedResponse(t *testing.T) {
	server := newRelayServer(t, http.StatusOK, `not json`, nil)
	defer server.Close()

	client := NewClient(server.URL, time.Second, logger.NewNoOpLogger())
	result := client.SendOrderNotification(context.Background(), testOrderPayload())

	require.False(t, result.Success)
	assert.NotEmpty(t, result.Error)
}

func TestClient_SendOrderNotification_RelayReportsFailure(t *testing.T) {
	server := newRelayServer(t, http.StatusOK, `{"success":false,"error":"template missing"}`, nil)
	defer server.Close()

	client := NewClient(server.URL, time.Second, logger.NewNoOpLogger())
	result := client.SendOrderNotification(context.Background(), testOrderPayload())

	require.False(t, result.Success)
	assert.Equal(t, "template missing", result.Error)
}

func TestClient_SendOrderNotification_Unreachable(t *testing.T) {
	// Reserved but closed port.
	client := NewClient("http://127.0.0.1:1", time.Second, logger.NewNoOpLogger())
	result := client.SendOrderNotification(context.Background(), testOrderPayload())

	require.False(t, result.Success)
	assert.NotEmpty(t, result.Error)
}

func TestClient_SendOrderNotification_Timeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(300 * time.Millisecond)
		_, _ = w.Write([]byte(`{"success":true}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, 50*time.Millisecond, logger.NewNoOpLogger())
	result := client.SendOrderNotification(context.Background(), testOrderPayload())

	require.False(t, result.Success)
	assert.NotEmpty(t, result.Error)
}

func TestClient_SendOrderNotification_InvalidPayloadSkipsNetwork(t *testing.T) {
	requests := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		_, _ = w.Write([]byte(`{"success":true}`))
	}))
	defer server.Close()

	payload := testOrderPayload()
	payload.ToEmail = ""

	client := NewClient(server.URL, time.Second, logger.NewNoOpLogger())
	result := client.SendOrderNotification(context.Background(), payload)

	require.False(t, result.Success)
	assert.NotEmpty(t, result.Error)
	assert.Zero(t, requests)
}

// ==========================
// Report Tests
// ==========================

func TestClient_SendReport_Success(t *testing.T) {
	var captured []byte
	server := newRelayServer(t, http.StatusOK, `{"success":true}`, &captured)
	defer server.Close()

	client := NewClient(server.URL, time.Second, logger.NewNoOpLogger())
	result := client.SendReport(context.Background(), testReportPayload())

	require.True(t, result.Success)

	var sent map[string]interface{}
	require.NoError(t, json.Unmarshal(captured, &sent))
	assert.Equal(t, "report", sent["type"])
	assert.Equal(t, "Corner Cafe", sent["merchantName"])
	assert.Equal(t, float64(42), sent["totalOrders"])
}

func TestClient_SendReport_Non2xx(t *testing.T) {
	server := newRelayServer(t, http.StatusBadGateway, ``, nil)
	defer server.Close()

	client := NewClient(server.URL, time.Second, logger.NewNoOpLogger())
	result := client.SendReport(context.Background(), testReportPayload())

	require.False(t, result.Success)
	assert.NotEmpty(t, result.Error)
}

func TestClient_SendReport_ZeroOrdersStillSends(t *testing.T) {
	server := newRelayServer(t, http.StatusOK, `{"success":true}`, nil)
	defer server.Close()

	payload := testReportPayload()
	payload.TotalOrders = 0
	payload.TotalRevenue = 0
	payload.ServedOrders = 0
	payload.AverageOrder = 0
	payload.TopItems = nil
	payload.OrdersByStatus = nil

	client := NewClient(server.URL, time.Second, logger.NewNoOpLogger())
	result := client.SendReport(context.Background(), payload)

	require.True(t, result.Success)
}
