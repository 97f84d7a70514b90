// internal/relay/models.go
package relay

import "menuapp-notifier/internal/models"

// Payload type discriminators used by the relay endpoint.
const (
	PayloadTypeOrder  = "order"
	PayloadTypeReport = "report"
)

// OrderNotification is the wire payload for a new-order email.
type OrderNotification struct {
	Type        string             `json:"type"`
	ToEmail     string             `json:"toEmail"`
	StoreName   string             `json:"storeName,omitempty"`
	OrderNumber string             `json:"orderNumber"`
	Table       int                `json:"table"`
	Items       []models.OrderItem `json:"items"`
	Subtotal    float64            `json:"subtotal"`
	CreatedAt   string             `json:"createdAt"` // RFC 3339
	Status      string             `json:"status"`
}

// SalesReport is the wire payload for a sales summary email.
type SalesReport struct {
	Type            string             `json:"type"`
	ToEmail         string             `json:"toEmail"`
	MerchantName    string             `json:"merchantName"`
	DateRangeLabel  string             `json:"dateRangeLabel"`
	TotalOrders     int                `json:"totalOrders"`
	TotalRevenue    float64            `json:"totalRevenue"`
	ServedOrders    int                `json:"servedOrders"`
	CancelledOrders int                `json:"cancelledOrders"`
	AverageOrder    float64            `json:"averageOrder"`
	TopItems        []models.ItemSales `json:"topItems"`
	OrdersByStatus  []StatusCount      `json:"ordersByStatus"`
}

// StatusCount is one non-zero status bucket of the report.
type StatusCount struct {
	Status string `json:"status"`
	Count  int    `json:"count"`
}

// DispatchResult is the synchronous outcome of one delivery attempt. Delivery
// failures are values here, never Go errors: callers branch on Success.
type DispatchResult struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// relayResponse is what the relay endpoint replies with.
type relayResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}
