// internal/models/analytics.go
package models

// SalesAnalytics is the prebuilt dashboard aggregate this service consumes.
// An external aggregator computes and stores it; nothing here recomputes it.
type SalesAnalytics struct {
	DateRangeLabel  string         `json:"dateRangeLabel"`
	TotalOrders     int            `json:"totalOrders"`
	TotalRevenue    float64        `json:"totalRevenue"`
	ServedOrders    int            `json:"servedOrders"`
	CancelledOrders int            `json:"cancelledOrders"`
	AverageOrder    float64        `json:"averageOrder"`
	TopItems        []ItemSales    `json:"topItems"`       // descending by revenue, as supplied
	OrdersByStatus  map[string]int `json:"ordersByStatus"` // status -> count, zero counts included
}

// ItemSales is one row of the top-items aggregate.
type ItemSales struct {
	Name    string  `json:"name"`
	Count   int     `json:"count"`
	Revenue float64 `json:"revenue"`
}
