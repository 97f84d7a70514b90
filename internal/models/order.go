// internal/models/order.go
package models

import "time"

// Scope identifies one branch under a merchant account. Every operation takes
// it explicitly; there is no ambient merchant context.
type Scope struct {
	MerchantID string `json:"merchantId"`
	BranchID   string `json:"branchId"`
}

func (s Scope) String() string {
	return s.MerchantID + ":" + s.BranchID
}

// Order is a record in the external orders collection. Read-only here;
// immutable once created except for status transitions performed elsewhere.
type Order struct {
	OrderNumber string      `json:"orderNumber"`
	Table       int         `json:"table"`
	Items       []OrderItem `json:"items"`
	Subtotal    float64     `json:"subtotal"`
	CreatedAt   time.Time   `json:"createdAt"`
	Status      string      `json:"status"`
}

type OrderItem struct {
	Name     string  `json:"name"`
	Quantity int     `json:"quantity"`
	Price    float64 `json:"price"`
}

// Order statuses
const (
	OrderStatusPending   = "pending"
	OrderStatusServed    = "served"
	OrderStatusCancelled = "cancelled"
)

// OrderEvent is one element of the order feed: a newly created order in a
// branch's collection.
type OrderEvent struct {
	Scope Scope `json:"scope"`
	Order Order `json:"order"`
}
