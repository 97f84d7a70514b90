// internal/report/models.go
package report

import "menuapp-notifier/internal/relay"

// Output is the synchronous outcome of one report request. Result carries the
// relay's verdict; resolution failures (no email, no snapshot) never get this
// far and surface as errors instead.
type Output struct {
	ToEmail      string                `json:"toEmail"`
	MerchantName string                `json:"merchantName"`
	Result       *relay.DispatchResult `json:"result"`
}

// TopItemsLimit caps the items included in a report, keeping the email scannable.
const TopItemsLimit = 10
