// internal/relay/ses.go
package relay

import (
	"context"
	"fmt"
	"strings"

	"menuapp-notifier/internal/common/logger"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
)

// SESService is the slice of the SES API we use, extracted for mocking.
type SESService interface {
	SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

// SESDispatcher sends notification emails directly through SES for
// deployments that bypass the HTTP relay function. Same contract as Client:
// one attempt, outcome as a DispatchResult value.
type SESDispatcher struct {
	client    SESService
	fromEmail string
	logger    logger.Logger
}

func NewSESDispatcher(ctx context.Context, region, fromEmail string, log logger.Logger) (*SESDispatcher, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}

	return &SESDispatcher{
		client:    ses.NewFromConfig(awsCfg),
		fromEmail: fromEmail,
		logger:    log.WithFields(map[string]interface{}{"component": "relay-ses"}),
	}, nil
}

// NewSESDispatcherWithClient wires an explicit SES client (tests use this).
func NewSESDispatcherWithClient(client SESService, fromEmail string, log logger.Logger) *SESDispatcher {
	return &SESDispatcher{
		client:    client,
		fromEmail: fromEmail,
		logger:    log.WithFields(map[string]interface{}{"component": "relay-ses"}),
	}
}

func (d *SESDispatcher) SendOrderNotification(ctx context.Context, payload *OrderNotification) *DispatchResult {
	payload.Type = PayloadTypeOrder
	if err := validatePayload(PayloadTypeOrder, payload); err != nil {
		return &DispatchResult{Success: false, Error: err.Error()}
	}

	subject := fmt.Sprintf("New order %s", payload.OrderNumber)
	return d.send(ctx, payload.ToEmail, subject, formatOrderBody(payload))
}

func (d *SESDispatcher) SendReport(ctx context.Context, payload *SalesReport) *DispatchResult {
	payload.Type = PayloadTypeReport
	if err := validatePayload(PayloadTypeReport, payload); err != nil {
		return &DispatchResult{Success: false, Error: err.Error()}
	}

	subject := fmt.Sprintf("%s — sales report %s", payload.MerchantName, payload.DateRangeLabel)
	return d.send(ctx, payload.ToEmail, subject, formatReportBody(payload))
}

func (d *SESDispatcher) send(ctx context.Context, to, subject, body string) *DispatchResult {
	input := &ses.SendEmailInput{
		Source: aws.String(d.fromEmail),
		Destination: &types.Destination{
			ToAddresses: []string{to},
		},
		Message: &types.Message{
			Subject: &types.Content{
				Data:    aws.String(subject),
				Charset: aws.String("UTF-8"),
			},
			Body: &types.Body{
				Text: &types.Content{
					Data:    aws.String(body),
					Charset: aws.String("UTF-8"),
				},
			},
		},
	}

	if _, err := d.client.SendEmail(ctx, input); err != nil {
		d.logger.Warn("ses send failed", map[string]interface{}{
			"to":    to,
			"error": err.Error(),
		})
		return &DispatchResult{Success: false, Error: fmt.Sprintf("ses send failed: %v", err)}
	}

	return &DispatchResult{Success: true}
}

func formatOrderBody(p *OrderNotification) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Order %s", p.OrderNumber)
	if p.Table > 0 {
		fmt.Fprintf(&b, " (table %d)", p.Table)
	}
	b.WriteString("\n\n")
	for _, item := range p.Items {
		fmt.Fprintf(&b, "%dx %s — %.2f\n", item.Quantity, item.Name, item.Price)
	}
	fmt.Fprintf(&b, "\nSubtotal: %.2f\n", p.Subtotal)
	fmt.Fprintf(&b, "Placed at: %s\n", p.CreatedAt)
	return b.String()
}

func formatReportBody(p *SalesReport) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Sales report for %s (%s)\n\n", p.MerchantName, p.DateRangeLabel)
	fmt.Fprintf(&b, "Total orders: %d\n", p.TotalOrders)
	fmt.Fprintf(&b, "Total revenue: %.2f\n", p.TotalRevenue)
	fmt.Fprintf(&b, "Served: %d, cancelled: %d\n", p.ServedOrders, p.CancelledOrders)
	fmt.Fprintf(&b, "Average order: %.2f\n", p.AverageOrder)

	if len(p.TopItems) > 0 {
		b.WriteString("\nTop items:\n")
		for _, item := range p.TopItems {
			fmt.Fprintf(&b, "  %s — %d sold, %.2f\n", item.Name, item.Count, item.Revenue)
		}
	}

	if len(p.OrdersByStatus) > 0 {
		b.WriteString("\nOrders by status:\n")
		for _, bucket := range p.OrdersByStatus {
			fmt.Fprintf(&b, "  %s: %d\n", bucket.Status, bucket.Count)
		}
	}

	return b.String()
}
