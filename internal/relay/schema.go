// internal/relay/schema.go
package relay

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// Outgoing payloads are validated before the network call so a malformed
// build fails loudly here instead of as an opaque relay rejection.

const orderSchema = `{
	"type": "object",
	"required": ["type", "toEmail", "orderNumber", "items", "subtotal", "createdAt"],
	"properties": {
		"type": {"type": "string", "enum": ["order"]},
		"toEmail": {"type": "string", "minLength": 3},
		"storeName": {"type": "string"},
		"orderNumber": {"type": "string", "minLength": 1},
		"table": {"type": "integer", "minimum": 0},
		"items": {
			"type": "array",
			"items": {
				"type": "object",
				"required": ["name", "quantity", "price"],
				"properties": {
					"name": {"type": "string", "minLength": 1},
					"quantity": {"type": "integer", "minimum": 1},
					"price": {"type": "number", "minimum": 0}
				}
			}
		},
		"subtotal": {"type": "number", "minimum": 0},
		"createdAt": {"type": "string", "minLength": 1},
		"status": {"type": "string"}
	}
}`

const reportSchema = `{
	"type": "object",
	"required": ["type", "toEmail", "merchantName", "dateRangeLabel", "totalOrders", "totalRevenue"],
	"properties": {
		"type": {"type": "string", "enum": ["report"]},
		"toEmail": {"type": "string", "minLength": 3},
		"merchantName": {"type": "string", "minLength": 1},
		"dateRangeLabel": {"type": "string"},
		"totalOrders": {"type": "integer", "minimum": 0},
		"totalRevenue": {"type": "number", "minimum": 0},
		"servedOrders": {"type": "integer", "minimum": 0},
		"cancelledOrders": {"type": "integer", "minimum": 0},
		"averageOrder": {"type": "number", "minimum": 0},
		"topItems": {
			"type": "array",
			"maxItems": 10,
			"items": {
				"type": "object",
				"required": ["name", "count", "revenue"],
				"properties": {
					"name": {"type": "string", "minLength": 1},
					"count": {"type": "integer", "minimum": 0},
					"revenue": {"type": "number", "minimum": 0}
				}
			}
		},
		"ordersByStatus": {
			"type": "array",
			"items": {
				"type": "object",
				"required": ["status", "count"],
				"properties": {
					"status": {"type": "string", "minLength": 1},
					"count": {"type": "integer", "minimum": 1}
				}
			}
		}
	}
}`

var payloadSchemas = map[string]*gojsonschema.Schema{}

func init() {
	for kind, raw := range map[string]string{
		PayloadTypeOrder:  orderSchema,
		PayloadTypeReport: reportSchema,
	} {
		schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(raw))
		if err != nil {
			panic(fmt.Sprintf("relay: invalid embedded %s schema: %v", kind, err))
		}
		payloadSchemas[kind] = schema
	}
}

func validatePayload(kind string, payload interface{}) error {
	schema, ok := payloadSchemas[kind]
	if !ok {
		return fmt.Errorf("unknown payload kind %q", kind)
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	result, err := schema.Validate(gojsonschema.NewBytesLoader(raw))
	if err != nil {
		return fmt.Errorf("validate payload: %w", err)
	}

	if !result.Valid() {
		msgs := make([]string, 0, len(result.Errors()))
		for _, desc := range result.Errors() {
			msgs = append(msgs, desc.String())
		}
		return fmt.Errorf("invalid %s payload: %s", kind, strings.Join(msgs, "; "))
	}

	return nil
}
