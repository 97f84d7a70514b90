// internal/models/settings.go
package models

import "time"

// NotificationSettings is a branch's email notification preference document.
// Created and overwritten by the settings UI; read by the listener and the
// report flow. Email must be non-empty when Enabled is true, enforced by the
// writer, not the store.
type NotificationSettings struct {
	Enabled   bool      `json:"enabled"`
	Email     string    `json:"email"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Configured reports whether a dispatch can actually go out.
func (s *NotificationSettings) Configured() bool {
	return s != nil && s.Enabled && s.Email != ""
}

// Branding holds the merchant-facing store identity used in report emails.
type Branding struct {
	StoreName string `json:"storeName"`
}
