// internal/settings/store.go
package settings

import (
	"context"
	"fmt"
	"time"

	"menuapp-notifier/internal/common/database"
	"menuapp-notifier/internal/common/errors"
	"menuapp-notifier/internal/models"
)

// Store reads and writes per-branch notification preference documents.
// Reads are never cached: every operation goes back to the remote document so
// a settings change in the UI takes effect on the next order.
type Store interface {
	GetNotificationSettings(ctx context.Context, scope models.Scope) (*models.NotificationSettings, error)
	SaveNotificationSettings(ctx context.Context, scope models.Scope, s *models.NotificationSettings) error
	GetBranding(ctx context.Context, scope models.Scope) (*models.Branding, error)
}

// Document fields inside the settings hash.
const (
	fieldEnabled   = "email_notifications.enabled"
	fieldEmail     = "email_notifications.email"
	fieldUpdatedAt = "email_notifications.updated_at"
	fieldStoreName = "store_name"
)

// RedisStore keeps one hash document per scope under settings:<merchant>:<branch>.
type RedisStore struct {
	redis *database.RedisClient
}

func NewRedisStore(redis *database.RedisClient) *RedisStore {
	return &RedisStore{redis: redis}
}

func settingsKey(scope models.Scope) string {
	return fmt.Sprintf("settings:%s:%s", scope.MerchantID, scope.BranchID)
}

func (s *RedisStore) GetNotificationSettings(ctx context.Context, scope models.Scope) (*models.NotificationSettings, error) {
	doc, err := s.redis.HGetAll(ctx, settingsKey(scope))
	if err != nil {
		return nil, errors.NewSettingsUnavailableError(err.Error())
	}
	if len(doc) == 0 {
		return nil, errors.NewSettingsUnavailableError(fmt.Sprintf("no settings document for %s", scope))
	}

	out := &models.NotificationSettings{
		Enabled: doc[fieldEnabled] == "true",
		Email:   doc[fieldEmail],
	}
	if raw, ok := doc[fieldUpdatedAt]; ok && raw != "" {
		if ts, err := time.Parse(time.RFC3339, raw); err == nil {
			out.UpdatedAt = ts
		}
	}

	return out, nil
}

func (s *RedisStore) SaveNotificationSettings(ctx context.Context, scope models.Scope, in *models.NotificationSettings) error {
	enabled := "false"
	if in.Enabled {
		enabled = "true"
	}

	updatedAt := in.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = time.Now().UTC()
	}

	err := s.redis.HSet(ctx, settingsKey(scope),
		fieldEnabled, enabled,
		fieldEmail, in.Email,
		fieldUpdatedAt, updatedAt.Format(time.RFC3339),
	)
	if err != nil {
		return errors.NewSettingsUnavailableError(err.Error())
	}
	return nil
}

func (s *RedisStore) GetBranding(ctx context.Context, scope models.Scope) (*models.Branding, error) {
	doc, err := s.redis.HGetAll(ctx, settingsKey(scope))
	if err != nil {
		return nil, errors.NewSettingsUnavailableError(err.Error())
	}

	// Branding falls back at the caller; an empty name is not an error.
	return &models.Branding{StoreName: doc[fieldStoreName]}, nil
}
