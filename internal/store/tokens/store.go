// Package tokens implements the device token store collaborator.
package tokens

import (
	"context"
	"database/sql"
	"fmt"

	commonerrors "family-notify/internal/common/errors"
	"family-notify/internal/common/logger"
	"family-notify/internal/common/metrics"
	"family-notify/internal/models"
)

type Store struct {
	db  *sql.DB
	log logger.Logger
}

func New(db *sql.DB, log logger.Logger) *Store {
	return &Store{
		db:  db,
		log: log.WithFields(map[string]interface{}{"store": "tokens"}),
	}
}

// ListActiveTokens returns the active push registrations for a member.
func (s *Store) ListActiveTokens(ctx context.Context, recipientID string) ([]models.DeviceToken, error) {
	query := `SELECT token, platform, is_active FROM device_tokens
		WHERE member_id = $1 AND is_active = TRUE`

	rows, err := s.db.QueryContext(ctx, query, recipientID)
	if err != nil {
		return nil, commonerrors.NewTokenStoreFailedError(fmt.Errorf("list tokens for %s: %w", recipientID, err))
	}
	defer rows.Close()

	var tokens []models.DeviceToken
	for rows.Next() {
		var t models.DeviceToken
		if err := rows.Scan(&t.Token, &t.Platform, &t.IsActive); err != nil {
			return nil, commonerrors.NewTokenStoreFailedError(fmt.Errorf("scan token row: %w", err))
		}
		tokens = append(tokens, t)
	}
	if err := rows.Err(); err != nil {
		return nil, commonerrors.NewTokenStoreFailedError(fmt.Errorf("iterate token rows: %w", err))
	}

	return tokens, nil
}

// DeactivateToken marks a registration the provider rejected as inactive.
func (s *Store) DeactivateToken(ctx context.Context, token string) error {
	query := `UPDATE device_tokens SET is_active = FALSE, deactivated_at = NOW() WHERE token = $1`

	res, err := s.db.ExecContext(ctx, query, token)
	if err != nil {
		return commonerrors.NewTokenStoreFailedError(fmt.Errorf("deactivate token: %w", err))
	}

	if n, err := res.RowsAffected(); err == nil && n > 0 {
		metrics.DeviceTokensDeactivated.Inc()
		s.log.Info("device token deactivated", map[string]interface{}{
			"token": truncateToken(token),
		})
	}
	return nil
}

// truncateToken keeps logs free of full registration tokens.
func truncateToken(token string) string {
	if len(token) <= 12 {
		return token
	}
	return token[:12] + "..."
}
