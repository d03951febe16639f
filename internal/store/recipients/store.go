// Package recipients resolves member identifiers to contact data.
package recipients

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"family-notify/internal/common/logger"
	"family-notify/internal/models"
)

type Store struct {
	db  *sql.DB
	log logger.Logger
}

func New(db *sql.DB, log logger.Logger) *Store {
	return &Store{
		db:  db,
		log: log.WithFields(map[string]interface{}{"store": "recipients"}),
	}
}

// GetRecipient resolves a member ID to contact data. A missing member maps to
// models.ErrRecipientNotFound; any other error is a storage failure and
// propagates unchanged.
func (s *Store) GetRecipient(ctx context.Context, id string) (*models.Recipient, error) {
	query := `SELECT id, full_name, COALESCE(phone, ''), COALESCE(email, ''), COALESCE(language, '')
		FROM members WHERE id = $1`

	var r models.Recipient
	err := s.db.QueryRowContext(ctx, query, id).Scan(&r.ID, &r.Name, &r.Phone, &r.Email, &r.Language)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrRecipientNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query recipient %s: %w", id, err)
	}

	return &r, nil
}
