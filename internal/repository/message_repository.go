package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/jalvirtual/acars-dispatch/internal/domain"
	"github.com/jalvirtual/acars-dispatch/pkg/logger"
)

// MessageRepository keeps the message log as one document per namespace in
// the acars_store table.
type MessageRepository struct {
	db        *sqlx.DB
	namespace string
}

func NewMessageRepository(db *sqlx.DB, namespace string) *MessageRepository {
	if namespace == "" {
		namespace = Namespace
	}
	return &MessageRepository{db: db, namespace: namespace}
}

type storeRow struct {
	Namespace string    `db:"namespace"`
	Payload   string    `db:"payload"`
	UpdatedAt time.Time `db:"updated_at"`
}

func (r *MessageRepository) LoadMessages(ctx context.Context) ([]domain.ACARSMessage, error) {
	query := `
		SELECT namespace, payload, updated_at
		FROM acars_store
		WHERE namespace = ?
	`

	var row storeRow
	if err := r.db.GetContext(ctx, &row, r.db.Rebind(query), r.namespace); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load messages: %w", err)
	}

	messages, dropped, err := DecodeMessages([]byte(row.Payload))
	if err != nil {
		return nil, err
	}
	if dropped > 0 {
		logger.Warnf("Discarded %d unreadable records from namespace %q", dropped, r.namespace)
	}

	return messages, nil
}

// SaveMessages replaces the stored document with messages.
func (r *MessageRepository) SaveMessages(ctx context.Context, messages []domain.ACARSMessage) error {
	payload, err := EncodeMessages(messages)
	if err != nil {
		return err
	}

	query := `
		REPLACE INTO acars_store (namespace, payload, updated_at)
		VALUES (?, ?, ?)
	`

	if _, err := r.db.ExecContext(ctx, r.db.Rebind(query), r.namespace, string(payload), time.Now().UTC()); err != nil {
		return fmt.Errorf("failed to save messages: %w", err)
	}

	return nil
}

// UpdatedAt reports when the namespace was last written. The zero time means
// nothing has been saved yet.
func (r *MessageRepository) UpdatedAt(ctx context.Context) (time.Time, error) {
	query := `SELECT updated_at FROM acars_store WHERE namespace = ?`

	var updatedAt time.Time
	if err := r.db.GetContext(ctx, &updatedAt, r.db.Rebind(query), r.namespace); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return time.Time{}, nil
		}
		return time.Time{}, fmt.Errorf("failed to read store timestamp: %w", err)
	}

	return updatedAt, nil
}

func (r *MessageRepository) PingContext(ctx context.Context) error {
	return r.db.PingContext(ctx)
}
