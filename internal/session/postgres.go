package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/gofrs/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
)

type postgresStore struct {
	db *pgxpool.Pool
}

// NewPostgresStore keeps each session as a JSONB snapshot in storefront.sessions.
func NewPostgresStore(db *pgxpool.Pool) Store {
	return &postgresStore{db: db}
}

func (r *postgresStore) Create(ctx context.Context, s *Session) error {
	snapshot, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("repository: failed to encode session %s: %w", s.ID, err)
	}

	query := `
		INSERT INTO storefront.sessions (id, user_id, data, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err = r.db.Exec(ctx, query, s.ID, s.UserID, snapshot, s.CreatedAt, s.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return ErrDuplicate
		}
		log.Error().Err(err).Stringer("session_id", s.ID).Msg("repository: failed to insert session")
		return fmt.Errorf("repository: failed to insert session %s: %w", s.ID, err)
	}
	return nil
}

func (r *postgresStore) Get(ctx context.Context, id uuid.UUID) (*Session, error) {
	query := `
		SELECT data
		FROM storefront.sessions
		WHERE id = $1
	`

	var snapshot []byte
	err := r.db.QueryRow(ctx, query, id).Scan(&snapshot)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("repository: failed to select session %s: %w", id, err)
	}

	var s Session
	if err := json.Unmarshal(snapshot, &s); err != nil {
		return nil, fmt.Errorf("repository: failed to decode session %s: %w", id, err)
	}
	return &s, nil
}

func (r *postgresStore) Save(ctx context.Context, s *Session) error {
	snapshot, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("repository: failed to encode session %s: %w", s.ID, err)
	}

	query := `
		UPDATE storefront.sessions
		SET user_id = $1, data = $2, updated_at = $3
		WHERE id = $4
	`
	cmdTag, err := r.db.Exec(ctx, query, s.UserID, snapshot, s.UpdatedAt, s.ID)
	if err != nil {
		log.Error().Err(err).Stringer("session_id", s.ID).Msg("repository: failed to update session")
		return fmt.Errorf("repository: failed to update session %s: %w", s.ID, err)
	}
	if cmdTag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *postgresStore) Delete(ctx context.Context, id uuid.UUID) error {
	cmdTag, err := r.db.Exec(ctx, `DELETE FROM storefront.sessions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("repository: failed to delete session %s: %w", id, err)
	}
	if cmdTag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *postgresStore) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	cmdTag, err := r.db.Exec(ctx, `DELETE FROM storefront.sessions WHERE updated_at < $1`, before)
	if err != nil {
		return 0, fmt.Errorf("repository: failed to delete expired sessions: %w", err)
	}
	return cmdTag.RowsAffected(), nil
}
