// Package postgres persists linked GitHub accounts in PostgreSQL.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/devfolio/ghprofile"
)

// Schema is the table this store expects.
const Schema = `
CREATE TABLE IF NOT EXISTS linked_accounts (
	id            uuid PRIMARY KEY DEFAULT gen_random_uuid(),
	user_id       bigint NOT NULL UNIQUE,
	github_id     bigint NOT NULL,
	login         text NOT NULL,
	access_token  text NOT NULL,
	refresh_token text NOT NULL DEFAULT '',
	scope         text NOT NULL DEFAULT '',
	linked_at     timestamptz NOT NULL
);`

// DBTX is satisfied by *pgx.Conn, *pgxpool.Pool, and pgx.Tx.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func New(db DBTX) *Store {
	return &Store{db: db}
}

type Store struct {
	db DBTX
}

const upsertLinkedAccount = `
INSERT INTO linked_accounts (user_id, github_id, login, access_token, refresh_token, scope, linked_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)
ON CONFLICT (user_id) DO UPDATE SET
	github_id = EXCLUDED.github_id,
	login = EXCLUDED.login,
	access_token = EXCLUDED.access_token,
	refresh_token = EXCLUDED.refresh_token,
	scope = EXCLUDED.scope,
	linked_at = EXCLUDED.linked_at
RETURNING id`

func (s *Store) UpsertLinkedAccount(ctx context.Context, a ghprofile.LinkedAccount) (uuid.UUID, error) {
	linkedAt := a.LinkedAt
	if linkedAt.IsZero() {
		linkedAt = time.Now().UTC()
	}

	var id pgtype.UUID
	err := s.db.QueryRow(ctx, upsertLinkedAccount,
		a.UserID, a.GithubID, a.Login, a.AccessToken, a.RefreshToken, a.Scope,
		timestampToPGTYPE(linkedAt),
	).Scan(&id)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to upsert linked account: %w", err)
	}
	return uuidFromPGTYPE(id), nil
}

const getLinkedAccount = `
SELECT user_id, github_id, login, access_token, refresh_token, scope, linked_at
FROM linked_accounts
WHERE user_id = $1`

func (s *Store) GetLinkedAccount(ctx context.Context, userID int64) (*ghprofile.LinkedAccount, error) {
	var (
		a        ghprofile.LinkedAccount
		linkedAt pgtype.Timestamptz
	)
	err := s.db.QueryRow(ctx, getLinkedAccount, userID).Scan(
		&a.UserID, &a.GithubID, &a.Login, &a.AccessToken, &a.RefreshToken, &a.Scope, &linkedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ghprofile.ErrNoLinkedAccount
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get linked account: %w", err)
	}
	a.LinkedAt = linkedAt.Time
	return &a, nil
}

const deleteLinkedAccount = `
DELETE FROM linked_accounts
WHERE user_id = $1`

func (s *Store) DeleteLinkedAccount(ctx context.Context, userID int64) error {
	tag, err := s.db.Exec(ctx, deleteLinkedAccount, userID)
	if err != nil {
		return fmt.Errorf("failed to delete linked account: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ghprofile.ErrNoLinkedAccount
	}
	return nil
}

func uuidFromPGTYPE(id pgtype.UUID) uuid.UUID {
	return uuid.UUID(id.Bytes)
}

func timestampToPGTYPE(ts time.Time) pgtype.Timestamptz {
	return pgtype.Timestamptz{
		Time:  ts,
		Valid: true,
	}
}

var _ ghprofile.LinkStore = (*Store)(nil)
