package usermeta

import (
	"context"
	"embed"
	"errors"
	"io/fs"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/byteai/builder/pkg/pg"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// Migrations returns the goose migrations for PostgresStore.
func Migrations() fs.FS {
	sub, err := fs.Sub(migrationFiles, "migrations")
	if err != nil {
		panic(err)
	}
	return sub
}

// PostgresStore keeps both documents as jsonb columns and merges with ||,
// which replaces top-level keys only.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const (
	selectUserSQL = `SELECT public, private FROM user_metadata WHERE user_id = $1`

	upsertUserSQL = `
INSERT INTO user_metadata (user_id, public, private)
VALUES ($1, $2::jsonb, $3::jsonb)
ON CONFLICT (user_id) DO UPDATE SET
    public     = user_metadata.public || EXCLUDED.public,
    private    = user_metadata.private || EXCLUDED.private,
    updated_at = now()`

	listUsersSQL = `SELECT user_id FROM user_metadata ORDER BY user_id`
)

func (s *PostgresStore) GetUser(ctx context.Context, userID string) (*User, error) {
	if userID == "" {
		return nil, ErrEmptyUserID
	}

	var pubRaw, privRaw []byte
	err := s.pool.QueryRow(ctx, selectUserSQL, userID).Scan(&pubRaw, &privRaw)
	if pg.IsNotFoundError(err) {
		return newUser(userID), nil
	}
	if err != nil {
		return nil, errors.Join(ErrFetchFailed, err)
	}

	public, err := parseDocument(pubRaw)
	if err != nil {
		return nil, errors.Join(ErrFetchFailed, err)
	}
	private, err := parseDocument(privRaw)
	if err != nil {
		return nil, errors.Join(ErrFetchFailed, err)
	}
	return &User{ID: userID, PublicMetadata: public, PrivateMetadata: private}, nil
}

func (s *PostgresStore) UpdateUserMetadata(ctx context.Context, userID string, upd Update) error {
	if userID == "" {
		return ErrEmptyUserID
	}
	pub, err := marshalDocument(upd.Public)
	if err != nil {
		return errors.Join(ErrUpdateFailed, err)
	}
	priv, err := marshalDocument(upd.Private)
	if err != nil {
		return errors.Join(ErrUpdateFailed, err)
	}
	if _, err := s.pool.Exec(ctx, upsertUserSQL, userID, string(pub), string(priv)); err != nil {
		return errors.Join(ErrUpdateFailed, err)
	}
	return nil
}

func (s *PostgresStore) ListUserIDs(ctx context.Context, fn func(string) error) error {
	rows, err := s.pool.Query(ctx, listUsersSQL)
	if err != nil {
		return errors.Join(ErrListFailed, err)
	}
	// collect first so fn may use the pool without holding this connection
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return errors.Join(ErrListFailed, err)
		}
		ids = append(ids, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return errors.Join(ErrListFailed, err)
	}

	for _, id := range ids {
		if err := fn(id); err != nil {
			return err
		}
	}
	return nil
}
