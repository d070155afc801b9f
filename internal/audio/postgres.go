package audio

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/fe2audio/service/internal/db"
)

// PostgresStore keeps each profile as a row whose uploads column is a JSONB array.
type PostgresStore struct {
	h *db.Handle
}

// NewPostgresStore creates a store backed by the given database handle.
func NewPostgresStore(h *db.Handle) *PostgresStore {
	return &PostgresStore{h: h}
}

// linkFilter builds the JSONB containment operand matching a record by link.
func linkFilter(link string) []map[string]string {
	return []map[string]string{{"audioLink": link}}
}

// Append upserts the profile and pushes rec with a single statement, so two
// first uploads racing for the same identity still end up in one row.
func (s *PostgresStore) Append(ctx context.Context, identity string, rec Record) (*Profile, error) {
	pool, err := s.h.Pool(ctx)
	if err != nil {
		return nil, err
	}

	p := &Profile{}
	err = pool.QueryRow(ctx,
		`INSERT INTO user_profiles (identity, uploads)
		 VALUES ($1, $2::jsonb)
		 ON CONFLICT (identity) DO UPDATE
		   SET uploads = user_profiles.uploads || EXCLUDED.uploads,
		       updated_at = NOW()
		 RETURNING identity, uploads, created_at, updated_at`,
		identity, []Record{rec},
	).Scan(&p.Identity, &p.Uploads, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("append upload: %w", err)
	}
	return p, nil
}

// Profile fetches the whole document for identity.
func (s *PostgresStore) Profile(ctx context.Context, identity string) (*Profile, error) {
	pool, err := s.h.Pool(ctx)
	if err != nil {
		return nil, err
	}

	p := &Profile{}
	err = pool.QueryRow(ctx,
		`SELECT identity, uploads, created_at, updated_at
		 FROM user_profiles WHERE identity = $1`,
		identity,
	).Scan(&p.Identity, &p.Uploads, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrProfileNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get profile: %w", err)
	}
	return p, nil
}

// FindByLink locates the profile holding link via the GIN-indexed containment
// operator. When several profiles hold it the lowest identity wins.
func (s *PostgresStore) FindByLink(ctx context.Context, link string) (string, *Record, error) {
	pool, err := s.h.Pool(ctx)
	if err != nil {
		return "", nil, err
	}

	var (
		identity string
		uploads  []Record
	)
	err = pool.QueryRow(ctx,
		`SELECT identity, uploads FROM user_profiles
		 WHERE uploads @> $1::jsonb
		 ORDER BY identity
		 LIMIT 1`,
		linkFilter(link),
	).Scan(&identity, &uploads)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", nil, ErrRecordNotFound
	}
	if err != nil {
		return "", nil, fmt.Errorf("find by link: %w", err)
	}

	i := indexOf(uploads, link)
	if i < 0 {
		return "", nil, ErrRecordNotFound
	}
	return identity, &uploads[i], nil
}

// Update rewrites the uploads array under a row lock.
func (s *PostgresStore) Update(ctx context.Context, identity, link string, p Patch) (*Record, error) {
	var updated Record
	err := s.modify(ctx, identity, link, func(uploads []Record) ([]Record, error) {
		i := indexOf(uploads, link)
		if i < 0 {
			return nil, ErrRecordNotFound
		}
		p.apply(&uploads[i])
		updated = uploads[i]
		return uploads, nil
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

// Remove pulls every record with link from identity's profile.
func (s *PostgresStore) Remove(ctx context.Context, identity, link string) (int, error) {
	var removed int
	err := s.modify(ctx, identity, link, func(uploads []Record) ([]Record, error) {
		var kept []Record
		kept, removed = withoutLink(uploads, link)
		if removed == 0 {
			return nil, ErrRecordNotFound
		}
		return kept, nil
	})
	return removed, err
}

// modify loads identity's uploads with FOR UPDATE, lets fn change them and
// writes the result back in the same transaction.
func (s *PostgresStore) modify(ctx context.Context, identity, link string, fn func([]Record) ([]Record, error)) error {
	pool, err := s.h.Pool(ctx)
	if err != nil {
		return err
	}

	tx, err := pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	var uploads []Record
	err = tx.QueryRow(ctx,
		`SELECT uploads FROM user_profiles
		 WHERE identity = $1 AND uploads @> $2::jsonb
		 FOR UPDATE`,
		identity, linkFilter(link),
	).Scan(&uploads)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrRecordNotFound
	}
	if err != nil {
		return fmt.Errorf("lock profile: %w", err)
	}

	uploads, err = fn(uploads)
	if err != nil {
		return err
	}

	_, err = tx.Exec(ctx,
		`UPDATE user_profiles SET uploads = $2::jsonb, updated_at = NOW()
		 WHERE identity = $1`,
		identity, uploads,
	)
	if err != nil {
		return fmt.Errorf("write profile: %w", err)
	}

	return tx.Commit(ctx)
}
