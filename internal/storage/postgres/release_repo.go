package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kingrea/releasekit/internal/storage"
)

// ReleaseRepository implements storage.Repository on a pgx pool.
type ReleaseRepository struct {
	pool *pgxpool.Pool
}

var _ storage.Repository = (*ReleaseRepository)(nil)

// NewReleaseRepository wraps pool.
func NewReleaseRepository(pool *pgxpool.Pool) *ReleaseRepository {
	return &ReleaseRepository{pool: pool}
}

const upsertRelease = `
	INSERT INTO releases (repository, version, tag, body, draft, published_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (repository, version) DO UPDATE SET
		tag = EXCLUDED.tag,
		body = EXCLUDED.body,
		draft = EXCLUDED.draft,
		published_at = EXCLUDED.published_at,
		updated_at = NOW()`

// execer is satisfied by both the pool and a transaction.
type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

func saveRelease(ctx context.Context, db execer, rel storage.Release) error {
	rel, err := storage.Normalize(rel)
	if err != nil {
		return err
	}
	if _, err := db.Exec(ctx, upsertRelease, rel.Repository, rel.Version, rel.Tag, rel.Body, rel.Draft, rel.PublishedAt); err != nil {
		return fmt.Errorf("postgres: save release %s: %w", rel.Version, err)
	}
	return nil
}

// Save upserts on (repository, version). CreatedAt of an existing row is kept.
func (r *ReleaseRepository) Save(ctx context.Context, rel storage.Release) error {
	return saveRelease(ctx, r.pool, rel)
}

// List returns the releases of repo, newest version first.
func (r *ReleaseRepository) List(ctx context.Context, repo string) ([]storage.Release, error) {
	const selectByRepo = `
		SELECT repository, version, tag, body, draft, published_at, created_at
		FROM releases
		WHERE repository = $1`

	rows, err := r.pool.Query(ctx, selectByRepo, repo)
	if err != nil {
		return nil, fmt.Errorf("postgres: list releases: %w", err)
	}
	defer rows.Close()

	var out []storage.Release
	for rows.Next() {
		rel, err := scanRelease(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan release: %w", err)
		}
		out = append(out, rel)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list releases: %w", err)
	}
	storage.SortByVersion(out)
	return out, nil
}

// Get returns one release or storage.ErrNotFound.
func (r *ReleaseRepository) Get(ctx context.Context, repo, ver string) (storage.Release, error) {
	const selectOne = `
		SELECT repository, version, tag, body, draft, published_at, created_at
		FROM releases
		WHERE repository = $1 AND version = $2`

	lookup, err := storage.Normalize(storage.Release{Repository: repo, Version: ver})
	if err != nil {
		return storage.Release{}, err
	}
	rel, err := scanRelease(r.pool.QueryRow(ctx, selectOne, lookup.Repository, lookup.Version))
	if errors.Is(err, pgx.ErrNoRows) {
		return storage.Release{}, storage.ErrNotFound
	}
	if err != nil {
		return storage.Release{}, fmt.Errorf("postgres: get release: %w", err)
	}
	return rel, nil
}

// Import saves releases in one transaction.
func (r *ReleaseRepository) Import(ctx context.Context, releases []storage.Release) (err error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("postgres: begin tx: %w", err)
	}
	defer func() {
		if rerr := tx.Rollback(ctx); rerr != nil && !errors.Is(rerr, pgx.ErrTxClosed) && err == nil {
			err = fmt.Errorf("postgres: rollback: %w", rerr)
		}
	}()

	for _, rel := range releases {
		if err := saveRelease(ctx, tx, rel); err != nil {
			return err
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("postgres: commit: %w", err)
	}
	return nil
}

func scanRelease(row pgx.Row) (storage.Release, error) {
	var rel storage.Release
	err := row.Scan(&rel.Repository, &rel.Version, &rel.Tag, &rel.Body, &rel.Draft, &rel.PublishedAt, &rel.CreatedAt)
	return rel, err
}
