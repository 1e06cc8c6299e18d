package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"

	"github.com/cinerec/cinerec/internal/config"
	"github.com/cinerec/cinerec/pkg/models"
)

// pgQuerier is the subset of pgxpool.Pool the ledger uses; pgxmock
// satisfies it in tests.
type pgQuerier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Close()
}

// Postgres is the durable Store backend. The (user_id, movie_id) primary
// key enforces the one-row-per-pair invariant; the upsert race resolves
// row-level inside the database.
type Postgres struct {
	pool   pgQuerier
	logger *logrus.Logger
}

const createRatingsTable = `
	CREATE TABLE IF NOT EXISTS ratings (
		user_id  TEXT NOT NULL,
		movie_id TEXT NOT NULL,
		rating   DOUBLE PRECISION NOT NULL,
		rated_at TIMESTAMPTZ NOT NULL,
		PRIMARY KEY (user_id, movie_id)
	)`

func NewPostgres(cfg *config.DatabaseConfig, logger *logrus.Logger) (*Postgres, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parsing database config: %w", err)
	}
	poolCfg.MaxConns = int32(cfg.MaxConnections)
	poolCfg.MaxConnIdleTime = cfg.MaxIdleTime
	poolCfg.MaxConnLifetime = cfg.MaxLifetime
	poolCfg.ConnConfig.ConnectTimeout = cfg.ConnectTimeout

	pool, err := pgxpool.NewWithConfig(context.Background(), poolCfg)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	p := &Postgres{pool: pool, logger: logger}
	if _, err := pool.Exec(ctx, createRatingsTable); err != nil {
		pool.Close()
		return nil, fmt.Errorf("creating ratings table: %w", err)
	}

	logger.Info("Postgres rating ledger ready")
	return p, nil
}

// NewPostgresWithPool wires an existing pool (or mock) without connecting.
func NewPostgresWithPool(pool pgQuerier, logger *logrus.Logger) *Postgres {
	return &Postgres{pool: pool, logger: logger}
}

func (p *Postgres) Upsert(ctx context.Context, userID, movieID string, score float64, ts time.Time) (models.Rating, error) {
	const q = `
		INSERT INTO ratings (user_id, movie_id, rating, rated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id, movie_id)
		DO UPDATE SET rating = EXCLUDED.rating, rated_at = EXCLUDED.rated_at
		RETURNING user_id, movie_id, rating, rated_at`

	var r models.Rating
	row := p.pool.QueryRow(ctx, q, userID, movieID, score, ts)
	if err := row.Scan(&r.UserID, &r.MovieID, &r.Score, &r.Timestamp); err != nil {
		return models.Rating{}, fmt.Errorf("upserting rating: %w", err)
	}
	return r, nil
}

func (p *Postgres) History(ctx context.Context, userID string) ([]models.Rating, error) {
	const q = `
		SELECT user_id, movie_id, rating, rated_at
		FROM ratings WHERE user_id = $1
		ORDER BY rated_at ASC`

	rows, err := p.pool.Query(ctx, q, userID)
	if err != nil {
		return nil, fmt.Errorf("querying history: %w", err)
	}
	defer rows.Close()

	var out []models.Rating
	for rows.Next() {
		var r models.Rating
		if err := rows.Scan(&r.UserID, &r.MovieID, &r.Score, &r.Timestamp); err != nil {
			return nil, fmt.Errorf("scanning rating: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (p *Postgres) UserRatings(ctx context.Context, userID string) (map[string]float64, error) {
	ratings, err := p.History(ctx, userID)
	if err != nil {
		return nil, err
	}
	out := make(map[string]float64, len(ratings))
	for _, r := range ratings {
		out[r.MovieID] = r.Score
	}
	return out, nil
}

func (p *Postgres) Remove(ctx context.Context, userID, movieID string) (bool, error) {
	tag, err := p.pool.Exec(ctx,
		`DELETE FROM ratings WHERE user_id = $1 AND movie_id = $2`, userID, movieID)
	if err != nil {
		return false, fmt.Errorf("removing rating: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (p *Postgres) CountForUser(ctx context.Context, userID string) (int, error) {
	var count int
	row := p.pool.QueryRow(ctx, `SELECT COUNT(*) FROM ratings WHERE user_id = $1`, userID)
	if err := row.Scan(&count); err != nil {
		return 0, fmt.Errorf("counting user ratings: %w", err)
	}
	return count, nil
}

func (p *Postgres) All(ctx context.Context) ([]models.Rating, error) {
	const q = `SELECT user_id, movie_id, rating, rated_at FROM ratings ORDER BY rated_at ASC`

	rows, err := p.pool.Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("querying ratings: %w", err)
	}
	defer rows.Close()

	var out []models.Rating
	for rows.Next() {
		var r models.Rating
		if err := rows.Scan(&r.UserID, &r.MovieID, &r.Score, &r.Timestamp); err != nil {
			return nil, fmt.Errorf("scanning rating: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (p *Postgres) CountSince(ctx context.Context, t time.Time) (int, error) {
	var count int
	row := p.pool.QueryRow(ctx, `SELECT COUNT(*) FROM ratings WHERE rated_at > $1`, t)
	if err := row.Scan(&count); err != nil {
		return 0, fmt.Errorf("counting recent ratings: %w", err)
	}
	return count, nil
}

func (p *Postgres) Stats(ctx context.Context) (models.Stats, error) {
	const q = `
		SELECT COUNT(*), COUNT(DISTINCT user_id), COUNT(DISTINCT movie_id)
		FROM ratings`

	var s models.Stats
	row := p.pool.QueryRow(ctx, q)
	if err := row.Scan(&s.TotalRatings, &s.DistinctUsers, &s.DistinctItems); err != nil {
		return models.Stats{}, fmt.Errorf("querying ledger stats: %w", err)
	}
	return s, nil
}

func (p *Postgres) Close() {
	p.pool.Close()
}
