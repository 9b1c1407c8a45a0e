package store

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/typeduel/typeduel-backend/internal/game"
)

const schema = `
CREATE TABLE IF NOT EXISTS session_results (
	id              BIGSERIAL PRIMARY KEY,
	session_id      UUID        NOT NULL,
	mode            TEXT        NOT NULL,
	player_name     TEXT        NOT NULL,
	score           INTEGER     NOT NULL,
	speed           DOUBLE PRECISION NOT NULL,
	correct_words   INTEGER     NOT NULL,
	incorrect_words INTEGER     NOT NULL,
	mistake_ratio   DOUBLE PRECISION NOT NULL,
	is_winner       BOOLEAN     NOT NULL,
	team_name       TEXT        NOT NULL DEFAULT '',
	finished_at     TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS session_results_session_idx ON session_results (session_id);
`

// Store persists end-of-round rankings to Postgres. It satisfies
// game.ResultSink.
type Store struct {
	pool *pgxpool.Pool
	log  zerolog.Logger
}

func New(ctx context.Context, dsn string, log zerolog.Logger) (*Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connecting to postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging postgres: %w", err)
	}
	return &Store{pool: pool, log: log}, nil
}

func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("creating schema: %w", err)
	}
	return nil
}

// SaveResults writes one row per player for a finished round, in a single
// batch round trip.
func (s *Store) SaveResults(ctx context.Context, sessionID uuid.UUID, mode string, results []game.PlayerResult) error {
	if len(results) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, res := range results {
		batch.Queue(`
			INSERT INTO session_results
				(session_id, mode, player_name, score, speed,
				 correct_words, incorrect_words, mistake_ratio, is_winner, team_name)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
			sessionID, mode, res.Name, res.Score, res.Speed,
			res.CorrectWords, res.IncorrectWords, res.MistakeRatio, res.IsWinner, res.TeamName,
		)
	}
	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()
	for range results {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("inserting result row: %w", err)
		}
	}
	return nil
}

// TopScores returns the best recorded scores for a mode, most recent first
// among ties.
func (s *Store) TopScores(ctx context.Context, mode string, limit int) ([]game.PlayerResult, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT player_name, score, speed, correct_words, incorrect_words, mistake_ratio, is_winner, team_name
		FROM session_results
		WHERE mode = $1
		ORDER BY score DESC, finished_at DESC
		LIMIT $2`, mode, limit)
	if err != nil {
		return nil, fmt.Errorf("querying top scores: %w", err)
	}
	defer rows.Close()

	var out []game.PlayerResult
	for rows.Next() {
		var res game.PlayerResult
		if err := rows.Scan(&res.Name, &res.Score, &res.Speed,
			&res.CorrectWords, &res.IncorrectWords, &res.MistakeRatio,
			&res.IsWinner, &res.TeamName); err != nil {
			return nil, fmt.Errorf("scanning result row: %w", err)
		}
		out = append(out, res)
	}
	return out, rows.Err()
}

func (s *Store) Close() {
	s.pool.Close()
}
