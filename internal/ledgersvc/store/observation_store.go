package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/avvvet/arcade-ledger/internal/ledgersvc/ledger"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const observationSchema = `
CREATE TABLE IF NOT EXISTS ledger_observations (
	id         UUID PRIMARY KEY,
	kind       TEXT        NOT NULL,
	game       TEXT,
	attributes JSONB       NOT NULL DEFAULT '{}'::jsonb,
	at         TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS ledger_observations_game_at ON ledger_observations (game, at);
`

// ObservationStore keeps the ledger's audit trail in Postgres.
type ObservationStore struct {
	db *pgxpool.Pool
}

func NewObservationStore(db *pgxpool.Pool) *ObservationStore {
	return &ObservationStore{db: db}
}

func (s *ObservationStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, observationSchema); err != nil {
		return fmt.Errorf("create ledger_observations: %w", err)
	}
	return nil
}

// Record inserts o. Replaying the same observation is a no-op.
func (s *ObservationStore) Record(ctx context.Context, o ledger.Observation) error {
	attrs, err := json.Marshal(o.Attributes)
	if err != nil {
		return fmt.Errorf("marshal attributes of %s: %w", o.ID, err)
	}

	var game *string
	if o.Game != "" {
		game = &o.Game
	}

	_, err = s.db.Exec(ctx, `
		INSERT INTO ledger_observations (id, kind, game, attributes, at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO NOTHING
	`, o.ID, string(o.Kind), game, attrs, o.At)
	if err != nil {
		return fmt.Errorf("failed to insert observation %s: %w", o.ID, err)
	}
	return nil
}

// History returns up to limit observations for game, oldest first.
func (s *ObservationStore) History(ctx context.Context, game string, limit int) ([]ledger.Observation, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id::text, kind, COALESCE(game, ''), attributes, at
		FROM ledger_observations
		WHERE game = $1
		ORDER BY at
		LIMIT $2
	`, game, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query observations of game %s: %w", game, err)
	}

	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (ledger.Observation, error) {
		var (
			o     ledger.Observation
			kind  string
			attrs []byte
		)
		if err := row.Scan(&o.ID, &kind, &o.Game, &attrs, &o.At); err != nil {
			return o, err
		}
		o.Kind = ledger.Kind(kind)
		if err := json.Unmarshal(attrs, &o.Attributes); err != nil {
			return o, fmt.Errorf("attributes of %s: %w", o.ID, err)
		}
		return o, nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
