package pgshipment

import (
	"context"

	"github.com/pkg/errors"
)

func (s *Storage) initSchema(ctx context.Context) error {
	stmts := []string{
		`
CREATE TABLE IF NOT EXISTS shipment_snapshots (
  account TEXT PRIMARY KEY,
  freshness TEXT NULL,
  packages JSONB NOT NULL,
  undelivered_count INT NOT NULL DEFAULT 0,
  delivered_count INT NOT NULL DEFAULT 0,
  fetched_at TIMESTAMPTZ NOT NULL,
  updated_at TIMESTAMPTZ NOT NULL
)`,
		`
CREATE TABLE IF NOT EXISTS shipment_history (
  id BIGSERIAL PRIMARY KEY,
  account TEXT NOT NULL,
  shipment_number TEXT NOT NULL,
  status INT NOT NULL,
  status_raw TEXT NOT NULL,
  latest_event TEXT NOT NULL DEFAULT '',
  latest_event_city TEXT NOT NULL DEFAULT '',
  latest_event_country TEXT NOT NULL DEFAULT '',
  latest_event_date TEXT NOT NULL,
  created_at TIMESTAMPTZ NOT NULL
)`,
		`CREATE INDEX IF NOT EXISTS idx_shipment_history_account ON shipment_history(account, created_at DESC)`,
		// One history row per observed shipment state.
		`CREATE UNIQUE INDEX IF NOT EXISTS uq_shipment_history_dedup ON shipment_history(account, shipment_number, status_raw, latest_event_date)`,
	}

	for _, q := range stmts {
		if _, err := s.db.Exec(ctx, q); err != nil {
			return errors.Wrap(err, "init schema")
		}
	}
	return nil
}
