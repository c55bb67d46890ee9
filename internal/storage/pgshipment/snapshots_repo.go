package pgshipment

import (
	"context"
	"encoding/json"
	"time"

	"github.com/BearBump/PostiBox/internal/models"
	"github.com/jackc/pgx/v5"
	"github.com/pkg/errors"
)

// SaveSnapshot upserts the per-account snapshot and appends history rows
// for every package in it. Re-observing the same shipment state is a no-op
// thanks to the dedup index.
func (s *Storage) SaveSnapshot(ctx context.Context, snap models.Snapshot) error {
	now := time.Now().UTC()

	packages, err := json.Marshal(snap.Packages)
	if err != nil {
		return errors.Wrap(err, "marshal packages")
	}

	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return errors.Wrap(err, "begin tx")
	}
	defer func() { _ = tx.Rollback(ctx) }()

	_, err = tx.Exec(ctx, `
INSERT INTO shipment_snapshots (
  account, freshness, packages, undelivered_count, delivered_count, fetched_at, updated_at
)
VALUES ($1,$2,$3,$4,$5,$6,$7)
ON CONFLICT (account)
DO UPDATE SET
  freshness = EXCLUDED.freshness,
  packages = EXCLUDED.packages,
  undelivered_count = EXCLUDED.undelivered_count,
  delivered_count = EXCLUDED.delivered_count,
  fetched_at = EXCLUDED.fetched_at,
  updated_at = EXCLUDED.updated_at
`, snap.Account, snap.Freshness, packages, snap.UndeliveredCount, snap.DeliveredCount, snap.FetchedAt, now)
	if err != nil {
		return errors.Wrap(err, "upsert snapshot")
	}

	for _, p := range snap.Packages {
		_, err := tx.Exec(ctx, `
INSERT INTO shipment_history (
  account, shipment_number, status, status_raw,
  latest_event, latest_event_city, latest_event_country, latest_event_date,
  created_at
)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
ON CONFLICT (account, shipment_number, status_raw, latest_event_date) DO NOTHING
`, snap.Account, p.ShipmentNumber, p.Status, p.RawStatus,
			derefString(p.LatestEvent), p.LatestEventCity, p.LatestEventCountry, p.LatestEventDate, now)
		if err != nil {
			return errors.Wrap(err, "insert history")
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return errors.Wrap(err, "commit tx")
	}
	return nil
}

// GetSnapshot returns (nil, nil) when the account has no snapshot yet.
func (s *Storage) GetSnapshot(ctx context.Context, account string) (*models.Snapshot, error) {
	var (
		snap     models.Snapshot
		packages []byte
	)
	err := s.db.QueryRow(ctx, `
SELECT account, freshness, packages, undelivered_count, delivered_count, fetched_at
FROM shipment_snapshots
WHERE account = $1
`, account).Scan(&snap.Account, &snap.Freshness, &packages, &snap.UndeliveredCount, &snap.DeliveredCount, &snap.FetchedAt)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "select snapshot")
	}

	if err := json.Unmarshal(packages, &snap.Packages); err != nil {
		return nil, errors.Wrap(err, "decode packages")
	}
	return &snap, nil
}

// ListHistory returns the observed shipment states for an account, newest
// first.
func (s *Storage) ListHistory(ctx context.Context, account string, limit, offset int) ([]*models.HistoryEntry, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.Query(ctx, `
SELECT id, account, shipment_number, status, status_raw,
       latest_event, latest_event_city, latest_event_country, latest_event_date,
       created_at
FROM shipment_history
WHERE account = $1
ORDER BY created_at DESC, id DESC
LIMIT $2 OFFSET $3
`, account, limit, offset)
	if err != nil {
		return nil, errors.Wrap(err, "select history")
	}
	defer rows.Close()

	var out []*models.HistoryEntry
	for rows.Next() {
		var h models.HistoryEntry
		if err := rows.Scan(&h.ID, &h.Account, &h.ShipmentNumber, &h.Status, &h.StatusRaw,
			&h.LatestEvent, &h.LatestEventCity, &h.LatestEventCountry, &h.LatestEventDate,
			&h.CreatedAt); err != nil {
			return nil, errors.Wrap(err, "scan history")
		}
		out = append(out, &h)
	}
	return out, rows.Err()
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
