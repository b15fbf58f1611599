package repository

import (
	"context"
	"time"

	"card-ledger/internal/domain"

	"go.opentelemetry.io/otel/trace"
)

const createSnapshotsTable = `
CREATE TABLE IF NOT EXISTS price_snapshots (
    id          BIGSERIAL   PRIMARY KEY,
    asset_id    BIGINT      NOT NULL,
    price       NUMERIC     NOT NULL,
    source      TEXT        NOT NULL,
    recorded_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_price_snapshots_asset_time
    ON price_snapshots (asset_id, recorded_at);
`

// SnapshotRepository appends and reads immutable price observations.
// There is no update or delete path: snapshots are append-only and
// duplicates are collapsed at read time, not write time.
type SnapshotRepository struct {
	pool   PgxPool
	tracer trace.Tracer
}

func NewSnapshotRepository(pool PgxPool, tracer trace.Tracer) *SnapshotRepository {
	return &SnapshotRepository{pool: pool, tracer: tracer}
}

func (r *SnapshotRepository) RunMigrations(ctx context.Context) error {
	_, span := r.tracer.Start(ctx, "snapshot-repo.run-migrations")
	defer span.End()

	_, err := r.pool.Exec(ctx, createSnapshotsTable)
	return err
}

func (r *SnapshotRepository) InsertSnapshot(ctx context.Context, assetID int64, price float64, source string) error {
	_, span := r.tracer.Start(ctx, "snapshot-repo.insert")
	defer span.End()

	_, err := r.pool.Exec(ctx,
		`INSERT INTO price_snapshots (asset_id, price, source) VALUES ($1, $2, $3)`,
		assetID, price, source,
	)
	return err
}

// GetSnapshots returns snapshots for one asset within [from, to], ordered
// by recording time then insertion order, so later rows win day-dedupe.
func (r *SnapshotRepository) GetSnapshots(ctx context.Context, assetID int64, from, to time.Time) ([]*domain.PriceSnapshot, error) {
	_, span := r.tracer.Start(ctx, "snapshot-repo.get-snapshots")
	defer span.End()

	rows, err := r.pool.Query(ctx,
		`SELECT id, asset_id, price, source, recorded_at
		 FROM price_snapshots
		 WHERE asset_id = $1 AND recorded_at >= $2 AND recorded_at <= $3
		 ORDER BY recorded_at ASC, id ASC`,
		assetID, from, to,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var snapshots []*domain.PriceSnapshot
	for rows.Next() {
		s := &domain.PriceSnapshot{}
		if err := rows.Scan(&s.ID, &s.AssetID, &s.Price, &s.Source, &s.RecordedAt); err != nil {
			return nil, err
		}
		snapshots = append(snapshots, s)
	}
	return snapshots, rows.Err()
}
