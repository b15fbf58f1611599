package repository

import (
	"context"
	"time"

	"card-ledger/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.opentelemetry.io/otel/trace"
)

const createAssetsTable = `
CREATE TABLE IF NOT EXISTS assets (
    id               BIGSERIAL   PRIMARY KEY,
    external_id      TEXT        NOT NULL DEFAULT '',
    name             TEXT        NOT NULL,
    asset_type       TEXT        NOT NULL,
    psa_grade        TEXT,
    manual_price     BOOLEAN     NOT NULL DEFAULT FALSE,
    purchase_price   NUMERIC     NOT NULL DEFAULT 0,
    current_price    NUMERIC,
    price_updated_at TIMESTAMPTZ,
    pc_url           TEXT        NOT NULL DEFAULT '',
    pc_grade_field   TEXT        NOT NULL DEFAULT ''
);
`

type PgxPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// AssetRepository reads tracked assets and writes back resolved prices.
// Asset CRUD itself belongs to the excluded web layer; the pipeline only
// needs lookups and the single-row price update.
type AssetRepository struct {
	pool   PgxPool
	tracer trace.Tracer
}

func NewAssetRepository(pool PgxPool, tracer trace.Tracer) *AssetRepository {
	return &AssetRepository{pool: pool, tracer: tracer}
}

func (r *AssetRepository) RunMigrations(ctx context.Context) error {
	_, span := r.tracer.Start(ctx, "asset-repo.run-migrations")
	defer span.End()

	_, err := r.pool.Exec(ctx, createAssetsTable)
	return err
}

const assetColumns = `id, external_id, name, asset_type, psa_grade, manual_price,
	purchase_price, current_price, price_updated_at, pc_url, pc_grade_field`

func (r *AssetRepository) GetAssets(ctx context.Context) ([]*domain.Asset, error) {
	_, span := r.tracer.Start(ctx, "asset-repo.get-assets")
	defer span.End()

	rows, err := r.pool.Query(ctx, `SELECT `+assetColumns+` FROM assets ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var assets []*domain.Asset
	for rows.Next() {
		a, err := scanAsset(rows)
		if err != nil {
			return nil, err
		}
		assets = append(assets, a)
	}
	return assets, rows.Err()
}

func (r *AssetRepository) GetAsset(ctx context.Context, id int64) (*domain.Asset, error) {
	_, span := r.tracer.Start(ctx, "asset-repo.get-asset")
	defer span.End()

	row := r.pool.QueryRow(ctx, `SELECT `+assetColumns+` FROM assets WHERE id = $1`, id)
	return scanAsset(row)
}

// UpdateAssetPrice overwrites the asset's current price in place.
// Last-writer-wins is acceptable: refresh is idempotent-ish and scheduled,
// never user-triggered concurrently for one asset.
func (r *AssetRepository) UpdateAssetPrice(ctx context.Context, id int64, price float64, updatedAt time.Time) error {
	_, span := r.tracer.Start(ctx, "asset-repo.update-price")
	defer span.End()

	_, err := r.pool.Exec(ctx,
		`UPDATE assets SET current_price = $2, price_updated_at = $3 WHERE id = $1`,
		id, price, updatedAt,
	)
	return err
}

func scanAsset(row pgx.Row) (*domain.Asset, error) {
	a := &domain.Asset{}
	err := row.Scan(
		&a.ID, &a.ExternalID, &a.Name, &a.Type, &a.PSAGrade, &a.ManualPrice,
		&a.PurchasePrice, &a.CurrentPrice, &a.PriceUpdatedAt, &a.PCURL, &a.PCGradeField,
	)
	if err != nil {
		return nil, err
	}
	return a, nil
}
