package lots

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Repo struct{ pool *pgxpool.Pool }

func NewRepo(pool *pgxpool.Pool) *Repo { return &Repo{pool: pool} }

func (r *Repo) Create(ctx context.Context, code, product string) (*Lot, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO stock_lots (code, product) VALUES ($1,$2)
		ON CONFLICT (code) DO NOTHING
		RETURNING id, code, product, active, created_at
	`, code, product)
	var l Lot
	err := row.Scan(&l.ID, &l.Code, &l.Product, &l.Active, &l.CreatedAt)
	if err == pgx.ErrNoRows {
		return r.GetByCode(ctx, code)
	}
	if err != nil {
		return nil, err
	}
	return &l, nil
}

func (r *Repo) GetByID(ctx context.Context, id int64) (*Lot, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, code, product, active, created_at
		FROM stock_lots WHERE id=$1
	`, id)
	var l Lot
	if err := row.Scan(&l.ID, &l.Code, &l.Product, &l.Active, &l.CreatedAt); err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &l, nil
}

func (r *Repo) GetByCode(ctx context.Context, code string) (*Lot, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, code, product, active, created_at
		FROM stock_lots WHERE code=$1
	`, code)
	var l Lot
	if err := row.Scan(&l.ID, &l.Code, &l.Product, &l.Active, &l.CreatedAt); err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &l, nil
}

func (r *Repo) ListByService(ctx context.Context, serviceID int64) ([]Lot, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT l.id, l.code, l.product, l.active, l.created_at
		FROM stock_lots l
		JOIN service_asset_lots sal ON sal.lot_id = l.id
		WHERE sal.service_id = $1
		ORDER BY l.code
	`, serviceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Lot
	for rows.Next() {
		var l Lot
		if err := rows.Scan(&l.ID, &l.Code, &l.Product, &l.Active, &l.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}
