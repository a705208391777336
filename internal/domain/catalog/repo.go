package catalog

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Repo struct{ pool *pgxpool.Pool }

func NewRepo(pool *pgxpool.Pool) *Repo { return &Repo{pool: pool} }

func (r *Repo) Create(ctx context.Context, code, name, recurrence string) (*Service, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO services (code, name, recurrence) VALUES ($1,$2,$3)
		ON CONFLICT (code) DO NOTHING
		RETURNING id, code, name, recurrence, active, created_at
	`, code, name, recurrence)
	var s Service
	err := row.Scan(&s.ID, &s.Code, &s.Name, &s.Recurrence, &s.Active, &s.CreatedAt)
	if err == pgx.ErrNoRows {
		return r.GetByCode(ctx, code)
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *Repo) GetByID(ctx context.Context, id int64) (*Service, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, code, name, recurrence, active, created_at
		FROM services WHERE id=$1
	`, id)
	var s Service
	if err := row.Scan(&s.ID, &s.Code, &s.Name, &s.Recurrence, &s.Active, &s.CreatedAt); err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &s, nil
}

func (r *Repo) GetByCode(ctx context.Context, code string) (*Service, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, code, name, recurrence, active, created_at
		FROM services WHERE code=$1
	`, code)
	var s Service
	if err := row.Scan(&s.ID, &s.Code, &s.Name, &s.Recurrence, &s.Active, &s.CreatedAt); err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &s, nil
}

func (r *Repo) List(ctx context.Context) ([]Service, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, code, name, recurrence, active, created_at
		FROM services
		ORDER BY code
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Service
	for rows.Next() {
		var s Service
		if err := rows.Scan(&s.ID, &s.Code, &s.Name, &s.Recurrence, &s.Active, &s.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

/* Asset lot pool */

func (r *Repo) AddLot(ctx context.Context, serviceID, lotID int64) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO service_asset_lots (service_id, lot_id) VALUES ($1,$2)
		ON CONFLICT (service_id, lot_id) DO NOTHING
	`, serviceID, lotID)
	return err
}

func (r *Repo) RemoveLot(ctx context.Context, serviceID, lotID int64) error {
	_, err := r.pool.Exec(ctx, `
		DELETE FROM service_asset_lots WHERE service_id=$1 AND lot_id=$2
	`, serviceID, lotID)
	return err
}

// AssetLotRequired reports whether the service owns at least one asset lot.
func (r *Repo) AssetLotRequired(ctx context.Context, serviceID int64) (bool, error) {
	var n int
	err := r.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM service_asset_lots WHERE service_id=$1
	`, serviceID).Scan(&n)
	return n > 0, err
}

// PoolContains reports whether the lot belongs to the service's pool.
func (r *Repo) PoolContains(ctx context.Context, serviceID, lotID int64) (bool, error) {
	var n int
	err := r.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM service_asset_lots WHERE service_id=$1 AND lot_id=$2
	`, serviceID, lotID).Scan(&n)
	return n > 0, err
}

// AvailableLotIDs returns pool lots not currently reserved by any
// non-canceled subscription line.
func (r *Repo) AvailableLotIDs(ctx context.Context, serviceID int64) ([]int64, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT sal.lot_id
		FROM service_asset_lots sal
		WHERE sal.service_id = $1
		  AND NOT EXISTS (
			SELECT 1
			FROM subscription_lines l
			JOIN subscriptions s ON s.id = l.subscription_id
			WHERE l.asset_lot_id = sal.lot_id
			  AND s.state <> 'canceled'
		  )
		ORDER BY sal.lot_id
	`, serviceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}
