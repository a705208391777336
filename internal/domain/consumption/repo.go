package consumption

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

type Repo struct{ pool *pgxpool.Pool }

func NewRepo(pool *pgxpool.Pool) *Repo { return &Repo{pool: pool} }

// CreateTx inserts within the caller's transaction so that a failed
// validation rolls the record back together with the line updates.
func (r *Repo) CreateTx(ctx context.Context, tx pgx.Tx, lineID int64, date time.Time, qty decimal.Decimal) (int64, error) {
	row := tx.QueryRow(ctx, `
		INSERT INTO consumptions (line_id, date, quantity)
		VALUES ($1,$2,$3)
		RETURNING id
	`, lineID, date, qty)
	var id int64
	return id, row.Scan(&id)
}

// HasAny reports whether the line has ever consumed. Lines with consumption
// history lose date mutability outside of draft.
func (r *Repo) HasAny(ctx context.Context, lineID int64) (bool, error) {
	var n int
	err := r.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM consumptions WHERE line_id=$1
	`, lineID).Scan(&n)
	return n > 0, err
}

func (r *Repo) ListByLine(ctx context.Context, lineID int64) ([]Record, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, line_id, date, quantity, created_at
		FROM consumptions
		WHERE line_id=$1
		ORDER BY date
	`, lineID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Record
	for rows.Next() {
		var rec Record
		if err := rows.Scan(&rec.ID, &rec.LineID, &rec.Date, &rec.Quantity, &rec.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}
