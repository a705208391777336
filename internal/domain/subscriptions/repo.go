package subscriptions

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Repo struct{ pool *pgxpool.Pool }

func NewRepo(pool *pgxpool.Pool) *Repo { return &Repo{pool: pool} }

func (r *Repo) Begin(ctx context.Context) (pgx.Tx, error) { return r.pool.Begin(ctx) }

const subCols = `id, code, party, start_date, end_date, state, created_at, updated_at`

func scanSub(row pgx.Row) (*Subscription, error) {
	var s Subscription
	err := row.Scan(&s.ID, &s.Code, &s.Party, &s.StartDate, &s.EndDate, &s.State, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &s, nil
}

func (r *Repo) Create(ctx context.Context, code, party string, start time.Time, end *time.Time) (*Subscription, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO subscriptions (code, party, start_date, end_date, state)
		VALUES ($1,$2,$3,$4,'draft')
		RETURNING `+subCols, code, party, start, end)
	return scanSub(row)
}

func (r *Repo) Get(ctx context.Context, id int64) (*Subscription, error) {
	return scanSub(r.pool.QueryRow(ctx, `SELECT `+subCols+` FROM subscriptions WHERE id=$1`, id))
}

func (r *Repo) List(ctx context.Context) ([]Subscription, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+subCols+` FROM subscriptions ORDER BY code`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Subscription
	for rows.Next() {
		var s Subscription
		if err := rows.Scan(&s.ID, &s.Code, &s.Party, &s.StartDate, &s.EndDate, &s.State, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *Repo) SetState(ctx context.Context, tx pgx.Tx, id int64, state State) error {
	tag, err := tx.Exec(ctx, `
		UPDATE subscriptions SET state=$2, updated_at=NOW() WHERE id=$1
	`, id, state)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

/* Lines */

const lineCols = `id, subscription_id, service_id, asset_lot_id, start_date, end_date,
	recurrence, next_consumption_date, quantity, unit_price, created_at, updated_at`

func scanLine(row pgx.Row) (*Line, error) {
	var l Line
	err := row.Scan(&l.ID, &l.SubscriptionID, &l.ServiceID, &l.AssetLotID, &l.StartDate, &l.EndDate,
		&l.Recurrence, &l.NextConsumptionDate, &l.Quantity, &l.UnitPrice, &l.CreatedAt, &l.UpdatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &l, nil
}

func (r *Repo) InsertLine(ctx context.Context, tx pgx.Tx, l *Line) (*Line, error) {
	row := tx.QueryRow(ctx, `
		INSERT INTO subscription_lines
		(subscription_id, service_id, asset_lot_id, start_date, end_date, recurrence, next_consumption_date, quantity, unit_price)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		RETURNING `+lineCols,
		l.SubscriptionID, l.ServiceID, l.AssetLotID, l.StartDate, l.EndDate,
		l.Recurrence, l.NextConsumptionDate, l.Quantity, l.UnitPrice)
	return scanLine(row)
}

func (r *Repo) UpdateLine(ctx context.Context, tx pgx.Tx, l *Line) (*Line, error) {
	row := tx.QueryRow(ctx, `
		UPDATE subscription_lines
		SET asset_lot_id=$2, start_date=$3, end_date=$4, recurrence=$5,
		    next_consumption_date=$6, quantity=$7, unit_price=$8, updated_at=NOW()
		WHERE id=$1
		RETURNING `+lineCols,
		l.ID, l.AssetLotID, l.StartDate, l.EndDate, l.Recurrence,
		l.NextConsumptionDate, l.Quantity, l.UnitPrice)
	return scanLine(row)
}

func (r *Repo) GetLine(ctx context.Context, id int64) (*Line, error) {
	return scanLine(r.pool.QueryRow(ctx, `SELECT `+lineCols+` FROM subscription_lines WHERE id=$1`, id))
}

func (r *Repo) LinesBySubscription(ctx context.Context, subscriptionID int64) ([]Line, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+lineCols+`
		FROM subscription_lines
		WHERE subscription_id=$1
		ORDER BY id
	`, subscriptionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectLines(rows)
}

// ListLinesWithLots returns every line holding an asset lot, for reporting.
func (r *Repo) ListLinesWithLots(ctx context.Context) ([]Line, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+lineCols+`
		FROM subscription_lines
		WHERE asset_lot_id IS NOT NULL
		ORDER BY asset_lot_id, start_date
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectLines(rows)
}

func collectLines(rows pgx.Rows) ([]Line, error) {
	var out []Line
	for rows.Next() {
		var l Line
		if err := rows.Scan(&l.ID, &l.SubscriptionID, &l.ServiceID, &l.AssetLotID, &l.StartDate, &l.EndDate,
			&l.Recurrence, &l.NextConsumptionDate, &l.Quantity, &l.UnitPrice, &l.CreatedAt, &l.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

func (r *Repo) SetNextConsumptionDate(ctx context.Context, tx pgx.Tx, lineID int64, date *time.Time) error {
	_, err := tx.Exec(ctx, `
		UPDATE subscription_lines SET next_consumption_date=$2, updated_at=NOW() WHERE id=$1
	`, lineID, date)
	return err
}

// ClearAssetLots releases every asset held by the subscription's lines.
// Called on the cancel transition.
func (r *Repo) ClearAssetLots(ctx context.Context, tx pgx.Tx, subscriptionID int64) error {
	_, err := tx.Exec(ctx, `
		UPDATE subscription_lines SET asset_lot_id=NULL, updated_at=NOW()
		WHERE subscription_id=$1 AND asset_lot_id IS NOT NULL
	`, subscriptionID)
	return err
}
