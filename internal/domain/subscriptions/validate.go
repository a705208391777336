package subscriptions

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// OverlapError reports two lines reserving the same asset lot for
// intersecting intervals. It aborts the enclosing transaction and is never
// resolved automatically; the caller must correct the dates and resubmit.
type OverlapError struct {
	Line1 string
	Line2 string
}

func (e *OverlapError) Error() string {
	return fmt.Sprintf(`subscriptions: lines %q and %q for the same lot overlap`, e.Line1, e.Line2)
}

// DefaultChunkSize bounds the id list of a single overlap query.
const DefaultChunkSize = 100

// ValidateExclusivity verifies that no line in the batch overlaps any other
// line on the same asset lot, across the whole table. It must run inside the
// transaction that wrote the batch: it takes an exclusive lock on the line
// table so that concurrent validations are fully serialized and cannot both
// observe a pre-conflict snapshot. The lock blocks without timeout and is
// released with the transaction.
//
// The check fails fast: the first conflicting pair is returned as an
// *OverlapError and no further pairs are collected.
func (r *Repo) ValidateExclusivity(ctx context.Context, tx pgx.Tx, lineIDs []int64, chunkSize int) error {
	if len(lineIDs) == 0 {
		return nil
	}
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}

	if _, err := tx.Exec(ctx, `LOCK TABLE subscription_lines IN EXCLUSIVE MODE`); err != nil {
		return fmt.Errorf("lock lines: %w", err)
	}

	// Cheap in-memory pass over the batch itself before scanning the table.
	batch, err := r.linesByIDs(ctx, tx, lineIDs)
	if err != nil {
		return err
	}
	for i := range batch {
		for j := i + 1; j < len(batch); j++ {
			if batch[i].Overlaps(&batch[j]) {
				return r.overlapError(ctx, tx, batch[i].ID, batch[j].ID)
			}
		}
	}

	for _, chunk := range chunkIDs(lineIDs, chunkSize) {
		var id1, id2 int64
		err := tx.QueryRow(ctx, `
			SELECT l.id, o.id
			FROM subscription_lines l
			JOIN subscription_lines o
			  ON o.id <> l.id AND o.asset_lot_id = l.asset_lot_id
			WHERE l.asset_lot_id IS NOT NULL
			  AND l.id = ANY($1)
			  AND (l.end_date IS NULL OR o.start_date < l.end_date)
			  AND (o.end_date IS NULL OR l.start_date < o.end_date)
			LIMIT 1
		`, chunk).Scan(&id1, &id2)
		if err == pgx.ErrNoRows {
			continue
		}
		if err != nil {
			return fmt.Errorf("overlap query: %w", err)
		}
		return r.overlapError(ctx, tx, id1, id2)
	}
	return nil
}

func (r *Repo) linesByIDs(ctx context.Context, tx pgx.Tx, ids []int64) ([]Line, error) {
	rows, err := tx.Query(ctx, `
		SELECT `+lineCols+`
		FROM subscription_lines
		WHERE id = ANY($1)
		ORDER BY id
	`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectLines(rows)
}

// overlapError builds the error from the two lines' human-readable labels:
// subscription code, line id and lot code.
func (r *Repo) overlapError(ctx context.Context, tx pgx.Tx, id1, id2 int64) error {
	e := &OverlapError{}
	for i, id := range []int64{id1, id2} {
		var subCode, lotCode string
		err := tx.QueryRow(ctx, `
			SELECT s.code, sl.code
			FROM subscription_lines l
			JOIN subscriptions s ON s.id = l.subscription_id
			JOIN stock_lots sl ON sl.id = l.asset_lot_id
			WHERE l.id = $1
		`, id).Scan(&subCode, &lotCode)
		if err != nil {
			return fmt.Errorf("label line %d: %w", id, err)
		}
		label := fmt.Sprintf("%s/%d [%s]", subCode, id, lotCode)
		if i == 0 {
			e.Line1 = label
		} else {
			e.Line2 = label
		}
	}
	return e
}

func chunkIDs(ids []int64, size int) [][]int64 {
	var out [][]int64
	for len(ids) > size {
		out = append(out, ids[:size])
		ids = ids[size:]
	}
	if len(ids) > 0 {
		out = append(out, ids)
	}
	return out
}
