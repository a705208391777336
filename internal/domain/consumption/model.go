package consumption

import (
	"time"

	"github.com/shopspring/decimal"
)

// Record is one consumed instant of a subscription line, written when the
// line's schedule advances past the date.
type Record struct {
	ID        int64
	LineID    int64
	Date      time.Time
	Quantity  decimal.Decimal
	CreatedAt time.Time
}
