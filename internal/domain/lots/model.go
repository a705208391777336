package lots

import "time"

// Lot is a serialized, non-divisible physical asset. At most one active
// subscription line may reserve it for any instant in time.
type Lot struct {
	ID        int64
	Code      string // serial / lot number
	Product   string
	Active    bool
	CreatedAt time.Time
}
