package subscriptions

import (
	"time"

	"github.com/shopspring/decimal"
)

type State string

const (
	StateDraft    State = "draft"
	StateRunning  State = "running"
	StateCanceled State = "canceled"
)

type Subscription struct {
	ID        int64
	Code      string
	Party     string
	StartDate time.Time
	EndDate   *time.Time
	State     State
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Line reserves a service for a date interval and optionally claims an asset
// lot exclusively for that interval. A nil EndDate means the reservation is
// open-ended; a nil NextConsumptionDate means no recurrence is configured or
// the series is exhausted.
type Line struct {
	ID                  int64
	SubscriptionID      int64
	ServiceID           int64
	AssetLotID          *int64
	StartDate           time.Time
	EndDate             *time.Time
	Recurrence          string
	NextConsumptionDate *time.Time
	Quantity            decimal.Decimal
	UnitPrice           decimal.Decimal
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// Overlaps reports whether the two lines reserve the same asset lot for
// intersecting half-open [start, end) intervals, a nil end reading as
// +infinity. A line never overlaps itself, and lines without a lot (or with
// different lots) never overlap.
func (l *Line) Overlaps(o *Line) bool {
	if l == o || (l.ID != 0 && l.ID == o.ID) {
		return false
	}
	if l.AssetLotID == nil || o.AssetLotID == nil || *l.AssetLotID != *o.AssetLotID {
		return false
	}
	if o.EndDate != nil && !l.StartDate.Before(*o.EndDate) {
		return false
	}
	if l.EndDate != nil && !o.StartDate.Before(*l.EndDate) {
		return false
	}
	return true
}
