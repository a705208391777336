package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Spok95/asset-subs/internal/domain/schedule"
	"github.com/Spok95/asset-subs/internal/domain/subscriptions"
	"github.com/Spok95/asset-subs/internal/infra/metrics"
	"github.com/Spok95/asset-subs/internal/infra/notify"
)

// Workflow wires the subscription transitions around the two core checks:
// the exclusivity validator on every line write and the recurrence scheduler
// on every consumption.
type Workflow struct {
	store    Store
	log      *slog.Logger
	notifier *notify.Notifier
}

func New(store Store, log *slog.Logger, notifier *notify.Notifier) *Workflow {
	return &Workflow{store: store, log: log, notifier: notifier}
}

// LineInput describes a line to create. A zero StartDate defaults to the
// subscription's start date; a nil EndDate means open-ended. An empty
// Recurrence falls back to the service default.
type LineInput struct {
	SubscriptionID int64
	ServiceID      int64
	AssetLotID     *int64
	StartDate      time.Time
	EndDate        *time.Time
	Recurrence     string
	Quantity       decimal.Decimal
	UnitPrice      decimal.Decimal
}

func (w *Workflow) CreateLine(ctx context.Context, in LineInput) (*subscriptions.Line, error) {
	sub, err := w.store.GetSubscription(ctx, in.SubscriptionID)
	if err != nil {
		return nil, err
	}
	if sub == nil {
		return nil, ErrNotFound
	}
	if sub.State != subscriptions.StateDraft {
		return nil, ErrNotDraft
	}

	svc, err := w.store.GetService(ctx, in.ServiceID)
	if err != nil {
		return nil, err
	}
	if svc == nil {
		return nil, ErrNotFound
	}

	l := &subscriptions.Line{
		SubscriptionID: sub.ID,
		ServiceID:      svc.ID,
		AssetLotID:     in.AssetLotID,
		StartDate:      in.StartDate,
		EndDate:        in.EndDate,
		Recurrence:     in.Recurrence,
		Quantity:       in.Quantity,
		UnitPrice:      in.UnitPrice,
	}
	if l.StartDate.IsZero() {
		l.StartDate = sub.StartDate
	}
	if l.Recurrence == "" {
		l.Recurrence = svc.Recurrence
	}

	if err := w.checkDates(l, sub); err != nil {
		return nil, err
	}
	if err := w.checkLot(ctx, l); err != nil {
		return nil, err
	}

	next, err := w.nextConsumption(l, sub)
	if err != nil {
		return nil, err
	}
	l.NextConsumptionDate = next

	var created *subscriptions.Line
	err = w.store.WithTx(ctx, func(tx TxStore) error {
		created, err = tx.InsertLine(ctx, l)
		if err != nil {
			return err
		}
		return w.validate(ctx, tx, []int64{created.ID})
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// UpdateLineDates moves a line's interval. Start dates are mutable only in
// draft before any consumption; end dates additionally while the schedule is
// still advancing.
func (w *Workflow) UpdateLineDates(ctx context.Context, lineID int64, start time.Time, end *time.Time) (*subscriptions.Line, error) {
	l, sub, err := w.lineWithSubscription(ctx, lineID)
	if err != nil {
		return nil, err
	}

	consumed, err := w.store.HasConsumed(ctx, l.ID)
	if err != nil {
		return nil, err
	}
	if !start.Equal(l.StartDate) {
		if sub.State != subscriptions.StateDraft || consumed {
			return nil, &DateError{LineID: l.ID, Reason: "start date is read-only after draft or once consumed"}
		}
	}
	endChanged := (end == nil) != (l.EndDate == nil) || (end != nil && l.EndDate != nil && !end.Equal(*l.EndDate))
	// End dates stay mutable outside draft until the first consumption.
	if endChanged && sub.State != subscriptions.StateDraft && consumed {
		return nil, &DateError{LineID: l.ID, Reason: "end date is read-only once consumed"}
	}

	l.StartDate = start
	l.EndDate = end
	// Until the first consumption the cached schedule is just a projection
	// of the dates; moving them restarts the series from the new start.
	if !consumed {
		l.NextConsumptionDate = nil
		next, err := w.nextConsumption(l, sub)
		if err != nil {
			return nil, err
		}
		l.NextConsumptionDate = next
	}
	if err := w.checkDates(l, sub); err != nil {
		return nil, err
	}

	var updated *subscriptions.Line
	err = w.store.WithTx(ctx, func(tx TxStore) error {
		var err error
		updated, err = tx.UpdateLine(ctx, l)
		if err != nil {
			return err
		}
		return w.validate(ctx, tx, []int64{l.ID})
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// SetLineAssetLot assigns or clears a line's asset lot. Only draft
// subscriptions may reassign assets.
func (w *Workflow) SetLineAssetLot(ctx context.Context, lineID int64, lotID *int64) (*subscriptions.Line, error) {
	l, sub, err := w.lineWithSubscription(ctx, lineID)
	if err != nil {
		return nil, err
	}
	if sub.State != subscriptions.StateDraft {
		return nil, ErrNotDraft
	}

	l.AssetLotID = lotID
	if err := w.checkLot(ctx, l); err != nil {
		return nil, err
	}
	if err := w.checkDates(l, sub); err != nil {
		return nil, err
	}

	var updated *subscriptions.Line
	err = w.store.WithTx(ctx, func(tx TxStore) error {
		var err error
		updated, err = tx.UpdateLine(ctx, l)
		if err != nil {
			return err
		}
		return w.validate(ctx, tx, []int64{l.ID})
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// Run moves a draft subscription to running. Every line of a service with an
// asset pool must hold a lot, and the whole line set is revalidated for
// exclusivity before the transition commits.
func (w *Workflow) Run(ctx context.Context, subscriptionID int64) error {
	sub, err := w.store.GetSubscription(ctx, subscriptionID)
	if err != nil {
		return err
	}
	if sub == nil {
		return ErrNotFound
	}
	if sub.State != subscriptions.StateDraft {
		return ErrNotDraft
	}

	lines, err := w.store.LinesBySubscription(ctx, sub.ID)
	if err != nil {
		return err
	}
	ids := make([]int64, 0, len(lines))
	for i := range lines {
		l := &lines[i]
		required, err := w.store.AssetLotRequired(ctx, l.ServiceID)
		if err != nil {
			return err
		}
		if required && l.AssetLotID == nil {
			return fmt.Errorf("%w: line %d", ErrAssetLotRequired, l.ID)
		}
		ids = append(ids, l.ID)
	}

	return w.store.WithTx(ctx, func(tx TxStore) error {
		for i := range lines {
			l := &lines[i]
			if l.NextConsumptionDate != nil || l.Recurrence == "" {
				continue
			}
			next, err := w.nextConsumption(l, sub)
			if err != nil {
				return err
			}
			if err := tx.SetNextConsumptionDate(ctx, l.ID, next); err != nil {
				return err
			}
		}
		if err := tx.SetState(ctx, sub.ID, subscriptions.StateRunning); err != nil {
			return err
		}
		return w.validate(ctx, tx, ids)
	})
}

// Cancel releases every asset lot held by the subscription's lines and moves
// the subscription to canceled.
func (w *Workflow) Cancel(ctx context.Context, subscriptionID int64) error {
	sub, err := w.store.GetSubscription(ctx, subscriptionID)
	if err != nil {
		return err
	}
	if sub == nil {
		return ErrNotFound
	}
	if sub.State == subscriptions.StateCanceled {
		return ErrAlreadyCanceled
	}

	return w.store.WithTx(ctx, func(tx TxStore) error {
		if err := tx.ClearAssetLots(ctx, sub.ID); err != nil {
			return err
		}
		return tx.SetState(ctx, sub.ID, subscriptions.StateCanceled)
	})
}

// Consume writes a consumption record for every running line whose next
// consumption date has been reached and advances each schedule until it
// passes asOf or exhausts. Returns the number of records written.
func (w *Workflow) Consume(ctx context.Context, subscriptionID int64, asOf time.Time) (int, error) {
	sub, err := w.store.GetSubscription(ctx, subscriptionID)
	if err != nil {
		return 0, err
	}
	if sub == nil {
		return 0, ErrNotFound
	}
	if sub.State != subscriptions.StateRunning {
		return 0, ErrNotRunning
	}

	lines, err := w.store.LinesBySubscription(ctx, sub.ID)
	if err != nil {
		return 0, err
	}

	written := 0
	err = w.store.WithTx(ctx, func(tx TxStore) error {
		for i := range lines {
			l := &lines[i]
			for l.NextConsumptionDate != nil && !l.NextConsumptionDate.After(asOf) {
				if err := tx.AddConsumption(ctx, l.ID, *l.NextConsumptionDate, l.Quantity); err != nil {
					return err
				}
				written++

				next, err := w.nextConsumption(l, sub)
				if err != nil {
					return err
				}
				l.NextConsumptionDate = next
				if err := tx.SetNextConsumptionDate(ctx, l.ID, next); err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	metrics.Consumptions.Add(float64(written))
	return written, nil
}

// ComputeNextConsumption exposes the scheduler for a single line: the next
// date to persist, or nil when the series is exhausted.
func (w *Workflow) ComputeNextConsumption(ctx context.Context, lineID int64) (*time.Time, error) {
	l, sub, err := w.lineWithSubscription(ctx, lineID)
	if err != nil {
		return nil, err
	}
	return w.nextConsumption(l, sub)
}

func (w *Workflow) nextConsumption(l *subscriptions.Line, sub *subscriptions.Subscription) (*time.Time, error) {
	if l.Recurrence == "" {
		return nil, nil
	}
	rule, err := schedule.Parse(l.Recurrence)
	if err != nil {
		return nil, err
	}
	return schedule.NextConsumption(rule, l.NextConsumptionDate, l.StartDate, l.EndDate, sub.EndDate), nil
}

// checkDates enforces the line-local date and quantity constraints. These
// run before the exclusivity validator and abort the write on their own.
func (w *Workflow) checkDates(l *subscriptions.Line, sub *subscriptions.Subscription) error {
	if l.StartDate.Before(sub.StartDate) {
		return &DateError{LineID: l.ID, Reason: "start date before subscription start date"}
	}
	if l.EndDate != nil {
		if l.EndDate.Before(l.StartDate) {
			return &DateError{LineID: l.ID, Reason: "end date before start date"}
		}
		if sub.EndDate != nil && l.EndDate.After(*sub.EndDate) {
			return &DateError{LineID: l.ID, Reason: "end date after subscription end date"}
		}
		if l.NextConsumptionDate != nil && l.EndDate.Before(*l.NextConsumptionDate) {
			return &DateError{LineID: l.ID, Reason: "end date before next consumption date"}
		}
	}
	if l.AssetLotID != nil && !l.Quantity.Equal(decimal.NewFromInt(1)) {
		return &DateError{LineID: l.ID, Reason: "quantity must be 1 for an asset reservation"}
	}
	return nil
}

func (w *Workflow) checkLot(ctx context.Context, l *subscriptions.Line) error {
	if l.AssetLotID == nil {
		return nil
	}
	ok, err := w.store.PoolContains(ctx, l.ServiceID, *l.AssetLotID)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: lot %d, service %d", ErrLotNotInPool, *l.AssetLotID, l.ServiceID)
	}
	return nil
}

// validate runs the exclusivity check and reports conflicts to the admin
// chat before returning them.
func (w *Workflow) validate(ctx context.Context, tx TxStore, ids []int64) error {
	metrics.Validations.Inc()
	err := tx.ValidateExclusivity(ctx, ids)
	var overlap *subscriptions.OverlapError
	if errors.As(err, &overlap) {
		metrics.Conflicts.Inc()
		w.log.Warn("asset reservation conflict", "line1", overlap.Line1, "line2", overlap.Line2)
		w.notifier.Alert(overlap.Error())
	}
	return err
}

func (w *Workflow) lineWithSubscription(ctx context.Context, lineID int64) (*subscriptions.Line, *subscriptions.Subscription, error) {
	l, err := w.store.GetLine(ctx, lineID)
	if err != nil {
		return nil, nil, err
	}
	if l == nil {
		return nil, nil, ErrNotFound
	}
	sub, err := w.store.GetSubscription(ctx, l.SubscriptionID)
	if err != nil {
		return nil, nil, err
	}
	if sub == nil {
		return nil, nil, ErrNotFound
	}
	return l, sub, nil
}
