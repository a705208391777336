package workflow

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/Spok95/asset-subs/internal/domain/catalog"
	"github.com/Spok95/asset-subs/internal/domain/consumption"
	"github.com/Spok95/asset-subs/internal/domain/subscriptions"
)

// Store is the persistence surface the workflow drives. The pgx repos
// satisfy it in production; tests use an in-memory fake.
type Store interface {
	GetSubscription(ctx context.Context, id int64) (*subscriptions.Subscription, error)
	GetLine(ctx context.Context, id int64) (*subscriptions.Line, error)
	LinesBySubscription(ctx context.Context, subscriptionID int64) ([]subscriptions.Line, error)

	GetService(ctx context.Context, id int64) (*catalog.Service, error)
	AssetLotRequired(ctx context.Context, serviceID int64) (bool, error)
	PoolContains(ctx context.Context, serviceID, lotID int64) (bool, error)

	HasConsumed(ctx context.Context, lineID int64) (bool, error)

	// WithTx runs fn inside one transaction; fn returning an error rolls
	// everything back, including any validation failure.
	WithTx(ctx context.Context, fn func(tx TxStore) error) error
}

// TxStore is the transactional slice of the store. ValidateExclusivity must
// serialize against concurrent validations for the duration of the
// transaction.
type TxStore interface {
	InsertLine(ctx context.Context, l *subscriptions.Line) (*subscriptions.Line, error)
	UpdateLine(ctx context.Context, l *subscriptions.Line) (*subscriptions.Line, error)
	SetNextConsumptionDate(ctx context.Context, lineID int64, date *time.Time) error
	ClearAssetLots(ctx context.Context, subscriptionID int64) error
	SetState(ctx context.Context, subscriptionID int64, state subscriptions.State) error
	AddConsumption(ctx context.Context, lineID int64, date time.Time, qty decimal.Decimal) error
	ValidateExclusivity(ctx context.Context, lineIDs []int64) error
}

// PgStore adapts the pgx repos to the workflow's store interfaces.
type PgStore struct {
	Subs      *subscriptions.Repo
	Catalog   *catalog.Repo
	Cons      *consumption.Repo
	ChunkSize int
}

func (s *PgStore) GetSubscription(ctx context.Context, id int64) (*subscriptions.Subscription, error) {
	return s.Subs.Get(ctx, id)
}

func (s *PgStore) GetLine(ctx context.Context, id int64) (*subscriptions.Line, error) {
	return s.Subs.GetLine(ctx, id)
}

func (s *PgStore) LinesBySubscription(ctx context.Context, subscriptionID int64) ([]subscriptions.Line, error) {
	return s.Subs.LinesBySubscription(ctx, subscriptionID)
}

func (s *PgStore) GetService(ctx context.Context, id int64) (*catalog.Service, error) {
	return s.Catalog.GetByID(ctx, id)
}

func (s *PgStore) AssetLotRequired(ctx context.Context, serviceID int64) (bool, error) {
	return s.Catalog.AssetLotRequired(ctx, serviceID)
}

func (s *PgStore) PoolContains(ctx context.Context, serviceID, lotID int64) (bool, error) {
	return s.Catalog.PoolContains(ctx, serviceID, lotID)
}

func (s *PgStore) HasConsumed(ctx context.Context, lineID int64) (bool, error) {
	return s.Cons.HasAny(ctx, lineID)
}

func (s *PgStore) WithTx(ctx context.Context, fn func(tx TxStore) error) error {
	tx, err := s.Subs.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(&pgTx{store: s, tx: tx}); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

type pgTx struct {
	store *PgStore
	tx    pgx.Tx
}

func (t *pgTx) InsertLine(ctx context.Context, l *subscriptions.Line) (*subscriptions.Line, error) {
	return t.store.Subs.InsertLine(ctx, t.tx, l)
}

func (t *pgTx) UpdateLine(ctx context.Context, l *subscriptions.Line) (*subscriptions.Line, error) {
	return t.store.Subs.UpdateLine(ctx, t.tx, l)
}

func (t *pgTx) SetNextConsumptionDate(ctx context.Context, lineID int64, date *time.Time) error {
	return t.store.Subs.SetNextConsumptionDate(ctx, t.tx, lineID, date)
}

func (t *pgTx) ClearAssetLots(ctx context.Context, subscriptionID int64) error {
	return t.store.Subs.ClearAssetLots(ctx, t.tx, subscriptionID)
}

func (t *pgTx) SetState(ctx context.Context, subscriptionID int64, state subscriptions.State) error {
	return t.store.Subs.SetState(ctx, t.tx, subscriptionID, state)
}

func (t *pgTx) AddConsumption(ctx context.Context, lineID int64, date time.Time, qty decimal.Decimal) error {
	_, err := t.store.Cons.CreateTx(ctx, t.tx, lineID, date, qty)
	return err
}

func (t *pgTx) ValidateExclusivity(ctx context.Context, lineIDs []int64) error {
	return t.store.Subs.ValidateExclusivity(ctx, t.tx, lineIDs, t.store.ChunkSize)
}
