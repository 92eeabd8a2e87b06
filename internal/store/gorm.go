package store

import (
	"context"
	"fmt"
	"sync"

	"orderexec/internal/model"
	"orderexec/internal/model/enum"
	"orderexec/pkg/exception"

	"github.com/yanun0323/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormStore persists records through gorm. The idempotency ledger relies on
// the primary key of idempotency_records for its insert-if-absent.
type GormStore struct {
	db       *gorm.DB
	commitMu sync.Mutex
}

// NewGormStore wraps db. Call Migrate first on an empty database.
func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

// Migrate creates or updates the tables used by GormStore.
func Migrate(ctx context.Context, db *gorm.DB) error {
	if err := db.WithContext(ctx).AutoMigrate(&model.Order{}, &model.Execution{}, &model.IdempotencyRecord{}); err != nil {
		return errors.Wrap(err, "auto migrate")
	}
	return nil
}

func (s *GormStore) InTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	if tx, ok := joined(ctx, s); ok {
		return fn(ctx, tx)
	}

	db := s.db.WithContext(ctx).Begin()
	if db.Error != nil {
		return errors.Wrap(db.Error, "begin transaction")
	}
	done := false
	defer func() {
		if !done {
			db.Rollback()
		}
	}()

	tx := &gormTx{db: db}
	txCtx, sc := begin(ctx, s, tx)
	if err := fn(txCtx, tx); err != nil {
		return err
	}

	s.commitMu.Lock()
	defer s.commitMu.Unlock()
	if err := db.Commit().Error; err != nil {
		return errors.Wrap(err, "commit transaction")
	}
	done = true
	sc.run()
	return nil
}

type gormTx struct {
	db *gorm.DB
}

func (t *gormTx) session(ctx context.Context) *gorm.DB {
	return t.db.WithContext(ctx)
}

func (t *gormTx) GetOrder(ctx context.Context, id string) (model.Order, error) {
	var orders []model.Order
	if err := t.session(ctx).Where("id = ?", id).Limit(1).Find(&orders).Error; err != nil {
		return model.Order{}, errors.Wrap(err, "get order").With("id", id)
	}
	if len(orders) == 0 {
		return model.Order{}, fmt.Errorf("%w: %s", exception.ErrNotFound, id)
	}
	return orders[0], nil
}

func (t *gormTx) InsertOrder(ctx context.Context, o *model.Order) error {
	if o == nil {
		return exception.ErrNilInstance
	}
	if err := t.session(ctx).Create(o).Error; err != nil {
		return errors.Wrap(err, "insert order").With("id", o.ID)
	}
	return nil
}

func (t *gormTx) UpdateOrder(ctx context.Context, o *model.Order) error {
	if o == nil {
		return exception.ErrNilInstance
	}
	res := t.session(ctx).Model(&model.Order{}).
		Where("id = ? AND revision = ?", o.ID, o.Revision).
		Updates(map[string]any{
			"filled_quantity": o.FilledQuantity,
			"status":          o.Status,
			"updated_at":      o.UpdatedAt,
			"revision":        o.Revision + 1,
		})
	if res.Error != nil {
		return errors.Wrap(res.Error, "update order").With("id", o.ID)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: order %s revision %d", exception.ErrConcurrentModification, o.ID, o.Revision)
	}
	o.Revision++
	return nil
}

func (t *gormTx) ListOrders(ctx context.Context, filter OrderFilter) ([]model.Order, error) {
	q := t.session(ctx).Model(&model.Order{})
	if filter.Symbol != "" {
		q = q.Where("symbol = ?", filter.Symbol)
	}
	if filter.Status.IsAvailable() {
		q = q.Where("status = ?", filter.Status)
	}
	var orders []model.Order
	if err := q.Order("created_at DESC").Order("id DESC").Find(&orders).Error; err != nil {
		return nil, errors.Wrap(err, "list orders")
	}
	return orders, nil
}

func (t *gormTx) ListOpenOrders(ctx context.Context) ([]model.Order, error) {
	var orders []model.Order
	err := t.session(ctx).
		Where("status IN ?", enum.OpenStatuses()).
		Order("created_at ASC").Order("id ASC").
		Find(&orders).Error
	if err != nil {
		return nil, errors.Wrap(err, "list open orders")
	}
	return orders, nil
}

func (t *gormTx) FindIdempotencyRecord(ctx context.Context, key string) (model.IdempotencyRecord, bool, error) {
	var recs []model.IdempotencyRecord
	if err := t.session(ctx).Where("idempotency_key = ?", key).Limit(1).Find(&recs).Error; err != nil {
		return model.IdempotencyRecord{}, false, errors.Wrap(err, "find idempotency record")
	}
	if len(recs) == 0 {
		return model.IdempotencyRecord{}, false, nil
	}
	return recs[0], true, nil
}

func (t *gormTx) InsertIdempotencyRecordIfAbsent(ctx context.Context, rec model.IdempotencyRecord) (bool, error) {
	res := t.session(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "idempotency_key"}}, DoNothing: true}).
		Create(&rec)
	if res.Error != nil {
		return false, errors.Wrap(res.Error, "insert idempotency record")
	}
	return res.RowsAffected == 1, nil
}

func (t *gormTx) InsertExecution(ctx context.Context, e *model.Execution) error {
	if e == nil {
		return exception.ErrNilInstance
	}
	if err := t.session(ctx).Create(e).Error; err != nil {
		return errors.Wrap(err, "insert execution").With("order_id", e.OrderID)
	}
	return nil
}

func (t *gormTx) ListExecutions(ctx context.Context, orderID string) ([]model.Execution, error) {
	var execs []model.Execution
	err := t.session(ctx).
		Where("order_id = ?", orderID).
		Order("executed_at ASC").Order("id ASC").
		Find(&execs).Error
	if err != nil {
		return nil, errors.Wrap(err, "list executions")
	}
	return execs, nil
}
