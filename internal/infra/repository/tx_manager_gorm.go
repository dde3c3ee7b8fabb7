package repository

import (
	"context"
	"database/sql"

	repo "marketplace/internal/repository"

	"gorm.io/gorm"
)

type txReposGorm struct {
	orders     repo.OrderRepository
	orderItems repo.OrderItemRepository
	products   repo.ProductRepository
	stores     repo.StoreRepository
	inventory  repo.InventoryRepository
	auditLogs  repo.AuditLogRepository
}

func (r *txReposGorm) Orders() repo.OrderRepository         { return r.orders }
func (r *txReposGorm) OrderItems() repo.OrderItemRepository { return r.orderItems }
func (r *txReposGorm) Products() repo.ProductRepository     { return r.products }
func (r *txReposGorm) Stores() repo.StoreRepository         { return r.stores }
func (r *txReposGorm) Inventory() repo.InventoryRepository  { return r.inventory }
func (r *txReposGorm) AuditLogs() repo.AuditLogRepository   { return r.auditLogs }

type TxManagerGorm struct {
	db *gorm.DB
}

func NewTxManagerGorm(db *gorm.DB) *TxManagerGorm {
	return &TxManagerGorm{db: db}
}

func (tm *TxManagerGorm) WithinTx(ctx context.Context, fn func(r repo.TxRepos) error) error {
	return tm.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(newTxRepos(tx))
	})
}

// 注文作成用。在庫のチェック→減算が並行リクエストと競合しても
// lost updateにならないようSERIALIZABLEで実行する。
// 失敗はErrConflictになって呼び出し側へ届く。
func (tm *TxManagerGorm) WithinSerializableTx(ctx context.Context, fn func(r repo.TxRepos) error) error {
	err := tm.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(newTxRepos(tx))
	}, &sql.TxOptions{Isolation: sql.LevelSerializable})
	return wrapConflict(err)
}

func newTxRepos(tx *gorm.DB) repo.TxRepos {
	//repoはtxを持ったDBで作り直す
	return &txReposGorm{
		orders:     NewOrderGormRepository(tx),
		orderItems: NewOrderItemGormRepository(tx),
		products:   NewProductGormRepository(tx),
		stores:     NewStoreGormRepository(tx),
		inventory:  NewInventoryGormRepository(tx),
		auditLogs:  NewAuditLogGormRepository(tx),
	}
}
