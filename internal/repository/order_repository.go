package repository

import (
	"context"
	"time"

	"marketplace/internal/domain/model"
)

// 購入者向け一覧のページング
type OrderListQuery struct {
	Page  int
	Limit int
}

// 店舗向け一覧（ステータス絞り込み付き）
type StoreOrderListQuery struct {
	Page   int
	Limit  int
	Status model.OrderStatus
}

// 管理者向けの横断検索
type AdminOrderListFilter struct {
	Page    int
	Limit   int
	Status  model.OrderStatus
	BuyerID *int64
	StoreID *int64
	From    *time.Time
	To      *time.Time
}

type OrderRepository interface {
	FindByID(ctx context.Context, orderID int64) (model.Order, error)
	Create(ctx context.Context, order model.Order) (int64, error)

	//読み込んだ行をそのまま保存する（ステータス更新・決済反映用）
	Save(ctx context.Context, order *model.Order) error

	ListByBuyerID(ctx context.Context, buyerID int64, q OrderListQuery) ([]model.Order, int64, error)
	ListByStoreID(ctx context.Context, storeID int64, q StoreOrderListQuery) ([]model.Order, int64, error)

	//検索（同じキーなら同じ結果を返す）
	FindByIdempotencyKey(ctx context.Context, buyerID int64, key string) (model.Order, bool, error)
	//管理者用の注文一覧
	ListAdmin(ctx context.Context, f AdminOrderListFilter) ([]model.Order, int64, error)
}
