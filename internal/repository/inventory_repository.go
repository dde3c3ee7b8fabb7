package repository

import (
	"context"

	"marketplace/internal/domain/model"
)

type InventoryRepository interface {
	// 在庫が足りるときだけ減算。チェックと減算を1つのUPDATEで行う。
	DecreaseStockIfEnough(ctx context.Context, productID int64, qty int64) (bool, error)

	// 在庫戻し（キャンセルなど）
	IncreaseStock(ctx context.Context, productID int64, qty int64) error

	// 在庫が0になった商品をOUT_OF_STOCKにする
	MarkOutOfStockIfEmpty(ctx context.Context, productID int64) error

	// 在庫が戻ったOUT_OF_STOCK商品をACTIVEに戻す
	MarkActiveIfInStock(ctx context.Context, productID int64) error

	// 調整履歴作成
	CreateAdjustment(ctx context.Context, adjustment model.InventoryAdjustment) error
}
