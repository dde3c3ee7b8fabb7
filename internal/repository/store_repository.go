package repository

import (
	"context"

	"marketplace/internal/domain/model"
)

// 店舗の読み取りだけを約束。
type StoreRepository interface {
	FindByID(ctx context.Context, id int64) (model.Store, error)

	//販売者は店舗を1つだけ持つ
	FindByOwnerID(ctx context.Context, ownerID int64) (model.Store, error)
}
