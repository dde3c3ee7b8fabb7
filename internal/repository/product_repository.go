package repository

import (
	"context"
	"errors"

	"marketplace/internal/domain/model"
)

var ErrNotFound = errors.New("not found")

// 同時更新でトランザクションが中断されたとき。呼び出し側でリトライする。
var ErrConflict = errors.New("conflict")

// 商品の読み取りだけを約束。カタログ編集はこのコアの外。
type ProductRepository interface {
	FindByID(ctx context.Context, id int64) (model.Product, error)
}
