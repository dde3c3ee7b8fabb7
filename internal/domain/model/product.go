package model

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type ProductStatus string

const (
	ProductStatusActive     ProductStatus = "ACTIVE"
	ProductStatusInactive   ProductStatus = "INACTIVE"
	ProductStatusOutOfStock ProductStatus = "OUT_OF_STOCK"
)

type Product struct {
	ID      int64 `gorm:"primaryKey;autoIncrement" json:"id"`
	StoreID int64 `gorm:"not null;index" json:"store_id"`

	Name        string          `gorm:"type:varchar(200);not null" json:"name"`
	SKU         string          `gorm:"type:varchar(50);uniqueIndex" json:"sku"`
	Description string          `gorm:"type:text" json:"description"`
	Price       decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"price"`
	Currency    string          `gorm:"type:varchar(3);not null;default:'USD'" json:"currency"`

	//在庫。注文作成だけが減らす。負になってはいけない。
	StockQuantity int64         `gorm:"not null;default:0" json:"stock_quantity"`
	Status        ProductStatus `gorm:"type:varchar(20);not null;index;default:'ACTIVE'" json:"status"`

	//セール期間（価格と期間が揃っているときだけ有効）
	SalePrice     *decimal.Decimal `gorm:"type:decimal(12,2)" json:"sale_price"`
	SaleStartDate *time.Time       `json:"sale_start_date"`
	SaleEndDate   *time.Time       `json:"sale_end_date"`

	CreatedAt time.Time      `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null;autoUpdateTime" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}
