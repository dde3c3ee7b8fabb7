package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// 注文作成時の商品スナップショット。作成後は不変。
// 商品名・SKU・単価は注文時点の値を凍結し、後のカタログ編集で書き換わらない。
type OrderItem struct {
	ID        int64 `gorm:"primaryKey;autoIncrement" json:"id"`
	OrderID   int64 `gorm:"not null;index" json:"order_id"`
	ProductID int64 `gorm:"not null;index" json:"product_id"`

	Quantity  int64           `gorm:"not null" json:"quantity"`
	UnitPrice decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"unit_price"`
	Subtotal  decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"subtotal"`

	ProductName string `gorm:"type:varchar(200);not null" json:"product_name"`
	ProductSKU  string `gorm:"type:varchar(50)" json:"product_sku"`

	CreatedAt time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
}
