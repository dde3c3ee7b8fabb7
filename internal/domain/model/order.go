package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "PENDING"
	OrderStatusPaid       OrderStatus = "PAID"
	OrderStatusProcessing OrderStatus = "PROCESSING"
	OrderStatusShipped    OrderStatus = "SHIPPED"
	OrderStatusDelivered  OrderStatus = "DELIVERED"
	OrderStatusCancelled  OrderStatus = "CANCELLED"
	OrderStatusRefunded   OrderStatus = "REFUNDED"
)

// 終端ステータスからは遷移できない。
func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusDelivered || s == OrderStatusCancelled || s == OrderStatusRefunded
}

func (s OrderStatus) IsValid() bool {
	switch s {
	case OrderStatusPending, OrderStatusPaid, OrderStatusProcessing,
		OrderStatusShipped, OrderStatusDelivered, OrderStatusCancelled, OrderStatusRefunded:
		return true
	}
	return false
}

// strictモードで許可する遷移表。
// 前進はPENDING→PAID→PROCESSING→SHIPPED→DELIVERED。
// CANCELLEDは出荷前まで、REFUNDEDは支払い後から抜けられる。
var strictTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusPending:    {OrderStatusPaid, OrderStatusCancelled},
	OrderStatusPaid:       {OrderStatusProcessing, OrderStatusCancelled, OrderStatusRefunded},
	OrderStatusProcessing: {OrderStatusShipped, OrderStatusCancelled, OrderStatusRefunded},
	OrderStatusShipped:    {OrderStatusDelivered, OrderStatusRefunded},
	OrderStatusDelivered:  {OrderStatusRefunded},
}

// CanTransitionは from→to が許されるかを返す。
// strict=falseは参照実装どおり順序を検証しない（終端からの脱出だけ拒否）。
func CanTransition(from, to OrderStatus, strict bool) bool {
	if from == to {
		return false
	}
	if from.IsTerminal() {
		return false
	}
	if !strict {
		return true
	}
	for _, next := range strictTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "PENDING"
	PaymentStatusCompleted PaymentStatus = "COMPLETED"
	PaymentStatusFailed    PaymentStatus = "FAILED"
	PaymentStatusRefunded  PaymentStatus = "REFUNDED"
)

type PaymentMethod string

const (
	PaymentMethodCreditCard     PaymentMethod = "CREDIT_CARD"
	PaymentMethodPaypal         PaymentMethod = "PAYPAL"
	PaymentMethodBankTransfer   PaymentMethod = "BANK_TRANSFER"
	PaymentMethodCashOnDelivery PaymentMethod = "CASH_ON_DELIVERY"
)

func (m PaymentMethod) IsValid() bool {
	switch m {
	case PaymentMethodCreditCard, PaymentMethodPaypal,
		PaymentMethodBankTransfer, PaymentMethodCashOnDelivery:
		return true
	}
	return false
}

// 配送先。orders行にJSONで埋め込む（文字列につぶさない）。
type ShippingAddress struct {
	FullName     string `json:"full_name"`
	AddressLine1 string `json:"address_line1"`
	AddressLine2 string `json:"address_line2,omitempty"`
	City         string `json:"city"`
	State        string `json:"state"`
	PostalCode   string `json:"postal_code"`
	Country      string `json:"country"`
	Phone        string `json:"phone"`
}

// 1回の購入トランザクション。1人の購入者が1つの店舗に対して行う。
// 物理削除はしない（キャンセル・返金はステータス）。
type Order struct {
	ID      int64 `gorm:"primaryKey;autoIncrement" json:"id"`
	BuyerID int64 `gorm:"not null;index;uniqueIndex:idx_orders_buyer_idem_key" json:"buyer_id"`
	StoreID int64 `gorm:"not null;index" json:"store_id"`

	OrderNumber string `gorm:"type:varchar(50);not null;uniqueIndex" json:"order_number"`
	//二重送信防止キー（任意）。NULLなら重複排除しない。
	IdempotencyKey *string     `gorm:"type:varchar(255);uniqueIndex:idx_orders_buyer_idem_key" json:"-"`
	Status         OrderStatus `gorm:"type:varchar(20);not null;index;default:'PENDING'" json:"status"`

	PaymentStatus PaymentStatus `gorm:"type:varchar(20);not null;default:'PENDING'" json:"payment_status"`
	PaymentMethod PaymentMethod `gorm:"type:varchar(30);not null" json:"payment_method"`
	//外部決済の参照ID
	PaymentID string `gorm:"type:varchar(255)" json:"payment_id"`
	Currency  string `gorm:"type:varchar(3);not null;default:'USD'" json:"currency"`

	Subtotal     decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"subtotal"`
	ShippingCost decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0" json:"shipping_cost"`
	Tax          decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0" json:"tax"`
	Discount     decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0" json:"discount"`
	TotalAmount  decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"total_amount"`

	ShippingAddress ShippingAddress `gorm:"type:jsonb;serializer:json;not null" json:"shipping_address"`

	//追跡情報は不透明な文字列として保持する
	TrackingNumber    string     `gorm:"type:varchar(100)" json:"tracking_number"`
	TrackingURL       string     `gorm:"type:text" json:"tracking_url"`
	EstimatedDelivery *time.Time `json:"estimated_delivery"`

	BuyerNotes  string `gorm:"type:text" json:"buyer_notes"`
	SellerNotes string `gorm:"type:text" json:"seller_notes"`

	CreatedAt   time.Time  `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time  `gorm:"not null;autoUpdateTime" json:"updated_at"`
	PaidAt      *time.Time `json:"paid_at"`
	ShippedAt   *time.Time `json:"shipped_at"`
	DeliveredAt *time.Time `json:"delivered_at"`
}
