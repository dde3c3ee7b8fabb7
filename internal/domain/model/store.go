package model

import "time"

type StoreStatus string

const (
	StoreStatusActive    StoreStatus = "ACTIVE"
	StoreStatusInactive  StoreStatus = "INACTIVE"
	StoreStatusPending   StoreStatus = "PENDING"
	StoreStatusSuspended StoreStatus = "SUSPENDED"
)

// 販売者が1つだけ持つ店舗。
type Store struct {
	ID      int64 `gorm:"primaryKey;autoIncrement" json:"id"`
	OwnerID int64 `gorm:"not null;uniqueIndex" json:"owner_id"`

	Name   string      `gorm:"type:varchar(100);not null" json:"name"`
	Status StoreStatus `gorm:"type:varchar(20);not null;default:'PENDING'" json:"status"`

	//店舗のデフォルト通貨（ISO 4217）
	DefaultCurrency string `gorm:"type:varchar(3);not null;default:'USD'" json:"default_currency"`

	CreatedAt time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime" json:"updated_at"`
}
