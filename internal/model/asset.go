package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AssetStatus constants. active -> discarded is terminal.
const (
	AssetActive    = "active"
	AssetDiscarded = "discarded"
)

// Asset is an independently tracked durable good, not pooled inventory.
type Asset struct {
	ID            uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	ItemNumber    string          `gorm:"type:varchar(100);uniqueIndex;not null" json:"item_number"`
	Name          string          `gorm:"type:varchar(255);not null" json:"name"`
	Type          string          `gorm:"type:varchar(100)" json:"type"`
	PurchaseDate  *time.Time      `json:"purchase_date"`
	PurchasePrice decimal.Decimal `gorm:"type:decimal(12,2);default:0" json:"purchase_price"`
	Location      string          `gorm:"type:varchar(255)" json:"location"`
	Status        string          `gorm:"type:varchar(20);not null;default:'active';index" json:"status"`
	DiscardReason string          `gorm:"type:text" json:"discard_reason"`
	DiscardedAt   *time.Time      `json:"discarded_at"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}
