package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Category constants
const (
	CategoryGeneral = "general"
	CategoryMedical = "medical"
)

// UnitType constants
const (
	UnitBox = "box"
	UnitPcs = "pcs"
)

// DiscardReason constants
const (
	ReasonDamaged = "damaged"
	ReasonBroken  = "broken"
	ReasonExpired = "expired"
)

// StockItem represents a pooled inventory item. Quantity is mutated only
// through Ledger operations (restock, approval deduct, return credit, discard).
type StockItem struct {
	ID          uuid.UUID      `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Name        string         `gorm:"type:varchar(255);not null" json:"name"`
	Type        string         `gorm:"type:varchar(100)" json:"type"`
	Quantity    int            `gorm:"type:int;not null;default:0;check:quantity >= 0" json:"quantity"`
	Category    string         `gorm:"type:varchar(20);not null;default:'general'" json:"category"` // general, medical
	BatchNumber string         `gorm:"type:varchar(100)" json:"batch_number"`                       // required when medical
	ExpiryDate  *time.Time     `json:"expiry_date"`                                                 // required when medical
	UnitType    string         `gorm:"type:varchar(10);not null;default:'pcs'" json:"unit_type"`    // box, pcs
	Vendor      string         `gorm:"type:varchar(255)" json:"vendor"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`
}

// PurchaseHistory records a restock event. Append-only; written best-effort
// after the quantity update commits.
type PurchaseHistory struct {
	ID            uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	ItemID        uuid.UUID       `gorm:"type:uuid;not null;index" json:"item_id"`
	Item          *StockItem      `gorm:"foreignKey:ItemID;constraint:OnDelete:CASCADE" json:"item,omitempty"`
	Vendor        string          `gorm:"type:varchar(255)" json:"vendor"`
	QuantityAdded int             `gorm:"type:int;not null" json:"quantity_added"`
	UnitCost      decimal.Decimal `gorm:"type:decimal(12,2);default:0" json:"unit_cost"`
	Notes         string          `gorm:"type:text" json:"notes"`
	CreatedAt     time.Time       `gorm:"index" json:"created_at"`
}

// DiscardedItem records quantity removed due to damage, breakage or expiry.
// Append-only; created in the same transaction as the Ledger deduction.
type DiscardedItem struct {
	ID          uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	ItemID      uuid.UUID  `gorm:"type:uuid;not null;index" json:"item_id"`
	Item        *StockItem `gorm:"foreignKey:ItemID;constraint:OnDelete:CASCADE" json:"item,omitempty"`
	Quantity    int        `gorm:"type:int;not null" json:"quantity"`
	Reason      string     `gorm:"type:varchar(20);not null;index" json:"reason"` // damaged, broken, expired
	DiscardedBy *uuid.UUID `gorm:"type:uuid;index" json:"discarded_by"`
	User        *User      `gorm:"foreignKey:DiscardedBy" json:"user,omitempty"`
	Notes       string     `gorm:"type:text" json:"notes"`
	CreatedAt   time.Time  `gorm:"index" json:"created_at"`
}

// ValidDiscardReason reports whether reason is one of the discard enum values.
func ValidDiscardReason(reason string) bool {
	return reason == ReasonDamaged || reason == ReasonBroken || reason == ReasonExpired
}
