package model

import (
	"time"

	"github.com/google/uuid"
)

// IssuedItem records a quantity of a stock item handed to a user. Stock is
// deducted when the originating request is approved, not at issuance; the
// recorded Quantity is exactly what gets credited back on return.
type IssuedItem struct {
	ID         uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	ItemID     uuid.UUID  `gorm:"type:uuid;not null;index" json:"item_id"`
	Item       *StockItem `gorm:"foreignKey:ItemID;constraint:OnDelete:CASCADE" json:"item,omitempty"`
	HolderID   uuid.UUID  `gorm:"type:uuid;not null;index" json:"holder_id"` // reassigned on transfer
	Holder     *User      `gorm:"foreignKey:HolderID" json:"holder,omitempty"`
	RequestID  *uuid.UUID `gorm:"type:uuid;index" json:"request_id"` // nullable: direct issues have no request
	Quantity   int        `gorm:"type:int;not null" json:"quantity"`
	IssuedAt   time.Time  `gorm:"not null" json:"issued_at"`
	ReturnDue  time.Time  `gorm:"not null;index" json:"return_due"`
	Returned   bool       `gorm:"not null;default:false;index" json:"returned"`
	ReturnedAt *time.Time `json:"returned_at"`
	IssuedTo   string     `gorm:"type:varchar(255)" json:"issued_to"` // free-text organization/person label
	Notes      string     `gorm:"type:text" json:"notes"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// IsOverdue reports whether the item is active and past its return-due date.
func (i *IssuedItem) IsOverdue(now time.Time) bool {
	return !i.Returned && now.After(i.ReturnDue)
}

// DaysOverdue returns the number of whole days past the return-due date,
// or 0 for returned or not-yet-due items.
func (i *IssuedItem) DaysOverdue(now time.Time) int {
	if !i.IsOverdue(now) {
		return 0
	}
	return int(now.Sub(i.ReturnDue).Hours() / 24)
}

// Transfer is an append-only audit record of custody reassignment of an
// active IssuedItem between two users.
type Transfer struct {
	ID           uuid.UUID   `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	IssuedItemID uuid.UUID   `gorm:"type:uuid;not null;index" json:"issued_item_id"`
	IssuedItem   *IssuedItem `gorm:"foreignKey:IssuedItemID;constraint:OnDelete:CASCADE" json:"issued_item,omitempty"`
	FromUserID   uuid.UUID   `gorm:"type:uuid;not null;index" json:"from_user_id"`
	FromUser     *User       `gorm:"foreignKey:FromUserID" json:"from_user,omitempty"`
	ToUserID     uuid.UUID   `gorm:"type:uuid;not null;index" json:"to_user_id"`
	ToUser       *User       `gorm:"foreignKey:ToUserID" json:"to_user,omitempty"`
	Notes        string      `gorm:"type:text" json:"notes"`
	CreatedAt    time.Time   `gorm:"index" json:"created_at"`
}
