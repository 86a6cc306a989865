package model

import (
	"time"

	"github.com/google/uuid"
)

// RequestStatus constants. Transitions are one-directional:
// pending -> approved | rejected. "Issued" is derived from IssuedItem rows
// referencing the request, never stored here.
const (
	RequestPending  = "pending"
	RequestApproved = "approved"
	RequestRejected = "rejected"
)

// Request is a user's ask for a set of stock items.
type Request struct {
	ID          uuid.UUID     `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	RequesterID uuid.UUID     `gorm:"type:uuid;not null;index" json:"requester_id"`
	Requester   *User         `gorm:"foreignKey:RequesterID" json:"requester,omitempty"`
	Status      string        `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"`
	AdminNotes  string        `gorm:"type:text" json:"admin_notes"`
	ApprovedBy  *uuid.UUID    `gorm:"type:uuid" json:"approved_by"`
	Approver    *User         `gorm:"foreignKey:ApprovedBy" json:"approver,omitempty"`
	DecidedAt   *time.Time    `json:"decided_at"`
	Lines       []RequestLine `gorm:"foreignKey:RequestID;constraint:OnDelete:CASCADE" json:"lines"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
}

// RequestLine is one (item, quantity) pair of a Request. ItemName is a
// snapshot taken at submission so the line stays readable if the item is
// later renamed or deleted.
type RequestLine struct {
	ID        uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	RequestID uuid.UUID `gorm:"type:uuid;not null;index" json:"request_id"`
	ItemID    uuid.UUID `gorm:"type:uuid;not null;index" json:"item_id"`
	ItemName  string    `gorm:"type:varchar(255);not null" json:"item_name"`
	Quantity  int       `gorm:"type:int;not null" json:"quantity"`
	Position  int       `gorm:"type:int;not null;default:0" json:"position"`
}
