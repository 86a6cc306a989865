package model

import (
	"time"

	"github.com/google/uuid"
)

const (
	ActionCreateItem  = "CREATE_ITEM"
	ActionUpdateItem  = "UPDATE_ITEM"
	ActionDeleteItem  = "DELETE_ITEM"
	ActionRestockItem = "RESTOCK_ITEM"
	ActionDiscardItem = "DISCARD_ITEM"

	// Request workflow actions
	ActionSubmitRequest    = "SUBMIT_REQUEST"
	ActionEditRequestLines = "EDIT_REQUEST_LINES"
	ActionApproveRequest   = "APPROVE_REQUEST"
	ActionRejectRequest    = "REJECT_REQUEST"
	ActionIssueItems       = "ISSUE_ITEMS"
	ActionReturnItem       = "RETURN_ITEM"
	ActionTransferItem     = "TRANSFER_ITEM"

	// Asset register actions
	ActionCreateAsset  = "CREATE_ASSET"
	ActionUpdateAsset  = "UPDATE_ASSET"
	ActionDiscardAsset = "DISCARD_ASSET"
)

// AuditLog tracks Who, What, and When for critical system changes
type AuditLog struct {
	ID         uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	UserID     *uuid.UUID `gorm:"type:uuid;index" json:"user_id"` // Nullable gracefully if automated
	User       *User      `gorm:"foreignKey:UserID" json:"user"`
	Action     string     `gorm:"type:varchar(50);not null;index" json:"action"`
	EntityID   string     `gorm:"type:varchar(50);index" json:"entity_id"`        // Reference string (uuid/code)
	EntityName string     `gorm:"type:varchar(255)" json:"entity_name,omitempty"` // Human readable name
	Details    string     `gorm:"type:jsonb" json:"details"`                      // Serialized JSON payload of the action
	CreatedAt  time.Time  `gorm:"index" json:"created_at"`
}
