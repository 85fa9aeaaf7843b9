package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// ConnectedAccount stores credentials for one integration connection.
// The account dependency resolver checks for a row here.
type ConnectedAccount struct {
	ID              uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	OwnerUserID     uuid.UUID      `gorm:"type:uuid;not null;index" json:"owner_user_id"`
	IntegrationCode string         `gorm:"column:integration_code;not null;uniqueIndex:idx_account_owner_integration" json:"integration_code"`
	Label           string         `gorm:"column:label" json:"label,omitempty"`
	Credentials     datatypes.JSON `gorm:"column:credentials;type:jsonb" json:"-"`
	ConnectedAt     time.Time      `gorm:"not null;default:now()" json:"connected_at"`
	CreatedAt       time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt       time.Time      `gorm:"not null;default:now()" json:"updated_at"`
	DeletedAt       gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (ConnectedAccount) TableName() string { return "connected_account" }
