package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type BlockKind string

const (
	BlockDelay  BlockKind = "delay"
	BlockFilter BlockKind = "filter"
	BlockLoop   BlockKind = "loop"
)

func NewBlockKind(raw string) (BlockKind, error) {
	switch BlockKind(raw) {
	case BlockDelay, BlockFilter, BlockLoop:
		return BlockKind(raw), nil
	}
	return "", NewValidationError("block", "unknown kind "+raw)
}

// PostType returns the export identifier for loop blocks; delay and
// filter blocks are stored inline on the recipe export.
func (k BlockKind) PostType() string {
	if k == BlockLoop {
		return "uo-loop-filter"
	}
	return ""
}

// RecipeBlock is a recipe-level control construct. Config holds the
// kind-specific settings (delay duration, filter comparisons, loop
// source token); Filters holds normalized loop-filter maps.
type RecipeBlock struct {
	ID        uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	RecipeID  uuid.UUID      `gorm:"type:uuid;not null;index" json:"recipe_id"`
	Kind      string         `gorm:"column:kind;not null;index" json:"kind"`
	Config    datatypes.JSON `gorm:"column:config;type:jsonb" json:"config"`
	Filters   datatypes.JSON `gorm:"column:filters;type:jsonb" json:"filters,omitempty"`
	Position  int            `gorm:"column:position;not null;default:0;index" json:"position"`
	CreatedAt time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null;default:now()" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (RecipeBlock) TableName() string { return "recipe_block" }
