package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type RecipeStatus string

const (
	RecipeDraft RecipeStatus = "draft"
	RecipeLive  RecipeStatus = "live"
)

type RecipeType string

const (
	RecipeUser      RecipeType = "user"
	RecipeAnonymous RecipeType = "anonymous"
)

// Recipe is the automation aggregate: one trigger step, ordered action
// steps, optional closures and blocks.
type Recipe struct {
	ID           uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	OwnerUserID  uuid.UUID      `gorm:"type:uuid;not null;index" json:"owner_user_id"`
	Title        string         `gorm:"column:title;not null" json:"title"`
	Status       string         `gorm:"column:status;not null;index;default:draft" json:"status"`
	RecipeType   string         `gorm:"column:recipe_type;not null;default:user" json:"recipe_type"`
	TimesPerUser int            `gorm:"column:times_per_user;not null;default:0" json:"times_per_user"`
	Notes        string         `gorm:"column:notes" json:"notes,omitempty"`
	Steps        []RecipeStep   `gorm:"foreignKey:RecipeID" json:"steps,omitempty"`
	Blocks       []RecipeBlock  `gorm:"foreignKey:RecipeID" json:"blocks,omitempty"`
	CreatedAt    time.Time      `gorm:"not null;default:now();index" json:"created_at"`
	UpdatedAt    time.Time      `gorm:"not null;default:now();index" json:"updated_at"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (Recipe) TableName() string { return "recipe" }

// IsLive reports whether the recipe accepts trigger events.
func (r *Recipe) IsLive() bool { return r != nil && r.Status == string(RecipeLive) }
