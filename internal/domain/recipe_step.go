package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type StepKind string

const (
	StepTrigger StepKind = "trigger"
	StepAction  StepKind = "action"
	StepClosure StepKind = "closure"
)

// PostType returns the storage identifier the export format uses for a
// step of this kind. These match the legacy post type names and must not
// change without a format version bump.
func (k StepKind) PostType() string {
	switch k {
	case StepTrigger:
		return "uo-trigger"
	case StepAction:
		return "uo-action"
	case StepClosure:
		return "uo-closure"
	}
	return ""
}

func StepKindFromPostType(postType string) (StepKind, error) {
	switch postType {
	case "uo-trigger":
		return StepTrigger, nil
	case "uo-action":
		return StepAction, nil
	case "uo-closure":
		return StepClosure, nil
	}
	return "", NewValidationError("step", "unknown post type "+postType)
}

// RecipeStep is one trigger/action/closure of a recipe. Meta is the
// free-form key/value map holding the step's configured field values.
type RecipeStep struct {
	ID               uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	RecipeID         uuid.UUID      `gorm:"type:uuid;not null;index" json:"recipe_id"`
	Kind             string         `gorm:"column:kind;not null;index" json:"kind"`
	IntegrationCode  string         `gorm:"column:integration_code;not null;index" json:"integration_code"`
	StepCode         string         `gorm:"column:step_code;not null;index" json:"step_code"`
	SentenceTemplate string         `gorm:"column:sentence_template;not null" json:"sentence_template"`
	ReadableSentence string         `gorm:"column:readable_sentence" json:"readable_sentence,omitempty"`
	Meta             datatypes.JSON `gorm:"column:meta;type:jsonb" json:"meta"`
	Background       bool           `gorm:"column:background;not null;default:false" json:"background"`
	Position         int            `gorm:"column:position;not null;default:0;index" json:"position"`
	CreatedAt        time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt        time.Time      `gorm:"not null;default:now()" json:"updated_at"`
	DeletedAt        gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (RecipeStep) TableName() string { return "recipe_step" }
