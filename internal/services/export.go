package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
	"gorm.io/gorm"

	"github.com/flowsmith/flowsmith-backend/internal/domain"
	"github.com/flowsmith/flowsmith-backend/internal/fields"
	"github.com/flowsmith/flowsmith-backend/internal/platform/apierr"
	"github.com/flowsmith/flowsmith-backend/internal/platform/logger"
	"github.com/flowsmith/flowsmith-backend/internal/repos"
)

const exportVersion = 1

// exportDoc is the portable YAML form of one recipe. Steps carry the
// legacy post-type identifiers so exports stay readable by older
// tooling.
type exportDoc struct {
	Version int          `yaml:"version"`
	Recipe  exportRecipe `yaml:"recipe"`
}

type exportRecipe struct {
	Title        string        `yaml:"title"`
	RecipeType   string        `yaml:"recipe_type"`
	TimesPerUser int           `yaml:"times_per_user,omitempty"`
	Notes        string        `yaml:"notes,omitempty"`
	Items        []exportItem  `yaml:"items"`
	Blocks       []exportBlock `yaml:"blocks,omitempty"`
}

type exportItem struct {
	PostType    string            `yaml:"post_type"`
	Integration string            `yaml:"integration"`
	Code        string            `yaml:"code"`
	Background  bool              `yaml:"background,omitempty"`
	Position    int               `yaml:"position"`
	Meta        map[string]string `yaml:"meta,omitempty"`
}

type exportBlock struct {
	Kind     string              `yaml:"kind"`
	PostType string              `yaml:"post_type,omitempty"`
	Position int                 `yaml:"position"`
	Config   map[string]any      `yaml:"config,omitempty"`
	Filters  []map[string]string `yaml:"filters,omitempty"`
}

type ExportService interface {
	Export(ctx context.Context, ownerID, recipeID uuid.UUID) ([]byte, error)
	Import(ctx context.Context, ownerID uuid.UUID, raw []byte) (*domain.Recipe, error)
}

type exportService struct {
	db      *gorm.DB
	log     *logger.Logger
	recipes repos.RecipeRepo
	steps   repos.RecipeStepRepo
	blocks  repos.RecipeBlockRepo
}

func NewExportService(db *gorm.DB, log *logger.Logger, recipes repos.RecipeRepo, steps repos.RecipeStepRepo, blocks repos.RecipeBlockRepo) ExportService {
	return &exportService{
		db:      db,
		log:     log.With("service", "ExportService"),
		recipes: recipes,
		steps:   steps,
		blocks:  blocks,
	}
}

func (es *exportService) Export(ctx context.Context, ownerID, recipeID uuid.UUID) ([]byte, error) {
	recipe, err := es.recipes.GetByIDWithChildren(ctx, nil, recipeID)
	if err != nil {
		return nil, apierr.New(http.StatusNotFound, "recipe_not_found", fmt.Errorf("recipe %s not found", recipeID))
	}
	if recipe.OwnerUserID != ownerID {
		return nil, apierr.New(http.StatusForbidden, "not_owner", fmt.Errorf("recipe belongs to another user"))
	}

	doc := exportDoc{
		Version: exportVersion,
		Recipe: exportRecipe{
			Title:        recipe.Title,
			RecipeType:   recipe.RecipeType,
			TimesPerUser: recipe.TimesPerUser,
			Notes:        recipe.Notes,
		},
	}
	for i := range recipe.Steps {
		step := &recipe.Steps[i]
		item := exportItem{
			PostType:    domain.StepKind(step.Kind).PostType(),
			Integration: step.IntegrationCode,
			Code:        step.StepCode,
			Background:  step.Background,
			Position:    step.Position,
		}
		if len(step.Meta) > 0 {
			var nested map[string]fields.FieldValue
			if err := json.Unmarshal(step.Meta, &nested); err != nil {
				return nil, fmt.Errorf("decode meta for step %s: %w", step.ID, err)
			}
			item.Meta = fields.Flatten(nested)
		}
		doc.Recipe.Items = append(doc.Recipe.Items, item)
	}
	for i := range recipe.Blocks {
		block := &recipe.Blocks[i]
		eb := exportBlock{
			Kind:     block.Kind,
			PostType: domain.BlockKind(block.Kind).PostType(),
			Position: block.Position,
		}
		if len(block.Config) > 0 {
			if err := json.Unmarshal(block.Config, &eb.Config); err != nil {
				return nil, fmt.Errorf("decode config for block %s: %w", block.ID, err)
			}
		}
		if len(block.Filters) > 0 {
			var nested []map[string]fields.FieldValue
			if err := json.Unmarshal(block.Filters, &nested); err != nil {
				return nil, fmt.Errorf("decode filters for block %s: %w", block.ID, err)
			}
			for _, f := range nested {
				eb.Filters = append(eb.Filters, fields.Flatten(f))
			}
		}
		doc.Recipe.Blocks = append(doc.Recipe.Blocks, eb)
	}
	return yaml.Marshal(doc)
}

// Import creates a new draft recipe from an export document. Imports
// never arrive live: the owner reviews and publishes explicitly.
func (es *exportService) Import(ctx context.Context, ownerID uuid.UUID, raw []byte) (*domain.Recipe, error) {
	var doc exportDoc
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, apierr.New(http.StatusBadRequest, "malformed_export", fmt.Errorf("parse export: %w", err))
	}
	if doc.Version != exportVersion {
		return nil, apierr.New(http.StatusBadRequest, "unsupported_version", fmt.Errorf("unsupported export version %d", doc.Version))
	}
	if doc.Recipe.Title == "" {
		return nil, apierr.New(http.StatusBadRequest, "malformed_export", fmt.Errorf("export has no recipe title"))
	}

	recipeType := doc.Recipe.RecipeType
	if recipeType == "" {
		recipeType = string(domain.RecipeUser)
	}

	recipe := &domain.Recipe{
		ID:           uuid.New(),
		OwnerUserID:  ownerID,
		Title:        doc.Recipe.Title,
		Status:       string(domain.RecipeDraft),
		RecipeType:   recipeType,
		TimesPerUser: doc.Recipe.TimesPerUser,
		Notes:        doc.Recipe.Notes,
	}

	if err := es.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := es.recipes.Create(ctx, tx, recipe); err != nil {
			return fmt.Errorf("create recipe: %w", err)
		}
		for _, item := range doc.Recipe.Items {
			kind, err := domain.StepKindFromPostType(item.PostType)
			if err != nil {
				return apierr.New(http.StatusBadRequest, "malformed_export", err)
			}
			meta, err := json.Marshal(fields.Normalize(item.Meta))
			if err != nil {
				return fmt.Errorf("encode meta: %w", err)
			}
			step := &domain.RecipeStep{
				ID:              uuid.New(),
				RecipeID:        recipe.ID,
				Kind:            string(kind),
				IntegrationCode: item.Integration,
				StepCode:        item.Code,
				Meta:            meta,
				Background:      item.Background,
				Position:        item.Position,
			}
			if _, err := es.steps.Create(ctx, tx, step); err != nil {
				return fmt.Errorf("create step: %w", err)
			}
		}
		for _, eb := range doc.Recipe.Blocks {
			kind, err := domain.NewBlockKind(eb.Kind)
			if err != nil {
				return apierr.New(http.StatusBadRequest, "malformed_export", err)
			}
			config, err := json.Marshal(eb.Config)
			if err != nil {
				return fmt.Errorf("encode block config: %w", err)
			}
			block := &domain.RecipeBlock{
				ID:       uuid.New(),
				RecipeID: recipe.ID,
				Kind:     string(kind),
				Config:   config,
				Position: eb.Position,
			}
			if len(eb.Filters) > 0 {
				nested := make([]map[string]fields.FieldValue, 0, len(eb.Filters))
				for _, f := range eb.Filters {
					nested = append(nested, fields.Normalize(f))
				}
				filters, err := json.Marshal(nested)
				if err != nil {
					return fmt.Errorf("encode filters: %w", err)
				}
				block.Filters = filters
			}
			if _, err := es.blocks.Create(ctx, tx, block); err != nil {
				return fmt.Errorf("create block: %w", err)
			}
		}
		return nil
	}); err != nil {
		return nil, err
	}

	es.log.Info("Imported recipe", "recipe_id", recipe.ID, "owner", ownerID)
	return es.recipes.GetByIDWithChildren(ctx, nil, recipe.ID)
}
