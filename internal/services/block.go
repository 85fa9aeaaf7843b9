package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/flowsmith/flowsmith-backend/internal/domain"
	"github.com/flowsmith/flowsmith-backend/internal/engine"
	"github.com/flowsmith/flowsmith-backend/internal/fields"
	"github.com/flowsmith/flowsmith-backend/internal/platform/apierr"
	"github.com/flowsmith/flowsmith-backend/internal/platform/logger"
	"github.com/flowsmith/flowsmith-backend/internal/repos"
)

// BlockInput is the builder's submission for one block. Config is the
// kind-specific settings object; LoopFilters, used only on loop blocks,
// arrives as flat field maps and is stored normalized.
type BlockInput struct {
	Kind        domain.BlockKind
	Config      map[string]any
	LoopFilters []map[string]string
	Position    int
}

type BlockService interface {
	Add(ctx context.Context, ownerID, recipeID uuid.UUID, in BlockInput) (*domain.RecipeBlock, error)
	Update(ctx context.Context, ownerID, blockID uuid.UUID, in BlockInput) (*domain.RecipeBlock, error)
	Delete(ctx context.Context, ownerID, blockID uuid.UUID) error
}

type blockService struct {
	db      *gorm.DB
	log     *logger.Logger
	recipes repos.RecipeRepo
	blocks  repos.RecipeBlockRepo
}

func NewBlockService(db *gorm.DB, log *logger.Logger, recipes repos.RecipeRepo, blocks repos.RecipeBlockRepo) BlockService {
	return &blockService{
		db:      db,
		log:     log.With("service", "BlockService"),
		recipes: recipes,
		blocks:  blocks,
	}
}

func (bs *blockService) Add(ctx context.Context, ownerID, recipeID uuid.UUID, in BlockInput) (*domain.RecipeBlock, error) {
	if err := bs.checkOwner(ctx, ownerID, recipeID); err != nil {
		return nil, err
	}
	kind, err := domain.NewBlockKind(string(in.Kind))
	if err != nil {
		return nil, apierr.New(http.StatusBadRequest, "invalid_kind", err)
	}
	config, filters, err := encodeBlock(kind, in)
	if err != nil {
		return nil, err
	}

	block := &domain.RecipeBlock{
		ID:       uuid.New(),
		RecipeID: recipeID,
		Kind:     string(kind),
		Config:   config,
		Filters:  filters,
		Position: in.Position,
	}
	created, err := bs.blocks.Create(ctx, nil, block)
	if err != nil {
		return nil, fmt.Errorf("create block: %w", err)
	}
	bs.log.Info("Added block", "recipe_id", recipeID, "block_id", created.ID, "kind", kind)
	return created, nil
}

func (bs *blockService) Update(ctx context.Context, ownerID, blockID uuid.UUID, in BlockInput) (*domain.RecipeBlock, error) {
	block, err := bs.blocks.GetByID(ctx, nil, blockID)
	if err != nil {
		return nil, apierr.New(http.StatusNotFound, "block_not_found", fmt.Errorf("block %s not found", blockID))
	}
	if err := bs.checkOwner(ctx, ownerID, block.RecipeID); err != nil {
		return nil, err
	}

	kind := domain.BlockKind(block.Kind)
	if in.Kind != "" {
		kind, err = domain.NewBlockKind(string(in.Kind))
		if err != nil {
			return nil, apierr.New(http.StatusBadRequest, "invalid_kind", err)
		}
		block.Kind = string(kind)
	}
	if in.Config != nil || in.LoopFilters != nil {
		config, filters, err := encodeBlock(kind, in)
		if err != nil {
			return nil, err
		}
		if in.Config != nil {
			block.Config = config
		}
		if in.LoopFilters != nil {
			block.Filters = filters
		}
	}
	if in.Position > 0 {
		block.Position = in.Position
	}
	return bs.blocks.Update(ctx, nil, block)
}

func (bs *blockService) Delete(ctx context.Context, ownerID, blockID uuid.UUID) error {
	block, err := bs.blocks.GetByID(ctx, nil, blockID)
	if err != nil {
		return apierr.New(http.StatusNotFound, "block_not_found", fmt.Errorf("block %s not found", blockID))
	}
	if err := bs.checkOwner(ctx, ownerID, block.RecipeID); err != nil {
		return err
	}
	return bs.blocks.Delete(ctx, nil, blockID)
}

func (bs *blockService) checkOwner(ctx context.Context, ownerID, recipeID uuid.UUID) error {
	recipe, err := bs.recipes.GetByID(ctx, nil, recipeID)
	if err != nil {
		return apierr.New(http.StatusNotFound, "recipe_not_found", fmt.Errorf("recipe %s not found", recipeID))
	}
	if recipe.OwnerUserID != ownerID {
		return apierr.New(http.StatusForbidden, "not_owner", fmt.Errorf("recipe belongs to another user"))
	}
	return nil
}

// encodeBlock validates the kind-specific config shape and returns the
// serialized config plus normalized loop filters.
func encodeBlock(kind domain.BlockKind, in BlockInput) ([]byte, []byte, error) {
	raw, err := json.Marshal(in.Config)
	if err != nil {
		return nil, nil, fmt.Errorf("encode block config: %w", err)
	}

	switch kind {
	case domain.BlockDelay:
		var cfg struct {
			Seconds int `json:"seconds"`
		}
		if err := json.Unmarshal(raw, &cfg); err != nil {
			return nil, nil, apierr.New(http.StatusBadRequest, "invalid_config", fmt.Errorf("malformed delay config"))
		}
		if cfg.Seconds < 0 {
			return nil, nil, apierr.New(http.StatusBadRequest, "invalid_config", fmt.Errorf("delay must not be negative"))
		}
	case domain.BlockFilter:
		var cfg struct {
			Conditions []engine.FilterCondition `json:"conditions"`
		}
		if err := json.Unmarshal(raw, &cfg); err != nil {
			return nil, nil, apierr.New(http.StatusBadRequest, "invalid_config", fmt.Errorf("malformed filter config"))
		}
		for _, cond := range cfg.Conditions {
			if cond.Token == "" {
				return nil, nil, apierr.New(http.StatusBadRequest, "invalid_config", fmt.Errorf("filter condition needs a token"))
			}
			switch cond.Operator {
			case "equals", "not-equals", "contains", "greater-than", "less-than":
			default:
				return nil, nil, apierr.New(http.StatusBadRequest, "invalid_config", fmt.Errorf("unknown operator %q", cond.Operator))
			}
		}
	case domain.BlockLoop:
		var cfg struct {
			SourceToken string   `json:"source_token"`
			StepIDs     []string `json:"step_ids"`
		}
		if err := json.Unmarshal(raw, &cfg); err != nil {
			return nil, nil, apierr.New(http.StatusBadRequest, "invalid_config", fmt.Errorf("malformed loop config"))
		}
		if cfg.SourceToken == "" {
			return nil, nil, apierr.New(http.StatusBadRequest, "invalid_config", fmt.Errorf("loop needs a source_token"))
		}
		for _, id := range cfg.StepIDs {
			if _, err := uuid.Parse(id); err != nil {
				return nil, nil, apierr.New(http.StatusBadRequest, "invalid_config", fmt.Errorf("loop step id %q is not a uuid", id))
			}
		}
	}

	var filters []byte
	if in.LoopFilters != nil {
		normalized := make([]map[string]fields.FieldValue, 0, len(in.LoopFilters))
		for _, flat := range in.LoopFilters {
			normalized = append(normalized, fields.Normalize(flat))
		}
		filters, err = json.Marshal(normalized)
		if err != nil {
			return nil, nil, fmt.Errorf("encode loop filters: %w", err)
		}
	}
	return raw, filters, nil
}
