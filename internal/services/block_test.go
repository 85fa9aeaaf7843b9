package services

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/google/uuid"

	"github.com/flowsmith/flowsmith-backend/internal/domain"
	"github.com/flowsmith/flowsmith-backend/internal/fields"
	"github.com/flowsmith/flowsmith-backend/internal/platform/apierr"
	"github.com/flowsmith/flowsmith-backend/internal/repos"
)

func newBlockFixture(t *testing.T) (BlockService, uuid.UUID, uuid.UUID) {
	t.Helper()
	db := newTestDB(t)
	log := testLogger(t)
	recipeRepo := repos.NewRecipeRepo(db, log)
	blocks := NewBlockService(db, log, recipeRepo, repos.NewRecipeBlockRepo(db, log))
	recipes := NewRecipeService(db, log, recipeRepo, testRegistry(t))

	owner := uuid.New()
	recipe, err := recipes.Create(context.Background(), owner, "welcome flow", domain.RecipeUser)
	if err != nil {
		t.Fatalf("create recipe: %v", err)
	}
	return blocks, owner, recipe.ID
}

func TestBlockServiceAddRejectsBadConfig(t *testing.T) {
	blocks, owner, recipeID := newBlockFixture(t)
	ctx := context.Background()

	cases := []struct {
		name     string
		in       BlockInput
		wantCode string
	}{
		{
			name:     "unknown_kind",
			in:       BlockInput{Kind: domain.BlockKind("pause")},
			wantCode: "invalid_kind",
		},
		{
			name:     "negative_delay",
			in:       BlockInput{Kind: domain.BlockDelay, Config: map[string]any{"seconds": -5}},
			wantCode: "invalid_config",
		},
		{
			name: "filter_condition_without_token",
			in: BlockInput{Kind: domain.BlockFilter, Config: map[string]any{
				"conditions": []map[string]any{{"operator": "equals", "value": "x"}},
			}},
			wantCode: "invalid_config",
		},
		{
			name: "filter_unknown_operator",
			in: BlockInput{Kind: domain.BlockFilter, Config: map[string]any{
				"conditions": []map[string]any{{"token": "STATUS", "operator": "matches", "value": "x"}},
			}},
			wantCode: "invalid_config",
		},
		{
			name:     "loop_without_source",
			in:       BlockInput{Kind: domain.BlockLoop, Config: map[string]any{"step_ids": []string{}}},
			wantCode: "invalid_config",
		},
		{
			name: "loop_step_id_not_uuid",
			in: BlockInput{Kind: domain.BlockLoop, Config: map[string]any{
				"source_token": "ITEMS",
				"step_ids":     []string{"not-a-uuid"},
			}},
			wantCode: "invalid_config",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := blocks.Add(ctx, owner, recipeID, tc.in)
			var apiErr *apierr.Error
			if !errors.As(err, &apiErr) {
				t.Fatalf("expected apierr, got %v", err)
			}
			if apiErr.Status != http.StatusBadRequest || apiErr.Code != tc.wantCode {
				t.Fatalf("got %d/%s, want 400/%s", apiErr.Status, apiErr.Code, tc.wantCode)
			}
		})
	}
}

func TestBlockServiceAddLoopNormalizesFilters(t *testing.T) {
	blocks, owner, recipeID := newBlockFixture(t)
	ctx := context.Background()

	stepID := uuid.New().String()
	block, err := blocks.Add(ctx, owner, recipeID, BlockInput{
		Kind: domain.BlockLoop,
		Config: map[string]any{
			"source_token": "ITEMS",
			"step_ids":     []string{stepID},
		},
		LoopFilters: []map[string]string{
			{"STATUS": "active", "STATUS_readable": "Active"},
		},
		Position: 1,
	})
	if err != nil {
		t.Fatalf("Add: %v", err)
	}

	var filters []map[string]fields.FieldValue
	if err := json.Unmarshal(block.Filters, &filters); err != nil {
		t.Fatalf("decode filters: %v", err)
	}
	if len(filters) != 1 {
		t.Fatalf("expected 1 filter, got %d", len(filters))
	}
	if filters[0]["STATUS"].Value != "active" || filters[0]["STATUS"].Readable != "Active" {
		t.Fatalf("filters not normalized: %+v", filters[0])
	}
}

func TestBlockServiceUpdateAndDelete(t *testing.T) {
	blocks, owner, recipeID := newBlockFixture(t)
	ctx := context.Background()

	block, err := blocks.Add(ctx, owner, recipeID, BlockInput{
		Kind:     domain.BlockDelay,
		Config:   map[string]any{"seconds": 60},
		Position: 1,
	})
	if err != nil {
		t.Fatalf("Add: %v", err)
	}

	updated, err := blocks.Update(ctx, owner, block.ID, BlockInput{
		Config:   map[string]any{"seconds": 120},
		Position: 2,
	})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	var cfg struct {
		Seconds int `json:"seconds"`
	}
	if err := json.Unmarshal(updated.Config, &cfg); err != nil {
		t.Fatalf("decode config: %v", err)
	}
	if cfg.Seconds != 120 || updated.Position != 2 {
		t.Fatalf("update not applied: seconds=%d position=%d", cfg.Seconds, updated.Position)
	}

	if err := blocks.Delete(ctx, uuid.New(), block.ID); err == nil {
		t.Fatal("expected owner check to reject a foreign delete")
	}
	if err := blocks.Delete(ctx, owner, block.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
}
