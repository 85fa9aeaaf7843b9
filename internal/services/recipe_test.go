package services

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/flowsmith/flowsmith-backend/internal/domain"
	"github.com/flowsmith/flowsmith-backend/internal/platform/apierr"
	"github.com/flowsmith/flowsmith-backend/internal/repos"
)

func newRecipeFixture(t *testing.T) (RecipeService, *gorm.DB, uuid.UUID) {
	t.Helper()
	db := newTestDB(t)
	log := testLogger(t)
	recipes := NewRecipeService(db, log, repos.NewRecipeRepo(db, log), testRegistry(t))
	return recipes, db, uuid.New()
}

func addRawStep(t *testing.T, db *gorm.DB, recipeID uuid.UUID, kind domain.StepKind, integration, code string) {
	t.Helper()
	step := &domain.RecipeStep{
		ID:               uuid.New(),
		RecipeID:         recipeID,
		Kind:             string(kind),
		IntegrationCode:  integration,
		StepCode:         code,
		SentenceTemplate: "A step happens",
	}
	if err := db.Create(step).Error; err != nil {
		t.Fatalf("create step: %v", err)
	}
}

func TestRecipeServiceCreate(t *testing.T) {
	recipes, _, owner := newRecipeFixture(t)
	ctx := context.Background()

	recipe, err := recipes.Create(ctx, owner, "welcome flow", "")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if recipe.Status != string(domain.RecipeDraft) {
		t.Fatalf("new recipes start as drafts, got %s", recipe.Status)
	}
	if recipe.RecipeType != string(domain.RecipeUser) {
		t.Fatalf("empty type defaults to user, got %s", recipe.RecipeType)
	}

	if _, err := recipes.Create(ctx, owner, "", domain.RecipeUser); err == nil {
		t.Fatal("expected error for empty title")
	}
	if _, err := recipes.Create(ctx, owner, "x", domain.RecipeType("team")); err == nil {
		t.Fatal("expected error for unknown type")
	}
}

func TestRecipeServiceSetStatusLive(t *testing.T) {
	cases := []struct {
		name     string
		steps    [][3]string // kind, integration, code
		wantCode string
	}{
		{
			name:     "no_trigger",
			steps:    [][3]string{{"action", "SLACK", "SEND_MESSAGE"}},
			wantCode: "needs_trigger",
		},
		{
			name: "two_triggers",
			steps: [][3]string{
				{"trigger", "FORMS", "FORM_SUBMITTED"},
				{"trigger", "FORMS", "FORM_SUBMITTED"},
				{"action", "SLACK", "SEND_MESSAGE"},
			},
			wantCode: "needs_trigger",
		},
		{
			name:     "no_action",
			steps:    [][3]string{{"trigger", "FORMS", "FORM_SUBMITTED"}},
			wantCode: "needs_action",
		},
		{
			name: "unknown_trigger",
			steps: [][3]string{
				{"trigger", "FORMS", "FORM_DELETED"},
				{"action", "SLACK", "SEND_MESSAGE"},
			},
			wantCode: "unknown_trigger",
		},
		{
			name: "unknown_action",
			steps: [][3]string{
				{"trigger", "FORMS", "FORM_SUBMITTED"},
				{"action", "SLACK", "PAGE_SOMEONE"},
			},
			wantCode: "unknown_action",
		},
		{
			name: "unknown_closure",
			steps: [][3]string{
				{"trigger", "FORMS", "FORM_SUBMITTED"},
				{"action", "SLACK", "SEND_MESSAGE"},
				{"closure", "SLACK", "EXPLODE"},
			},
			wantCode: "unknown_closure",
		},
		{
			name: "valid",
			steps: [][3]string{
				{"trigger", "FORMS", "FORM_SUBMITTED"},
				{"action", "SLACK", "SEND_MESSAGE"},
				{"closure", "SLACK", "REDIRECT"},
			},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			recipes, db, owner := newRecipeFixture(t)
			ctx := context.Background()

			recipe, err := recipes.Create(ctx, owner, "welcome flow", domain.RecipeUser)
			if err != nil {
				t.Fatalf("Create: %v", err)
			}
			for _, s := range tc.steps {
				addRawStep(t, db, recipe.ID, domain.StepKind(s[0]), s[1], s[2])
			}

			updated, err := recipes.SetStatus(ctx, owner, recipe.ID, domain.RecipeLive)
			if tc.wantCode == "" {
				if err != nil {
					t.Fatalf("SetStatus: %v", err)
				}
				if updated.Status != string(domain.RecipeLive) {
					t.Fatalf("expected live, got %s", updated.Status)
				}
				return
			}
			var apiErr *apierr.Error
			if !errors.As(err, &apiErr) {
				t.Fatalf("expected apierr, got %v", err)
			}
			if apiErr.Status != http.StatusUnprocessableEntity || apiErr.Code != tc.wantCode {
				t.Fatalf("got %d/%s, want 422/%s", apiErr.Status, apiErr.Code, tc.wantCode)
			}
		})
	}
}

func TestRecipeServiceSetStatusBackToDraft(t *testing.T) {
	// Unpublishing never runs the live checks.
	recipes, _, owner := newRecipeFixture(t)
	ctx := context.Background()

	recipe, err := recipes.Create(ctx, owner, "welcome flow", domain.RecipeUser)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	updated, err := recipes.SetStatus(ctx, owner, recipe.ID, domain.RecipeDraft)
	if err != nil {
		t.Fatalf("SetStatus draft: %v", err)
	}
	if updated.Status != string(domain.RecipeDraft) {
		t.Fatalf("expected draft, got %s", updated.Status)
	}
}

func TestRecipeServiceUpdate(t *testing.T) {
	recipes, _, owner := newRecipeFixture(t)
	ctx := context.Background()

	recipe, err := recipes.Create(ctx, owner, "welcome flow", domain.RecipeUser)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	updated, err := recipes.Update(ctx, owner, &domain.Recipe{
		ID:           recipe.ID,
		Title:        "renamed flow",
		TimesPerUser: 3,
		Notes:        "runs once per signup",
	})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if updated.Title != "renamed flow" || updated.TimesPerUser != 3 || updated.Notes != "runs once per signup" {
		t.Fatalf("update not applied: %+v", updated)
	}

	if _, err := recipes.Update(ctx, uuid.New(), &domain.Recipe{ID: recipe.ID, Title: "x"}); err == nil {
		t.Fatal("expected owner check to reject a foreign update")
	}
}

func TestRecipeServiceDelete(t *testing.T) {
	recipes, _, owner := newRecipeFixture(t)
	ctx := context.Background()

	recipe, err := recipes.Create(ctx, owner, "welcome flow", domain.RecipeUser)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := recipes.Delete(ctx, owner, recipe.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	_, err = recipes.Get(ctx, owner, recipe.ID)
	var apiErr *apierr.Error
	if !errors.As(err, &apiErr) || apiErr.Status != http.StatusNotFound {
		t.Fatalf("expected 404 after delete, got %v", err)
	}
}
