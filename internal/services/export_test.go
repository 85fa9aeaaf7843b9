package services

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/flowsmith/flowsmith-backend/internal/domain"
	"github.com/flowsmith/flowsmith-backend/internal/platform/apierr"
	"github.com/flowsmith/flowsmith-backend/internal/repos"
)

func newExportFixture(t *testing.T) (ExportService, StepService, BlockService, RecipeService, uuid.UUID) {
	t.Helper()
	db := newTestDB(t)
	log := testLogger(t)
	registry := testRegistry(t)
	recipeRepo := repos.NewRecipeRepo(db, log)
	stepRepo := repos.NewRecipeStepRepo(db, log)
	blockRepo := repos.NewRecipeBlockRepo(db, log)
	export := NewExportService(db, log, recipeRepo, stepRepo, blockRepo)
	steps := NewStepService(db, log, recipeRepo, stepRepo, registry)
	blocks := NewBlockService(db, log, recipeRepo, blockRepo)
	recipes := NewRecipeService(db, log, recipeRepo, registry)
	return export, steps, blocks, recipes, uuid.New()
}

func TestExportImportRoundTrip(t *testing.T) {
	export, steps, blocks, recipes, owner := newExportFixture(t)
	ctx := context.Background()

	recipe, err := recipes.Create(ctx, owner, "welcome flow", domain.RecipeUser)
	if err != nil {
		t.Fatalf("create recipe: %v", err)
	}
	if _, err := steps.Add(ctx, owner, recipe.ID, StepInput{
		Kind:            domain.StepTrigger,
		IntegrationCode: "FORMS",
		StepCode:        "FORM_SUBMITTED",
		FlatFields:      map[string]string{"FORM_ID": "101", "FORM_ID_readable": "Contact form"},
		Position:        1,
	}); err != nil {
		t.Fatalf("add trigger: %v", err)
	}
	if _, err := steps.Add(ctx, owner, recipe.ID, StepInput{
		Kind:            domain.StepAction,
		IntegrationCode: "SLACK",
		StepCode:        "SEND_MESSAGE",
		FlatFields:      map[string]string{"MESSAGE": "hello"},
		Background:      true,
		Position:        2,
	}); err != nil {
		t.Fatalf("add action: %v", err)
	}
	if _, err := blocks.Add(ctx, owner, recipe.ID, BlockInput{
		Kind:     domain.BlockDelay,
		Config:   map[string]any{"seconds": 60},
		Position: 1,
	}); err != nil {
		t.Fatalf("add block: %v", err)
	}

	raw, err := export.Export(ctx, owner, recipe.ID)
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	out := string(raw)
	for _, want := range []string{"version: 1", "uo-trigger", "uo-action", "FORM_ID_readable: Contact form", "kind: delay"} {
		if !strings.Contains(out, want) {
			t.Fatalf("export missing %q:\n%s", want, out)
		}
	}

	imported, err := export.Import(ctx, owner, raw)
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if imported.ID == recipe.ID {
		t.Fatal("import must create a new recipe")
	}
	if imported.Status != string(domain.RecipeDraft) {
		t.Fatalf("imports always land as drafts, got %s", imported.Status)
	}
	if len(imported.Steps) != 2 {
		t.Fatalf("expected 2 steps, got %d", len(imported.Steps))
	}
	if imported.Steps[0].Kind != string(domain.StepTrigger) || imported.Steps[1].Kind != string(domain.StepAction) {
		t.Fatalf("step order lost: %s, %s", imported.Steps[0].Kind, imported.Steps[1].Kind)
	}
	if !imported.Steps[1].Background {
		t.Fatal("background flag lost on import")
	}
	if len(imported.Blocks) != 1 || imported.Blocks[0].Kind != string(domain.BlockDelay) {
		t.Fatalf("blocks not imported: %+v", imported.Blocks)
	}
}

func TestExportOwnerCheck(t *testing.T) {
	export, _, _, recipes, owner := newExportFixture(t)
	ctx := context.Background()

	recipe, err := recipes.Create(ctx, owner, "welcome flow", domain.RecipeUser)
	if err != nil {
		t.Fatalf("create recipe: %v", err)
	}
	_, err = export.Export(ctx, uuid.New(), recipe.ID)
	var apiErr *apierr.Error
	if !errors.As(err, &apiErr) || apiErr.Status != http.StatusForbidden {
		t.Fatalf("expected 403 for foreign export, got %v", err)
	}
}

func TestImportRejectsBadDocuments(t *testing.T) {
	export, _, _, _, owner := newExportFixture(t)
	ctx := context.Background()

	cases := []struct {
		name string
		raw  string
		code string
	}{
		{name: "not_yaml", raw: "{{{{", code: "malformed_export"},
		{name: "wrong_version", raw: "version: 9\nrecipe:\n  title: x\n", code: "unsupported_version"},
		{name: "no_title", raw: "version: 1\nrecipe: {}\n", code: "malformed_export"},
		{
			name: "unknown_post_type",
			raw:  "version: 1\nrecipe:\n  title: x\n  items:\n    - post_type: uo-mystery\n      integration: FORMS\n      code: FORM_SUBMITTED\n",
			code: "malformed_export",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := export.Import(ctx, owner, []byte(tc.raw))
			var apiErr *apierr.Error
			if !errors.As(err, &apiErr) {
				t.Fatalf("expected apierr, got %v", err)
			}
			if apiErr.Status != http.StatusBadRequest || apiErr.Code != tc.code {
				t.Fatalf("got %d/%s, want 400/%s", apiErr.Status, apiErr.Code, tc.code)
			}
		})
	}
}
