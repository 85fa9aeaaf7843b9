package services

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/flowsmith/flowsmith-backend/internal/domain"
	"github.com/flowsmith/flowsmith-backend/internal/fields"
	"github.com/flowsmith/flowsmith-backend/internal/platform/apierr"
	"github.com/flowsmith/flowsmith-backend/internal/repos"
)

func newStepFixture(t *testing.T) (StepService, RecipeService, uuid.UUID) {
	t.Helper()
	db := newTestDB(t)
	log := testLogger(t)
	registry := testRegistry(t)
	recipeRepo := repos.NewRecipeRepo(db, log)
	stepRepo := repos.NewRecipeStepRepo(db, log)
	steps := NewStepService(db, log, recipeRepo, stepRepo, registry)
	recipes := NewRecipeService(db, log, recipeRepo, registry)
	return steps, recipes, uuid.New()
}

func TestStepServiceAddTrigger(t *testing.T) {
	steps, recipes, owner := newStepFixture(t)
	ctx := context.Background()

	recipe, err := recipes.Create(ctx, owner, "notify on submit", domain.RecipeUser)
	if err != nil {
		t.Fatalf("create recipe: %v", err)
	}

	step, err := steps.Add(ctx, owner, recipe.ID, StepInput{
		Kind:            domain.StepTrigger,
		IntegrationCode: "FORMS",
		StepCode:        "FORM_SUBMITTED",
		FlatFields: map[string]string{
			"FORM_ID":          "101",
			"FORM_ID_readable": "Contact form",
		},
		Position: 1,
	})
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	if step.SentenceTemplate != "{{a form:FORM_ID}} is submitted" {
		t.Fatalf("unexpected template %q", step.SentenceTemplate)
	}
	if !strings.Contains(step.ReadableSentence, `data-token-id="FORM_ID"`) {
		t.Fatalf("sentence missing token span: %q", step.ReadableSentence)
	}
	if !strings.Contains(step.ReadableSentence, "Contact form") {
		t.Fatalf("sentence missing readable value: %q", step.ReadableSentence)
	}

	var meta map[string]fields.FieldValue
	if err := json.Unmarshal(step.Meta, &meta); err != nil {
		t.Fatalf("decode meta: %v", err)
	}
	if meta["FORM_ID"].Value != "101" || meta["FORM_ID"].Readable != "Contact form" {
		t.Fatalf("meta not normalized: %+v", meta)
	}
}

func TestStepServiceAddValidation(t *testing.T) {
	steps, recipes, owner := newStepFixture(t)
	ctx := context.Background()

	recipe, err := recipes.Create(ctx, owner, "notify on submit", domain.RecipeUser)
	if err != nil {
		t.Fatalf("create recipe: %v", err)
	}

	cases := []struct {
		name       string
		in         StepInput
		wantStatus int
		wantCode   string
	}{
		{
			name: "unregistered_step",
			in: StepInput{
				Kind:            domain.StepTrigger,
				IntegrationCode: "FORMS",
				StepCode:        "FORM_DELETED",
			},
			wantStatus: http.StatusUnprocessableEntity,
			wantCode:   "unknown_step",
		},
		{
			name: "missing_required_field",
			in: StepInput{
				Kind:            domain.StepTrigger,
				IntegrationCode: "FORMS",
				StepCode:        "FORM_SUBMITTED",
				FlatFields:      map[string]string{},
			},
			wantStatus: http.StatusUnprocessableEntity,
			wantCode:   "missing_field",
		},
		{
			name: "select_value_not_an_option",
			in: StepInput{
				Kind:            domain.StepTrigger,
				IntegrationCode: "FORMS",
				StepCode:        "FORM_SUBMITTED",
				FlatFields:      map[string]string{"FORM_ID": "999"},
			},
			wantStatus: http.StatusUnprocessableEntity,
			wantCode:   "invalid_field",
		},
		{
			name: "int_field_must_parse",
			in: StepInput{
				Kind:            domain.StepAction,
				IntegrationCode: "SLACK",
				StepCode:        "SEND_MESSAGE",
				FlatFields:      map[string]string{"MESSAGE": "hi", "RETRIES": "many"},
			},
			wantStatus: http.StatusUnprocessableEntity,
			wantCode:   "invalid_field",
		},
		{
			name: "unknown_kind",
			in: StepInput{
				Kind:            domain.StepKind("webhook"),
				IntegrationCode: "FORMS",
				StepCode:        "FORM_SUBMITTED",
			},
			wantStatus: http.StatusBadRequest,
			wantCode:   "invalid_kind",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := steps.Add(ctx, owner, recipe.ID, tc.in)
			var apiErr *apierr.Error
			if !errors.As(err, &apiErr) {
				t.Fatalf("expected apierr, got %v", err)
			}
			if apiErr.Status != tc.wantStatus || apiErr.Code != tc.wantCode {
				t.Fatalf("got %d/%s, want %d/%s", apiErr.Status, apiErr.Code, tc.wantStatus, tc.wantCode)
			}
		})
	}
}

func TestStepServiceBackgroundGating(t *testing.T) {
	steps, recipes, owner := newStepFixture(t)
	ctx := context.Background()

	recipe, err := recipes.Create(ctx, owner, "notify on submit", domain.RecipeUser)
	if err != nil {
		t.Fatalf("create recipe: %v", err)
	}

	// SEND_MESSAGE supports background dispatch, LOG does not.
	bg, err := steps.Add(ctx, owner, recipe.ID, StepInput{
		Kind:            domain.StepAction,
		IntegrationCode: "SLACK",
		StepCode:        "SEND_MESSAGE",
		FlatFields:      map[string]string{"MESSAGE": "hi"},
		Background:      true,
	})
	if err != nil {
		t.Fatalf("Add SEND_MESSAGE: %v", err)
	}
	if !bg.Background {
		t.Fatal("expected background to stick on a supporting action")
	}

	fg, err := steps.Add(ctx, owner, recipe.ID, StepInput{
		Kind:            domain.StepAction,
		IntegrationCode: "SLACK",
		StepCode:        "LOG",
		FlatFields:      map[string]string{"MESSAGE": "hi"},
		Background:      true,
	})
	if err != nil {
		t.Fatalf("Add LOG: %v", err)
	}
	if fg.Background {
		t.Fatal("expected background to be dropped on a non-supporting action")
	}
}

func TestStepServiceOwnerCheck(t *testing.T) {
	steps, recipes, owner := newStepFixture(t)
	ctx := context.Background()

	recipe, err := recipes.Create(ctx, owner, "notify on submit", domain.RecipeUser)
	if err != nil {
		t.Fatalf("create recipe: %v", err)
	}

	_, err = steps.Add(ctx, uuid.New(), recipe.ID, StepInput{
		Kind:            domain.StepTrigger,
		IntegrationCode: "FORMS",
		StepCode:        "FORM_SUBMITTED",
		FlatFields:      map[string]string{"FORM_ID": "101"},
	})
	var apiErr *apierr.Error
	if !errors.As(err, &apiErr) || apiErr.Status != http.StatusForbidden {
		t.Fatalf("expected 403 for foreign recipe, got %v", err)
	}
}

func TestStepServiceUpdateFields(t *testing.T) {
	steps, recipes, owner := newStepFixture(t)
	ctx := context.Background()

	recipe, err := recipes.Create(ctx, owner, "notify on submit", domain.RecipeUser)
	if err != nil {
		t.Fatalf("create recipe: %v", err)
	}
	step, err := steps.Add(ctx, owner, recipe.ID, StepInput{
		Kind:            domain.StepTrigger,
		IntegrationCode: "FORMS",
		StepCode:        "FORM_SUBMITTED",
		FlatFields:      map[string]string{"FORM_ID": "101", "FORM_ID_readable": "Contact form"},
	})
	if err != nil {
		t.Fatalf("Add: %v", err)
	}

	updated, err := steps.Update(ctx, owner, step.ID, StepInput{
		FlatFields: map[string]string{"FORM_ID": "102", "FORM_ID_readable": "Signup form"},
	})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if !strings.Contains(updated.ReadableSentence, "Signup form") {
		t.Fatalf("sentence not re-rendered: %q", updated.ReadableSentence)
	}
}
