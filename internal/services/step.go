package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/flowsmith/flowsmith-backend/internal/domain"
	"github.com/flowsmith/flowsmith-backend/internal/fields"
	"github.com/flowsmith/flowsmith-backend/internal/integrations"
	"github.com/flowsmith/flowsmith-backend/internal/platform/apierr"
	"github.com/flowsmith/flowsmith-backend/internal/platform/logger"
	"github.com/flowsmith/flowsmith-backend/internal/repos"
	"github.com/flowsmith/flowsmith-backend/internal/sentence"
)

// StepInput is the builder's submission for one step: the step identity
// plus the flat CODE / CODE_readable field map.
type StepInput struct {
	Kind            domain.StepKind
	IntegrationCode string
	StepCode        string
	FlatFields      map[string]string
	Background      bool
	Position        int
}

type StepService interface {
	Add(ctx context.Context, ownerID, recipeID uuid.UUID, in StepInput) (*domain.RecipeStep, error)
	Update(ctx context.Context, ownerID, stepID uuid.UUID, in StepInput) (*domain.RecipeStep, error)
	Delete(ctx context.Context, ownerID, stepID uuid.UUID) error
	RenderSentence(step *domain.RecipeStep) (string, error)
}

type stepService struct {
	db       *gorm.DB
	log      *logger.Logger
	recipes  repos.RecipeRepo
	steps    repos.RecipeStepRepo
	registry *integrations.Registry
}

func NewStepService(db *gorm.DB, log *logger.Logger, recipes repos.RecipeRepo, steps repos.RecipeStepRepo, registry *integrations.Registry) StepService {
	return &stepService{
		db:       db,
		log:      log.With("service", "StepService"),
		recipes:  recipes,
		steps:    steps,
		registry: registry,
	}
}

func (ss *stepService) Add(ctx context.Context, ownerID, recipeID uuid.UUID, in StepInput) (*domain.RecipeStep, error) {
	recipe, err := ss.recipes.GetByID(ctx, nil, recipeID)
	if err != nil {
		return nil, apierr.New(http.StatusNotFound, "recipe_not_found", fmt.Errorf("recipe %s not found", recipeID))
	}
	if recipe.OwnerUserID != ownerID {
		return nil, apierr.New(http.StatusForbidden, "not_owner", fmt.Errorf("recipe belongs to another user"))
	}

	tpl, def, err := ss.lookupDef(in)
	if err != nil {
		return nil, err
	}
	if err := validateFields(def, in.FlatFields); err != nil {
		return nil, err
	}

	normalized := fields.Normalize(in.FlatFields)
	meta, err := json.Marshal(normalized)
	if err != nil {
		return nil, fmt.Errorf("encode step meta: %w", err)
	}

	background := in.Background && supportsBackground(ss.registry, in)

	step := &domain.RecipeStep{
		ID:               uuid.New(),
		RecipeID:         recipeID,
		Kind:             string(in.Kind),
		IntegrationCode:  in.IntegrationCode,
		StepCode:         in.StepCode,
		SentenceTemplate: tpl.String(),
		Meta:             meta,
		Background:       background,
		Position:         in.Position,
	}
	if readable, err := ss.RenderSentence(step); err == nil {
		step.ReadableSentence = readable
	}

	created, err := ss.steps.Create(ctx, nil, step)
	if err != nil {
		return nil, fmt.Errorf("create step: %w", err)
	}
	ss.log.Info("Added step", "recipe_id", recipeID, "step_id", created.ID, "kind", in.Kind)
	return created, nil
}

func (ss *stepService) Update(ctx context.Context, ownerID, stepID uuid.UUID, in StepInput) (*domain.RecipeStep, error) {
	step, err := ss.steps.GetByID(ctx, nil, stepID)
	if err != nil {
		return nil, apierr.New(http.StatusNotFound, "step_not_found", fmt.Errorf("step %s not found", stepID))
	}
	if err := ss.checkOwner(ctx, ownerID, step.RecipeID); err != nil {
		return nil, err
	}

	if in.IntegrationCode != "" {
		step.IntegrationCode = in.IntegrationCode
	}
	if in.StepCode != "" {
		step.StepCode = in.StepCode
	}
	if in.Kind != "" {
		step.Kind = string(in.Kind)
	}
	probe := StepInput{
		Kind:            domain.StepKind(step.Kind),
		IntegrationCode: step.IntegrationCode,
		StepCode:        step.StepCode,
	}
	tpl, def, err := ss.lookupDef(probe)
	if err != nil {
		return nil, err
	}
	step.SentenceTemplate = tpl.String()

	if in.FlatFields != nil {
		if err := validateFields(def, in.FlatFields); err != nil {
			return nil, err
		}
		meta, err := json.Marshal(fields.Normalize(in.FlatFields))
		if err != nil {
			return nil, fmt.Errorf("encode step meta: %w", err)
		}
		step.Meta = meta
	}
	if in.Position > 0 {
		step.Position = in.Position
	}
	probe.Background = in.Background
	step.Background = in.Background && supportsBackground(ss.registry, probe)

	if readable, err := ss.RenderSentence(step); err == nil {
		step.ReadableSentence = readable
	}
	return ss.steps.Update(ctx, nil, step)
}

func (ss *stepService) Delete(ctx context.Context, ownerID, stepID uuid.UUID) error {
	step, err := ss.steps.GetByID(ctx, nil, stepID)
	if err != nil {
		return apierr.New(http.StatusNotFound, "step_not_found", fmt.Errorf("step %s not found", stepID))
	}
	if err := ss.checkOwner(ctx, ownerID, step.RecipeID); err != nil {
		return err
	}
	return ss.steps.Delete(ctx, nil, stepID)
}

// RenderSentence composes the builder HTML for a step from its stored
// template and field values.
func (ss *stepService) RenderSentence(step *domain.RecipeStep) (string, error) {
	var nested map[string]fields.FieldValue
	if len(step.Meta) > 0 {
		if err := json.Unmarshal(step.Meta, &nested); err != nil {
			return "", fmt.Errorf("decode step meta: %w", err)
		}
	}
	composerFields := make(map[string]sentence.FieldValue, len(nested))
	for code, fv := range nested {
		composerFields[code] = sentence.FieldValue{Value: fv.Value, Readable: fv.Readable}
	}
	return sentence.Compose(domain.SentenceTemplate(step.SentenceTemplate), composerFields)
}

func (ss *stepService) checkOwner(ctx context.Context, ownerID, recipeID uuid.UUID) error {
	recipe, err := ss.recipes.GetByID(ctx, nil, recipeID)
	if err != nil {
		return apierr.New(http.StatusNotFound, "recipe_not_found", fmt.Errorf("recipe %s not found", recipeID))
	}
	if recipe.OwnerUserID != ownerID {
		return apierr.New(http.StatusForbidden, "not_owner", fmt.Errorf("recipe belongs to another user"))
	}
	return nil
}

func (ss *stepService) lookupDef(in StepInput) (domain.SentenceTemplate, []domain.Field, error) {
	integration := domain.Code(in.IntegrationCode)
	code := domain.Code(in.StepCode)
	switch in.Kind {
	case domain.StepTrigger:
		if def, ok := ss.registry.Trigger(integration, code); ok {
			return def.Sentence, def.Fields, nil
		}
	case domain.StepAction:
		if def, ok := ss.registry.Action(integration, code); ok {
			return def.Sentence, def.Fields, nil
		}
	case domain.StepClosure:
		if def, ok := ss.registry.Closure(integration, domain.ClosureCode(in.StepCode)); ok {
			return def.Sentence, nil, nil
		}
	default:
		return "", nil, apierr.New(http.StatusBadRequest, "invalid_kind", fmt.Errorf("unknown step kind %q", in.Kind))
	}
	return "", nil, apierr.New(http.StatusUnprocessableEntity, "unknown_step",
		fmt.Errorf("%s %s/%s is not registered", in.Kind, in.IntegrationCode, in.StepCode))
}

func supportsBackground(registry *integrations.Registry, in StepInput) bool {
	if in.Kind != domain.StepAction {
		return false
	}
	def, ok := registry.Action(domain.Code(in.IntegrationCode), domain.Code(in.StepCode))
	return ok && def.SupportsBackground
}

// validateFields enforces the field definitions: required fields must be
// present, int fields must parse, select values must be a known option.
func validateFields(defs []domain.Field, flat map[string]string) error {
	for _, def := range defs {
		raw, present := flat[def.Code.String()]
		if !present || raw == "" {
			if def.Required {
				return apierr.New(http.StatusUnprocessableEntity, "missing_field",
					fmt.Errorf("field %s is required", def.Code))
			}
			continue
		}
		switch def.InputType {
		case domain.FieldInt:
			if _, err := strconv.Atoi(raw); err != nil {
				return apierr.New(http.StatusUnprocessableEntity, "invalid_field",
					fmt.Errorf("field %s must be an integer", def.Code))
			}
		case domain.FieldSelect:
			found := false
			for _, opt := range def.Options {
				if opt.Value == raw {
					found = true
					break
				}
			}
			if !found {
				return apierr.New(http.StatusUnprocessableEntity, "invalid_field",
					fmt.Errorf("field %s has no option %q", def.Code, raw))
			}
		}
	}
	return nil
}
