// Package engine executes recipes: trigger match, blocks, actions,
// closures. Execution is synchronous and request-scoped; background
// actions are handed to the dispatcher.
package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/flowsmith/flowsmith-backend/internal/domain"
	"github.com/flowsmith/flowsmith-backend/internal/fields"
	"github.com/flowsmith/flowsmith-backend/internal/integrations"
	"github.com/flowsmith/flowsmith-backend/internal/platform/logger"
	"github.com/flowsmith/flowsmith-backend/internal/repos"
	"github.com/flowsmith/flowsmith-backend/internal/sentence"
)

// TriggerEvent is an incoming occurrence that may fire recipes.
type TriggerEvent struct {
	IntegrationCode string
	TriggerCode     string
	UserID          *uuid.UUID
	Fields          map[string]string
}

type Engine struct {
	log        *logger.Logger
	registry   *integrations.Registry
	runs       repos.RecipeRunRepo
	accounts   repos.ConnectedAccountRepo
	dispatcher BackgroundDispatcher
	tracer     trace.Tracer
}

func New(
	baseLog *logger.Logger,
	registry *integrations.Registry,
	runs repos.RecipeRunRepo,
	accounts repos.ConnectedAccountRepo,
	dispatcher BackgroundDispatcher,
	tracer trace.Tracer,
) *Engine {
	return &Engine{
		log:        baseLog.With("component", "RecipeEngine"),
		registry:   registry,
		runs:       runs,
		accounts:   accounts,
		dispatcher: dispatcher,
		tracer:     tracer,
	}
}

// Matches reports whether the recipe's trigger step agrees with the
// event. A recipe without a trigger step never matches.
func Matches(recipe *domain.Recipe, evt TriggerEvent) bool {
	if !recipe.IsLive() {
		return false
	}
	for _, step := range recipe.Steps {
		if step.Kind != string(domain.StepTrigger) {
			continue
		}
		return step.IntegrationCode == evt.IntegrationCode && step.StepCode == evt.TriggerCode
	}
	return false
}

// Execute runs one recipe against one event. The returned run record is
// always persisted, whatever its final status. tx is optional.
func (e *Engine) Execute(ctx context.Context, tx *gorm.DB, recipe *domain.Recipe, evt TriggerEvent) (*domain.RecipeRun, error) {
	if e.tracer != nil {
		var span trace.Span
		ctx, span = e.tracer.Start(ctx, "recipe.run", trace.WithAttributes(
			attribute.String("recipe.id", recipe.ID.String()),
			attribute.String("trigger.integration", evt.IntegrationCode),
			attribute.String("trigger.code", evt.TriggerCode),
		))
		defer span.End()
	}

	if !Matches(recipe, evt) {
		return nil, fmt.Errorf("recipe %s does not match trigger %s/%s", recipe.ID, evt.IntegrationCode, evt.TriggerCode)
	}

	tokenCtx := fields.Normalize(evt.Fields)

	run := &domain.RecipeRun{
		ID:        uuid.New(),
		RecipeID:  recipe.ID,
		RunUserID: evt.UserID,
		Status:    string(domain.RunInProgress),
		StartedAt: time.Now(),
	}
	if raw, err := json.Marshal(tokenCtx); err == nil {
		run.TokenCtx = datatypes.JSON(raw)
	}

	if skip, msg, err := e.timesPerUserExceeded(ctx, tx, recipe, evt); err != nil {
		return nil, err
	} else if skip {
		run.Status = string(domain.RunSkipped)
		now := time.Now()
		run.CompletedAt = &now
		run.RedirectURL = ""
		e.log.Info("recipe skipped", "recipe_id", recipe.ID, "reason", msg)
		return e.runs.Create(ctx, tx, run)
	}

	if _, err := e.runs.Create(ctx, tx, run); err != nil {
		return nil, err
	}

	// Blocks gate and shape the action pass.
	var pendingDelay time.Duration
	loopedSteps := map[uuid.UUID]bool{}
	type loopWork struct {
		block *domain.RecipeBlock
		cfg   loopConfig
		items []map[string]string
	}
	var loops []loopWork

	for i := range recipe.Blocks {
		block := &recipe.Blocks[i]
		switch domain.BlockKind(block.Kind) {
		case domain.BlockFilter:
			pass, err := evaluateFilter(block, tokenCtx)
			if err != nil {
				return e.finalize(ctx, tx, run, string(domain.RunFailed), err.Error())
			}
			if !pass {
				return e.finalize(ctx, tx, run, string(domain.RunSkipped), "filter block did not match")
			}
		case domain.BlockDelay:
			seconds, err := delaySeconds(block)
			if err != nil {
				return e.finalize(ctx, tx, run, string(domain.RunFailed), err.Error())
			}
			pendingDelay = time.Duration(seconds) * time.Second
		case domain.BlockLoop:
			cfg, items, err := loopItems(block, tokenCtx)
			if err != nil {
				return e.finalize(ctx, tx, run, string(domain.RunFailed), err.Error())
			}
			for _, id := range cfg.StepIDs {
				loopedSteps[id] = true
			}
			loops = append(loops, loopWork{block: block, cfg: cfg, items: items})
		}
	}

	hadErrors := false
	pendingBackground := false

	// Straight action pass in position order, looped steps excluded.
	for i := range recipe.Steps {
		step := &recipe.Steps[i]
		if step.Kind != string(domain.StepAction) || loopedSteps[step.ID] {
			continue
		}
		dispatched, err := e.runAction(ctx, tx, run, recipe, step, tokenCtx, pendingDelay)
		if err != nil {
			hadErrors = true
		}
		if dispatched {
			pendingBackground = true
		}
	}

	// Loop passes: each owned action runs once per item with the item's
	// fields merged over the token context.
	for _, lw := range loops {
		for _, item := range lw.items {
			itemCtx := mergeContext(tokenCtx, fields.Normalize(item))
			for i := range recipe.Steps {
				step := &recipe.Steps[i]
				if step.Kind != string(domain.StepAction) || !loopedSteps[step.ID] {
					continue
				}
				dispatched, err := e.runAction(ctx, tx, run, recipe, step, itemCtx, pendingDelay)
				if err != nil {
					hadErrors = true
				}
				if dispatched {
					pendingBackground = true
				}
			}
		}
	}

	if pendingBackground {
		// Open background step runs keep the run in progress; the worker
		// finalizes it after the last one completes.
		if _, err := e.runs.Update(ctx, tx, run); err != nil {
			return nil, err
		}
	} else {
		status := string(domain.RunCompleted)
		if hadErrors {
			status = string(domain.RunCompletedWithErrors)
		}
		if _, err := e.finalize(ctx, tx, run, status, ""); err != nil {
			return nil, err
		}
	}

	// Closures run after the run record is finalized.
	for i := range recipe.Steps {
		step := &recipe.Steps[i]
		if step.Kind != string(domain.StepClosure) {
			continue
		}
		e.runClosure(ctx, tx, run, step, tokenCtx)
	}
	if run.RedirectURL != "" {
		if _, err := e.runs.Update(ctx, tx, run); err != nil {
			return nil, err
		}
	}
	return run, nil
}

func (e *Engine) timesPerUserExceeded(ctx context.Context, tx *gorm.DB, recipe *domain.Recipe, evt TriggerEvent) (bool, string, error) {
	if recipe.RecipeType != string(domain.RecipeUser) || recipe.TimesPerUser <= 0 {
		return false, "", nil
	}
	if evt.UserID == nil {
		return true, "user recipe received anonymous event", nil
	}
	count, err := e.runs.CountCompletedForUser(ctx, tx, recipe.ID, *evt.UserID)
	if err != nil {
		return false, "", err
	}
	if count >= int64(recipe.TimesPerUser) {
		return true, fmt.Sprintf("times-per-user limit %d reached", recipe.TimesPerUser), nil
	}
	return false, "", nil
}

// runAction executes one action step inline or hands it to the
// dispatcher. dispatched reports that a background job now owns the
// step run.
func (e *Engine) runAction(ctx context.Context, tx *gorm.DB, run *domain.RecipeRun, recipe *domain.Recipe, step *domain.RecipeStep, tokenCtx map[string]fields.FieldValue, delay time.Duration) (dispatched bool, err error) {
	stepRun := &domain.StepRun{
		ID:        uuid.New(),
		RunID:     run.ID,
		StepID:    step.ID,
		Status:    string(domain.RunInProgress),
		StartedAt: time.Now(),
	}
	callFields := interpolateAll(stepMeta(step), tokenCtx)
	stepRun.Sentence = e.composeSentence(step, callFields)

	if _, err := e.runs.CreateStepRun(ctx, tx, stepRun); err != nil {
		return false, err
	}

	if step.Background && e.dispatcher != nil {
		err := e.dispatcher.Dispatch(ctx, BackgroundJob{
			RunID:           run.ID,
			StepRunID:       stepRun.ID,
			IntegrationCode: step.IntegrationCode,
			ActionCode:      step.StepCode,
			OwnerUserID:     recipe.OwnerUserID,
			Fields:          callFields,
			Delay:           delay,
		})
		if err != nil {
			e.log.Error("background dispatch failed", "step_id", step.ID, "error", err)
			return false, e.completeStep(ctx, tx, stepRun, string(domain.RunCompletedWithErrors), err.Error())
		}
		// the worker finishes the step run
		return true, nil
	}

	def, ok := e.registry.Action(domain.Code(step.IntegrationCode), domain.Code(step.StepCode))
	if !ok {
		err := fmt.Errorf("unknown action %s/%s", step.IntegrationCode, step.StepCode)
		_ = e.completeStep(ctx, tx, stepRun, string(domain.RunCompletedWithErrors), err.Error())
		return false, err
	}

	account := e.lookupAccount(ctx, tx, recipe.OwnerUserID, step.IntegrationCode)
	if err := def.Handler.Execute(ctx, integrations.Call{Fields: callFields, Account: account}); err != nil {
		e.log.Warn("action completed with errors", "step_id", step.ID, "integration", step.IntegrationCode, "action", step.StepCode, "error", err)
		_ = e.completeStep(ctx, tx, stepRun, string(domain.RunCompletedWithErrors), err.Error())
		return false, err
	}
	return false, e.completeStep(ctx, tx, stepRun, string(domain.RunCompleted), "")
}

func (e *Engine) runClosure(ctx context.Context, tx *gorm.DB, run *domain.RecipeRun, step *domain.RecipeStep, tokenCtx map[string]fields.FieldValue) {
	stepRun := &domain.StepRun{
		ID:        uuid.New(),
		RunID:     run.ID,
		StepID:    step.ID,
		Status:    string(domain.RunInProgress),
		StartedAt: time.Now(),
	}
	callFields := interpolateAll(stepMeta(step), tokenCtx)
	stepRun.Sentence = e.composeSentence(step, callFields)
	if _, err := e.runs.CreateStepRun(ctx, tx, stepRun); err != nil {
		e.log.Error("closure step run create failed", "step_id", step.ID, "error", err)
		return
	}

	def, ok := e.registry.Closure(domain.Code(step.IntegrationCode), domain.ClosureCode(step.StepCode))
	if !ok {
		_ = e.completeStep(ctx, tx, stepRun, string(domain.RunCompletedWithErrors), fmt.Sprintf("unknown closure %s/%s", step.IntegrationCode, step.StepCode))
		return
	}
	res, err := def.Handler.Execute(ctx, integrations.Call{Fields: callFields})
	if err != nil {
		e.log.Warn("closure completed with errors", "step_id", step.ID, "error", err)
		_ = e.completeStep(ctx, tx, stepRun, string(domain.RunCompletedWithErrors), err.Error())
		return
	}
	if res.RedirectURL != "" {
		run.RedirectURL = res.RedirectURL
	}
	_ = e.completeStep(ctx, tx, stepRun, string(domain.RunCompleted), "")
}

func (e *Engine) completeStep(ctx context.Context, tx *gorm.DB, stepRun *domain.StepRun, status, message string) error {
	now := time.Now()
	stepRun.Status = status
	stepRun.Message = message
	stepRun.CompletedAt = &now
	_, err := e.runs.UpdateStepRun(ctx, tx, stepRun)
	return err
}

func (e *Engine) finalize(ctx context.Context, tx *gorm.DB, run *domain.RecipeRun, status, message string) (*domain.RecipeRun, error) {
	now := time.Now()
	run.Status = status
	run.CompletedAt = &now
	if message != "" {
		e.log.Info("recipe run finalized", "run_id", run.ID, "status", status, "message", message)
	}
	return e.runs.Update(ctx, tx, run)
}

func (e *Engine) composeSentence(step *domain.RecipeStep, callFields map[string]fields.FieldValue) string {
	tpl := domain.SentenceTemplate(step.SentenceTemplate)
	composed, err := sentence.ComposePlain(tpl, toComposerFields(callFields))
	if err != nil {
		return step.SentenceTemplate
	}
	return composed
}

func (e *Engine) lookupAccount(ctx context.Context, tx *gorm.DB, ownerID uuid.UUID, integrationCode string) *domain.ConnectedAccount {
	if e.accounts == nil {
		return nil
	}
	account, err := e.accounts.GetByIntegration(ctx, tx, ownerID, integrationCode)
	if err != nil {
		return nil
	}
	return account
}

func stepMeta(step *domain.RecipeStep) map[string]fields.FieldValue {
	if len(step.Meta) == 0 {
		return map[string]fields.FieldValue{}
	}
	var nested map[string]fields.FieldValue
	if err := json.Unmarshal(step.Meta, &nested); err == nil && nested != nil {
		return nested
	}
	// legacy flat form
	var flat map[string]string
	if err := json.Unmarshal(step.Meta, &flat); err == nil {
		return fields.Normalize(flat)
	}
	return map[string]fields.FieldValue{}
}

func mergeContext(base, overlay map[string]fields.FieldValue) map[string]fields.FieldValue {
	out := make(map[string]fields.FieldValue, len(base)+len(overlay))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range overlay {
		out[k] = v
	}
	return out
}

func toComposerFields(in map[string]fields.FieldValue) map[string]sentence.FieldValue {
	out := make(map[string]sentence.FieldValue, len(in))
	for k, v := range in {
		out[k] = sentence.FieldValue{Value: v.Value, Readable: v.Readable}
	}
	return out
}
