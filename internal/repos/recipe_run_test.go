package repos

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/flowsmith/flowsmith-backend/internal/domain"
)

func seedRun(t *testing.T, repo RecipeRunRepo, recipeID uuid.UUID, userID *uuid.UUID, status string, startedAt time.Time) *domain.RecipeRun {
	t.Helper()
	run := &domain.RecipeRun{
		ID:        uuid.New(),
		RecipeID:  recipeID,
		RunUserID: userID,
		Status:    status,
		StartedAt: startedAt,
	}
	created, err := repo.Create(context.Background(), nil, run)
	if err != nil {
		t.Fatalf("create run: %v", err)
	}
	return created
}

func TestRecipeRunRepoListByRecipe(t *testing.T) {
	db := newTestDB(t)
	repo := NewRecipeRunRepo(db, testLogger(t))
	ctx := context.Background()

	recipeID := uuid.New()
	older := seedRun(t, repo, recipeID, nil, string(domain.RunCompleted), time.Now().Add(-time.Hour))
	newer := seedRun(t, repo, recipeID, nil, string(domain.RunSkipped), time.Now())
	seedRun(t, repo, uuid.New(), nil, string(domain.RunCompleted), time.Now())

	stepRun := &domain.StepRun{
		ID:     uuid.New(),
		RunID:  newer.ID,
		StepID: uuid.New(),
		Status: string(domain.RunCompleted),
	}
	if _, err := repo.CreateStepRun(ctx, nil, stepRun); err != nil {
		t.Fatalf("create step run: %v", err)
	}

	got, err := repo.ListByRecipe(ctx, nil, recipeID, 50)
	if err != nil {
		t.Fatalf("ListByRecipe: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 runs, got %d", len(got))
	}
	if got[0].ID != newer.ID || got[1].ID != older.ID {
		t.Fatal("runs not ordered newest first")
	}
	if len(got[0].StepRuns) != 1 {
		t.Fatalf("expected preloaded step runs, got %d", len(got[0].StepRuns))
	}
}

func TestRecipeRunRepoListByRecipeLimit(t *testing.T) {
	db := newTestDB(t)
	repo := NewRecipeRunRepo(db, testLogger(t))
	ctx := context.Background()

	recipeID := uuid.New()
	for i := 0; i < 3; i++ {
		seedRun(t, repo, recipeID, nil, string(domain.RunCompleted), time.Now().Add(-time.Duration(i)*time.Minute))
	}

	got, err := repo.ListByRecipe(ctx, nil, recipeID, 2)
	if err != nil {
		t.Fatalf("ListByRecipe: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected limit of 2, got %d", len(got))
	}
}

func TestRecipeRunRepoCountCompletedForUser(t *testing.T) {
	db := newTestDB(t)
	repo := NewRecipeRunRepo(db, testLogger(t))
	ctx := context.Background()

	recipeID := uuid.New()
	userID := uuid.New()
	otherUser := uuid.New()

	seedRun(t, repo, recipeID, &userID, string(domain.RunCompleted), time.Now())
	seedRun(t, repo, recipeID, &userID, string(domain.RunCompletedWithErrors), time.Now())
	// Skipped and failed runs do not count toward the per-user limit.
	seedRun(t, repo, recipeID, &userID, string(domain.RunSkipped), time.Now())
	seedRun(t, repo, recipeID, &userID, string(domain.RunFailed), time.Now())
	seedRun(t, repo, recipeID, &otherUser, string(domain.RunCompleted), time.Now())

	count, err := repo.CountCompletedForUser(ctx, nil, recipeID, userID)
	if err != nil {
		t.Fatalf("CountCompletedForUser: %v", err)
	}
	if count != 2 {
		t.Fatalf("expected 2 completed runs, got %d", count)
	}
}

func TestRecipeRunRepoStepRunLifecycle(t *testing.T) {
	db := newTestDB(t)
	repo := NewRecipeRunRepo(db, testLogger(t))
	ctx := context.Background()

	run := seedRun(t, repo, uuid.New(), nil, string(domain.RunInProgress), time.Now())
	stepRun, err := repo.CreateStepRun(ctx, nil, &domain.StepRun{
		ID:     uuid.New(),
		RunID:  run.ID,
		StepID: uuid.New(),
		Status: string(domain.RunInProgress),
	})
	if err != nil {
		t.Fatalf("CreateStepRun: %v", err)
	}

	now := time.Now()
	stepRun.Status = string(domain.RunCompleted)
	stepRun.CompletedAt = &now
	if _, err := repo.UpdateStepRun(ctx, nil, stepRun); err != nil {
		t.Fatalf("UpdateStepRun: %v", err)
	}

	got, err := repo.GetStepRunByID(ctx, nil, stepRun.ID)
	if err != nil {
		t.Fatalf("GetStepRunByID: %v", err)
	}
	if got.Status != string(domain.RunCompleted) {
		t.Fatalf("expected completed status, got %s", got.Status)
	}
	if got.CompletedAt == nil {
		t.Fatal("expected completed_at to be set")
	}
}
