package services

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"github.com/flowsmith/flowsmith-backend/internal/clients/redisx"
	"github.com/flowsmith/flowsmith-backend/internal/domain"
)

type capturingRunBus struct {
	events []redisx.RunEvent
}

func (b *capturingRunBus) Publish(_ context.Context, ev redisx.RunEvent) error {
	b.events = append(b.events, ev)
	return nil
}

func (b *capturingRunBus) StartForwarder(_ context.Context, _ func(ev redisx.RunEvent)) error {
	return nil
}

func (b *capturingRunBus) Close() error { return nil }

func TestRunEventType(t *testing.T) {
	cases := []struct {
		status string
		want   string
	}{
		{string(domain.RunSkipped), redisx.RunEventSkipped},
		{string(domain.RunInProgress), redisx.RunEventStarted},
		{string(domain.RunCompleted), redisx.RunEventCompleted},
		{string(domain.RunCompletedWithErrors), redisx.RunEventCompleted},
		{string(domain.RunFailed), redisx.RunEventCompleted},
	}
	for _, tc := range cases {
		if got := runEventType(tc.status); got != tc.want {
			t.Fatalf("runEventType(%q)=%q, want %q", tc.status, got, tc.want)
		}
	}
}

func TestIntakePublishRunEvents(t *testing.T) {
	bus := &capturingRunBus{}
	is := &intakeService{log: testLogger(t), bus: bus}

	recipe := &domain.Recipe{ID: uuid.New()}
	userID := uuid.New()
	run := &domain.RecipeRun{
		ID:        uuid.New(),
		RecipeID:  recipe.ID,
		RunUserID: &userID,
		Status:    string(domain.RunInProgress),
	}

	is.publish(context.Background(), recipe, run)
	if len(bus.events) != 1 {
		t.Fatalf("events=%d", len(bus.events))
	}
	ev := bus.events[0]
	// a run left open by background steps streams as started
	if ev.Type != redisx.RunEventStarted {
		t.Fatalf("event type=%q", ev.Type)
	}
	if ev.RecipeID != recipe.ID || ev.RunID != run.ID || ev.UserID != userID {
		t.Fatalf("event=%+v", ev)
	}
	if ev.Status != string(domain.RunInProgress) {
		t.Fatalf("event status=%q", ev.Status)
	}

	run.Status = string(domain.RunCompleted)
	is.publish(context.Background(), recipe, run)
	if bus.events[1].Type != redisx.RunEventCompleted {
		t.Fatalf("event type=%q", bus.events[1].Type)
	}

	run.Status = string(domain.RunSkipped)
	is.publish(context.Background(), recipe, run)
	if bus.events[2].Type != redisx.RunEventSkipped {
		t.Fatalf("event type=%q", bus.events[2].Type)
	}
}

func TestIntakePublishWithoutBus(t *testing.T) {
	is := &intakeService{log: testLogger(t)}
	// no bus configured, publish is a no-op
	is.publish(context.Background(), &domain.Recipe{ID: uuid.New()}, &domain.RecipeRun{ID: uuid.New()})
}
