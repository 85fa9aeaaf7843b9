package redisx

import (
	"testing"

	"github.com/google/uuid"
)

func TestRunFeedFanOut(t *testing.T) {
	feed := NewRunFeed()
	idA, chA := feed.Subscribe()
	idB, chB := feed.Subscribe()
	defer feed.Unsubscribe(idA)
	defer feed.Unsubscribe(idB)

	ev := RunEvent{Type: RunEventCompleted, RunID: uuid.New()}
	feed.Dispatch(ev)

	for _, ch := range []<-chan RunEvent{chA, chB} {
		select {
		case got := <-ch:
			if got.Type != ev.Type || got.RunID != ev.RunID {
				t.Fatalf("got=%+v want=%+v", got, ev)
			}
		default:
			t.Fatal("subscriber did not receive the event")
		}
	}
}

func TestRunFeedUnsubscribeClosesChannel(t *testing.T) {
	feed := NewRunFeed()
	id, ch := feed.Subscribe()
	feed.Unsubscribe(id)

	if _, open := <-ch; open {
		t.Fatal("channel still open after unsubscribe")
	}
	// a second unsubscribe of the same id is a no-op
	feed.Unsubscribe(id)

	feed.Dispatch(RunEvent{Type: RunEventStarted})
}

func TestRunFeedDropsWhenSubscriberFull(t *testing.T) {
	feed := NewRunFeed()
	id, ch := feed.Subscribe()
	defer feed.Unsubscribe(id)

	// one past capacity; the overflow event is dropped, not blocked on
	for i := 0; i < feedBuffer+1; i++ {
		feed.Dispatch(RunEvent{Type: RunEventStarted, RunID: uuid.New()})
	}
	if got := len(ch); got != feedBuffer {
		t.Fatalf("buffered events=%d, want %d", got, feedBuffer)
	}
}
