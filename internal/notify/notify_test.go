package notify

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stakeworks/gosp/internal/messaging"
	"github.com/stakeworks/gosp/pkg/log"
)

type stubSink struct {
	delivered []messaging.Event
	err       error
}

func (s *stubSink) Deliver(_ context.Context, event messaging.Event) error {
	s.delivered = append(s.delivered, event)
	return s.err
}

func TestFanoutDeliversToAllSinks(t *testing.T) {
	a := &stubSink{}
	b := &stubSink{}
	logger := log.New("notify-test", "test", "error", "text")
	f := NewFanout(logger, a, b)

	event := messaging.Event{
		Kind: messaging.EventStakePlaced,
		Key:  "0xabc",
		At:   time.Now(),
	}
	f.Notify(context.Background(), event)

	if len(a.delivered) != 1 || len(b.delivered) != 1 {
		t.Errorf("deliveries = %d/%d, want 1/1", len(a.delivered), len(b.delivered))
	}
}

func TestFanoutSurvivesFailingSink(t *testing.T) {
	failing := &stubSink{err: errors.New("broker down")}
	healthy := &stubSink{}
	logger := log.New("notify-test", "test", "error", "text")
	f := NewFanout(logger, failing, healthy)

	// a failing sink must not stop delivery to the others
	f.Notify(context.Background(), messaging.Event{Kind: messaging.EventStakeExited})

	if len(healthy.delivered) != 1 {
		t.Errorf("healthy sink deliveries = %d, want 1", len(healthy.delivered))
	}
}

func TestDec(t *testing.T) {
	if got := dec("12345"); got.Uint64() != 12345 {
		t.Errorf("dec(12345) = %s", got.Dec())
	}
	if got := dec("garbage"); !got.IsZero() {
		t.Errorf("dec(garbage) = %s, want 0", got.Dec())
	}
}
