package bus

import (
	"testing"

	"github.com/flowdeck/flowdeck/internal/flow"
)

func TestPublishReachesSubscribers(t *testing.T) {
	b := New()

	var got []Event
	b.Subscribe(KindFlowListRefreshRequested, func(e Event) { got = append(got, e) })
	b.Subscribe(KindFlowListRefreshRequested, func(e Event) { got = append(got, e) })

	b.Publish(FlowListRefreshRequested{})

	if len(got) != 2 {
		t.Fatalf("deliveries = %d, want 2", len(got))
	}
}

func TestPublishIsKindScoped(t *testing.T) {
	b := New()

	var wrongKind int
	b.Subscribe(KindAuthLogoutRequested, func(Event) { wrongKind++ })

	b.Publish(FlowListRefreshRequested{})

	if wrongKind != 0 {
		t.Errorf("handler for another kind fired %d times", wrongKind)
	}
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	b := New()

	var calls int
	unsub := b.Subscribe(KindFlowUpdated, func(Event) { calls++ })

	b.Publish(FlowUpdated{})
	unsub()
	b.Publish(FlowUpdated{})

	if calls != 1 {
		t.Fatalf("calls = %d, want 1", calls)
	}
}

func TestPayloadTypeAssertion(t *testing.T) {
	b := New()

	var got TagSearchRefreshRequested
	b.Subscribe(KindTagSearchRefreshRequested, func(e Event) {
		got = e.(TagSearchRefreshRequested)
	})

	b.Publish(TagSearchRefreshRequested{Query: "go", Page: 2, PerPage: 25})

	if got.Query != "go" || got.Page != 2 || got.PerPage != 25 {
		t.Errorf("payload = %+v", got)
	}
}

func TestPublishWithNoSubscribers(t *testing.T) {
	b := New()
	// Must not panic.
	b.Publish(FlowUpdated{Aggregate: flow.Aggregate{}})
}

func TestPublishNoDeadlockFromHandler(t *testing.T) {
	b := New()

	var nested int
	b.Subscribe(KindFlowUpdated, func(Event) {
		// Publishing from inside a handler must not deadlock.
		if nested == 0 {
			nested++
			b.Publish(FlowListRefreshRequested{})
		}
	})
	b.Subscribe(KindFlowListRefreshRequested, func(Event) { nested++ })

	b.Publish(FlowUpdated{})

	if nested != 2 {
		t.Fatalf("nested = %d, want 2", nested)
	}
}
