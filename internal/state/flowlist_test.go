package state

import (
	"testing"
	"time"

	"github.com/flowdeck/flowdeck/internal/bus"
	"github.com/flowdeck/flowdeck/internal/flow"
)

func summaryAt(id, name string, updated time.Time) flow.Summary {
	return flow.Summary{Flow: flow.Flow{ID: id, Name: name, UpdatedAt: updated}}
}

func TestFlowListPushIsIdempotent(t *testing.T) {
	s := NewFlowListState(bus.New())
	now := time.Now()

	s.Push(summaryAt("f1", "A", now))
	s.Push(summaryAt("f1", "A again", now))
	s.Push(summaryAt("f2", "B", now))

	got := s.All()
	if len(got) != 2 {
		t.Fatalf("flows = %d, want 2", len(got))
	}
	// The first push wins; a duplicate id never replaces.
	if got[0].Name != "A" {
		t.Errorf("first entry name = %q, want A", got[0].Name)
	}
}

func TestFlowListLoadReplaces(t *testing.T) {
	s := NewFlowListState(bus.New())
	now := time.Now()

	s.Push(summaryAt("f1", "A", now))
	s.Load([]flow.Summary{summaryAt("f2", "B", now)})

	got := s.All()
	if len(got) != 1 || got[0].ID != "f2" {
		t.Fatalf("flows after Load = %+v", got)
	}
}

func TestGroupByDate(t *testing.T) {
	s := NewFlowListState(bus.New())

	day1 := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	day2 := time.Date(2026, 3, 11, 14, 0, 0, 0, time.UTC)

	s.Load([]flow.Summary{
		summaryAt("f1", "oldest", day1),
		summaryAt("f2", "newest", day2.Add(2*time.Hour)),
		summaryAt("f3", "same day", day2),
	})

	groups := s.GroupByDate()
	if len(groups) != 2 {
		t.Fatalf("groups = %d, want 2", len(groups))
	}
	if groups[0].Label != "March 11, 2026" {
		t.Errorf("first label = %q", groups[0].Label)
	}
	if len(groups[0].Flows) != 2 {
		t.Fatalf("first group size = %d, want 2", len(groups[0].Flows))
	}
	// Within a group, newest first.
	if groups[0].Flows[0].ID != "f2" || groups[0].Flows[1].ID != "f3" {
		t.Errorf("first group order = %s,%s", groups[0].Flows[0].ID, groups[0].Flows[1].ID)
	}
	if groups[1].Label != "March 10, 2026" || len(groups[1].Flows) != 1 {
		t.Errorf("second group = %q with %d flows", groups[1].Label, len(groups[1].Flows))
	}
}

func TestRequestRefreshPublishes(t *testing.T) {
	b := bus.New()
	s := NewFlowListState(b)

	var fired int
	b.Subscribe(bus.KindFlowListRefreshRequested, func(bus.Event) { fired++ })

	s.RequestRefresh()
	if fired != 1 {
		t.Fatalf("refresh events = %d, want 1", fired)
	}
}
