package pollio

import "testing"

func TestEventsUnionIntersect(t *testing.T) {
	a := EventIn | EventErr
	b := EventOut | EventErr

	if got := a.Union(b); got != EventIn|EventOut|EventErr {
		t.Fatalf("Union: got %v", got)
	}
	if got := a.Intersect(b); got != EventErr {
		t.Fatalf("Intersect: got %v", got)
	}
}

func TestEventsContains(t *testing.T) {
	mask := EventIn | EventOut

	if !mask.Contains(EventIn) {
		t.Fatal("expected mask to contain EventIn")
	}
	if mask.Contains(EventErr) {
		t.Fatal("expected mask not to contain EventErr")
	}
	if !mask.Contains(EventsNone) {
		t.Fatal("every mask should contain the empty set")
	}
}

func TestEventsIntersects(t *testing.T) {
	if !(EventIn | EventOut).Intersects(EventOut | EventPri) {
		t.Fatal("expected overlap on EventOut")
	}
	if (EventIn).Intersects(EventOut) {
		t.Fatal("expected no overlap")
	}
}

func TestEventsIsEmpty(t *testing.T) {
	if !EventsNone.IsEmpty() {
		t.Fatal("EventsNone should be empty")
	}
	if EventIn.IsEmpty() {
		t.Fatal("EventIn should not be empty")
	}
}

func TestEventsString(t *testing.T) {
	if got := EventsNone.String(); got != "NONE" {
		t.Fatalf("got %q", got)
	}
	if got := EventIn.String(); got != "IN" {
		t.Fatalf("got %q", got)
	}
	if got := (EventIn | EventOut).String(); got != "IN|OUT" {
		t.Fatalf("got %q", got)
	}
}

func TestStatusFlagsContains(t *testing.T) {
	flags := ONonblock | OAppend
	if !flags.Contains(ONonblock) {
		t.Fatal("expected ONonblock set")
	}
	if flags.Contains(OSync) {
		t.Fatal("did not expect OSync set")
	}
}
