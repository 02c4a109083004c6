// Package priority keeps the total order of a user's events dense as events
// are inserted, moved or reordered. All functions work on an explicit
// snapshot of one user's events and never mutate it.
package priority

import (
	"cmp"
	"fmt"
	"slices"

	"github.com/javiermolinar/docket/internal/event"
)

// Change is a pending priority assignment for one event.
type Change struct {
	ID   string
	From int
	To   int
}

// Changed returns true if applying the change modifies the event.
func (c Change) Changed() bool {
	return c.From != c.To
}

// Max returns the highest priority in events, or -1 if there are none.
func Max(events []*event.Event) int {
	m := -1
	for _, e := range events {
		m = max(m, e.Priority)
	}
	return m
}

// Sort returns a copy of events ordered by priority. Ties are broken by
// creation time, then by ID, so the order is deterministic.
func Sort(events []*event.Event) []*event.Event {
	out := slices.Clone(events)
	slices.SortStableFunc(out, func(a, b *event.Event) int {
		if c := cmp.Compare(a.Priority, b.Priority); c != 0 {
			return c
		}
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return out
}

// Order returns the event IDs in their current priority order.
func Order(events []*event.Event) []string {
	sorted := Sort(events)
	ids := make([]string, len(sorted))
	for i, e := range sorted {
		ids[i] = e.ID
	}
	return ids
}

// Insertion computes the priority of a new event.
//
// Without a requested priority the event is appended: max+1, or 0 for the
// first event. A requested priority must lie in [0, max+1], except for the
// first event, which takes any non-negative priority. Every existing
// event at or above it is shifted up by one; the returned changes are in
// descending priority order and must be applied in that order so that no
// not-yet-shifted slot is overwritten.
func Insertion(existing []*event.Event, requested *int) (int, []Change, error) {
	top := Max(existing)
	if requested == nil {
		return top + 1, nil, nil
	}

	p := *requested
	if len(existing) == 0 {
		if p < 0 {
			return 0, nil, event.Invalid("priority must be a non-negative integer")
		}
		return p, nil, nil
	}
	if p < 0 || p > top+1 {
		return 0, nil, event.Invalid(fmt.Sprintf("priority must be between 0 and %d", top+1))
	}

	var shifts []Change
	for _, e := range existing {
		if e.Priority >= p {
			shifts = append(shifts, Change{ID: e.ID, From: e.Priority, To: e.Priority + 1})
		}
	}
	slices.SortStableFunc(shifts, func(a, b Change) int {
		return cmp.Compare(b.From, a.From)
	})
	return p, shifts, nil
}

// FromOrder assigns priority = index to every event in orderedIDs.
//
// orderedIDs must be a permutation of the user's event IDs: an unknown ID
// fails with ErrNotFound, a duplicated or missing ID with a ValidationError.
// An empty order is a no-op. The result depends only on orderedIDs, so
// applying it twice yields the same priorities.
func FromOrder(existing []*event.Event, orderedIDs []string) ([]Change, error) {
	if len(orderedIDs) == 0 {
		return nil, nil
	}

	byID := make(map[string]*event.Event, len(existing))
	for _, e := range existing {
		byID[e.ID] = e
	}

	seen := make(map[string]bool, len(orderedIDs))
	var violations []string
	for _, id := range orderedIDs {
		if _, ok := byID[id]; !ok {
			return nil, event.NotFound(id)
		}
		if seen[id] {
			violations = append(violations, fmt.Sprintf("duplicate event id %s", id))
			continue
		}
		seen[id] = true
	}
	for _, e := range Sort(existing) {
		if !seen[e.ID] {
			violations = append(violations, fmt.Sprintf("event %s missing from order", e.ID))
		}
	}
	if len(violations) > 0 {
		return nil, event.Invalid(violations...)
	}

	changes := make([]Change, len(orderedIDs))
	for i, id := range orderedIDs {
		changes[i] = Change{ID: id, From: byID[id].Priority, To: i}
	}
	return changes, nil
}

// Move relocates one event to position to within the list of the other
// events and reindexes the whole list densely, so on a dense list the event
// ends up with priority to. to must lie in [0, max+1] where max is the
// highest priority among the other events.
func Move(existing []*event.Event, id string, to int) ([]Change, error) {
	var (
		moving *event.Event
		others []*event.Event
	)
	for _, e := range existing {
		if e.ID == id {
			moving = e
			continue
		}
		others = append(others, e)
	}
	if moving == nil {
		return nil, event.NotFound(id)
	}

	top := Max(others)
	if to < 0 || to > top+1 {
		return nil, event.Invalid(fmt.Sprintf("priority must be between 0 and %d", top+1))
	}

	order := Order(others)
	order = slices.Insert(order, min(to, len(order)), moving.ID)

	return FromOrder(existing, order)
}

// Dense reports whether priorities are exactly {0..N-1}.
func Dense(events []*event.Event) bool {
	return len(Gaps(events)) == 0 && !hasDuplicates(events)
}

// Gaps returns the ranks in [0, max] that no event holds.
func Gaps(events []*event.Event) []int {
	used := make(map[int]bool, len(events))
	for _, e := range events {
		used[e.Priority] = true
	}
	var gaps []int
	for p := 0; p <= Max(events); p++ {
		if !used[p] {
			gaps = append(gaps, p)
		}
	}
	return gaps
}

func hasDuplicates(events []*event.Event) bool {
	seen := make(map[int]bool, len(events))
	for _, e := range events {
		if seen[e.Priority] {
			return true
		}
		seen[e.Priority] = true
	}
	return false
}
