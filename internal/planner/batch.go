package planner

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/javiermolinar/docket/internal/event"
	"github.com/javiermolinar/docket/internal/priority"
)

// DefaultConcurrency bounds the number of updates in flight per batch.
const DefaultConcurrency = 8

// ErrSkipped marks an update that was not attempted because an earlier
// sequential update failed.
var ErrSkipped = errors.New("skipped after earlier failure")

// BatchStatus summarizes the outcome of a multi-event write.
type BatchStatus int

const (
	BatchSucceeded BatchStatus = iota
	BatchPartial
	BatchFailed
)

func (s BatchStatus) String() string {
	switch s {
	case BatchSucceeded:
		return "succeeded"
	case BatchPartial:
		return "partial"
	case BatchFailed:
		return "failed"
	default:
		return fmt.Sprintf("BatchStatus(%d)", int(s))
	}
}

// Outcome is the result of one update in a batch. Err is nil on success.
type Outcome struct {
	ID  string
	Err error
}

// BatchResult holds the per-event outcomes of a batch write, in dispatch
// order. Nothing is rolled back: callers can retry the failed subset.
type BatchResult struct {
	Op       string
	Outcomes []Outcome
}

// Status reports whether all, some or none of the updates succeeded.
func (r *BatchResult) Status() BatchStatus {
	failed := len(r.Failed())
	switch {
	case failed == 0:
		return BatchSucceeded
	case failed == len(r.Outcomes):
		return BatchFailed
	default:
		return BatchPartial
	}
}

// Failed returns the outcomes that carry an error.
func (r *BatchResult) Failed() []Outcome {
	var out []Outcome
	for _, o := range r.Outcomes {
		if o.Err != nil {
			out = append(out, o)
		}
	}
	return out
}

// FailedIDs returns the IDs of the failed updates.
func (r *BatchResult) FailedIDs() []string {
	var ids []string
	for _, o := range r.Failed() {
		ids = append(ids, o.ID)
	}
	return ids
}

// Err returns a *BatchError if any update failed, nil otherwise.
func (r *BatchResult) Err() error {
	if r.Status() == BatchSucceeded {
		return nil
	}
	return &BatchError{Result: r}
}

// BatchError reports a batch write in which at least one update failed.
// It unwraps to every individual failure, so errors.Is(err,
// event.ErrPersistence) holds when any store write failed.
type BatchError struct {
	Result *BatchResult
}

func (e *BatchError) Error() string {
	failed := e.Result.Failed()
	return fmt.Sprintf("%s: %d of %d updates failed (%s): %v",
		e.Result.Op, len(failed), len(e.Result.Outcomes), e.Result.Status(), failed[0].Err)
}

// Unwrap returns the individual update errors.
func (e *BatchError) Unwrap() []error {
	var errs []error
	for _, o := range e.Result.Failed() {
		errs = append(errs, o.Err)
	}
	return errs
}

// update is a pending single-event write.
type update struct {
	id    string
	patch event.Patch
}

// priorityUpdates turns reindex changes into version-checked writes.
// Changes that leave the priority as is are dropped.
func priorityUpdates(snapshot []*event.Event, changes []priority.Change) []update {
	versions := make(map[string]int64, len(snapshot))
	for _, e := range snapshot {
		versions[e.ID] = e.Version
	}

	var updates []update
	for _, c := range changes {
		if !c.Changed() {
			continue
		}
		to := c.To
		version := versions[c.ID]
		updates = append(updates, update{
			id:    c.ID,
			patch: event.Patch{Priority: &to, IfVersion: &version},
		})
	}
	return updates
}

// applyConcurrently dispatches every update with at most s.concurrency in
// flight and waits for all of them. A failure does not cancel the others.
func (s *Service) applyConcurrently(ctx context.Context, op string, updates []update) *BatchResult {
	result := &BatchResult{Op: op, Outcomes: make([]Outcome, len(updates))}

	var g errgroup.Group
	g.SetLimit(s.concurrency)
	for i, u := range updates {
		result.Outcomes[i].ID = u.id
		g.Go(func() error {
			_, err := s.repo.UpdateEvent(ctx, u.id, u.patch)
			result.Outcomes[i].Err = err
			return nil
		})
	}
	_ = g.Wait()

	s.logBatch(result)
	return result
}

// applySequentially runs updates in order and stops at the first failure.
// Remaining updates are reported as ErrSkipped.
func (s *Service) applySequentially(ctx context.Context, op string, updates []update) *BatchResult {
	result := &BatchResult{Op: op, Outcomes: make([]Outcome, len(updates))}

	var failed bool
	for i, u := range updates {
		result.Outcomes[i].ID = u.id
		if failed {
			result.Outcomes[i].Err = ErrSkipped
			continue
		}
		if _, err := s.repo.UpdateEvent(ctx, u.id, u.patch); err != nil {
			result.Outcomes[i].Err = err
			failed = true
		}
	}

	s.logBatch(result)
	return result
}
