// Package planner runs the read-modify-write sequences behind every docket
// operation. It coordinates the repository, the priority reindexer, the
// scheduler and the per-user lock. The CLI is its only caller today.
package planner

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/javiermolinar/docket/internal/event"
	"github.com/javiermolinar/docket/internal/lock"
	"github.com/javiermolinar/docket/internal/priority"
	"github.com/javiermolinar/docket/internal/scheduler"
)

// Service exposes the event operations for any user.
type Service struct {
	repo        event.Repository
	scheduler   *scheduler.Scheduler
	locker      lock.Locker
	logger      *zap.Logger
	concurrency int
	now         func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithLocker sets the per-user lock. The default is an in-process lock.
func WithLocker(l lock.Locker) Option {
	return func(s *Service) { s.locker = l }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// WithConcurrency bounds the updates in flight per batch.
func WithConcurrency(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.concurrency = n
		}
	}
}

// WithClock sets the time source used to reject past schedule starts.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// New creates a Service over repo using sched for slot placement.
func New(repo event.Repository, sched *scheduler.Scheduler, opts ...Option) *Service {
	s := &Service{
		repo:        repo,
		scheduler:   sched,
		locker:      lock.NewLocal(),
		logger:      zap.NewNop(),
		concurrency: DefaultConcurrency,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.Named("planner")
	return s
}

// Scheduler returns the scheduler used for placements.
func (s *Service) Scheduler() *scheduler.Scheduler {
	return s.scheduler
}

// CreateEvent validates the draft and stores it. Without a priority the
// event goes to the end of the list. With one, every event at or above it
// is shifted down first, one at a time from the bottom up.
//
// If a shift fails the event is not created and a *BatchError is returned.
// The shifts already applied stay, leaving a gap in the list; the gap is
// logged from a fresh reload and Compact closes it.
func (s *Service) CreateEvent(ctx context.Context, d event.Draft) (*event.Event, error) {
	d.Sanitize()
	if err := d.Validate(); err != nil {
		return nil, err
	}

	unlock, err := s.lockUser(ctx, d.UserID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	existing, err := s.repo.FindEventsByUser(ctx, d.UserID)
	if err != nil {
		return nil, err
	}

	p, shifts, err := priority.Insertion(existing, d.Priority)
	if err != nil {
		return nil, err
	}

	if len(shifts) > 0 {
		result := s.applySequentially(ctx, "insert", priorityUpdates(existing, shifts))
		if batchErr := result.Err(); batchErr != nil {
			s.logReload(ctx, "insert", d.UserID, result)
			return nil, batchErr
		}
	}

	e := d.New(p)
	if err := s.repo.CreateEvent(ctx, e); err != nil {
		return nil, err
	}

	s.logger.Info("event created",
		zap.String("user", e.UserID),
		zap.String("id", e.ID),
		zap.Int("priority", e.Priority),
		zap.Int("shifted", len(shifts)),
	)
	return e, nil
}

// EditEvent updates an event owned by userID. A priority change moves the
// event within the list and renumbers the whole list densely.
//
// The field changes are written before the move. If the move batch fails the
// fields stay changed and the list may be left partly moved. Nothing is
// rolled back: the *BatchError is returned and ReorderEvents with the
// intended order repairs the list.
func (s *Service) EditEvent(ctx context.Context, userID, id string, patch event.Patch) (*event.Event, error) {
	patch.Sanitize()
	if err := patch.Validate(); err != nil {
		return nil, err
	}

	unlock, err := s.lockUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	current, err := s.owned(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	var (
		snapshot []*event.Event
		moves    []priority.Change
	)
	if patch.Priority != nil && *patch.Priority != current.Priority {
		snapshot, err = s.repo.FindEventsByUser(ctx, userID)
		if err != nil {
			return nil, err
		}
		moves, err = priority.Move(snapshot, id, *patch.Priority)
		if err != nil {
			return nil, err
		}
	}

	fields := patch
	fields.Priority = nil
	switch {
	case !fields.IsEmpty():
		current, err = s.repo.UpdateEvent(ctx, id, fields)
		if err != nil {
			return nil, err
		}
	case patch.IfVersion != nil && *patch.IfVersion != current.Version:
		return nil, event.Conflict(id, *patch.IfVersion)
	}

	if len(moves) > 0 {
		// The field update above bumped the version of the edited event.
		for i, e := range snapshot {
			if e.ID == id {
				snapshot[i] = current
			}
		}
		result := s.applyConcurrently(ctx, "move", priorityUpdates(snapshot, moves))
		if batchErr := result.Err(); batchErr != nil {
			s.logReload(ctx, "move", userID, result)
			return nil, batchErr
		}
		if current, err = s.repo.GetEvent(ctx, id); err != nil {
			return nil, err
		}
	}

	s.logger.Info("event edited", zap.String("user", userID), zap.String("id", id))
	return current, nil
}

// DeleteEvent removes an event owned by userID. Remaining events keep their
// priorities, so a gap may be left; Compact closes it.
func (s *Service) DeleteEvent(ctx context.Context, userID, id string) error {
	unlock, err := s.lockUser(ctx, userID)
	if err != nil {
		return err
	}
	defer unlock()

	if _, err := s.owned(ctx, userID, id); err != nil {
		return err
	}
	if err := s.repo.DeleteEvent(ctx, id); err != nil {
		return err
	}

	s.logger.Info("event deleted", zap.String("user", userID), zap.String("id", id))
	return nil
}

// GetEvent returns an event owned by userID.
func (s *Service) GetEvent(ctx context.Context, userID, id string) (*event.Event, error) {
	return s.owned(ctx, userID, id)
}

// ListEvents returns the user's to-do list in priority order.
func (s *Service) ListEvents(ctx context.Context, userID string) ([]*event.Event, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	events, err := s.repo.FindEventsByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return priority.Sort(events), nil
}

// Calendar returns the user's dated events with from <= date < to.
func (s *Service) Calendar(ctx context.Context, userID string, from, to time.Time) ([]*event.Event, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	if !to.After(from) {
		return nil, event.Invalid("calendar range end must be after its start")
	}
	return s.repo.FindEventsInRange(ctx, userID, from, to)
}

// ReorderEvents assigns priority = index to every event in orderedIDs,
// which must be a permutation of the user's event IDs. Updates run
// concurrently. The returned list is always reloaded from the store; if
// any update failed it comes back with a *BatchError.
func (s *Service) ReorderEvents(ctx context.Context, userID string, orderedIDs []string) ([]*event.Event, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	if len(orderedIDs) == 0 {
		return s.ListEvents(ctx, userID)
	}

	unlock, err := s.lockUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	snapshot, err := s.repo.FindEventsByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	changes, err := priority.FromOrder(snapshot, orderedIDs)
	if err != nil {
		return nil, err
	}
	return s.reindex(ctx, "reorder", userID, snapshot, changes)
}

// Compact renumbers the user's events densely in their current order,
// closing any gaps left by deletes.
func (s *Service) Compact(ctx context.Context, userID string) ([]*event.Event, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}

	unlock, err := s.lockUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	snapshot, err := s.repo.FindEventsByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	changes, err := priority.FromOrder(snapshot, priority.Order(snapshot))
	if err != nil {
		return nil, err
	}
	return s.reindex(ctx, "compact", userID, snapshot, changes)
}

func (s *Service) reindex(ctx context.Context, op, userID string, snapshot []*event.Event, changes []priority.Change) ([]*event.Event, error) {
	result := s.applyConcurrently(ctx, op, priorityUpdates(snapshot, changes))

	reloaded, err := s.ListEvents(ctx, userID)
	if batchErr := result.Err(); batchErr != nil {
		s.logger.Warn("reindex incomplete, reloaded current state",
			zap.String("user", userID),
			zap.String("op", op),
			zap.Strings("failed", result.FailedIDs()),
		)
		return reloaded, batchErr
	}
	return reloaded, err
}

// PlanSchedule computes where AutoSchedule would place the batch without
// writing anything.
func (s *Service) PlanSchedule(ctx context.Context, userID string, start time.Time, ids []string) ([]scheduler.Placement, error) {
	if err := s.validateSchedule(userID, start); err != nil {
		return nil, err
	}

	snapshot, err := s.repo.FindEventsByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.plan(snapshot, start, ids)
}

// AutoSchedule places a batch of events into the first free business-hours
// slots at or after start, in priority order. Without ids the batch is every
// undated event. All other dated events are obstacles. If any event cannot
// be placed within the horizon nothing is written. Placement writes run
// concurrently; failures come back as a *BatchError alongside the reloaded
// list and nothing is rolled back.
func (s *Service) AutoSchedule(ctx context.Context, userID string, start time.Time, ids []string) ([]*event.Event, error) {
	if err := s.validateSchedule(userID, start); err != nil {
		return nil, err
	}

	unlock, err := s.lockUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	snapshot, err := s.repo.FindEventsByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	placements, err := s.plan(snapshot, start, ids)
	if err != nil {
		return nil, err
	}

	versions := make(map[string]int64, len(snapshot))
	for _, e := range snapshot {
		versions[e.ID] = e.Version
	}
	updates := make([]update, 0, len(placements))
	for _, p := range placements {
		date := p.Start
		version := versions[p.ID]
		updates = append(updates, update{
			id:    p.ID,
			patch: event.Patch{Date: &date, IfVersion: &version},
		})
	}

	result := s.applyConcurrently(ctx, "schedule", updates)
	reloaded, err := s.ListEvents(ctx, userID)
	if batchErr := result.Err(); batchErr != nil {
		return reloaded, batchErr
	}
	if err != nil {
		return nil, err
	}

	s.logger.Info("events scheduled",
		zap.String("user", userID),
		zap.Int("count", len(placements)),
		zap.Time("start", start),
	)
	return reloaded, nil
}

func (s *Service) validateSchedule(userID string, start time.Time) error {
	var violations []string
	if strings.TrimSpace(userID) == "" {
		violations = append(violations, "user id is required")
	}
	if !start.After(s.now()) {
		violations = append(violations, "start must be in the future")
	}
	if len(violations) > 0 {
		return event.Invalid(violations...)
	}
	return nil
}

// plan selects the batch from snapshot and places it.
func (s *Service) plan(snapshot []*event.Event, start time.Time, ids []string) ([]scheduler.Placement, error) {
	batch, err := selectBatch(snapshot, ids)
	if err != nil {
		return nil, err
	}
	if len(batch) == 0 {
		return nil, event.Invalid("no events to schedule")
	}

	inBatch := make(map[string]bool, len(batch))
	items := make([]scheduler.Item, 0, len(batch))
	for _, e := range priority.Sort(batch) {
		inBatch[e.ID] = true
		items = append(items, scheduler.Item{ID: e.ID, Duration: e.DurationValue()})
	}

	var others []*event.Event
	for _, e := range snapshot {
		if !inBatch[e.ID] {
			others = append(others, e)
		}
	}

	return s.scheduler.ScheduleBatch(items, start, scheduler.Obstacles(others))
}

// selectBatch returns the events named by ids, or every undated event when
// ids is empty.
func selectBatch(snapshot []*event.Event, ids []string) ([]*event.Event, error) {
	if len(ids) == 0 {
		var undated []*event.Event
		for _, e := range snapshot {
			if !e.IsScheduled() {
				undated = append(undated, e)
			}
		}
		return undated, nil
	}

	byID := make(map[string]*event.Event, len(snapshot))
	for _, e := range snapshot {
		byID[e.ID] = e
	}

	seen := make(map[string]bool, len(ids))
	batch := make([]*event.Event, 0, len(ids))
	for _, id := range ids {
		e, ok := byID[id]
		if !ok {
			return nil, event.NotFound(id)
		}
		if seen[id] {
			return nil, event.Invalid(fmt.Sprintf("event %s listed more than once", id))
		}
		seen[id] = true
		batch = append(batch, e)
	}
	return batch, nil
}

// owned loads an event and checks it belongs to userID.
func (s *Service) owned(ctx context.Context, userID, id string) (*event.Event, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	e, err := s.repo.GetEvent(ctx, id)
	if err != nil {
		return nil, err
	}
	if e == nil {
		return nil, event.NotFound(id)
	}
	if e.UserID != userID {
		return nil, event.Forbidden(id)
	}
	return e, nil
}

func (s *Service) lockUser(ctx context.Context, userID string) (func(), error) {
	unlock, err := s.locker.Lock(ctx, "user:"+userID)
	if err != nil {
		return nil, fmt.Errorf("locking user %s: %w", userID, err)
	}
	return unlock, nil
}

func (s *Service) logBatch(r *BatchResult) {
	if r.Status() == BatchSucceeded {
		s.logger.Debug("batch applied", zap.String("op", r.Op), zap.Int("updates", len(r.Outcomes)))
		return
	}
	for _, o := range r.Failed() {
		s.logger.Warn("batch update failed",
			zap.String("op", r.Op),
			zap.String("id", o.ID),
			zap.Error(o.Err),
		)
	}
}

// logReload reloads the user's list after a failed batch and logs the order
// and gaps it was left in.
func (s *Service) logReload(ctx context.Context, op, userID string, r *BatchResult) {
	events, err := s.ListEvents(ctx, userID)
	if err != nil {
		s.logger.Warn("reload after failed batch",
			zap.String("user", userID),
			zap.String("op", op),
			zap.Error(err),
		)
		return
	}
	s.logger.Warn("batch incomplete, reloaded current state",
		zap.String("user", userID),
		zap.String("op", op),
		zap.Strings("failed", r.FailedIDs()),
		zap.Strings("order", priority.Order(events)),
		zap.Ints("gaps", priority.Gaps(events)),
	)
}

func requireUser(userID string) error {
	if strings.TrimSpace(userID) == "" {
		return event.Invalid("user id is required")
	}
	return nil
}
