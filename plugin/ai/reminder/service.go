package reminder

import (
	"context"
	"time"

	"github.com/lithammer/shortuuid/v4"
	"github.com/pkg/errors"

	"github.com/aikumi/companion/plugin/ai/aitime"
	"github.com/aikumi/companion/server/timezone"
	"github.com/aikumi/companion/store"
)

// defaultVolatileContent fills in when a delayed-reminder intent carries
// no description.
const defaultVolatileContent = "該注意時間囉"

// Deleted describes the outcome of a fuzzy deletion request.
type Deleted struct {
	// Volatile is true when a pending in-process timer was cancelled
	// instead of a stored reminder.
	Volatile bool
	Content  string
	// RemindAt is set only for stored reminders.
	RemindAt time.Time
}

// Service coordinates durable reminders, volatile timers, and deletion
// matching for one process.
type Service struct {
	store    *store.Store
	resolver *aitime.Resolver
	matcher  *Matcher
	pool     *VolatileTimerPool

	defaultTimezone string
}

// NewService wires a reminder service. deliver receives fired volatile
// timers.
func NewService(s *store.Store, resolver *aitime.Resolver, defaultTimezone string, deliver DeliverFunc) *Service {
	return &Service{
		store:           s,
		resolver:        resolver,
		matcher:         NewMatcher(resolver),
		pool:            NewVolatileTimerPool(deliver),
		defaultTimezone: defaultTimezone,
	}
}

// Pool exposes the volatile timer pool for shutdown wiring.
func (s *Service) Pool() *VolatileTimerPool {
	return s.pool
}

// Location returns the user's timezone, falling back to the configured
// default when unset or invalid.
func (s *Service) Location(ctx context.Context, userID string) *time.Location {
	setting, err := s.store.GetUserSetting(ctx, userID)
	if err != nil || setting == nil {
		return timezone.ResolveOrDefault("", s.defaultTimezone)
	}
	return timezone.ResolveOrDefault(setting.Timezone, s.defaultTimezone)
}

// CreateFromText resolves a natural-language time expression and
// persists the reminder. ok is false when the text names no resolvable
// time; a store failure is returned as an error so the caller can
// report the scheduling failure instead of pretending it worked.
func (s *Service) CreateFromText(ctx context.Context, userID, text string) (*store.Reminder, bool, error) {
	loc := s.Location(ctx, userID)
	result, ok := s.resolver.Resolve(text, loc)
	if !ok {
		return nil, false, nil
	}

	created, err := s.store.CreateReminder(ctx, &store.Reminder{
		UID:      shortuuid.New(),
		UserID:   userID,
		RemindAt: result.RemindAt,
		Content:  result.Content,
	})
	if err != nil {
		return nil, true, errors.Wrap(err, "failed to persist reminder")
	}
	return created, true, nil
}

// ScheduleVolatile registers a short-delay in-process timer and returns
// its cancel handle.
func (s *Service) ScheduleVolatile(userID string, delaySeconds int64, content string) string {
	if content == "" {
		content = defaultVolatileContent
	}
	return s.pool.Schedule(userID, time.Duration(delaySeconds)*time.Second, content)
}

// List returns all of the user's reminders ordered by remind time.
func (s *Service) List(ctx context.Context, userID string) ([]*store.Reminder, error) {
	return s.store.ListReminders(ctx, userID)
}

// ListToday returns reminders falling within the user's current local
// day.
func (s *Service) ListToday(ctx context.Context, userID string) ([]*store.Reminder, error) {
	loc := s.Location(ctx, userID)
	start, end := timezone.LocalDayRange(time.Now(), loc)
	return s.store.ListRemindersInRange(ctx, userID, start, end)
}

// ListWeek returns reminders falling within seven days starting at the
// user's current local midnight.
func (s *Service) ListWeek(ctx context.Context, userID string) ([]*store.Reminder, error) {
	loc := s.Location(ctx, userID)
	start, end := timezone.LocalWeekRange(time.Now(), loc)
	return s.store.ListRemindersInRange(ctx, userID, start, end)
}

// DeleteFuzzy resolves a deletion request against volatile timers
// first, then stored reminders. ok is false when nothing scored above
// zero; the caller should ask the user to clarify rather than guess.
func (s *Service) DeleteFuzzy(ctx context.Context, userID, contentHint, timeHint, rawText string) (*Deleted, bool, error) {
	// Volatile timers short-circuit stored matching: a content-hint hit
	// cancels the first matching timer outright.
	if entry, ok := s.pool.FindByContent(userID, contentHint); ok {
		if s.pool.Cancel(entry.Handle) {
			return &Deleted{Volatile: true, Content: entry.Content}, true, nil
		}
		// Fired between snapshot and cancel; fall through to stored
		// candidates.
	}

	listing, err := s.store.ListReminders(ctx, userID)
	if err != nil {
		return nil, false, errors.Wrap(err, "failed to list deletion candidates")
	}

	loc := s.Location(ctx, userID)
	idx, ok := s.matcher.Match(contentHint, timeHint, rawText, listing, loc)
	if !ok {
		return nil, false, nil
	}

	deleted, err := s.store.DeleteReminderByOrdinal(ctx, userID, idx+1, listing)
	if err != nil {
		return nil, false, errors.Wrap(err, "failed to delete reminder")
	}
	return &Deleted{Content: deleted.Content, RemindAt: deleted.RemindAt}, true, nil
}

// Close tears down the volatile timer pool.
func (s *Service) Close() {
	s.pool.Close()
}
