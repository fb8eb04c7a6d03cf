// Package dispatch runs the periodic delivery loops: due reminders,
// yearly anniversary notices, and the morning digest. The three loops
// are independent; a slow delivery to one user never delays the next,
// because every delivery runs on its own goroutine.
package dispatch

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/aikumi/companion/plugin/ai/persona"
	"github.com/aikumi/companion/server/render"
	"github.com/aikumi/companion/server/timezone"
	"github.com/aikumi/companion/store"
)

// Notifier delivers one message to one user. Implementations sit on the
// chat transport.
type Notifier interface {
	Notify(ctx context.Context, userID, message string) error
}

const (
	dueInterval         = 20 * time.Second
	anniversaryInterval = 10 * time.Minute
	digestInterval      = 30 * time.Second

	// Firing windows are wider than their polling periods so a delayed
	// iteration cannot skip a day entirely. The cost is an occasional
	// duplicate notice when two iterations land inside one window.
	anniversaryHour   = 9
	anniversaryWindow = 10 // minutes
	digestHour        = 8
	digestWindow      = 30 // minutes
)

// Watchers owns the three dispatch loops.
type Watchers struct {
	store    *store.Store
	notifier Notifier

	defaultTimezone string
	now             func() time.Time
	wg              sync.WaitGroup
}

// NewWatchers creates the dispatch loops. They do not run until Start.
func NewWatchers(s *store.Store, notifier Notifier, defaultTimezone string) *Watchers {
	return &Watchers{
		store:           s,
		notifier:        notifier,
		defaultTimezone: defaultTimezone,
		now:             time.Now,
	}
}

// Start launches the three loops. They stop when ctx is cancelled; Wait
// blocks until every loop and in-flight delivery has finished.
func (w *Watchers) Start(ctx context.Context) {
	w.loop(ctx, "due-reminder", dueInterval, w.checkDue)
	w.loop(ctx, "anniversary", anniversaryInterval, w.checkAnniversaries)
	w.loop(ctx, "morning-digest", digestInterval, w.checkDigests)
}

// Wait blocks until all loops and deliveries have drained.
func (w *Watchers) Wait() {
	w.wg.Wait()
}

func (w *Watchers) loop(ctx context.Context, name string, interval time.Duration, check func(context.Context)) {
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				check(ctx)
			case <-ctx.Done():
				slog.Info("dispatch loop stopped", "loop", name)
				return
			}
		}
	}()
}

// deliver sends one message without blocking the calling loop. A failed
// delivery is logged and dropped, never retried.
func (w *Watchers) deliver(ctx context.Context, userID, message string) {
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		if err := w.notifier.Notify(ctx, userID, message); err != nil {
			slog.Error("delivery failed", "user_id", userID, "error", err)
		}
	}()
}

// checkDue pops every reminder due now and delivers each to its owner.
// Popped reminders are already gone from the store; a delivery failure
// loses them.
func (w *Watchers) checkDue(ctx context.Context) {
	due, err := w.store.PopDueReminders(ctx, w.now())
	if err != nil {
		slog.Error("failed to pop due reminders", "error", err)
		return
	}
	for _, r := range due {
		w.deliver(ctx, r.UserID, render.ReminderFired(r.Content))
	}
}

// checkAnniversaries sends yearly notices to owners whose local time
// sits inside the morning firing window on the anniversary's day.
func (w *Watchers) checkAnniversaries(ctx context.Context) {
	anniversaries, err := w.store.ListAllAnniversaries(ctx)
	if err != nil {
		slog.Error("failed to list anniversaries", "error", err)
		return
	}

	nowUTC := w.now()
	for _, ann := range anniversaries {
		loc := timezone.ResolveOrDefault(ann.Timezone, w.defaultTimezone)
		local := nowUTC.In(loc)
		if int(local.Month()) != ann.Month || local.Day() != ann.Day {
			continue
		}
		if local.Hour() != anniversaryHour || local.Minute() >= anniversaryWindow {
			continue
		}
		w.deliver(ctx, ann.UserID, render.AnniversaryNotice(ann.Kind, ann.Label))
	}
}

// checkDigests sends the morning schedule summary to every user whose
// local time sits inside the digest window and who has at least one
// reminder due that local day.
func (w *Watchers) checkDigests(ctx context.Context) {
	settings, err := w.store.ListUserSettings(ctx)
	if err != nil {
		slog.Error("failed to list users for digest", "error", err)
		return
	}

	nowUTC := w.now()
	for _, setting := range settings {
		loc := timezone.ResolveOrDefault(setting.Timezone, w.defaultTimezone)
		local := nowUTC.In(loc)
		if local.Hour() != digestHour || local.Minute() >= digestWindow {
			continue
		}

		start, end := timezone.LocalDayRange(nowUTC, loc)
		reminders, err := w.store.ListRemindersInRange(ctx, setting.UserID, start, end)
		if err != nil {
			slog.Error("failed to list digest reminders", "user_id", setting.UserID, "error", err)
			continue
		}
		if len(reminders) == 0 {
			continue
		}

		message := render.MorningDigest(reminders, persona.Lookup(setting.Role), loc)
		w.deliver(ctx, setting.UserID, message)
	}
}
