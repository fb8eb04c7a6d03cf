package chat

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aikumi/companion/internal/profile"
	"github.com/aikumi/companion/plugin/ai/aitime"
	"github.com/aikumi/companion/plugin/ai/contextbuilder"
	"github.com/aikumi/companion/plugin/ai/intent"
	"github.com/aikumi/companion/plugin/ai/memory"
	"github.com/aikumi/companion/plugin/ai/reminder"
	"github.com/aikumi/companion/server/ai"
	"github.com/aikumi/companion/store"
	"github.com/aikumi/companion/store/db/sqlite"
)

type stubDetector struct {
	reminders map[string]*intent.ReminderIntent
	delete    *intent.DeleteIntent
	memory    *intent.MemoryIntent
}

func (s *stubDetector) DetectReminder(_ context.Context, text string) (*intent.ReminderIntent, bool) {
	ri, ok := s.reminders[text]
	return ri, ok
}

func (s *stubDetector) DetectDelete(_ context.Context, _ string) (*intent.DeleteIntent, bool) {
	return s.delete, s.delete != nil
}

func (s *stubDetector) DetectMemory(_ context.Context, _ string) (*intent.MemoryIntent, bool) {
	return s.memory, s.memory != nil
}

type stubChatter struct {
	reply    string
	err      error
	lastMsgs []ai.Message
	calls    int
}

func (s *stubChatter) Chat(_ context.Context, messages []ai.Message) (string, error) {
	s.calls++
	s.lastMsgs = messages
	return s.reply, s.err
}

type fixture struct {
	store        *store.Store
	orchestrator *Orchestrator
	detector     *stubDetector
	chatter      *stubChatter
	reminders    *reminder.Service
	history      *HistoryStore
	loc          *time.Location
}

func newFixture(t *testing.T, now time.Time) *fixture {
	t.Helper()

	p := &profile.Profile{
		Mode:   "dev",
		Driver: "sqlite",
		DSN:    filepath.Join(t.TempDir(), "companion_test.db"),
	}
	driver, err := sqlite.NewDB(p)
	require.NoError(t, err)
	require.NoError(t, driver.Migrate(context.Background()))
	s := store.New(driver, p)
	t.Cleanup(func() { _ = s.Close() })

	loc, err := time.LoadLocation("Asia/Taipei")
	require.NoError(t, err)

	resolver := aitime.NewResolver().WithNow(func() time.Time { return now.In(loc) })
	reminders := reminder.NewService(s, resolver, "Asia/Taipei", func(string, string) {})
	t.Cleanup(reminders.Close)

	facts := memory.NewService(s, nil, "")
	detector := &stubDetector{reminders: map[string]*intent.ReminderIntent{}}
	chatter := &stubChatter{reply: "好的，我記住了。"}
	history := NewHistoryStore()
	assembler := contextbuilder.NewAssembler(s, facts, 0)

	return &fixture{
		store:        s,
		orchestrator: NewOrchestrator(s, reminders, facts, assembler, detector, chatter, history),
		detector:     detector,
		chatter:      chatter,
		reminders:    reminders,
		history:      history,
		loc:          loc,
	}
}

func monday(t *testing.T) time.Time {
	t.Helper()
	loc, err := time.LoadLocation("Asia/Taipei")
	require.NoError(t, err)
	return time.Date(2026, 3, 9, 10, 0, 0, 0, loc)
}

func TestHandleDeleteStored(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, monday(t))

	_, err := f.store.CreateReminder(ctx, &store.Reminder{
		UID: "r-1", UserID: "u1", Content: "喝水",
		RemindAt: time.Date(2026, 9, 21, 14, 0, 0, 0, f.loc).UTC(),
	})
	require.NoError(t, err)
	_, err = f.store.CreateReminder(ctx, &store.Reminder{
		UID: "r-2", UserID: "u1", Content: "運動",
		RemindAt: time.Date(2026, 9, 21, 18, 0, 0, 0, f.loc).UTC(),
	})
	require.NoError(t, err)

	f.detector.delete = &intent.DeleteIntent{ContentHint: "運動"}
	reply, err := f.orchestrator.Handle(ctx, "u1", "幫我刪掉運動提醒")
	require.NoError(t, err)
	assert.Contains(t, reply, "已幫你刪除")
	assert.Contains(t, reply, "運動")
	assert.Zero(t, f.chatter.calls, "deletion never reaches the generative path")

	remaining, err := f.store.ListReminders(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, remaining, 1)
	assert.Equal(t, "喝水", remaining[0].Content)
}

func TestHandleDeleteNoMatch(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, monday(t))

	f.detector.delete = &intent.DeleteIntent{ContentHint: "運動"}
	reply, err := f.orchestrator.Handle(ctx, "u1", "刪掉運動")
	require.NoError(t, err)
	assert.Contains(t, reply, "再說清楚一點")
}

func TestHandleVolatileClauses(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, monday(t))

	f.detector.reminders["10分鐘後提醒我喝水"] = &intent.ReminderIntent{DelaySeconds: 600, Content: "喝水"}
	f.detector.reminders["30分鐘後提醒我運動"] = &intent.ReminderIntent{DelaySeconds: 1800, Content: "運動"}

	reply, err := f.orchestrator.Handle(ctx, "u1", "10分鐘後提醒我喝水，30分鐘後提醒我運動")
	require.NoError(t, err)
	assert.Equal(t, "好的，我記住了。", reply)

	_, ok := f.reminders.Pool().FindByContent("u1", "喝水")
	assert.True(t, ok)
	_, ok = f.reminders.Pool().FindByContent("u1", "運動")
	assert.True(t, ok)

	// The backend sees the grounding note, not just the raw text.
	last := f.chatter.lastMsgs[len(f.chatter.lastMsgs)-1]
	assert.Contains(t, last.Content, "600 秒後：喝水")
	assert.Contains(t, last.Content, "1800 秒後：運動")
}

func TestHandleDurableCreation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, monday(t))

	reply, err := f.orchestrator.Handle(ctx, "u1", "9/21 下午3點提醒我開會")
	require.NoError(t, err)
	assert.Equal(t, "好的，我記住了。", reply)

	reminders, err := f.store.ListReminders(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, reminders, 1)
	assert.Equal(t, "開會", reminders[0].Content)

	last := f.chatter.lastMsgs[len(f.chatter.lastMsgs)-1]
	assert.Contains(t, last.Content, "系統提示")
	assert.Contains(t, last.Content, "開會")
}

func TestHandleAnniversary(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, monday(t))

	_, err := f.orchestrator.Handle(ctx, "u1", "我的生日是5/1喔")
	require.NoError(t, err)

	anniversaries, err := f.store.ListAnniversaries(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, anniversaries, 1)
	assert.Equal(t, store.AnniversaryKindBirthday, anniversaries[0].Kind)
	assert.Equal(t, 5, anniversaries[0].Month)
	assert.Equal(t, 1, anniversaries[0].Day)
}

func TestHandleScheduleQuery(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, monday(t))

	_, err := f.store.CreateReminder(ctx, &store.Reminder{
		UID: "r-1", UserID: "u1", Content: "開會",
		RemindAt: time.Date(2026, 9, 21, 7, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	reply, err := f.orchestrator.Handle(ctx, "u1", "我有什麼行程")
	require.NoError(t, err)
	assert.Contains(t, reply, "📅 行程列表")
	assert.Contains(t, reply, "開會")
	assert.Zero(t, f.chatter.calls, "schedule queries reply with the rendered listing")
}

func TestHandleScheduleQueryToday(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, monday(t))

	reply, err := f.orchestrator.Handle(ctx, "u1", "今天的行程有哪些")
	require.NoError(t, err)
	assert.Equal(t, "📭 目前沒有任何行程。", reply)
}

func TestHandleMemoryCapture(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, monday(t))

	f.detector.memory = &intent.MemoryIntent{Category: "喜好", Content: "喜歡黑咖啡"}
	_, err := f.orchestrator.Handle(ctx, "u1", "跟你說我超愛黑咖啡")
	require.NoError(t, err)

	facts, err := f.store.ListTopFacts(ctx, "u1", 10)
	require.NoError(t, err)
	require.Len(t, facts, 1)
	assert.Equal(t, "喜歡黑咖啡", facts[0].Content)
}

func TestHandleBackendFailure(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, monday(t))

	f.chatter.err = errors.New("backend down")
	reply, err := f.orchestrator.Handle(ctx, "u1", "你好嗎")
	require.NoError(t, err, "backend failure must not surface as an error")
	assert.Equal(t, FallbackReply, reply)
	assert.Empty(t, f.history.List("u1"), "failed replies stay out of history")
}

func TestHandleKeepsHistory(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, monday(t))

	_, err := f.orchestrator.Handle(ctx, "u1", "你好嗎")
	require.NoError(t, err)

	history := f.history.List("u1")
	require.Len(t, history, 2)
	assert.Equal(t, "user", history[0].Role)
	assert.Equal(t, "你好嗎", history[0].Content)
	assert.Equal(t, "assistant", history[1].Role)
}
