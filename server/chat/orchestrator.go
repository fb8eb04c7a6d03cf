// Package chat orchestrates one inbound message end to end: intent
// classification, reminder side effects, schedule queries, memory
// capture, and finally a grounded reply. Side effects happen before the
// reply is generated so the generated text can acknowledge them.
package chat

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/aikumi/companion/plugin/ai/contextbuilder"
	"github.com/aikumi/companion/plugin/ai/intent"
	"github.com/aikumi/companion/plugin/ai/persona"
	"github.com/aikumi/companion/plugin/ai/reminder"
	"github.com/aikumi/companion/server/ai"
	"github.com/aikumi/companion/server/render"
	"github.com/aikumi/companion/server/timezone"
	"github.com/aikumi/companion/store"
)

// FallbackReply substitutes when the generative backend is unreachable
// or times out. The message loop never sees that as an error.
const FallbackReply = "抱歉，我現在有點累，晚點再陪你聊好嗎？"

// scheduleFailedReply tells the user a resolved reminder could not be
// persisted. Creation failures must never look like success.
const scheduleFailedReply = "抱歉，這個行程我沒有排進去，可以再試一次嗎？"

var (
	anniversaryPattern = regexp.MustCompile(`(我的)?(生日|紀念日).*?(\d{1,2})/(\d{1,2})`)
	clausePattern      = regexp.MustCompile(`[，,、]`)
)

var queryKeywords = []string{"排程", "行程"}

// Detector is the intent-classification surface consumed by the
// orchestrator.
type Detector interface {
	DetectReminder(ctx context.Context, text string) (*intent.ReminderIntent, bool)
	DetectDelete(ctx context.Context, text string) (*intent.DeleteIntent, bool)
	DetectMemory(ctx context.Context, text string) (*intent.MemoryIntent, bool)
}

// Chatter is the reply-generation surface of the provider.
type Chatter interface {
	Chat(ctx context.Context, messages []ai.Message) (string, error)
}

// FactRecorder persists memory-worthy facts.
type FactRecorder interface {
	RecordFact(ctx context.Context, userID, category, content string, importance int) (*store.Fact, error)
}

// Orchestrator handles inbound chat messages.
type Orchestrator struct {
	store     *store.Store
	reminders *reminder.Service
	facts     FactRecorder
	assembler *contextbuilder.Assembler
	detector  Detector
	chatter   Chatter
	history   *HistoryStore
}

// NewOrchestrator wires the message pipeline.
func NewOrchestrator(
	s *store.Store,
	reminders *reminder.Service,
	facts FactRecorder,
	assembler *contextbuilder.Assembler,
	detector Detector,
	chatter Chatter,
	history *HistoryStore,
) *Orchestrator {
	return &Orchestrator{
		store:     s,
		reminders: reminders,
		facts:     facts,
		assembler: assembler,
		detector:  detector,
		chatter:   chatter,
		history:   history,
	}
}

// Handle processes one message and returns the reply text. Errors are
// reserved for failures the user must hear about; everything else
// degrades into the reply itself.
func (o *Orchestrator) Handle(ctx context.Context, userID, text string) (string, error) {
	loc := o.reminders.Location(ctx, userID)

	// Deletion requests are terminal: they resolve to exactly one
	// reply without touching the generative path.
	if del, ok := o.detector.DetectDelete(ctx, text); ok {
		deleted, matched, err := o.reminders.DeleteFuzzy(ctx, userID, del.ContentHint, del.TimeHint, text)
		if err != nil {
			return "", err
		}
		if !matched {
			return render.ClarifyDeletion, nil
		}
		if deleted.Volatile {
			return render.CancelledVolatile(deleted.Content), nil
		}
		return render.DeletedReminder(deleted.RemindAt, deleted.Content, loc), nil
	}

	// Grounding notes accumulate alongside side effects so the reply
	// stays consistent with what actually happened.
	augmented := text

	// Short-delay reminders, one classifier pass per clause so a
	// message like「10分鐘後提醒我喝水，30分鐘後提醒我運動」creates both.
	var confirmations []string
	for _, clause := range splitClauses(text) {
		ri, ok := o.detector.DetectReminder(ctx, clause)
		if !ok {
			continue
		}
		content := ri.Content
		handle := o.reminders.ScheduleVolatile(userID, ri.DelaySeconds, content)
		if handle == "" {
			continue
		}
		confirmations = append(confirmations, fmt.Sprintf("%d 秒後：%s", ri.DelaySeconds, content))
	}
	if len(confirmations) > 0 {
		augmented += fmt.Sprintf("\n(系統提示：你已成功幫對方設定以下計時提醒：%s，請自然地確認這件事)",
			strings.Join(confirmations, "、"))
	}

	// Durable reminders from an absolute time expression.
	created, matched, err := o.reminders.CreateFromText(ctx, userID, text)
	if err != nil {
		slog.Error("reminder creation failed", "user_id", userID, "error", err)
		return scheduleFailedReply, nil
	}
	if matched {
		augmented += fmt.Sprintf("\n(系統提示：你已成功將「%s」排程在 %s，請在回覆中自然提及)",
			created.Content, timezone.FormatLocal(created.RemindAt, loc))
	}

	// Birthday and anniversary declarations.
	if m := anniversaryPattern.FindStringSubmatch(text); m != nil {
		kind := store.AnniversaryKindAnniversary
		if m[2] == "生日" {
			kind = store.AnniversaryKindBirthday
		}
		month, day := atoi(m[3]), atoi(m[4])
		if _, err := o.store.UpsertAnniversary(ctx, &store.Anniversary{
			UserID: userID, Kind: kind, Month: month, Day: day, Label: m[2],
		}); err != nil {
			slog.Warn("failed to store anniversary", "user_id", userID, "error", err)
		} else {
			augmented += fmt.Sprintf("\n(系統提示：你已記下對方的%s是 %d 月 %d 日)", m[2], month, day)
		}
	}

	// Schedule queries are terminal too: they reply with the rendered
	// listing instead of generated text.
	if mode, ok := queryMode(text); ok {
		return o.renderSchedule(ctx, userID, loc, mode)
	}

	// Memory capture is best-effort; the chat continues without it.
	if mi, ok := o.detector.DetectMemory(ctx, text); ok {
		if _, err := o.facts.RecordFact(ctx, userID, mi.Category, mi.Content, 1); err != nil {
			slog.Warn("failed to record fact", "user_id", userID, "error", err)
		}
	}

	return o.reply(ctx, userID, text, augmented), nil
}

// reply generates the grounded response: persona plus memory context,
// the capped history, then the augmented message.
func (o *Orchestrator) reply(ctx context.Context, userID, original, augmented string) string {
	assembled, err := o.assembler.Assemble(ctx, userID, original)
	if err != nil {
		slog.Error("context assembly failed", "user_id", userID, "error", err)
		return FallbackReply
	}

	messages := []ai.Message{{Role: "system", Content: assembled.SystemPrompt()}}
	messages = append(messages, o.history.List(userID)...)
	messages = append(messages, ai.Message{Role: "user", Content: augmented})

	replyText, err := o.chatter.Chat(ctx, messages)
	if err != nil {
		slog.Error("reply generation failed", "user_id", userID, "error", err)
		return FallbackReply
	}

	// History keeps the original text, not the augmented one.
	o.history.Append(userID, "user", original)
	o.history.Append(userID, "assistant", replyText)
	return replyText
}

func (o *Orchestrator) renderSchedule(ctx context.Context, userID string, loc *time.Location, mode render.Mode) (string, error) {
	var (
		reminders []*store.Reminder
		err       error
	)
	switch mode {
	case render.ModeToday:
		reminders, err = o.reminders.ListToday(ctx, userID)
	case render.ModeWeek:
		reminders, err = o.reminders.ListWeek(ctx, userID)
	default:
		reminders, err = o.reminders.List(ctx, userID)
	}
	if err != nil {
		return "", err
	}

	role := ""
	if setting, err := o.store.GetUserSetting(ctx, userID); err == nil && setting != nil {
		role = setting.Role
	}
	return render.Schedule(reminders, persona.Lookup(role), loc, mode), nil
}

func queryMode(text string) (render.Mode, bool) {
	matched := false
	for _, kw := range queryKeywords {
		if strings.Contains(text, kw) {
			matched = true
			break
		}
	}
	if !matched {
		return render.ModeAll, false
	}
	switch {
	case strings.Contains(text, "今天") || strings.Contains(text, "今日"):
		return render.ModeToday, true
	case strings.Contains(text, "本週") || strings.Contains(text, "這週") || strings.Contains(text, "這周"):
		return render.ModeWeek, true
	default:
		return render.ModeAll, true
	}
}

func splitClauses(text string) []string {
	parts := clausePattern.Split(text, -1)
	clauses := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			clauses = append(clauses, trimmed)
		}
	}
	return clauses
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}
