// Package render formats reminder lists and dispatch notices for
// delivery. All timestamps are re-localized to the owner's timezone at
// render time.
package render

import (
	"fmt"
	"strings"
	"time"

	"github.com/aikumi/companion/plugin/ai/persona"
	"github.com/aikumi/companion/server/timezone"
	"github.com/aikumi/companion/store"
)

// Mode selects the schedule listing title.
type Mode string

const (
	ModeAll   Mode = "all"
	ModeToday Mode = "today"
	ModeWeek  Mode = "week"
)

// EmptySchedule is the reply when a listing has no entries.
const EmptySchedule = "📭 目前沒有任何行程。"

func title(mode Mode) string {
	switch mode {
	case ModeToday:
		return "📆 今日行程"
	case ModeWeek:
		return "⏳ 本週行程"
	default:
		return "📅 行程列表"
	}
}

// Schedule renders a reminder listing: a mode title, the persona's
// lead-in, then one line per reminder as a localized timestamp paired
// with its content.
func Schedule(reminders []*store.Reminder, p persona.Persona, loc *time.Location, mode Mode) string {
	return scheduleWithTitle(reminders, p, loc, title(mode))
}

// MorningDigest renders the daily digest variant of the schedule list.
func MorningDigest(reminders []*store.Reminder, p persona.Persona, loc *time.Location) string {
	return scheduleWithTitle(reminders, p, loc, "早安！今天的行程提醒")
}

func scheduleWithTitle(reminders []*store.Reminder, p persona.Persona, loc *time.Location, title string) string {
	if len(reminders) == 0 {
		return EmptySchedule
	}

	var b strings.Builder
	b.WriteString(title)
	b.WriteString("\n")
	b.WriteString(p.ScheduleLeadIn)
	for _, r := range reminders {
		b.WriteString("\n🕒 ")
		b.WriteString(timezone.FormatLocal(r.RemindAt, loc))
		b.WriteString("｜")
		b.WriteString(r.Content)
	}
	return b.String()
}

// ReminderFired is the delivery text for a due reminder.
func ReminderFired(content string) string {
	return "提醒你：" + content
}

// AnniversaryNotice is the delivery text for a yearly notice.
func AnniversaryNotice(kind store.AnniversaryKind, label string) string {
	if kind == store.AnniversaryKindBirthday {
		return "今天是你的生日！生日快樂！🎉"
	}
	return fmt.Sprintf("今天是你的 %s，別忘了慶祝喔！", label)
}

// DeletedReminder confirms a fuzzy deletion of a stored reminder.
func DeletedReminder(remindAt time.Time, content string, loc *time.Location) string {
	return fmt.Sprintf("🗑️ 已幫你刪除這個行程：\n🕒 %s｜%s",
		timezone.FormatLocal(remindAt, loc), content)
}

// CancelledVolatile confirms cancellation of a short-delay timer.
func CancelledVolatile(content string) string {
	return "🗑️ 已幫你取消短時間提醒：" + content
}

// ClarifyDeletion asks the user to narrow an unmatched deletion
// request.
const ClarifyDeletion = "⚠️ 我找不到符合描述的提醒，可以再說清楚一點嗎？"
