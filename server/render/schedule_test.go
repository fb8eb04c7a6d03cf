package render

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aikumi/companion/plugin/ai/persona"
	"github.com/aikumi/companion/store"
)

func TestScheduleRendering(t *testing.T) {
	loc, err := time.LoadLocation("Asia/Taipei")
	require.NoError(t, err)

	reminders := []*store.Reminder{
		{Content: "喝水", RemindAt: time.Date(2026, 9, 21, 6, 0, 0, 0, time.UTC)},
		{Content: "運動", RemindAt: time.Date(2026, 9, 21, 10, 0, 0, 0, time.UTC)},
	}

	got := Schedule(reminders, persona.Lookup("secretary"), loc, ModeToday)
	lines := []string{
		"📆 今日行程",
		"📋 行程摘要如下：",
		"🕒 2026-09-21 14:00｜喝水",
		"🕒 2026-09-21 18:00｜運動",
	}
	for _, line := range lines {
		assert.Contains(t, got, line)
	}

	assert.Contains(t, Schedule(reminders, persona.Lookup(""), loc, ModeAll), "📅 行程列表")
	assert.Contains(t, Schedule(reminders, persona.Lookup(""), loc, ModeWeek), "⏳ 本週行程")
}

func TestScheduleEmpty(t *testing.T) {
	got := Schedule(nil, persona.Lookup(""), time.UTC, ModeAll)
	assert.Equal(t, EmptySchedule, got)
}

func TestMorningDigest(t *testing.T) {
	reminders := []*store.Reminder{
		{Content: "開會", RemindAt: time.Date(2026, 9, 21, 1, 0, 0, 0, time.UTC)},
	}
	got := MorningDigest(reminders, persona.Lookup("maid"), time.UTC)
	assert.Contains(t, got, "早安！今天的行程提醒")
	assert.Contains(t, got, "這是您接下來的安排 💕")
	assert.Contains(t, got, "開會")
}

func TestNotices(t *testing.T) {
	assert.Equal(t, "提醒你：喝水", ReminderFired("喝水"))
	assert.Contains(t, AnniversaryNotice(store.AnniversaryKindBirthday, "生日"), "生日快樂")
	assert.Contains(t, AnniversaryNotice(store.AnniversaryKindAnniversary, "結婚紀念日"), "結婚紀念日")
}
