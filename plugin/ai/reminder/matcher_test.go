package reminder

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aikumi/companion/plugin/ai/aitime"
	"github.com/aikumi/companion/store"
)

func fixedResolver(local time.Time) *aitime.Resolver {
	return aitime.NewResolver().WithNow(func() time.Time { return local })
}

func TestContentBeatsTime(t *testing.T) {
	loc, err := time.LoadLocation("Asia/Taipei")
	require.NoError(t, err)
	now := time.Date(2026, 9, 20, 10, 0, 0, 0, loc)
	m := NewMatcher(fixedResolver(now))

	// One candidate matches only by content, the other only by
	// proximate time; content must win.
	byTime := &store.Reminder{
		Content:  "喝水",
		RemindAt: time.Date(2026, 9, 21, 15, 0, 0, 0, loc).UTC(),
	}
	byContent := &store.Reminder{
		Content:  "運動",
		RemindAt: time.Date(2026, 9, 25, 18, 0, 0, 0, loc).UTC(),
	}

	idx, ok := m.Match("運動", "9/21 下午3點", "刪掉運動提醒", []*store.Reminder{byTime, byContent}, loc)
	require.True(t, ok)
	assert.Equal(t, 1, idx)
}

func TestContentHintSelectsOnlyMatch(t *testing.T) {
	loc, err := time.LoadLocation("Asia/Taipei")
	require.NoError(t, err)
	now := time.Date(2026, 9, 20, 10, 0, 0, 0, loc)
	m := NewMatcher(fixedResolver(now))

	candidates := []*store.Reminder{
		{Content: "喝水", RemindAt: time.Date(2026, 9, 21, 14, 0, 0, 0, loc).UTC()},
		{Content: "運動", RemindAt: time.Date(2026, 9, 21, 18, 0, 0, 0, loc).UTC()},
	}

	idx, ok := m.Match("運動", "", "幫我刪掉運動", candidates, loc)
	require.True(t, ok)
	assert.Equal(t, 1, idx)
}

func TestRawClockFallback(t *testing.T) {
	loc, err := time.LoadLocation("Asia/Taipei")
	require.NoError(t, err)
	now := time.Date(2026, 9, 20, 10, 0, 0, 0, loc)
	m := NewMatcher(fixedResolver(now))

	candidates := []*store.Reminder{
		{Content: "喝水", RemindAt: time.Date(2026, 9, 21, 14, 0, 0, 0, loc).UTC()},
		{Content: "運動", RemindAt: time.Date(2026, 9, 21, 18, 0, 0, 0, loc).UTC()},
	}

	// No content hint, no structured time hint: the clock token in the
	// raw message decides.
	idx, ok := m.Match("", "", "取消下午6點那個提醒", candidates, loc)
	require.True(t, ok)
	assert.Equal(t, 1, idx)
}

func TestRawDateAddsToScore(t *testing.T) {
	loc, err := time.LoadLocation("Asia/Taipei")
	require.NoError(t, err)
	now := time.Date(2026, 9, 1, 10, 0, 0, 0, loc)
	m := NewMatcher(fixedResolver(now))

	// Same local hour on two different days; the literal date token in
	// the raw message breaks the tie.
	candidates := []*store.Reminder{
		{Content: "喝水", RemindAt: time.Date(2026, 9, 20, 14, 0, 0, 0, loc).UTC()},
		{Content: "喝水", RemindAt: time.Date(2026, 9, 21, 14, 0, 0, 0, loc).UTC()},
	}

	idx, ok := m.Match("", "", "取消9/21下午2點的提醒", candidates, loc)
	require.True(t, ok)
	assert.Equal(t, 1, idx)
}

func TestZeroScoreMeansNoMatch(t *testing.T) {
	loc := time.UTC
	now := time.Date(2026, 9, 20, 10, 0, 0, 0, loc)
	m := NewMatcher(fixedResolver(now))

	candidates := []*store.Reminder{
		{Content: "喝水", RemindAt: time.Date(2026, 9, 21, 14, 0, 0, 0, loc)},
	}

	_, ok := m.Match("運動", "", "刪掉那個", candidates, loc)
	assert.False(t, ok)

	_, ok = m.Match("", "", "刪掉那個", candidates, loc)
	assert.False(t, ok)

	_, ok = m.Match("喝水", "", "x", nil, loc)
	assert.False(t, ok, "no candidates, no match")
}

func TestTieKeepsEarliest(t *testing.T) {
	loc := time.UTC
	now := time.Date(2026, 9, 20, 10, 0, 0, 0, loc)
	m := NewMatcher(fixedResolver(now))

	candidates := []*store.Reminder{
		{Content: "開會", RemindAt: time.Date(2026, 9, 21, 14, 0, 0, 0, loc)},
		{Content: "開會", RemindAt: time.Date(2026, 9, 22, 14, 0, 0, 0, loc)},
	}

	idx, ok := m.Match("開會", "", "刪掉開會提醒", candidates, loc)
	require.True(t, ok)
	assert.Equal(t, 0, idx)
}
