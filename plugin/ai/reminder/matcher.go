package reminder

import (
	"strings"
	"time"

	"github.com/aikumi/companion/plugin/ai/aitime"
	"github.com/aikumi/companion/store"
)

// timeHintTolerance bounds how far a resolved time hint may lie from a
// reminder's instant and still count as a match.
const timeHintTolerance = time.Hour

// Matcher scores persisted reminders against a fuzzy deletion request.
// The volatile-timer phase lives in the service; this covers the stored
// candidates.
type Matcher struct {
	resolver *aitime.Resolver
}

// NewMatcher creates a matcher using the given time resolver for
// structured time hints.
func NewMatcher(resolver *aitime.Resolver) *Matcher {
	return &Matcher{resolver: resolver}
}

// Match returns the index into candidates of the best-scoring reminder.
// Scoring: a content-hint substring match is worth 2; a structured time
// hint resolving within one hour of the reminder is worth 1. When no
// structured hint exists, a clock token recovered from the raw message
// within one hour of the reminder's local time is worth 2, and a
// literal month/day token matching the reminder's local date adds 1.
// A zero top score means no match; the caller asks the user to clarify
// instead of guessing. Ties keep the earliest candidate.
func (m *Matcher) Match(contentHint, timeHint, rawText string, candidates []*store.Reminder, loc *time.Location) (int, bool) {
	if loc == nil {
		loc = time.UTC
	}

	var hintInstant time.Time
	hasHintInstant := false
	if timeHint != "" {
		if result, ok := m.resolver.Resolve(timeHint, loc); ok {
			hintInstant = result.RemindAt
			hasHintInstant = true
		}
	}

	rawHour, rawMinute, hasRawClock := 0, 0, false
	rawMonth, rawDay, hasRawDate := 0, 0, false
	if !hasHintInstant {
		rawHour, rawMinute, hasRawClock = aitime.FindClockTime(rawText)
		rawMonth, rawDay, hasRawDate = aitime.FindMonthDay(rawText)
	}

	bestIdx, bestScore := -1, 0
	for i, candidate := range candidates {
		score := 0
		if contentHint != "" && strings.Contains(candidate.Content, contentHint) {
			score += 2
		}

		local := candidate.RemindAt.In(loc)
		if hasHintInstant {
			if absDuration(candidate.RemindAt.Sub(hintInstant)) <= timeHintTolerance {
				score++
			}
		} else {
			if hasRawClock {
				clock := time.Date(local.Year(), local.Month(), local.Day(),
					rawHour, rawMinute, 0, 0, loc)
				if absDuration(local.Sub(clock)) <= timeHintTolerance {
					score += 2
				}
			}
			if hasRawDate && int(local.Month()) == rawMonth && local.Day() == rawDay {
				score++
			}
		}

		if score > bestScore {
			bestIdx, bestScore = i, score
		}
	}
	if bestScore == 0 {
		return -1, false
	}
	return bestIdx, true
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}
