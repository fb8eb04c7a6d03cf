// Package aitime resolves natural-language time expressions into absolute
// instants.
//
// The grammar is a fixed precedence list of discrete matchers; the first
// matcher that applies wins:
//
//  1. weekday + clock time        星期三下午三點
//  2. explicit date + clock time  9/21 下午3點
//  3. date only, no clock token   9/21        (defaults to local noon)
//  4. loose date + bare hour      9/21 下午3  (no 點 marker required)
//
// Resolved instants are returned in UTC; the cleaned content has the
// consumed tokens and any 「(記得)提醒我」 phrase stripped.
package aitime

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"
)

// PlaceholderContent substitutes for an empty description after token
// stripping.
const PlaceholderContent = "未命名行程"

// rolloverThreshold: a resolved instant lying further than this in the
// past is assumed to mean next year. Anything nearer stays in the past,
// an accepted ambiguity.
const rolloverThreshold = 180 * 24 * time.Hour

var (
	weekdayPattern = regexp.MustCompile(`(?:星期|禮拜|週|周)([一二三四五六日天0-7])`)
	clockPattern   = regexp.MustCompile(`(上午|早上|中午|下午|晚上|凌晨)?\s*(\d{1,2}|[一二三四五六七八九十兩]{1,3})\s*點(半)?`)
	datePattern    = regexp.MustCompile(`(\d{1,2})/(\d{1,2})`)
	// The non-digit separator keeps the day literal from donating its
	// trailing digit to the hour group on a date-only input.
	loosePattern = regexp.MustCompile(`(\d{1,2})/(\d{1,2})\D+?(上午|早上|中午|下午|晚上|凌晨)?\s*(\d{1,2})`)
	// looseTailPattern rebinds the hour after the gate above accepts:
	// the lazy gate stops at the first digit after the date, which can
	// sit inside the reminder content rather than the time tail.
	looseTailPattern = regexp.MustCompile(`(上午|早上|中午|下午|晚上|凌晨)?\s*(\d{1,2})`)
	remindPattern    = regexp.MustCompile(`(記得)?提醒我`)
)

// weekdayIndex maps weekday tokens to time.Weekday numbering (Sunday=0).
// Both name and single-digit numeral forms are supported.
var weekdayIndex = map[string]int{
	"日": 0, "天": 0, "0": 0, "7": 0,
	"一": 1, "1": 1,
	"二": 2, "2": 2,
	"三": 3, "3": 3,
	"四": 4, "4": 4,
	"五": 5, "5": 5,
	"六": 6, "6": 6,
}

// chineseHours maps Chinese hour numerals, longest pattern first so 十二
// matches before 十.
var chineseHours = []struct {
	pattern string
	value   int
}{
	{"二十四", 24}, {"二十三", 23}, {"二十二", 22}, {"二十一", 21}, {"二十", 20},
	{"十九", 19}, {"十八", 18}, {"十七", 17}, {"十六", 16}, {"十五", 15},
	{"十四", 14}, {"十三", 13}, {"十二", 12}, {"十一", 11}, {"十", 10},
	{"九", 9}, {"八", 8}, {"七", 7}, {"六", 6}, {"五", 5},
	{"四", 4}, {"三", 3}, {"二", 2}, {"兩", 2}, {"一", 1},
}

// span is a half-open byte range of consumed input. Stripping by range
// keeps a digit inside the reminder content from being mistaken for the
// matched time token.
type span struct {
	start, end int
}

// Result is a resolved time expression.
type Result struct {
	// RemindAt is the resolved instant in UTC.
	RemindAt time.Time
	// Content is the input with time/date tokens and the reminder
	// phrase stripped; never empty.
	Content string
}

// Resolver parses natural-language time fragments in a user timezone.
type Resolver struct {
	now func() time.Time
}

// NewResolver creates a resolver using the wall clock.
func NewResolver() *Resolver {
	return &Resolver{now: time.Now}
}

// WithNow returns a resolver with an injected clock, for tests.
func (r *Resolver) WithNow(now func() time.Time) *Resolver {
	return &Resolver{now: now}
}

// Resolve parses text in the given timezone. ok is false when no grammar
// rule matches; the caller treats that as "not a schedule request".
func (r *Resolver) Resolve(text string, loc *time.Location) (Result, bool) {
	if loc == nil {
		loc = time.UTC
	}
	now := r.now().In(loc)

	for _, match := range []func(string, time.Time, *time.Location) (time.Time, []span, bool){
		r.matchWeekdayClock,
		r.matchDateClock,
		r.matchDateOnly,
		r.matchLoose,
	} {
		if resolved, consumed, ok := match(text, now, loc); ok {
			resolved = rollOverYear(resolved, now)
			return Result{
				RemindAt: resolved.UTC(),
				Content:  cleanContent(text, consumed),
			}, true
		}
	}
	return Result{}, false
}

// matchWeekdayClock handles rule 1: weekday token plus clock time. The
// target is the next occurrence of the weekday strictly after today; a
// same-weekday request always means next week.
func (r *Resolver) matchWeekdayClock(text string, now time.Time, loc *time.Location) (time.Time, []span, bool) {
	wi := weekdayPattern.FindStringSubmatchIndex(text)
	if wi == nil {
		return time.Time{}, nil, false
	}
	hour, minute, clock, ok := findClock(text)
	if !ok {
		return time.Time{}, nil, false
	}

	target := weekdayIndex[text[wi[2]:wi[3]]]
	offset := (target - int(now.Weekday()) + 7) % 7
	if offset == 0 {
		offset = 7
	}

	day := now.AddDate(0, 0, offset)
	resolved := time.Date(day.Year(), day.Month(), day.Day(), hour, minute, 0, 0, loc)
	return resolved, []span{{wi[0], wi[1]}, clock}, true
}

// matchDateClock handles rule 2: explicit month/day literal plus clock
// time.
func (r *Resolver) matchDateClock(text string, now time.Time, loc *time.Location) (time.Time, []span, bool) {
	di := datePattern.FindStringSubmatchIndex(text)
	if di == nil {
		return time.Time{}, nil, false
	}
	hour, minute, clock, ok := findClock(text)
	if !ok {
		return time.Time{}, nil, false
	}

	month, _ := strconv.Atoi(text[di[2]:di[3]])
	day, _ := strconv.Atoi(text[di[4]:di[5]])
	if !validMonthDay(month, day) {
		return time.Time{}, nil, false
	}

	resolved := time.Date(now.Year(), time.Month(month), day, hour, minute, 0, 0, loc)
	return resolved, []span{{di[0], di[1]}, clock}, true
}

// matchDateOnly handles rule 3: a month/day literal with no clock-time
// token at all defaults to local noon.
func (r *Resolver) matchDateOnly(text string, now time.Time, loc *time.Location) (time.Time, []span, bool) {
	di := datePattern.FindStringSubmatchIndex(text)
	if di == nil {
		return time.Time{}, nil, false
	}
	// Any trailing hour-like token belongs to rule 4 instead.
	if lm := loosePattern.FindStringSubmatch(text); lm != nil {
		return time.Time{}, nil, false
	}

	month, _ := strconv.Atoi(text[di[2]:di[3]])
	day, _ := strconv.Atoi(text[di[4]:di[5]])
	if !validMonthDay(month, day) {
		return time.Time{}, nil, false
	}

	resolved := time.Date(now.Year(), time.Month(month), day, 12, 0, 0, 0, loc)
	return resolved, []span{{di[0], di[1]}}, true
}

// matchLoose handles rule 4: date digits followed by an optional period
// qualifier and a bare hour number, no 點 marker required.
func (r *Resolver) matchLoose(text string, now time.Time, loc *time.Location) (time.Time, []span, bool) {
	if !loosePattern.MatchString(text) {
		return time.Time{}, nil, false
	}
	di := datePattern.FindStringSubmatchIndex(text)
	month, _ := strconv.Atoi(text[di[2]:di[3]])
	day, _ := strconv.Atoi(text[di[4]:di[5]])
	if !validMonthDay(month, day) {
		return time.Time{}, nil, false
	}

	// The hour is the last qualifier+number run after the date; an
	// earlier bare digit belongs to the reminder content.
	tails := looseTailPattern.FindAllStringSubmatchIndex(text[di[1]:], -1)
	ti := tails[len(tails)-1]
	hour, _ := strconv.Atoi(text[di[1]+ti[4] : di[1]+ti[5]])
	if hour > 24 {
		return time.Time{}, nil, false
	}
	period := ""
	if ti[2] >= 0 {
		period = text[di[1]+ti[2] : di[1]+ti[3]]
	}
	hour = normalizeHour(hour, period)

	// Strip only the date literal and the time tail, not the text in
	// between: that text is the reminder's content.
	consumed := []span{{di[0], di[1]}, {di[1] + ti[0], di[1] + ti[1]}}

	resolved := time.Date(now.Year(), time.Month(month), day, hour, 0, 0, 0, loc)
	return resolved, consumed, true
}

// FindClockTime extracts a 點-marked clock token from text without
// requiring any date context. Used by deletion matching to recover a
// time hint straight from the raw message.
func FindClockTime(text string) (hour, minute int, ok bool) {
	h, m, _, found := findClock(text)
	if !found {
		return 0, 0, false
	}
	return h, m, true
}

// FindMonthDay extracts a literal month/day token from text.
func FindMonthDay(text string) (month, day int, ok bool) {
	dm := datePattern.FindStringSubmatch(text)
	if dm == nil {
		return 0, 0, false
	}
	month, _ = strconv.Atoi(dm[1])
	day, _ = strconv.Atoi(dm[2])
	if !validMonthDay(month, day) {
		return 0, 0, false
	}
	return month, day, true
}

// findClock finds a 點-marked clock token and returns the normalized
// hour, minute, and the consumed range.
func findClock(text string) (hour, minute int, consumed span, ok bool) {
	ci := clockPattern.FindStringSubmatchIndex(text)
	if ci == nil {
		return 0, 0, span{}, false
	}

	h, valid := parseHour(text[ci[4]:ci[5]])
	if !valid {
		return 0, 0, span{}, false
	}
	period := ""
	if ci[2] >= 0 {
		period = text[ci[2]:ci[3]]
	}
	h = normalizeHour(h, period)

	minute = 0
	if ci[6] >= 0 {
		minute = 30
	}
	return h, minute, span{ci[0], ci[1]}, true
}

func parseHour(token string) (int, bool) {
	if n, err := strconv.Atoi(token); err == nil {
		if n > 24 {
			return 0, false
		}
		return n, true
	}
	for _, cn := range chineseHours {
		if token == cn.pattern {
			return cn.value, true
		}
	}
	return 0, false
}

// normalizeHour applies the period qualifier: afternoon/evening add 12h
// to hours below 12; dawn and morning roll a literal 12 over to 0.
func normalizeHour(hour int, period string) int {
	switch period {
	case "下午", "晚上":
		if hour < 12 {
			hour += 12
		}
	case "凌晨", "上午", "早上":
		if hour == 12 {
			hour = 0
		}
	}
	return hour
}

// rollOverYear advances the year by one when the resolved instant lies
// more than the threshold in the past. A nearer past instant is returned
// as-is.
func rollOverYear(resolved, now time.Time) time.Time {
	if resolved.Before(now) && now.Sub(resolved) > rolloverThreshold {
		return resolved.AddDate(1, 0, 0)
	}
	return resolved
}

func validMonthDay(month, day int) bool {
	return month >= 1 && month <= 12 && day >= 1 && day <= 31
}

// cleanContent removes the consumed ranges back to front so earlier
// offsets stay valid, then strips the reminder phrase.
func cleanContent(text string, consumed []span) string {
	sort.Slice(consumed, func(i, j int) bool {
		return consumed[i].start > consumed[j].start
	})
	cleaned := text
	for _, sp := range consumed {
		cleaned = cleaned[:sp.start] + cleaned[sp.end:]
	}
	cleaned = remindPattern.ReplaceAllString(cleaned, "")
	cleaned = strings.Trim(cleaned, " \t\n，、。,")
	if cleaned == "" {
		return PlaceholderContent
	}
	return cleaned
}
