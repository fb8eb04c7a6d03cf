// Package contextbuilder assembles the grounding block that precedes
// every generated reply: persona, profile traits, anniversaries, and
// facts recalled for the current topic, merged into one bounded text
// block.
package contextbuilder

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/pkg/errors"

	"github.com/aikumi/companion/plugin/ai/persona"
	"github.com/aikumi/companion/store"
)

// DefaultMaxRunes bounds the assembled block. Measured in runes, not
// bytes; the block is predominantly CJK text.
const DefaultMaxRunes = 2000

// DefaultRecallLimit is how many semantically recalled facts are merged
// into the block.
const DefaultRecallLimit = 5

// Recaller is the semantic-recall surface of the memory service.
type Recaller interface {
	Recall(ctx context.Context, userID, topic string, k int) ([]string, error)
	TopFacts(ctx context.Context, userID string, k int) ([]*store.Fact, error)
}

// Assembled is the grounding context for one reply.
type Assembled struct {
	Persona persona.Persona
	// Text is the bounded memory block, empty when nothing is known
	// about the user.
	Text string
}

// Assembler builds grounding contexts.
type Assembler struct {
	store    *store.Store
	memory   Recaller
	maxRunes int
}

// NewAssembler creates an assembler. maxRunes <= 0 selects the default
// bound.
func NewAssembler(s *store.Store, memory Recaller, maxRunes int) *Assembler {
	if maxRunes <= 0 {
		maxRunes = DefaultMaxRunes
	}
	return &Assembler{store: s, memory: memory, maxRunes: maxRunes}
}

// Assemble builds the grounding context for a user and topic. Recall
// failures degrade to a context without recalled facts; only a failed
// profile or anniversary read is an error.
func (a *Assembler) Assemble(ctx context.Context, userID, topic string) (*Assembled, error) {
	setting, err := a.store.GetUserSetting(ctx, userID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load user setting")
	}

	role := ""
	var sections []string
	if setting != nil {
		role = setting.Role
		if setting.Gender != "" {
			sections = append(sections, "性別:"+setting.Gender)
		}
		if setting.Timezone != "" {
			sections = append(sections, "時區:"+setting.Timezone)
		}
	}

	anniversaries, err := a.store.ListAnniversaries(ctx, userID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list anniversaries")
	}
	if len(anniversaries) > 0 {
		lines := make([]string, 0, len(anniversaries)+1)
		lines = append(lines, "紀念日:")
		for _, ann := range anniversaries {
			lines = append(lines, fmt.Sprintf("- %s: %d/%d", ann.Label, ann.Month, ann.Day))
		}
		sections = append(sections, strings.Join(lines, "\n"))
	}

	if a.memory != nil {
		recalled, err := a.memory.Recall(ctx, userID, topic, DefaultRecallLimit)
		if err != nil {
			slog.Warn("semantic recall unavailable", "user_id", userID, "error", err)
		} else if len(recalled) > 0 {
			lines := make([]string, 0, len(recalled)+1)
			lines = append(lines, "記憶:")
			for _, content := range recalled {
				lines = append(lines, "- "+content)
			}
			sections = append(sections, strings.Join(lines, "\n"))
		}
	}

	text := ""
	if len(sections) > 0 {
		text = "--- 關於對方的重要記憶 ---\n" + strings.Join(sections, "\n")
		text = truncateRunes(text, a.maxRunes)
	}

	return &Assembled{
		Persona: persona.Lookup(role),
		Text:    text,
	}, nil
}

// SystemPrompt renders the full system prompt for one reply: persona
// style followed by the memory block.
func (c *Assembled) SystemPrompt() string {
	if c.Text == "" {
		return c.Persona.SystemPrompt
	}
	return c.Persona.SystemPrompt + "\n\n" + c.Text
}

func truncateRunes(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}
