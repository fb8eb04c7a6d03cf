// Package intent classifies user messages through the generative
// backend. Every classifier call demands strict JSON back; anything the
// backend returns that fails to parse, or omits a required key, is
// treated as "no intent detected" rather than as an error. Message
// handling never aborts because a classifier misbehaved.
package intent

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
)

// Backend is the JSON-constrained completion surface of the generative
// provider.
type Backend interface {
	ChatJSON(ctx context.Context, system, user string) (string, error)
}

// Classifier runs intent detection prompts against one backend.
type Classifier struct {
	backend Backend
}

// NewClassifier creates a classifier over the given backend.
func NewClassifier(backend Backend) *Classifier {
	return &Classifier{backend: backend}
}

const reminderSystemPrompt = `你是一個提醒解析器。判斷使用者訊息是否要求在「一段延遲之後」提醒某件事。
只回傳 JSON,格式:{"delay_seconds": 數字或null, "content": 字串或null}。
若訊息不是延遲提醒請求,delay_seconds 必須是 null。不要輸出任何其他文字。`

const deleteSystemPrompt = `你是一個刪除指令解析器。判斷使用者訊息是否要求刪除或取消某個提醒。
只回傳 JSON,格式:{"is_delete": 布林值, "time_hint": 字串或null, "content_hint": 字串或null}。
time_hint 是訊息中指涉的時間描述,content_hint 是指涉的提醒內容。不要輸出任何其他文字。`

const memorySystemPrompt = `你是一個記憶篩選器。判斷使用者訊息是否包含值得長期記住的個人事實(喜好、習慣、重要日期、人際關係等)。
值得記住時回傳 {"store": true, "category": 分類, "content": 事實描述},否則回傳 {"store": false}。
只回傳 JSON,不要輸出任何其他文字。`

// ReminderIntent is a detected delayed-reminder request.
type ReminderIntent struct {
	DelaySeconds int64
	Content      string
}

// DeleteIntent is a detected cancellation request. Either hint may be
// empty; the deletion matcher copes with partial information.
type DeleteIntent struct {
	TimeHint    string
	ContentHint string
}

// MemoryIntent is a fact the backend judged worth storing.
type MemoryIntent struct {
	Category string
	Content  string
}

// DetectReminder classifies text as a delayed-reminder request. A null,
// non-numeric, or non-positive delay means "not a reminder".
func (c *Classifier) DetectReminder(ctx context.Context, text string) (*ReminderIntent, bool) {
	raw, err := c.backend.ChatJSON(ctx, reminderSystemPrompt, text)
	if err != nil {
		slog.Warn("reminder classification failed", "error", err)
		return nil, false
	}

	var payload struct {
		DelaySeconds *float64 `json:"delay_seconds"`
		Content      *string  `json:"content"`
	}
	if err := json.Unmarshal([]byte(stripFences(raw)), &payload); err != nil {
		slog.Debug("unparseable reminder classification", "raw", raw)
		return nil, false
	}
	if payload.DelaySeconds == nil || *payload.DelaySeconds <= 0 {
		return nil, false
	}

	content := ""
	if payload.Content != nil {
		content = strings.TrimSpace(*payload.Content)
	}
	return &ReminderIntent{
		DelaySeconds: int64(*payload.DelaySeconds),
		Content:      content,
	}, true
}

// DetectDelete classifies text as a cancellation request.
func (c *Classifier) DetectDelete(ctx context.Context, text string) (*DeleteIntent, bool) {
	raw, err := c.backend.ChatJSON(ctx, deleteSystemPrompt, text)
	if err != nil {
		slog.Warn("delete classification failed", "error", err)
		return nil, false
	}

	var payload struct {
		IsDelete    *bool   `json:"is_delete"`
		TimeHint    *string `json:"time_hint"`
		ContentHint *string `json:"content_hint"`
	}
	if err := json.Unmarshal([]byte(stripFences(raw)), &payload); err != nil {
		slog.Debug("unparseable delete classification", "raw", raw)
		return nil, false
	}
	if payload.IsDelete == nil || !*payload.IsDelete {
		return nil, false
	}

	result := &DeleteIntent{}
	if payload.TimeHint != nil {
		result.TimeHint = strings.TrimSpace(*payload.TimeHint)
	}
	if payload.ContentHint != nil {
		result.ContentHint = strings.TrimSpace(*payload.ContentHint)
	}
	return result, true
}

// DetectMemory classifies text for memory-worthiness.
func (c *Classifier) DetectMemory(ctx context.Context, text string) (*MemoryIntent, bool) {
	raw, err := c.backend.ChatJSON(ctx, memorySystemPrompt, text)
	if err != nil {
		slog.Warn("memory classification failed", "error", err)
		return nil, false
	}

	var payload struct {
		Store    *bool   `json:"store"`
		Category *string `json:"category"`
		Content  *string `json:"content"`
	}
	if err := json.Unmarshal([]byte(stripFences(raw)), &payload); err != nil {
		slog.Debug("unparseable memory classification", "raw", raw)
		return nil, false
	}
	if payload.Store == nil || !*payload.Store {
		return nil, false
	}
	if payload.Content == nil || strings.TrimSpace(*payload.Content) == "" {
		return nil, false
	}

	category := "其他"
	if payload.Category != nil && strings.TrimSpace(*payload.Category) != "" {
		category = strings.TrimSpace(*payload.Category)
	}
	return &MemoryIntent{
		Category: category,
		Content:  strings.TrimSpace(*payload.Content),
	}, true
}

// stripFences removes a markdown code fence some models insist on
// wrapping JSON in, despite the response-format constraint.
func stripFences(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	trimmed = strings.TrimPrefix(trimmed, "```json")
	trimmed = strings.TrimPrefix(trimmed, "```")
	trimmed = strings.TrimSuffix(strings.TrimSpace(trimmed), "```")
	return strings.TrimSpace(trimmed)
}
