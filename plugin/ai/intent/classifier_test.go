package intent

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubBackend struct {
	response string
	err      error
}

func (s *stubBackend) ChatJSON(_ context.Context, _, _ string) (string, error) {
	return s.response, s.err
}

func TestDetectReminder(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name     string
		response string
		err      error
		want     *ReminderIntent
	}{
		{
			name:     "valid",
			response: `{"delay_seconds": 600, "content": "喝水"}`,
			want:     &ReminderIntent{DelaySeconds: 600, Content: "喝水"},
		},
		{
			name:     "fenced json",
			response: "```json\n{\"delay_seconds\": 60, \"content\": \"開會\"}\n```",
			want:     &ReminderIntent{DelaySeconds: 60, Content: "開會"},
		},
		{
			name:     "null delay",
			response: `{"delay_seconds": null, "content": null}`,
		},
		{
			name:     "zero delay",
			response: `{"delay_seconds": 0, "content": "x"}`,
		},
		{
			name:     "negative delay",
			response: `{"delay_seconds": -5, "content": "x"}`,
		},
		{
			name:     "non-numeric delay",
			response: `{"delay_seconds": "soon", "content": "x"}`,
		},
		{
			name:     "missing keys",
			response: `{}`,
		},
		{
			name:     "not json",
			response: `好的,我會提醒你`,
		},
		{
			name: "backend error",
			err:  errors.New("boom"),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewClassifier(&stubBackend{response: tt.response, err: tt.err})
			got, ok := c.DetectReminder(ctx, "whatever")
			if tt.want == nil {
				assert.False(t, ok)
				return
			}
			require.True(t, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDetectDelete(t *testing.T) {
	ctx := context.Background()

	c := NewClassifier(&stubBackend{
		response: `{"is_delete": true, "time_hint": "下午3點", "content_hint": "運動"}`,
	})
	got, ok := c.DetectDelete(ctx, "取消下午3點的運動提醒")
	require.True(t, ok)
	assert.Equal(t, "下午3點", got.TimeHint)
	assert.Equal(t, "運動", got.ContentHint)

	c = NewClassifier(&stubBackend{response: `{"is_delete": false}`})
	_, ok = c.DetectDelete(ctx, "你好")
	assert.False(t, ok)

	c = NewClassifier(&stubBackend{response: `{"is_delete": true}`})
	got, ok = c.DetectDelete(ctx, "刪掉那個提醒")
	require.True(t, ok)
	assert.Empty(t, got.TimeHint)
	assert.Empty(t, got.ContentHint)

	c = NewClassifier(&stubBackend{response: `{"time_hint": "下午"}`})
	_, ok = c.DetectDelete(ctx, "x")
	assert.False(t, ok, "missing is_delete key means no intent")

	c = NewClassifier(&stubBackend{response: `not json at all`})
	_, ok = c.DetectDelete(ctx, "x")
	assert.False(t, ok)
}

func TestDetectMemory(t *testing.T) {
	ctx := context.Background()

	c := NewClassifier(&stubBackend{
		response: `{"store": true, "category": "喜好", "content": "喜歡喝黑咖啡"}`,
	})
	got, ok := c.DetectMemory(ctx, "我超愛黑咖啡")
	require.True(t, ok)
	assert.Equal(t, "喜好", got.Category)
	assert.Equal(t, "喜歡喝黑咖啡", got.Content)

	c = NewClassifier(&stubBackend{response: `{"store": false}`})
	_, ok = c.DetectMemory(ctx, "今天天氣不錯")
	assert.False(t, ok)

	// Store without content is unusable.
	c = NewClassifier(&stubBackend{response: `{"store": true, "category": "喜好"}`})
	_, ok = c.DetectMemory(ctx, "x")
	assert.False(t, ok)

	// Missing category falls back to a default bucket.
	c = NewClassifier(&stubBackend{response: `{"store": true, "content": "生日是5/1"}`})
	got, ok = c.DetectMemory(ctx, "x")
	require.True(t, ok)
	assert.Equal(t, "其他", got.Category)
}
