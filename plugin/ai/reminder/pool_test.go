package reminder

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	mu        sync.Mutex
	delivered []VolatileEntry
}

func (r *recorder) deliver(userID, content string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.delivered = append(r.delivered, VolatileEntry{UserID: userID, Content: content})
}

func (r *recorder) snapshot() []VolatileEntry {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]VolatileEntry(nil), r.delivered...)
}

func TestScheduleFires(t *testing.T) {
	rec := &recorder{}
	pool := NewVolatileTimerPool(rec.deliver)
	defer pool.Close()

	handle := pool.Schedule("u1", 10*time.Millisecond, "喝水")
	require.NotEmpty(t, handle)

	assert.Eventually(t, func() bool {
		got := rec.snapshot()
		return len(got) == 1 && got[0].Content == "喝水"
	}, time.Second, 5*time.Millisecond)

	// The fired entry is gone from the pool.
	assert.Empty(t, pool.Entries("u1"))
}

func TestCancelBeforeFire(t *testing.T) {
	rec := &recorder{}
	pool := NewVolatileTimerPool(rec.deliver)
	defer pool.Close()

	handle := pool.Schedule("u1", 50*time.Millisecond, "喝水")
	assert.True(t, pool.Cancel(handle))

	time.Sleep(150 * time.Millisecond)
	assert.Empty(t, rec.snapshot(), "a cancelled timer must never deliver")
}

func TestCancelAfterFireIsNoop(t *testing.T) {
	rec := &recorder{}
	pool := NewVolatileTimerPool(rec.deliver)
	defer pool.Close()

	handle := pool.Schedule("u1", 5*time.Millisecond, "喝水")
	require.Eventually(t, func() bool {
		return len(rec.snapshot()) == 1
	}, time.Second, 5*time.Millisecond)

	assert.False(t, pool.Cancel(handle))
	assert.Len(t, rec.snapshot(), 1, "no double delivery")
}

func TestCancelUnknownHandle(t *testing.T) {
	pool := NewVolatileTimerPool(func(string, string) {})
	defer pool.Close()
	assert.False(t, pool.Cancel("no-such-handle"))
}

func TestFindByContent(t *testing.T) {
	pool := NewVolatileTimerPool(func(string, string) {})
	defer pool.Close()

	pool.Schedule("u1", time.Hour, "提醒喝水")
	pool.Schedule("u1", time.Hour, "提醒運動")
	pool.Schedule("u2", time.Hour, "提醒開會")

	entry, ok := pool.FindByContent("u1", "運動")
	require.True(t, ok)
	assert.Equal(t, "提醒運動", entry.Content)
	assert.Equal(t, "u1", entry.UserID)

	// First match in scheduling order wins.
	entry, ok = pool.FindByContent("u1", "提醒")
	require.True(t, ok)
	assert.Equal(t, "提醒喝水", entry.Content)

	_, ok = pool.FindByContent("u1", "開會")
	assert.False(t, ok, "other users' timers are invisible")

	_, ok = pool.FindByContent("u1", "")
	assert.False(t, ok, "empty needle matches nothing")
}

func TestCloseSuppressesPending(t *testing.T) {
	rec := &recorder{}
	pool := NewVolatileTimerPool(rec.deliver)

	pool.Schedule("u1", 100*time.Millisecond, "喝水")
	pool.Close()

	time.Sleep(200 * time.Millisecond)
	assert.Empty(t, rec.snapshot())

	assert.Empty(t, pool.Schedule("u1", time.Millisecond, "x"), "closed pool accepts nothing")
}
