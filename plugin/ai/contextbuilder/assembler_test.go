package contextbuilder

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aikumi/companion/internal/profile"
	"github.com/aikumi/companion/plugin/ai/persona"
	"github.com/aikumi/companion/store"
	"github.com/aikumi/companion/store/db/sqlite"
)

type stubRecaller struct {
	recalled []string
	err      error
}

func (s *stubRecaller) Recall(_ context.Context, _, _ string, _ int) ([]string, error) {
	return s.recalled, s.err
}

func (s *stubRecaller) TopFacts(_ context.Context, _ string, _ int) ([]*store.Fact, error) {
	return nil, nil
}

func newTestStore(t *testing.T) *store.Store {
	t.Helper()

	p := &profile.Profile{
		Mode:   "dev",
		Driver: "sqlite",
		DSN:    filepath.Join(t.TempDir(), "companion_test.db"),
	}
	driver, err := sqlite.NewDB(p)
	require.NoError(t, err)
	require.NoError(t, driver.Migrate(context.Background()))

	s := store.New(driver, p)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func strp(s string) *string { return &s }

func TestAssembleMergesAllSections(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	_, err := s.UpsertUserSetting(ctx, &store.UpsertUserSetting{
		UserID:   "u1",
		Role:     strp("secretary"),
		Gender:   strp("女"),
		Timezone: strp("Asia/Taipei"),
	})
	require.NoError(t, err)
	_, err = s.UpsertAnniversary(ctx, &store.Anniversary{
		UserID: "u1", Kind: store.AnniversaryKindBirthday, Month: 5, Day: 1, Label: "生日",
	})
	require.NoError(t, err)

	a := NewAssembler(s, &stubRecaller{recalled: []string{"喜歡黑咖啡"}}, 0)
	got, err := a.Assemble(ctx, "u1", "咖啡")
	require.NoError(t, err)

	assert.Equal(t, persona.KeySecretary, got.Persona.Key)
	assert.Contains(t, got.Text, "性別:女")
	assert.Contains(t, got.Text, "時區:Asia/Taipei")
	assert.Contains(t, got.Text, "- 生日: 5/1")
	assert.Contains(t, got.Text, "- 喜歡黑咖啡")

	prompt := got.SystemPrompt()
	assert.True(t, strings.HasPrefix(prompt, got.Persona.SystemPrompt))
	assert.Contains(t, prompt, got.Text)
}

func TestAssembleUnknownUser(t *testing.T) {
	ctx := context.Background()
	a := NewAssembler(newTestStore(t), &stubRecaller{}, 0)

	got, err := a.Assemble(ctx, "ghost", "任何話題")
	require.NoError(t, err)
	assert.Equal(t, persona.DefaultKey, got.Persona.Key)
	assert.Empty(t, got.Text)
	assert.Equal(t, got.Persona.SystemPrompt, got.SystemPrompt())
}

func TestAssembleRecallFailureDegrades(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	_, err := s.UpsertUserSetting(ctx, &store.UpsertUserSetting{
		UserID: "u1", Gender: strp("男"),
	})
	require.NoError(t, err)

	a := NewAssembler(s, &stubRecaller{err: errors.New("backend down")}, 0)
	got, err := a.Assemble(ctx, "u1", "咖啡")
	require.NoError(t, err, "recall failure must not fail assembly")
	assert.Contains(t, got.Text, "性別:男")
	assert.NotContains(t, got.Text, "記憶:")
}

func TestAssembleBounded(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	long := strings.Repeat("很長的記憶內容", 50)
	a := NewAssembler(s, &stubRecaller{recalled: []string{long, long, long}}, 100)

	got, err := a.Assemble(ctx, "u1", "話題")
	require.NoError(t, err)
	assert.LessOrEqual(t, len([]rune(got.Text)), 100)
}
