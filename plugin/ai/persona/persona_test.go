package persona

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLookup(t *testing.T) {
	assert.Equal(t, KeySecretary, Lookup("secretary").Key)
	assert.Equal(t, KeyMaid, Lookup("maid").Key)
	assert.Equal(t, KeyLover, Lookup("lover").Key)

	// Unknown and empty keys fall back to the default persona.
	assert.Equal(t, DefaultKey, Lookup("pirate").Key)
	assert.Equal(t, DefaultKey, Lookup("").Key)
}

func TestKnown(t *testing.T) {
	assert.True(t, Known("maid"))
	assert.False(t, Known("pirate"))
	assert.False(t, Known(""))
}

func TestAllStableOrder(t *testing.T) {
	all := All()
	assert.Len(t, all, 3)
	assert.Equal(t, KeyLover, all[0].Key)
	assert.Equal(t, KeyMaid, all[1].Key)
	assert.Equal(t, KeySecretary, all[2].Key)
	for _, p := range all {
		assert.NotEmpty(t, p.DisplayName)
		assert.NotEmpty(t, p.SystemPrompt)
		assert.NotEmpty(t, p.ScheduleLeadIn)
	}
}
