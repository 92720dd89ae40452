package clockid

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct{ t time.Time }

func (f fakeClock) Now() time.Time { return f.t }

func TestSource_NextEntryID_Monotonic(t *testing.T) {
	s := NewSource(fakeClock{t: time.Unix(0, 0)}, "sess1")

	var prev int64
	for i := 0; i < 100; i++ {
		id := s.NextEntryID()
		assert.Greater(t, id, prev)
		prev = id
	}
}

func TestSource_NextPromptID_Format(t *testing.T) {
	s := NewSource(fakeClock{}, "sess1")
	assert.Equal(t, "sess1########1", s.NextPromptID())
	assert.Equal(t, "sess1########2", s.NextPromptID())
}

func TestRecoveryPromptID_Format(t *testing.T) {
	assert.Equal(t, "sess1########1-loop-recovery-1", RecoveryPromptID("sess1########1", "loop", 1))
}

func TestNewCallID_Unique(t *testing.T) {
	a, err := NewCallID()
	require.NoError(t, err)
	b, err := NewCallID()
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
	assert.Len(t, a, 16)
}
