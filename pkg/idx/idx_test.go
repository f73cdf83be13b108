package idx

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestNewProducesValidULID(t *testing.T) {
	t.Parallel()

	id := New()
	require.False(t, id.IsZero())

	parsed, err := Parse(id.String())
	require.NoError(t, err)
	require.Equal(t, id, parsed)
}

func TestNewIsMonotonicWithinSameMillisecond(t *testing.T) {
	t.Parallel()

	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	a := NewAt(at)
	b := NewAt(at)
	require.Less(t, a.String(), b.String())
}

func TestParseRejectsGarbage(t *testing.T) {
	t.Parallel()

	for _, bad := range []string{"", "   ", "not-a-ulid", "INVALID!CHARS!HERE!!!!!!!!"} {
		_, err := Parse(bad)
		require.ErrorIs(t, err, ErrInvalid, "input %q", bad)
	}
}

func TestTimeRoundTrip(t *testing.T) {
	t.Parallel()

	at := time.Date(2026, 5, 20, 8, 30, 0, 0, time.UTC)
	id := NewAt(at)
	require.Equal(t, at, id.Time())

	require.True(t, Zero.Time().IsZero())
}
