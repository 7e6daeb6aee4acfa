package storage

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSortedSet(t *testing.T) {
	t.Run("empty", func(t *testing.T) {
		set := NewSortedSet()
		require.Equal(t, []string{}, set.Values())
		require.Equal(t, 0, set.Size())
		require.False(t, set.Exists("1"))
	})

	t.Run("deduplicates_and_sorts", func(t *testing.T) {
		set := NewSortedSet("u3", "u1")
		set.Add("u2")
		set.Add("u1")

		require.Equal(t, []string{"u1", "u2", "u3"}, set.Values())
		require.Equal(t, 3, set.Size())
		require.True(t, set.Exists("u2"))
		require.False(t, set.Exists("u4"))
	})
}
