package uthreads

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSleepSetAddRemove(t *testing.T) {
	s := newSleepSet()
	s.add(1)
	s.add(2)

	seen := map[int]bool{}
	s.forEach(func(tid int) { seen[tid] = true })
	require.True(t, seen[1])
	require.True(t, seen[2])

	s.remove(1)
	seen = map[int]bool{}
	s.forEach(func(tid int) { seen[tid] = true })
	require.False(t, seen[1])
	require.True(t, seen[2])
}

func TestSleepSetForEachAllowsSelfRemoval(t *testing.T) {
	s := newSleepSet()
	s.add(1)
	s.add(2)
	s.add(3)

	var visited []int
	s.forEach(func(tid int) {
		visited = append(visited, tid)
		s.remove(tid)
	})

	require.Len(t, visited, 3)
	remaining := 0
	s.forEach(func(int) { remaining++ })
	require.Equal(t, 0, remaining)
}
