package queue

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmdojo/viewer/internal/playback"
)

func TestQueue_FIFO(t *testing.T) {
	q := New[playback.Command]()

	q.Push(playback.Command{Kind: playback.CmdPause})
	q.Push(playback.Command{Kind: playback.CmdSeek, Value: 100}, playback.Command{Kind: playback.CmdResume})
	assert.Equal(t, 3, q.Len())

	first, ok := q.Pop()
	require.True(t, ok)
	assert.Equal(t, playback.CmdPause, first.Kind)

	rest := q.Drain()
	require.Len(t, rest, 2)
	assert.Equal(t, playback.CmdSeek, rest[0].Kind)
	assert.Equal(t, 100.0, rest[0].Value)
	assert.Equal(t, playback.CmdResume, rest[1].Kind)
	assert.Equal(t, 0, q.Len())
}

func TestQueue_PopEmpty(t *testing.T) {
	q := New[playback.Command]()

	item, ok := q.Pop()
	assert.False(t, ok)
	assert.Equal(t, playback.Command{}, item)
	assert.Nil(t, q.Drain())
}

func TestQueue_BoundedEvictsOldest(t *testing.T) {
	q := NewBounded[int](3)

	assert.Equal(t, 0, q.Push(1, 2))
	assert.Equal(t, 2, q.Push(3, 4, 5))

	assert.Equal(t, []int{3, 4, 5}, q.Drain())
	assert.Equal(t, uint64(2), q.Dropped())
}

func TestQueue_DrainDoesNotAlias(t *testing.T) {
	q := New[int]()
	q.Push(1, 2)

	got := q.Drain()
	q.Push(9)

	assert.Equal(t, []int{1, 2}, got)
	assert.Equal(t, []int{9}, q.Drain())
}

func TestQueue_ConcurrentPush(t *testing.T) {
	q := New[int]()

	var wg sync.WaitGroup
	for i := range 10 {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for j := range 100 {
				q.Push(n*100 + j)
			}
		}(i)
	}
	wg.Wait()

	assert.Len(t, q.Drain(), 1000)
}
