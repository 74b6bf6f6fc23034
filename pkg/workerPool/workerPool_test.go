package workerpool

import (
	"sort"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoomCollectsAllResults(t *testing.T) {
	wp := NewWorkerPool(Config{WorkerCount: 4})
	defer wp.Close()

	room := wp.CreateRoom(10)
	for i := 0; i < 10; i++ {
		i := i
		room.NewTaskWaitForFreeSlot(func() interface{} {
			return i * i
		})
	}

	results := room.Collect()
	require.Len(t, results, 10)

	values := make([]int, len(results))
	for i, r := range results {
		values[i] = r.(int)
	}
	sort.Ints(values)
	for i, v := range values {
		assert.Equal(t, i*i, v)
	}
}

func TestMultipleRoomsShareThePool(t *testing.T) {
	wp := NewWorkerPool(Config{WorkerCount: 2})
	defer wp.Close()

	var wg sync.WaitGroup
	for r := 0; r < 4; r++ {
		wg.Add(1)
		go func(r int) {
			defer wg.Done()
			room := wp.CreateRoom(5)
			for i := 0; i < 5; i++ {
				room.NewTaskWaitForFreeSlot(func() interface{} { return r })
			}
			results := room.Collect()
			assert.Len(t, results, 5)
			for _, res := range results {
				assert.Equal(t, r, res.(int))
			}
		}(r)
	}
	wg.Wait()
}

func TestNewTaskSchedules(t *testing.T) {
	wp := NewWorkerPool(Config{WorkerCount: 1, GlobalBuffer: 8})
	defer wp.Close()

	room := wp.CreateRoom(3)
	for i := 0; i < 3; i++ {
		require.NoError(t, room.NewTask(func() interface{} { return struct{}{} }))
	}
	assert.Len(t, room.Collect(), 3)
}

func TestCloseIsIdempotent(t *testing.T) {
	wp := NewWorkerPool(Config{WorkerCount: 1})
	wp.Close()
	wp.Close()
}

func TestDefaultConfig(t *testing.T) {
	wp := NewWorkerPool(Config{})
	defer wp.Close()

	room := wp.CreateRoom(1)
	room.NewTaskWaitForFreeSlot(func() interface{} { return "ok" })
	results := room.Collect()
	require.Len(t, results, 1)
	assert.Equal(t, "ok", results[0])
}
