package queue

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUnboundedPreservesOrder(t *testing.T) {
	q := NewUnbounded[int]()

	// Nobody is reading yet; pushes must not block.
	done := make(chan struct{})
	go func() {
		for i := 0; i < 1000; i++ {
			q.Push(i)
		}
		q.Close()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("push blocked without a receiver")
	}

	var got []int
	for v := range q.Out() {
		got = append(got, v)
	}
	require.Len(t, got, 1000)
	for i, v := range got {
		assert.Equal(t, i, v)
	}
}

func TestUnboundedMultipleProducers(t *testing.T) {
	q := NewUnbounded[string]()

	var wg sync.WaitGroup
	for p := 0; p < 4; p++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				q.In() <- "x"
			}
		}()
	}
	wg.Wait()
	q.Close()

	count := 0
	for range q.Out() {
		count++
	}
	assert.Equal(t, 200, count)
}
