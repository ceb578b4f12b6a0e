package session

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDo_SerializesSameSession(t *testing.T) {
	m := NewManager()
	var running int32
	var maxConcurrent int32
	var wg sync.WaitGroup

	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = m.Do("s1", func() (any, error) {
				n := atomic.AddInt32(&running, 1)
				if n > atomic.LoadInt32(&maxConcurrent) {
					atomic.StoreInt32(&maxConcurrent, n)
				}
				time.Sleep(time.Millisecond)
				atomic.AddInt32(&running, -1)
				return nil, nil
			})
		}()
	}
	wg.Wait()
	require.EqualValues(t, 1, maxConcurrent)
}

func TestDo_DistinctSessionsRunConcurrently(t *testing.T) {
	m := NewManager()
	release := make(chan struct{})
	started := make(chan struct{})

	go func() {
		_, _ = m.Do("a", func() (any, error) {
			started <- struct{}{}
			<-release
			return nil, nil
		})
	}()
	<-started

	done := make(chan struct{})
	go func() {
		_, _ = m.Do("b", func() (any, error) { return "ok", nil })
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("session b blocked on unrelated session a's in-flight call")
	}
	close(release)
}
