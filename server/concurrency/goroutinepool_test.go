package concurrency

import (
	"sync"
	"sync/atomic"
	"testing"
)

func TestGoRoutinePoolRunsAllTasks(t *testing.T) {
	pool := NewGoRoutinePool(3)

	var count int32
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		pool.Schedule(func() {
			atomic.AddInt32(&count, 1)
			wg.Done()
		})
	}
	wg.Wait()
	pool.Stop()

	if count != 50 {
		t.Errorf("expected 50 tasks to run, got %d", count)
	}
}

func TestGoRoutinePoolBounded(t *testing.T) {
	const workers = 2
	pool := NewGoRoutinePool(workers)

	var running, peak int32
	release := make(chan struct{})
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		pool.Schedule(func() {
			n := atomic.AddInt32(&running, 1)
			for {
				p := atomic.LoadInt32(&peak)
				if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
					break
				}
			}
			<-release
			atomic.AddInt32(&running, -1)
			wg.Done()
		})
	}
	close(release)
	wg.Wait()
	pool.Stop()

	if peak > workers {
		t.Errorf("expected at most %d concurrent tasks, got %d", workers, peak)
	}
}

func TestGoRoutinePoolTrySchedule(t *testing.T) {
	pool := NewQueuedGoRoutinePool(1, 1)

	release := make(chan struct{})
	started := make(chan struct{})
	var done sync.WaitGroup
	done.Add(2)
	if !pool.TrySchedule(func() {
		close(started)
		<-release
		done.Done()
	}) {
		t.Fatal("first task must start a worker")
	}
	<-started

	if !pool.TrySchedule(func() { done.Done() }) {
		t.Fatal("second task must be queued")
	}
	if pool.TrySchedule(func() { t.Error("task must not run when the queue is full") }) {
		t.Fatal("third task must be rejected")
	}

	close(release)
	done.Wait()
	pool.Stop()
}
