/******************************************************************************
 *
 *  Description :
 *    A very basic and naive implementation of thread pool.
 *
 *****************************************************************************/

// Package concurrency is a bounded pool of goroutines for fire-and-forget tasks.
package concurrency

import "sync"

// Task represents a work task to be run on the specified thread pool.
type Task func()

// GoRoutinePool runs tasks on at most `numWorkers` goroutines.
type GoRoutinePool struct {
	// Work queue.
	work chan Task
	// Counter to control the number of already allocated/running goroutines.
	sem chan struct{}
	// Exit knob.
	stop chan struct{}
	// Tracks running workers.
	wg sync.WaitGroup
}

// NewGoRoutinePool allocates a new thread pool with `numWorkers` goroutines.
func NewGoRoutinePool(numWorkers int) *GoRoutinePool {
	return NewQueuedGoRoutinePool(numWorkers, 0)
}

// NewQueuedGoRoutinePool allocates a thread pool with `numWorkers` goroutines and room
// for `queueLen` tasks waiting for a free worker.
func NewQueuedGoRoutinePool(numWorkers, queueLen int) *GoRoutinePool {
	if numWorkers <= 0 {
		numWorkers = 1
	}
	if queueLen < 0 {
		queueLen = 0
	}
	return &GoRoutinePool{
		work: make(chan Task, queueLen),
		sem:  make(chan struct{}, numWorkers),
		stop: make(chan struct{}),
	}
}

// Schedule enqueus a closure to run on the GoRoutinePool's goroutines.
// Blocks if all workers are busy and the queue is full.
func (p *GoRoutinePool) Schedule(task Task) {
	if p.spawn(task) {
		return
	}
	p.work <- task
}

// TrySchedule is a non-blocking Schedule. Returns false if all workers are busy and the queue is full.
func (p *GoRoutinePool) TrySchedule(task Task) bool {
	if p.spawn(task) {
		return true
	}
	select {
	case p.work <- task:
		return true
	default:
		return false
	}
}

// spawn starts a new worker for the task unless the pool is at capacity.
// Queued tasks are only picked up by running workers, so a new worker is preferred over the queue.
func (p *GoRoutinePool) spawn(task Task) bool {
	select {
	case p.sem <- struct{}{}:
		p.wg.Add(1)
		go p.worker(task)
		return true
	default:
		return false
	}
}

// Stop signals all workers to exit after finishing their current task and waits for them.
// Tasks still in the queue may be dropped. The pool must not be used after Stop.
func (p *GoRoutinePool) Stop() {
	close(p.stop)
	p.wg.Wait()
}

// Thread pool worker goroutine.
func (p *GoRoutinePool) worker(task Task) {
	defer func() {
		<-p.sem
		p.wg.Done()
	}()
	for {
		task()
		select {
		case task = <-p.work:
		case <-p.stop:
			return
		}
	}
}
