// Package explorer runs many execution states on a fixed worker pool.
// Parallelism lives strictly across states: every
// *exec.ExecutionState still executes a single cooperative step at a
// time, Explorer only drains the growing set of runnable states onto
// workers.
package explorer

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dslab-symex/symexec/exec"
)

// Outcome classifies what StepFunc did with a state, telling Explorer
// how to requeue it.
type Outcome int

const (
	// Continue means s made progress and should be stepped again.
	Continue Outcome = iota
	// Forked means s branched; children holds the states to requeue
	// (which may or may not include s itself, at the caller's choice).
	Forked
	// Terminated means s reached the end of its path; don't requeue it.
	Terminated
	// Dropped means s was abandoned (resource exhaustion, solver
	// failure past the caller's retry budget, ...); don't requeue it.
	Dropped
)

// StepFunc advances one ExecutionState by one step (however the caller
// defines "step" — one instruction, one basic block) and reports what
// happened. children is only consulted when the outcome is Forked.
type StepFunc func(s *exec.ExecutionState) (outcome Outcome, children []*exec.ExecutionState)

// Explorer runs StepFunc across a growing set of ExecutionStates with
// a fixed worker pool, the way WorkerPool.RunTasks runs SearchTasks,
// except the work queue grows as states fork instead of being fixed
// up front.
type Explorer struct {
	NumWorkers int

	explored   atomic.Int64
	forked     atomic.Int64
	terminated atomic.Int64
	dropped    atomic.Int64
}

// NewExplorer returns a pool with numWorkers workers (at least 1).
func NewExplorer(numWorkers int) *Explorer {
	if numWorkers < 1 {
		numWorkers = 1
	}
	return &Explorer{NumWorkers: numWorkers}
}

// Stats returns running totals of steps taken and states finalized by
// outcome, safe to call concurrently with Run.
func (e *Explorer) Stats() (explored, forked, terminated, dropped int64) {
	return e.explored.Load(), e.forked.Load(), e.terminated.Load(), e.dropped.Load()
}

// Run drains initial (and everything it forks into) by repeatedly
// calling step on each state across NumWorkers goroutines, until no
// state remains runnable. If progressEvery is positive, a summary line
// is printed at that interval.
func (e *Explorer) Run(initial []*exec.ExecutionState, step StepFunc, progressEvery time.Duration) {
	queue := make(chan *exec.ExecutionState, 4096)
	var outstanding atomic.Int64
	var closeOnce sync.Once

	push := func(s *exec.ExecutionState) {
		outstanding.Add(1)
		queue <- s
	}
	maybeClose := func() {
		if outstanding.Load() == 0 {
			closeOnce.Do(func() { close(queue) })
		}
	}

	for _, s := range initial {
		push(s)
	}
	// initial may be empty; nothing was pushed, so close immediately.
	maybeClose()

	var done chan struct{}
	if progressEvery > 0 {
		done = make(chan struct{})
		go e.reportProgress(progressEvery, done)
	}

	var wg sync.WaitGroup
	for i := 0; i < e.NumWorkers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for s := range queue {
				e.explored.Add(1)
				outcome, children := step(s)
				switch outcome {
				case Continue:
					push(s)
				case Forked:
					e.forked.Add(1)
					for _, c := range children {
						push(c)
					}
				case Terminated:
					e.terminated.Add(1)
				case Dropped:
					e.dropped.Add(1)
				}
				outstanding.Add(-1)
				maybeClose()
			}
		}()
	}
	wg.Wait()

	if done != nil {
		close(done)
	}
}

func (e *Explorer) reportProgress(interval time.Duration, done chan struct{}) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			explored, forked, terminated, dropped := e.Stats()
			fmt.Printf("explorer: %d steps | %d forked | %d terminated | %d dropped\n",
				explored, forked, terminated, dropped)
		}
	}
}
