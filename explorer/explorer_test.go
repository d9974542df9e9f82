package explorer

import (
	"sync"
	"testing"
	"time"

	"github.com/dslab-symex/symexec/diag"
	"github.com/dslab-symex/symexec/exec"
	"github.com/dslab-symex/symexec/expr"
	"github.com/dslab-symex/symexec/options"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	expr.ResetArena()
	m.Run()
}

func newState() *exec.ExecutionState {
	return exec.NewExecutionState(options.Default(), diag.NewStream())
}

func TestRunStepsUntilAllStatesTerminate(t *testing.T) {
	e := NewExplorer(2)
	var mu sync.Mutex
	steps := map[*exec.ExecutionState]int{}

	step := func(s *exec.ExecutionState) (Outcome, []*exec.ExecutionState) {
		mu.Lock()
		steps[s]++
		n := steps[s]
		mu.Unlock()
		if n < 3 {
			return Continue, nil
		}
		return Terminated, nil
	}

	e.Run([]*exec.ExecutionState{newState(), newState()}, step, 0)

	explored, forked, terminated, dropped := e.Stats()
	require.Equal(t, int64(6), explored)
	require.Equal(t, int64(0), forked)
	require.Equal(t, int64(2), terminated)
	require.Equal(t, int64(0), dropped)
}

func TestRunRequeuesForkedChildren(t *testing.T) {
	e := NewExplorer(1)
	forkedOnce := false

	step := func(s *exec.ExecutionState) (Outcome, []*exec.ExecutionState) {
		if !forkedOnce {
			forkedOnce = true
			a, b := s.Fork()
			return Forked, []*exec.ExecutionState{a, b}
		}
		return Terminated, nil
	}

	e.Run([]*exec.ExecutionState{newState()}, step, 0)

	_, forked, terminated, _ := e.Stats()
	require.Equal(t, int64(1), forked)
	require.Equal(t, int64(2), terminated)
}

func TestRunWithEmptyInitialReturnsImmediately(t *testing.T) {
	e := NewExplorer(3)
	done := make(chan struct{})
	go func() {
		e.Run(nil, func(s *exec.ExecutionState) (Outcome, []*exec.ExecutionState) {
			return Terminated, nil
		}, 0)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return for an empty initial set")
	}
}

func TestRunDroppedStatesAreCounted(t *testing.T) {
	e := NewExplorer(2)
	step := func(s *exec.ExecutionState) (Outcome, []*exec.ExecutionState) {
		return Dropped, nil
	}
	e.Run([]*exec.ExecutionState{newState(), newState(), newState()}, step, 0)
	_, _, _, dropped := e.Stats()
	require.Equal(t, int64(3), dropped)
}
