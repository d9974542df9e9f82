package diag

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStackTraceFormatting(t *testing.T) {
	var trace StackTrace
	trace.Push(StackFrame{Function: "main", File: "main.c", Line: 10})
	trace.Push(StackFrame{Function: "helper", File: "helper.c", Line: 42})
	require.Equal(t, "main (main.c:10) <- helper (helper.c:42)", trace.String())
}

func TestKindString(t *testing.T) {
	require.Equal(t, "memory-fault", KindMemoryFault.String())
	require.Equal(t, "race", KindRace.String())
}

func TestReportDoesNotPanicWithoutTrace(t *testing.T) {
	s := NewStream()
	require.NotPanics(t, func() { s.Report(KindSolverFailure, "solver timed out", nil) })
}
