package main

import (
	"math/big"
	"testing"

	"github.com/dslab-symex/symexec/arrays"
	"github.com/dslab-symex/symexec/expr"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	expr.ResetArena()
	arrays.ResetArena()
	m.Run()
}

// runNoArgs executes a subcommand's RunE directly, the way a caller
// invoking it through cobra.Command.Execute would, without going
// through argument parsing or cobra's own os.Exit-on-error path.
func runNoArgs(t *testing.T, cmd interface {
	Execute() error
}) {
	t.Helper()
	require.NoError(t, cmd.Execute())
}

func TestBranchDemoRuns(t *testing.T) {
	cmd := newBranchCmd()
	runNoArgs(t, cmd)
}

func TestBranchDemoWithDisjointRangeForksNeither(t *testing.T) {
	cmd := newBranchCmd()
	cmd.SetArgs([]string{"--low=200", "--high=210", "--threshold=5"})
	require.NoError(t, cmd.Execute())
}

func TestMemoryDemoRuns(t *testing.T) {
	runNoArgs(t, newMemoryCmd())
}

func TestRaceDemoRuns(t *testing.T) {
	runNoArgs(t, newRaceCmd())
}

func TestFoldDemoRuns(t *testing.T) {
	runNoArgs(t, newFoldCmd())
}

func TestForkDemoRuns(t *testing.T) {
	runNoArgs(t, newForkCmd())
}

func TestFloatDemoRuns(t *testing.T) {
	runNoArgs(t, newFloatCmd())
}

func TestExploreDemoRuns(t *testing.T) {
	cmd := newExploreCmd()
	cmd.SetArgs([]string{"--depth=2"})
	require.NoError(t, cmd.Execute())
}

func TestDescribeHandlesNil(t *testing.T) {
	require.Equal(t, "<nil>", describe(nil))
}

func TestSymbolicByteWidth(t *testing.T) {
	x := symbolicByte("x")
	require.Equal(t, expr.Width(8), x.Width())
}

func TestFoldDemoProducesExpectedShape(t *testing.T) {
	x := symbolicInt32("x")
	three := expr.CreateIntConstant(big.NewInt(3), 32)
	five := expr.CreateIntConstant(big.NewInt(5), 32)
	result := expr.CreateAdd(expr.CreateAdd(three, x), five)
	require.Equal(t, expr.KindAdd, result.Kind())
	require.Equal(t, "8:i32", result.Kid(0).String(), "the two constants must fold into a single left operand")
	require.Same(t, x, result.Kid(1))
}
