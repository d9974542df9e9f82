package simd

import (
	"math/big"
	"testing"

	"github.com/dslab-symex/symexec/expr"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	expr.ResetArena()
	m.Run()
}

func byteConst(v int64) *expr.Expr { return expr.CreateIntConstant(big.NewInt(v), 8) }

func TestLoadUStoreURoundTrips(t *testing.T) {
	bytes := make([]*expr.Expr, 16)
	for i := range bytes {
		bytes[i] = byteConst(int64(i))
	}
	var sites []string
	cb := func(mnemonic string, lane Lane, n int) { sites = append(sites, mnemonic) }
	lanes := LoadU(bytes, LaneI32x4, cb)
	require.Len(t, lanes, 4)
	back := StoreU(lanes, LaneI32x4, cb)
	require.Equal(t, bytes, back)
	require.Equal(t, []string{"loadu", "storeu"}, sites)
}

func TestPMinUPicksSmallerUnsignedLane(t *testing.T) {
	a := []*expr.Expr{expr.CreateIntConstant(big.NewInt(200), 8)}
	b := []*expr.Expr{expr.CreateIntConstant(big.NewInt(5), 8)}
	out := PMinU(a, b, LaneI8x16, nil)
	require.Equal(t, int64(5), out[0].IntValue().Int64())
}

func TestPMaxSPicksLargerSignedLane(t *testing.T) {
	a := []*expr.Expr{expr.CreateIntConstant(big.NewInt(-1), 8)}
	b := []*expr.Expr{expr.CreateIntConstant(big.NewInt(3), 8)}
	out := PMaxS(a, b, LaneI8x16, nil)
	require.Equal(t, int64(3), out[0].IntValue().Int64())
}

func TestPAddUSClampsAtMax(t *testing.T) {
	a := []*expr.Expr{expr.CreateIntConstant(big.NewInt(250), 8)}
	b := []*expr.Expr{expr.CreateIntConstant(big.NewInt(20), 8)}
	out := PAddUS(a, b, LaneI8x16, nil)
	require.Equal(t, int64(255), out[0].IntValue().Int64())
}

func TestPSubUSClampsAtZero(t *testing.T) {
	a := []*expr.Expr{expr.CreateIntConstant(big.NewInt(3), 8)}
	b := []*expr.Expr{expr.CreateIntConstant(big.NewInt(10), 8)}
	out := PSubUS(a, b, LaneI8x16, nil)
	require.Equal(t, int64(0), out[0].IntValue().Int64())
}

func TestPackSSSaturatesToSignedByteRange(t *testing.T) {
	a := []*expr.Expr{expr.CreateIntConstant(big.NewInt(1000), 16)}
	out := PackSS(a, nil, LaneI16x8, nil)
	require.Equal(t, int64(127), out[0].IntValue().Int64())
}

func TestPCmpGTProducesAllOnesMask(t *testing.T) {
	a := []*expr.Expr{expr.CreateIntConstant(big.NewInt(5), 8)}
	b := []*expr.Expr{expr.CreateIntConstant(big.NewInt(2), 8)}
	out := PCmpGT(a, b, LaneI8x16, nil)
	require.Equal(t, int64(0xff), out[0].IntValue().Int64())
}

func TestPSllDQShiftsWholeVectorAndZeroFills(t *testing.T) {
	bytes := []*expr.Expr{byteConst(1), byteConst(2), byteConst(3), byteConst(4)}
	out := PSllDQ(bytes, 1, nil)
	require.Equal(t, int64(0), out[0].IntValue().Int64())
	require.Equal(t, int64(1), out[1].IntValue().Int64())
	require.Equal(t, int64(3), out[3].IntValue().Int64())
}

func TestPMAddSumsAdjacentProducts(t *testing.T) {
	a := make([]*expr.Expr, 8)
	b := make([]*expr.Expr, 8)
	for i := range a {
		a[i] = expr.CreateIntConstant(big.NewInt(2), 16)
		b[i] = expr.CreateIntConstant(big.NewInt(3), 16)
	}
	out := PMAdd(a, b, nil)
	require.Len(t, out, 4)
	require.Equal(t, int64(12), out[0].IntValue().Int64())
}

func TestPSADSumsAbsoluteDifferences(t *testing.T) {
	a := make([]*expr.Expr, 16)
	b := make([]*expr.Expr, 16)
	for i := range a {
		a[i] = byteConst(10)
		b[i] = byteConst(3)
	}
	out := PSAD(a, b, nil)
	require.Len(t, out, 2)
	require.Equal(t, int64(56), out[0].IntValue().Int64())
}

func TestCvtDq2PsAndBack(t *testing.T) {
	a := []*expr.Expr{expr.CreateIntConstant(big.NewInt(42), 32)}
	floats := CvtDq2Ps(a, nil)
	back := CvtPs2Dq(floats, nil)
	require.Equal(t, int64(42), back[0].IntValue().Int64())
}
