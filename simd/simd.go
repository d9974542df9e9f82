// Package simd lowers vectorised memory accesses and SIMD arithmetic
// into loops of scalar expr IR nodes with identical externally-visible
// semantics, so the rest of this module never has to reason about
// wide-lane values directly. The mnemonics follow the SSE family they
// model (packsswb, pminub, cvtdq2ps, ...); every lowering produces
// expr nodes instead of machine instructions, one per lane.
package simd

import (
	"math/big"

	"github.com/dslab-symex/symexec/expr"
)

// Lane names a SIMD lane layout of a 128-bit vector.
type Lane uint8

const (
	LaneI8x16 Lane = iota
	LaneI16x8
	LaneI32x4
	LaneI64x2
	LaneF32x4
	LaneF64x2
)

// Count returns the number of lanes in a 128-bit vector of this layout.
func (l Lane) Count() int {
	switch l {
	case LaneI8x16:
		return 16
	case LaneI16x8:
		return 8
	case LaneI32x4, LaneF32x4:
		return 4
	case LaneI64x2, LaneF64x2:
		return 2
	default:
		panic("BUG: simd: unknown lane layout")
	}
}

// ElemWidth returns the bit width of a single lane.
func (l Lane) ElemWidth() expr.Width {
	switch l {
	case LaneI8x16:
		return 8
	case LaneI16x8:
		return 16
	case LaneI32x4, LaneF32x4:
		return 32
	case LaneI64x2, LaneF64x2:
		return 64
	default:
		panic("BUG: simd: unknown lane layout")
	}
}

func (l Lane) String() string {
	switch l {
	case LaneI8x16:
		return "i8x16"
	case LaneI16x8:
		return "i16x8"
	case LaneI32x4:
		return "i32x4"
	case LaneI64x2:
		return "i64x2"
	case LaneF32x4:
		return "f32x4"
	case LaneF64x2:
		return "f64x2"
	default:
		return "invalid"
	}
}

// LowerCallback is invoked once per lowered vector site, naming the
// mnemonic and the lane layout it was lowered for, so a caller can
// log or count lowering sites. A nil callback is a valid no-op
// subscriber.
type LowerCallback func(mnemonic string, lane Lane, laneCount int)

func notify(cb LowerCallback, mnemonic string, lane Lane) {
	if cb != nil {
		cb(mnemonic, lane, lane.Count())
	}
}

// bytesToLanes regroups a little-endian byte vector (as produced by an
// unaligned memory read) into one expr node per lane, each
// lane.ElemWidth() bits wide, via Concat — the IR-level analogue of
// the movdqu-into-register step before any lane-wise op can address
// individual lanes.
func bytesToLanes(bytes []*expr.Expr, lane Lane) []*expr.Expr {
	n := lane.Count()
	w := lane.ElemWidth()
	bytesPerLane := int(w / 8)
	if len(bytes) != n*bytesPerLane {
		panic("BUG: simd: byte vector length does not match lane layout")
	}
	lanes := make([]*expr.Expr, n)
	for i := 0; i < n; i++ {
		e := bytes[i*bytesPerLane]
		for j := 1; j < bytesPerLane; j++ {
			e = expr.CreateConcat(bytes[i*bytesPerLane+j], e)
		}
		lanes[i] = e
	}
	return lanes
}

// lanesToBytes is the inverse of bytesToLanes, splitting each lane back
// into its constituent bytes via Extract — the IR analogue of a
// movdqu store.
func lanesToBytes(lanes []*expr.Expr, lane Lane) []*expr.Expr {
	bytesPerLane := int(lane.ElemWidth() / 8)
	out := make([]*expr.Expr, 0, len(lanes)*bytesPerLane)
	for _, e := range lanes {
		for j := 0; j < bytesPerLane; j++ {
			out = append(out, expr.CreateExtract(e, uint32(j*8), 8))
		}
	}
	return out
}

// LoadU lowers an unaligned vector load: bytes is the little-endian
// byte vector read from memory, and the result is one expr node per
// lane of the requested layout.
func LoadU(bytes []*expr.Expr, lane Lane, cb LowerCallback) []*expr.Expr {
	notify(cb, "loadu", lane)
	return bytesToLanes(bytes, lane)
}

// StoreU is the inverse of LoadU: it lowers a vector of lanes back
// into the little-endian byte sequence a store instruction writes.
func StoreU(lanes []*expr.Expr, lane Lane, cb LowerCallback) []*expr.Expr {
	notify(cb, "storeu", lane)
	return lanesToBytes(lanes, lane)
}

func zipWith(a, b []*expr.Expr, f func(x, y *expr.Expr) *expr.Expr) []*expr.Expr {
	if len(a) != len(b) {
		panic("BUG: simd: lane count mismatch")
	}
	out := make([]*expr.Expr, len(a))
	for i := range a {
		out[i] = f(a[i], b[i])
	}
	return out
}

func mapWith(a []*expr.Expr, f func(x *expr.Expr) *expr.Expr) []*expr.Expr {
	out := make([]*expr.Expr, len(a))
	for i := range a {
		out[i] = f(a[i])
	}
	return out
}

func clampPack(e *expr.Expr, srcWidth, dstWidth expr.Width, signed bool) *expr.Expr {
	var lo, hi *expr.Expr
	if signed {
		lo = expr.CreateIntConstant(new(big.Int).Neg(new(big.Int).Lsh(big.NewInt(1), uint(dstWidth-1))), srcWidth)
		hi = expr.CreateIntConstant(new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), uint(dstWidth-1)), big.NewInt(1)), srcWidth)
		clamped := expr.CreateSelect(expr.CreateSlt(e, lo), lo, e)
		clamped = expr.CreateSelect(expr.CreateSlt(hi, clamped), hi, clamped)
		return expr.CreateExtract(clamped, 0, dstWidth)
	}
	lo = expr.CreateZero(srcWidth)
	hi = expr.CreateIntConstant(new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), uint(dstWidth)), big.NewInt(1)), srcWidth)
	clamped := expr.CreateSelect(expr.CreateSlt(e, lo), lo, e)
	clamped = expr.CreateSelect(expr.CreateSlt(hi, clamped), hi, clamped)
	return expr.CreateExtract(clamped, 0, dstWidth)
}

// pack lowers packss*/packus*: each wide signed lane of a followed by
// each wide signed lane of b is saturated down to half width, signed
// or unsigned per the mnemonic, mirroring sseOpcodePacksswb /
// sseOpcodePackusdw's "narrow two source vectors into one" shape.
func pack(a, b []*expr.Expr, srcLane Lane, signed bool, mnemonic string, cb LowerCallback) []*expr.Expr {
	notify(cb, mnemonic, srcLane)
	dstWidth := srcLane.ElemWidth() / 2
	out := make([]*expr.Expr, 0, len(a)+len(b))
	for _, e := range append(append([]*expr.Expr(nil), a...), b...) {
		out = append(out, clampPack(e, srcLane.ElemWidth(), dstWidth, signed))
	}
	return out
}

// PackSS lowers packsswb/packssdw (signed saturation).
func PackSS(a, b []*expr.Expr, srcLane Lane, cb LowerCallback) []*expr.Expr {
	return pack(a, b, srcLane, true, "packss", cb)
}

// PackUS lowers packuswb/packusdw (unsigned saturation).
func PackUS(a, b []*expr.Expr, srcLane Lane, cb LowerCallback) []*expr.Expr {
	return pack(a, b, srcLane, false, "packus", cb)
}

// PMinU lowers pminub/pminuw/pminud: the per-lane unsigned minimum.
func PMinU(a, b []*expr.Expr, lane Lane, cb LowerCallback) []*expr.Expr {
	notify(cb, "pminu", lane)
	return zipWith(a, b, func(x, y *expr.Expr) *expr.Expr { return expr.CreateSelect(expr.CreateUlt(x, y), x, y) })
}

// PMaxU lowers pmaxub/pmaxuw/pmaxud: the per-lane unsigned maximum.
func PMaxU(a, b []*expr.Expr, lane Lane, cb LowerCallback) []*expr.Expr {
	notify(cb, "pmaxu", lane)
	return zipWith(a, b, func(x, y *expr.Expr) *expr.Expr { return expr.CreateSelect(expr.CreateUgt(x, y), x, y) })
}

// PMinS lowers pminsb/pminsw/pminsd: the per-lane signed minimum.
func PMinS(a, b []*expr.Expr, lane Lane, cb LowerCallback) []*expr.Expr {
	notify(cb, "pmins", lane)
	return zipWith(a, b, func(x, y *expr.Expr) *expr.Expr { return expr.CreateSelect(expr.CreateSlt(x, y), x, y) })
}

// PMaxS lowers pmaxsb/pmaxsw/pmaxsd: the per-lane signed maximum.
func PMaxS(a, b []*expr.Expr, lane Lane, cb LowerCallback) []*expr.Expr {
	notify(cb, "pmaxs", lane)
	return zipWith(a, b, func(x, y *expr.Expr) *expr.Expr { return expr.CreateSelect(expr.CreateSgt(x, y), x, y) })
}

func saturatingAdd(x, y *expr.Expr, width expr.Width, signed bool) *expr.Expr {
	wide := expr.Width(width * 2)
	var xs, ys *expr.Expr
	if signed {
		xs, ys = expr.CreateSExt(x, wide), expr.CreateSExt(y, wide)
	} else {
		xs, ys = expr.CreateZExt(x, wide), expr.CreateZExt(y, wide)
	}
	return clampPack(expr.CreateAdd(xs, ys), wide, width, signed)
}

func saturatingSub(x, y *expr.Expr, width expr.Width, signed bool) *expr.Expr {
	wide := expr.Width(width * 2)
	var xs, ys *expr.Expr
	if signed {
		xs, ys = expr.CreateSExt(x, wide), expr.CreateSExt(y, wide)
	} else {
		xs, ys = expr.CreateZExt(x, wide), expr.CreateZExt(y, wide)
	}
	return clampPack(expr.CreateSub(xs, ys), wide, width, signed)
}

// PAddUS lowers paddusb/paddusw: per-lane unsigned saturating add.
func PAddUS(a, b []*expr.Expr, lane Lane, cb LowerCallback) []*expr.Expr {
	notify(cb, "paddus", lane)
	return zipWith(a, b, func(x, y *expr.Expr) *expr.Expr { return saturatingAdd(x, y, lane.ElemWidth(), false) })
}

// PSubUS lowers psubusb/psubusw: per-lane unsigned saturating sub,
// clamped to zero rather than wrapping when y > x.
func PSubUS(a, b []*expr.Expr, lane Lane, cb LowerCallback) []*expr.Expr {
	notify(cb, "psubus", lane)
	return zipWith(a, b, func(x, y *expr.Expr) *expr.Expr {
		return expr.CreateSelect(expr.CreateUlt(x, y), expr.CreateZero(lane.ElemWidth()), expr.CreateSub(x, y))
	})
}

// PAddS lowers paddsb/paddsw: per-lane signed saturating add.
func PAddS(a, b []*expr.Expr, lane Lane, cb LowerCallback) []*expr.Expr {
	notify(cb, "padds", lane)
	return zipWith(a, b, func(x, y *expr.Expr) *expr.Expr { return saturatingAdd(x, y, lane.ElemWidth(), true) })
}

// PCmpGT lowers pcmpgtb/pcmpgtw/pcmpgtd: per-lane signed greater-than,
// producing an all-ones/all-zero mask lane per the SSE comparison
// convention.
func PCmpGT(a, b []*expr.Expr, lane Lane, cb LowerCallback) []*expr.Expr {
	notify(cb, "pcmpgt", lane)
	w := lane.ElemWidth()
	allOnes := expr.CreateNot(expr.CreateZero(w))
	return zipWith(a, b, func(x, y *expr.Expr) *expr.Expr {
		return expr.CreateSelect(expr.CreateSgt(x, y), allOnes, expr.CreateZero(w))
	})
}

// PSrAI lowers psraiw/psrad: per-lane arithmetic right shift by the
// same immediate count across every lane.
func PSrAI(a []*expr.Expr, lane Lane, count uint, cb LowerCallback) []*expr.Expr {
	notify(cb, "psrai", lane)
	shiftAmt := expr.CreateIntConstant(big.NewInt(int64(count)), lane.ElemWidth())
	return mapWith(a, func(x *expr.Expr) *expr.Expr { return expr.CreateAShr(x, shiftAmt) })
}

// PMulH lowers pmulhw/pmulhuw: the high half of a per-lane widening
// multiply, signed per the signed flag.
func PMulH(a, b []*expr.Expr, lane Lane, signed bool, cb LowerCallback) []*expr.Expr {
	notify(cb, "pmulh", lane)
	w := lane.ElemWidth()
	wide := expr.Width(w * 2)
	return zipWith(a, b, func(x, y *expr.Expr) *expr.Expr {
		var xs, ys *expr.Expr
		if signed {
			xs, ys = expr.CreateSExt(x, wide), expr.CreateSExt(y, wide)
		} else {
			xs, ys = expr.CreateZExt(x, wide), expr.CreateZExt(y, wide)
		}
		product := expr.CreateMul(xs, ys)
		return expr.CreateExtract(product, uint32(w), w)
	})
}

// PSAD lowers psadbw: sum of absolute differences of the 8 byte lanes
// of a and b in each 64-bit half, one 64-bit output lane per half.
func PSAD(a, b []*expr.Expr, cb LowerCallback) []*expr.Expr {
	notify(cb, "psad", LaneI8x16)
	if len(a) != 16 || len(b) != 16 {
		panic("BUG: simd: psad requires 16 byte lanes per operand")
	}
	sumHalf := func(lo int) *expr.Expr {
		sum := expr.CreateZero(64)
		for i := lo; i < lo+8; i++ {
			x := expr.CreateZExt(a[i], 64)
			y := expr.CreateZExt(b[i], 64)
			diff := expr.CreateSelect(expr.CreateUlt(x, y), expr.CreateSub(y, x), expr.CreateSub(x, y))
			sum = expr.CreateAdd(sum, diff)
		}
		return sum
	}
	return []*expr.Expr{sumHalf(0), sumHalf(8)}
}

// PMAdd lowers pmaddwd: pairs of adjacent 16-bit lanes of a and b are
// multiplied and summed into one 32-bit lane per pair, per
// sseOpcodePmaddwd.
func PMAdd(a, b []*expr.Expr, cb LowerCallback) []*expr.Expr {
	notify(cb, "pmadd", LaneI16x8)
	if len(a) != 8 || len(b) != 8 {
		panic("BUG: simd: pmadd requires 8 i16 lanes per operand")
	}
	out := make([]*expr.Expr, 0, 4)
	for i := 0; i < 8; i += 2 {
		p0 := expr.CreateMul(expr.CreateSExt(a[i], 32), expr.CreateSExt(b[i], 32))
		p1 := expr.CreateMul(expr.CreateSExt(a[i+1], 32), expr.CreateSExt(b[i+1], 32))
		out = append(out, expr.CreateAdd(p0, p1))
	}
	return out
}

// PSllDQ/PSrlDQ lower psrldq/pslldq: a whole-vector byte shift (not a
// per-lane shift), padding with zero bytes on the vacated side.
func PSllDQ(bytes []*expr.Expr, count int, cb LowerCallback) []*expr.Expr {
	notify(cb, "psll_dq", LaneI8x16)
	return byteShift(bytes, count, true)
}

func PSrlDQ(bytes []*expr.Expr, count int, cb LowerCallback) []*expr.Expr {
	notify(cb, "psrl_dq", LaneI8x16)
	return byteShift(bytes, count, false)
}

func byteShift(bytes []*expr.Expr, count int, left bool) []*expr.Expr {
	n := len(bytes)
	out := make([]*expr.Expr, n)
	for i := 0; i < n; i++ {
		var src int
		if left {
			src = i - count
		} else {
			src = i + count
		}
		if src < 0 || src >= n {
			out[i] = expr.CreateZero(8)
		} else {
			out[i] = bytes[src]
		}
	}
	return out
}

// CvtDq2Ps lowers cvtdq2ps: per-lane signed-int32-to-float32 convert.
func CvtDq2Ps(a []*expr.Expr, cb LowerCallback) []*expr.Expr {
	notify(cb, "cvtdq2ps", LaneI32x4)
	return mapWith(a, func(x *expr.Expr) *expr.Expr { return expr.CreateSIntToFp(x, expr.Single) })
}

// CvtPs2Dq lowers cvtps2dq: per-lane float32-to-signed-int32 convert
// via expr.CreateFpToSInt, whose constant fold truncates toward zero;
// the instruction's round-to-nearest-even mode is not modelled.
func CvtPs2Dq(a []*expr.Expr, cb LowerCallback) []*expr.Expr {
	notify(cb, "cvtps2dq", LaneF32x4)
	return mapWith(a, func(x *expr.Expr) *expr.Expr { return expr.CreateFpToSInt(x, 32) })
}

// CvtSd2Si lowers cvtsd2si: scalar float64-to-signed-int64 convert of
// the low lane only.
func CvtSd2Si(lowLane *expr.Expr, cb LowerCallback) *expr.Expr {
	notify(cb, "cvtsd2si", LaneF64x2)
	return expr.CreateFpToSInt(lowLane, 64)
}
