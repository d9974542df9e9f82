// Package addrpool implements the address pool: a bump allocator over
// a reserved 64-bit range, parameterized by options.CoreOptions.
package addrpool

import (
	"errors"
	"sync"

	"github.com/dslab-symex/symexec/options"
)

// ErrExhausted is returned when no gap, reused or fresh, can satisfy a
// requested allocation.
var ErrExhausted = errors.New("addrpool: exhausted")

// ErrFaultInjected is returned by Allocate when a fault was armed via
// InjectFault on a pool built with CoreOptions.FaultInjectionEnabled,
// so exhaustion-recovery paths can be driven deterministically in
// tests.
var ErrFaultInjected = errors.New("addrpool: injected allocation fault")

type gap struct {
	addr, size uint64
}

// Pool hands out non-overlapping address ranges. Freed ranges are kept
// on a gap list and reused by later allocations before the bump pointer
// advances further, so a long-running exploration doesn't exhaust the
// configured range purely from alloc/free churn.
type Pool struct {
	mu      sync.Mutex
	next    uint64
	limit   uint64
	gaps    []gap
	padding uint64

	faultInjection bool
	faultArmed     bool
}

// New returns a Pool drawing from [opts.AddressPoolStart,
// opts.AddressPoolStart+opts.AddressPoolSize), padding every bump
// allocation by opts.AddressPoolGap bytes before the next one.
func New(opts options.CoreOptions) *Pool {
	return &Pool{
		next:           opts.AddressPoolStart,
		limit:          opts.AddressPoolStart + opts.AddressPoolSize,
		padding:        opts.AddressPoolGap,
		faultInjection: opts.FaultInjectionEnabled,
	}
}

// InjectFault arms a one-shot allocation failure, consumed by the next
// Allocate call. It is a no-op unless the pool was built with
// CoreOptions.FaultInjectionEnabled.
func (p *Pool) InjectFault() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.faultInjection {
		p.faultArmed = true
	}
}

// Allocate returns an address for a block of size bytes aligned to
// align (align must be a power of two, or 1 for no alignment
// requirement). A fresh (non-reused) allocation advances the bump
// pointer by size plus the pool's configured gap, so an out-of-bounds
// access one past the returned block's end lands in unmapped padding
// instead of aliasing whatever the next allocation returns.
func (p *Pool) Allocate(size, align uint64) (uint64, error) {
	if align == 0 {
		align = 1
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.faultArmed {
		p.faultArmed = false
		return 0, ErrFaultInjected
	}

	if addr, ok := p.reuseGap(size, align); ok {
		return addr, nil
	}

	addr := alignUp(p.next, align)
	if addr < p.next || addr+size > p.limit || addr+size < addr {
		return 0, ErrExhausted
	}
	next := addr + size + p.padding
	if next < addr+size {
		next = p.limit
	}
	p.next = next
	return addr, nil
}

// Free returns [addr, addr+size) to the pool for reuse by a later
// Allocate call.
func (p *Pool) Free(addr, size uint64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.gaps = append(p.gaps, gap{addr, size})
}

func (p *Pool) reuseGap(size, align uint64) (uint64, bool) {
	for idx, g := range p.gaps {
		addr := alignUp(g.addr, align)
		if addr+size <= g.addr+g.size {
			p.gaps = append(p.gaps[:idx], p.gaps[idx+1:]...)
			return addr, true
		}
	}
	return 0, false
}

func alignUp(x, align uint64) uint64 {
	if align <= 1 {
		return x
	}
	rem := x % align
	if rem == 0 {
		return x
	}
	return x + (align - rem)
}
