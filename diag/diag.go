// Package diag is the structured diagnostics stream: one entry per
// dropped state, one per solver failure, one per detected race —
// distinct from the fatal "BUG: "-prefixed panics this module uses for
// internal invariant violations.
package diag

import (
	"strconv"

	"github.com/sirupsen/logrus"
	logrustest "github.com/sirupsen/logrus/hooks/test"
)

// Kind classifies a recoverable error.
type Kind int

const (
	// KindMemoryFault covers out-of-bounds or read-only-violation
	// accesses.
	KindMemoryFault Kind = iota + 1
	// KindSolverFailure covers a constraint-solver timeout or "unknown"
	// result.
	KindSolverFailure
	// KindResourceExhaustion covers address-pool or fork-width
	// exhaustion.
	KindResourceExhaustion
	// KindRace covers a detected data race between threads, reported
	// through this same stream since it is recoverable — execution
	// continues after logging it.
	KindRace
)

func (k Kind) String() string {
	switch k {
	case KindMemoryFault:
		return "memory-fault"
	case KindSolverFailure:
		return "solver-failure"
	case KindResourceExhaustion:
		return "resource-exhaustion"
	case KindRace:
		return "race"
	default:
		return "unknown"
	}
}

// Stream is the diagnostics sink. Every component handed the same
// *Stream shares its one logrus.Logger; the Stream is threaded through
// constructors rather than read from a package global.
type Stream struct {
	log *logrus.Logger
}

// NewStream returns a Stream writing structured entries via logrus.
func NewStream() *Stream {
	return &Stream{log: logrus.New()}
}

// NewTestStream returns a Stream whose entries are also captured by the
// returned hook, via logrus's own hooks/test package, so a test can
// assert on what a Stream actually reported instead of only that
// Report didn't panic.
func NewTestStream() (*Stream, *logrustest.Hook) {
	log, hook := logrustest.NewNullLogger()
	return &Stream{log: log}, hook
}

// Report emits one structured diagnostic entry. trace may be nil when no
// stack was available (e.g. a solver-level failure with no associated
// thread).
func (s *Stream) Report(kind Kind, message string, trace *StackTrace) {
	entry := s.log.WithField("kind", kind.String())
	if trace != nil {
		entry = entry.WithField("trace", trace.String())
	}
	entry.Warn(message)
}

// StackFrame is one entry of a captured StackTrace: the function plus
// its (module, file, line) source metadata.
type StackFrame struct {
	Function string
	Module   string
	File     string
	Line     int
}

// StackTrace is an ordered, outermost-first capture of a thread's call
// stack at the point an error or diagnostic was raised: the last frame
// is the innermost.
type StackTrace struct {
	Frames []StackFrame
}

// Push appends a frame as the new innermost entry.
func (t *StackTrace) Push(f StackFrame) {
	t.Frames = append(t.Frames, f)
}

func (t *StackTrace) String() string {
	s := ""
	for i, f := range t.Frames {
		if i > 0 {
			s += " <- "
		}
		s += f.Function
		if f.File != "" {
			s += " (" + f.File + ":" + strconv.Itoa(f.Line) + ")"
		}
	}
	return s
}
