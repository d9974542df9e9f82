package memory

import (
	"fmt"
	"sync"

	"github.com/dslab-symex/symexec/diag"
)

// MemoryLog is the race detector: a shadow table over (object, offset)
// pairs recording which thread last touched each byte without a race
// and how,
// reporting a diag.KindRace entry whenever a later access conflicts
// with that record without an intervening barrier reset.
//
// The setup/main-initialization phase before any cooperative
// scheduling begins is exempt from race detection; rather than
// special-casing a magic thread id silently, callers pass isSetupPhase
// explicitly so the guard is visible at every call site.
type MemoryLog struct {
	mu      sync.Mutex
	entries map[objectOffsetKey]*logEntry
	stream  *diag.Stream
}

type objectOffsetKey struct {
	object *MemoryObject
	offset uint64
}

// logEntry is one byte's record: the identity of the most recent
// non-racing accessor plus the access-kind bits later accesses are
// checked against.
type logEntry struct {
	threadID    uint64
	workgroupID uint64

	// read/write mark the kinds of access already issued on this byte.
	read  bool
	write bool

	// manyRead is set once a second, differently-id'd thread reads the
	// byte; wgManyRead once a thread from a different workgroup does.
	// Either forces every subsequent write to race, matching thread or
	// not, since the record can no longer name all prior readers.
	manyRead   bool
	wgManyRead bool
}

// matches reports whether an access by (threadID, workgroupID) is
// exempt from racing against this entry: same thread, or same
// workgroup, is always a non-race.
func (e *logEntry) matches(threadID, workgroupID uint64) bool {
	return e.threadID == threadID || e.workgroupID == workgroupID
}

// NewMemoryLog returns an empty log reporting through stream.
func NewMemoryLog(stream *diag.Stream) *MemoryLog {
	return &MemoryLog{entries: map[objectOffsetKey]*logEntry{}, stream: stream}
}

func (l *MemoryLog) entryFor(obj *MemoryObject, offset uint64) *logEntry {
	key := objectOffsetKey{obj, offset}
	e, ok := l.entries[key]
	if !ok {
		e = &logEntry{}
		l.entries[key] = e
	}
	return e
}

// LogRead records a read by (threadID, workgroupID) of obj at offset. A
// prior write from a non-matching thread is reported as a
// read-after-write race; the entry is left untouched in that case so the
// same conflict keeps its original attribution.
func (l *MemoryLog) LogRead(threadID, workgroupID uint64, isSetupPhase bool, obj *MemoryObject, offset uint64) {
	if isSetupPhase {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	e := l.entryFor(obj, offset)

	if e.write && !e.matches(threadID, workgroupID) {
		l.stream.Report(diag.KindRace, fmt.Sprintf(
			"read of %s+%d by thread %d (workgroup %d) races with write by thread %d (workgroup %d)",
			obj.Name, offset, threadID, workgroupID, e.threadID, e.workgroupID), nil)
		return
	}

	if e.read {
		if e.threadID != 0 && e.threadID != threadID {
			e.manyRead = true
		}
		if e.workgroupID != workgroupID {
			e.wgManyRead = true
		}
	}

	e.threadID = threadID
	e.workgroupID = workgroupID
	e.read = true
}

// LogWrite records a write by (threadID, workgroupID) to obj at offset.
// The write races with any prior read or write by a non-matching thread,
// and with any byte already marked manyRead/wgManyRead (the record can
// no longer prove every prior reader matches); the report classifies the
// race as read-write or write-write by the prior access kind.
func (l *MemoryLog) LogWrite(threadID, workgroupID uint64, isSetupPhase bool, obj *MemoryObject, offset uint64) {
	if isSetupPhase {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	e := l.entryFor(obj, offset)

	if e.manyRead || e.wgManyRead || ((e.read || e.write) && !e.matches(threadID, workgroupID)) {
		if e.read {
			l.stream.Report(diag.KindRace, fmt.Sprintf(
				"write to %s+%d by thread %d (workgroup %d) races with read by thread %d (workgroup %d)",
				obj.Name, offset, threadID, workgroupID, e.threadID, e.workgroupID), nil)
		} else {
			l.stream.Report(diag.KindRace, fmt.Sprintf(
				"conflicting write to %s+%d: thread %d (workgroup %d) after thread %d (workgroup %d)",
				obj.Name, offset, threadID, workgroupID, e.threadID, e.workgroupID), nil)
		}
		return
	}

	e.threadID = threadID
	e.workgroupID = workgroupID
	e.write = true
}

// Reset discards every tracked entry — the global barrier reset: after
// a full barrier no pre-barrier access can race with a post-barrier
// one.
func (l *MemoryLog) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = map[objectOffsetKey]*logEntry{}
}

// ResetLocal is the thread-local barrier reset: it clears each entry's
// touching-thread id and manyRead bit but keeps the
// read/write/wgManyRead marks, since a local barrier only orders
// threads within one workgroup — accesses from other workgroups still
// conflict with the pre-barrier record.
func (l *MemoryLog) ResetLocal() {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, e := range l.entries {
		e.threadID = 0
		e.manyRead = false
	}
}
