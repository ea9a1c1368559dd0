package regcache

import "runtime"

// key identifies a cached response: a (role, command, argument) triple.
// Argument is 0 for a plain register or an opaque string-table index
// used to disambiguate indexed registers (spec.md §3).
type key struct {
	roleIdx int
	cmd     uint16
	arg     uint32
}

// Entry is a single cached register reply. It is only ever mutated by
// the owning Cache; callers get pointers back from Lookup/Alloc/MarkUsed
// and must not retain them past the next mutating Cache call on the same
// key, since Free/eviction unlinks the node and a later Alloc for that
// key creates a new one.
type Entry struct {
	roleIdx int
	cmd     uint16
	arg     uint32

	data        []byte // length == respSize; reused across refreshes of the same size
	lastRefresh int64  // monotonic ms

	// intrusive LRU list links; only the owning Cache touches these.
	next, prev *Entry
}

func (e *Entry) RoleIdx() int        { return e.roleIdx }
func (e *Entry) Cmd() uint16         { return e.cmd }
func (e *Entry) Arg() uint32         { return e.arg }
func (e *Entry) Data() []byte        { return e.data }
func (e *Entry) LastRefresh() int64  { return e.lastRefresh }
func (e *Entry) SetData(b []byte)    { copy(e.data, b) }
func (e *Entry) Touch(nowMs int64)   { e.lastRefresh = nowMs }

func (e *Entry) detached() bool { return e == e.next }

// detach marks e as unlinked, the same sentinel-self convention
// CallEntryLst.Rm uses.
func (e *Entry) detach() {
	e.next = e
	e.prev = e
}

func freeEntryFinalizer(e *Entry) {
	if !e.detached() {
		BUG("finalizer: non-freed regcache entry about to be collected role=%d cmd=%x arg=%d",
			e.roleIdx, e.cmd, e.arg)
	}
}

func newEntry(roleIdx int, cmd uint16, size int) *Entry {
	e := &Entry{roleIdx: roleIdx, cmd: cmd, data: make([]byte, size)}
	e.detach()
	runtime.SetFinalizer(e, freeEntryFinalizer)
	return e
}
