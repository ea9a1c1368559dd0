// Package rolemgr implements the role registry, binder, enumeration
// streamer, protocol dispatcher and change-event ticker described in
// spec.md §4.1-§4.5 — everything that mutates and serves the role
// graph. The fiber/bus bridge (package bridge) consults this graph but
// never mutates it.
package rolemgr

import (
	"golang.org/x/time/rate"

	"github.com/busrole/rolebus/busdev"
)

// AutobindPeriodMs is the autobind pass period (spec.md §4.2).
const AutobindPeriodMs int64 = 980

// ChangeEventPeriodMs is the CHANGE event coalescing window (spec.md §4.5).
const ChangeEventPeriodMs int64 = 50

// enumBurst bounds how many role records the enumeration streamer will
// attempt to write in a single Process() tick even when the pipe has
// space for more, so one large LIST_ROLES can't monopolize a tick.
const enumBurst = 8

// enumRateLimit bounds the sustained rate of LIST_ROLES record writes
// across repeated Process() ticks, independent of how often Process is
// called: enumBurst alone only caps a single tick, so a caller that
// ticks in a tight loop could otherwise still drain an arbitrarily
// large role sequence in one burst of wall-clock time.
const enumRateLimit rate.Limit = 4

// Manager bundles the role sequence together with the binder,
// enumeration and dispatcher state that all mutate it — mirroring the
// single srv_t the source keeps for the whole role-manager service
// (client/rolemgr.c), rather than splitting the tightly-coupled pieces
// spec.md §2 describes into separate types that would all need to share
// a lock. There is exactly one Manager per process (spec.md §1
// Non-goals).
type Manager struct {
	roles []*Role // ordered ascending by name, byte-wise

	autoBindEnabled   bool
	allRolesAllocated bool
	changed           bool
	locked            bool

	nextAutobind    int64
	nextChangeEvent int64

	listCursor  int // index into roles of the next record to emit, -1 when idle
	listPipe    busdev.Pipe
	listLimiter *rate.Limiter

	bus   busdev.DeviceLookup
	sched busdev.Scheduler

	// onRoleChanged is invoked synchronously right after a binding
	// mutation is applied (bindSet) — the bridge wires this to its
	// RoleChanged hook (cache flush + fiber wake).
	onRoleChanged func(*Role)
}

// New builds a Manager wired to bus and sched. onRoleChanged may be nil
// (tests that don't care about the bridge side-effect commonly pass
// nil); bus and sched must not be nil.
func New(bus busdev.DeviceLookup, sched busdev.Scheduler, onRoleChanged func(*Role)) *Manager {
	now := sched.NowMs()
	return &Manager{
		autoBindEnabled: true,
		listCursor:      -1,
		nextAutobind:    now + AutobindPeriodMs, // wait a full period before the first pass
		nextChangeEvent: now,
		bus:             bus,
		sched:           sched,
		onRoleChanged:   onRoleChanged,
		listLimiter:     rate.NewLimiter(enumRateLimit, enumBurst),
	}
}

// assertUnlocked panics if called while a binder pass is in flight —
// the Go analogue of JD_ASSERT(!state->locked) at the top of every
// public entry point (spec.md §3 Registry State invariant).
func (m *Manager) assertUnlocked(who string) {
	if m.locked {
		BUG("%s called while locked (nested binder reentry)", who)
		panic("rolemgr: reentrant binder call: " + who)
	}
}

func (m *Manager) lock() {
	if m.locked {
		BUG("double lock")
		panic("rolemgr: double lock")
	}
	m.locked = true
}

func (m *Manager) unlock() {
	if !m.locked {
		BUG("unlock without lock")
		panic("rolemgr: unlock without lock")
	}
	m.locked = false
}

// Locked reports whether a binder pass is currently in flight.
func (m *Manager) Locked() bool { return m.locked }

// Changed reports whether any binding mutation happened since the last
// CHANGE event.
func (m *Manager) Changed() bool { return m.changed }

// AutoBindEnabled reports the current value of the AUTO_BIND register.
func (m *Manager) AutoBindEnabled() bool { return m.autoBindEnabled }

// SetAutoBindEnabled implements a write to the AUTO_BIND register.
func (m *Manager) SetAutoBindEnabled(v bool) { m.autoBindEnabled = v }

// AllRolesAllocated returns the value the ALL_ROLES_ALLOCATED register
// would report, as of the last recomputation (RecomputeAllocated).
func (m *Manager) AllRolesAllocated() bool { return m.allRolesAllocated }

// RecomputeAllocated refreshes AllRolesAllocated; the dispatcher calls
// this before serving any register read (spec.md §4.2, §4.4).
func (m *Manager) RecomputeAllocated() {
	for _, r := range m.roles {
		if !r.Bound() {
			m.allRolesAllocated = false
			return
		}
	}
	m.allRolesAllocated = true
}

// Process runs one scheduler tick: advances any in-flight enumeration,
// fires an autobind pass if its period elapsed, and emits a coalesced
// CHANGE event if one is due and a mutation happened (spec.md §4.1-§4.5
// "Process" loop, grounded on rolemgr_process in client/rolemgr.c).
// onChange is invoked (at most once per call) when a CHANGE event fires.
func (m *Manager) Process(onChange func()) {
	m.processEnum()

	now := m.sched.NowMs()
	if busdev.ShouldSample(&m.nextAutobind, now, AutobindPeriodMs) {
		m.autobindPass()
	}
	if busdev.ShouldSample(&m.nextChangeEvent, now, ChangeEventPeriodMs) {
		if m.changed {
			m.changed = false
			if onChange != nil {
				onChange()
			}
		}
	}
}
