package rolemgr

import (
	"time"

	wire "github.com/busrole/rolebus"
	"github.com/busrole/rolebus/busdev"
)

// BeginList starts a LIST_ROLES enumeration over pipe: the cursor is
// set to the head of the role sequence, or the pipe is closed
// immediately if there is nothing to list (spec.md §4.3).
func (m *Manager) BeginList(pipe busdev.Pipe) {
	m.assertUnlocked("BeginList")
	m.listPipe = pipe
	if len(m.roles) == 0 {
		pipe.Close()
		m.listCursor = -1
		m.listPipe = nil
		return
	}
	m.listCursor = 0
}

// stopList aborts any in-flight enumeration, closing its pipe. Every
// registry mutation (Allocate/Free/FreeAll) calls this so a stale
// cursor can never emit records from a role sequence that has since
// changed shape (spec.md §4.3).
func (m *Manager) stopList() {
	if m.listCursor < 0 {
		return
	}
	m.listCursor = -1
	if m.listPipe != nil {
		m.listPipe.Close()
		m.listPipe = nil
	}
}

// processEnum advances the in-flight enumeration by up to enumBurst
// records, matching rolemgr_process's list-pipe loop in
// client/rolemgr.c. The x/time rate.Limiter paces attempts against wall
// clock time (not the injected Scheduler clock, which a test may freeze
// or fast-forward) so a single tick can't spin forever even against a
// pipe that never reports back-pressure.
func (m *Manager) processEnum() {
	for attempts := 0; m.listCursor >= 0 && attempts < enumBurst; attempts++ {
		if !m.listLimiter.AllowN(time.Now(), 1) {
			return
		}

		for m.listCursor < len(m.roles) && m.roles[m.listCursor].hidden {
			m.listCursor++
		}
		if m.listCursor >= len(m.roles) {
			m.listPipe.Close()
			m.listPipe = nil
			m.listCursor = -1
			return
		}

		role := m.roles[m.listCursor]
		rec := wire.RoleRecord{ServiceClass: role.serviceClass, Name: []byte(role.name)}
		if role.binding != nil {
			rec.DeviceID = role.binding.ParentDevice().DeviceIdentifier()
			rec.ServiceIndex = role.binding.ServiceIndex()
		}

		buf := make([]byte, rec.Size())
		rec.Encode(buf)

		switch m.listPipe.CheckSpace(len(buf)) {
		case busdev.PipeTryAgain:
			return // back-pressure: stop, retry this same role next tick
		case busdev.PipeError:
			m.listPipe.Close()
			m.listPipe = nil
			m.listCursor = -1
			return
		}

		if err := m.listPipe.Write(buf); err != nil {
			WARN("LIST_ROLES write failed, abandoning enumeration: %v", err)
			m.listPipe.Close()
			m.listPipe = nil
			m.listCursor = -1
			return
		}

		m.listCursor++
		if m.listCursor >= len(m.roles) {
			m.listPipe.Close()
			m.listPipe = nil
			m.listCursor = -1
			return
		}
	}
}

// Listing reports whether an enumeration is currently in flight.
func (m *Manager) Listing() bool { return m.listCursor >= 0 }
