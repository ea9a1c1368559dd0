package rolemgr

import (
	"sort"

	"github.com/busrole/rolebus/busdev"
)

// Allocate creates a role named name bound to serviceClass and inserts
// it into the ordered role sequence (ascending, byte-wise, spec.md
// invariant 3). It panics if a role with the same name already exists —
// a programmer error per spec.md §7, mirroring jd_role_alloc's
// jd_panic() on duplicate names.
func (m *Manager) Allocate(name string, serviceClass uint32) *Role {
	m.assertUnlocked("Allocate")
	if _, found := m.findByName(name); found {
		BUG("Allocate: duplicate role name %q", name)
		panic("rolemgr: duplicate role name: " + name)
	}

	m.stopList()

	r := &Role{name: name, serviceClass: serviceClass}
	idx := sort.Search(len(m.roles), func(i int) bool { return m.roles[i].name >= name })
	m.roles = append(m.roles, nil)
	copy(m.roles[idx+1:], m.roles[idx:])
	m.roles[idx] = r

	m.changed = true
	return r
}

// Free unbinds, unlinks and destroys role. It panics if role is not
// registered (spec.md §4.1, §7).
func (m *Manager) Free(role *Role) {
	if role == nil {
		return
	}
	m.stopList()

	m.lock()
	m.bindSet(role, nil)
	m.unlock()

	idx := m.indexOf(role)
	if idx < 0 {
		BUG("Free: role %q not registered", role.name)
		panic("rolemgr: free of unregistered role")
	}
	m.roles = append(m.roles[:idx], m.roles[idx+1:]...)
	role.name = ""
}

// FreeAll clears every binding, then unlinks and releases every role.
func (m *Manager) FreeAll() {
	m.stopList()

	m.lock()
	for _, r := range m.roles {
		m.bindSet(r, nil)
	}
	m.unlock()

	for _, r := range m.roles {
		r.name = ""
	}
	m.roles = nil
	m.changed = true
}

// LookupByService linear-scans the role sequence for the role bound to
// serv, if any (spec.md §4.1).
func (m *Manager) LookupByService(serv busdev.Service) *Role {
	for _, r := range m.roles {
		if r.binding == serv {
			return r
		}
	}
	return nil
}

// LookupByName finds a role by its exact (byte-wise) name.
func (m *Manager) LookupByName(name string) (*Role, bool) {
	return m.findByName(name)
}

// Roles returns the ordered role sequence. Callers must not mutate the
// returned slice or the Roles it holds directly.
func (m *Manager) Roles() []*Role {
	return m.roles
}

// OnServiceFlagsChanged reacts to the device subsystem reporting that
// serv's flags changed out from under the binder — e.g. a firmware
// update or a device-initiated reset clearing RoleAssigned on a
// service the registry still thinks is bound. It uses LookupByService
// to map serv back to its role and, if the external flag no longer
// agrees with the registry's own bookkeeping, clears the binding so
// autobind is free to reassign the role on its next pass.
func (m *Manager) OnServiceFlagsChanged(serv busdev.Service) {
	m.lock()
	defer m.unlock()

	role := m.LookupByService(serv)
	if role == nil {
		return
	}
	if serv.Flags()&busdev.RoleAssigned == 0 {
		m.bindSet(role, nil)
	}
}

// OnDeviceDestroyed clears the binding of every role whose service
// belonged to dev (spec.md §4.1, invariant 5).
func (m *Manager) OnDeviceDestroyed(dev busdev.Device) {
	m.lock()
	for _, r := range m.roles {
		if r.binding != nil && r.binding.ParentDevice() == dev {
			m.bindSet(r, nil)
		}
	}
	m.unlock()
}

func (m *Manager) findByName(name string) (*Role, bool) {
	idx := sort.Search(len(m.roles), func(i int) bool { return m.roles[i].name >= name })
	if idx < len(m.roles) && m.roles[idx].name == name {
		return m.roles[idx], true
	}
	return nil, false
}

func (m *Manager) indexOf(role *Role) int {
	for i, r := range m.roles {
		if r == role {
			return i
		}
	}
	return -1
}
