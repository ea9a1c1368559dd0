package rolemgr

import "github.com/busrole/rolebus/busdev"

// bindSet assigns (or clears, if serv is nil) the service bound to
// role. It is idempotent: re-setting the same target is a no-op and
// emits no notification (spec.md §4.2, the Idempotence law in §8).
// Callers must already hold the binder lock (m.locked == true) — this
// mirrors rolemgr_set in client/rolemgr.c, which is always called
// between LOCK()/UNLOCK().
func (m *Manager) bindSet(role *Role, serv busdev.Service) {
	if role.binding == serv {
		return
	}
	if role.binding != nil {
		role.binding.ClearFlags(busdev.RoleAssigned)
	}
	if serv != nil {
		serv.SetFlags(busdev.RoleAssigned)
		DBG("set role %s -> %x:%d", role.name, serv.ParentDevice().DeviceIdentifier()&0xffff, serv.ServiceIndex())
	} else {
		DBG("clear role %s", role.name)
	}
	role.binding = serv
	m.changed = true
	if m.onRoleChanged != nil {
		m.onRoleChanged(role)
	}
}

// Set is the public entry point for a manual binding change (used by
// the SET_ROLE command handler); it takes the binder lock itself so it
// can be called directly without the caller managing locking.
func (m *Manager) Set(role *Role, serv busdev.Service) {
	m.lock()
	m.bindSet(role, serv)
	m.unlock()
}

// autobindPass is the periodic best-effort policy: for each unbound
// role, scan every device's services (skipping each device's index-0
// control service) and bind the first endpoint whose class matches and
// that isn't already claimed by another role (spec.md §4.2, grounded on
// rolemgr_autobind).
func (m *Manager) autobindPass() {
	if !m.autoBindEnabled {
		return
	}

	m.lock()
	defer m.unlock()

	for _, r := range m.roles {
		if r.Bound() {
			continue
		}
		serv := m.findBindableService(r.serviceClass)
		if serv != nil {
			m.bindSet(r, serv)
		}
	}
}

func (m *Manager) findBindableService(class uint32) busdev.Service {
	for _, dev := range m.bus.Devices() {
		services := dev.Services()
		for i := 1; i < len(services); i++ { // skip index-0 control service
			s := services[i]
			if s.ServiceClass() == class && s.Flags()&busdev.RoleAssigned == 0 {
				return s
			}
		}
	}
	return nil
}
