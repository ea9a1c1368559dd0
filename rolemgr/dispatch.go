package rolemgr

import (
	wire "github.com/busrole/rolebus"
	"github.com/busrole/rolebus/busdev"
)

// RegisterIO is the generic service-register handling helper spec.md
// §1 calls out as an external collaborator ("generic service-register
// handling helpers" are out of scope). The dispatcher serves the two
// registers this service itself defines (AUTO_BIND,
// ALL_ROLES_ALLOCATED) directly and falls back to RegisterIO for
// anything else, the same way service_handle_register_final is reached
// in client/rolemgr.c's default case. May be nil, in which case unknown
// register commands are silently dropped.
type RegisterIO interface {
	ServeRegister(pkt *wire.Packet)
}

// HandlePacket decodes and routes a packet addressed to the role
// manager service (spec.md §4.4). It asserts the binder is not
// currently running a pass and never acquires the lock itself — every
// path it takes either calls a method that locks internally (Set) or
// doesn't need to.
func (m *Manager) HandlePacket(pkt *wire.Packet, pipes busdev.PipeOpener, regio RegisterIO) {
	m.assertUnlocked("HandlePacket")

	DBG("handle pkt cmd=%#x", pkt.ServiceCommand)

	switch pkt.ServiceCommand {
	case wire.CmdClearAllRoles:
		for _, r := range m.roles {
			m.Set(r, nil)
		}

	case wire.CmdSetRole:
		m.handleSetRole(pkt)

	case wire.CmdListRoles:
		pipe, err := pipes.OpenFromCommand(pkt)
		if err != nil {
			WARN("LIST_ROLES: failed to open pipe: %v", err)
			return
		}
		if pipe == nil {
			return // malformed command, silently ignored (spec.md §7)
		}
		m.BeginList(pipe)

	default:
		m.RecomputeAllocated()
		m.serveRegisterIO(pkt, regio)
	}
}

func (m *Manager) handleSetRole(pkt *wire.Packet) {
	rec, ok := wire.DecodeRoleRecord(pkt.Data)
	if !ok {
		WARN("SET_ROLE: short packet, dropping")
		return
	}
	role, found := m.findByName(string(rec.Name))
	if !found {
		return // unknown role name: silent drop (spec.md §7)
	}
	if rec.DeviceID == 0 {
		m.Set(role, nil)
		return
	}
	dev, ok := m.bus.DeviceByIdentifier(rec.DeviceID)
	if !ok {
		return // unknown device: silent drop
	}
	services := dev.Services()
	if int(rec.ServiceIndex) >= len(services) {
		return // unknown service: silent drop
	}
	m.Set(role, services[rec.ServiceIndex])
}

func (m *Manager) serveRegisterIO(pkt *wire.Packet, regio RegisterIO) {
	if regID, ok := wire.IsGetRegister(pkt.ServiceCommand); ok {
		switch regID {
		case wire.RegAutoBind:
			pkt.Data = appendBool(pkt.Data[:0], m.autoBindEnabled)
			pkt.Kind = wire.KindReport
			return
		case wire.RegAllRolesAllocated:
			pkt.Data = appendBool(pkt.Data[:0], m.allRolesAllocated)
			pkt.Kind = wire.KindReport
			return
		}
	} else if regID, ok := wire.IsSetRegister(pkt.ServiceCommand); ok {
		if regID == wire.RegAutoBind {
			if len(pkt.Data) > 0 {
				m.autoBindEnabled = pkt.Data[0] != 0
			}
			return
		}
	}
	if regio != nil {
		regio.ServeRegister(pkt)
	}
}

func appendBool(dst []byte, v bool) []byte {
	if v {
		return append(dst, 1)
	}
	return append(dst, 0)
}
