// Package bridge implements the fiber/bus bridge described in spec.md
// §4.7: the should-run decision table that lets a parked script fiber
// know whether to resume, the register cache refresh path that keeps
// GetRegister cheap, and the two bus-facing entry points
// (ProcessPkt/RoleChanged) the rest of the system drives it with. It
// consults the role graph rolemgr builds but never mutates it, the
// same one-way dependency client/rolemgr.c and jacscript/jdiface.c
// have in the original (rolemgr owns ctx->roles[*]->service; jdiface.c
// only reads it).
package bridge

import (
	"bytes"

	wire "github.com/busrole/rolebus"
	"github.com/busrole/rolebus/busdev"
	"github.com/busrole/rolebus/regcache"
	"github.com/busrole/rolebus/rolemgr"
)

// Decision is the result of ShouldRun: whether the scheduler should
// resume a parked fiber's user code now or leave it waiting.
type Decision int

const (
	KeepWaiting Decision = iota
	ResumeUserCode
)

// ArgResolver resolves a string-table index into its bytes. It stands
// in for the script image's string table (jacs_img_get_string_ptr /
// jacs_img_get_string_len in jdiface.c), which belongs to the script
// runtime and is out of scope here (spec.md §1). A Bridge with a nil
// resolver simply never matches argument-indexed registers.
type ArgResolver interface {
	StringBytes(idx uint32) []byte
}

// Bridge is the fiber/bus bridge (spec.md §4.7). roles is a role_idx ->
// *rolemgr.Role parallel array fixed at construction time by whatever
// wires up the script image's roles in order (jacs_jd_init_roles);
// this is deliberately not rolemgr.Manager.Roles(), which is sorted by
// name for wire enumeration and has no relation to script role
// indices.
type Bridge struct {
	roles  []*rolemgr.Role
	cache  *regcache.Cache
	sched  busdev.Scheduler
	tx     busdev.Transmitter
	args   ArgResolver
	packet wire.Packet
	fibers []*Fiber
}

// New builds a Bridge over roles (indexed by script role_idx), a
// register cache bounded at cacheCapacity entries (0 means
// regcache.MaxEntries), sched for the monotonic clock and scheduler
// nudge, tx to hand off outgoing packets to the transport, and an
// optional args resolver for argument-indexed registers.
func New(roles []*rolemgr.Role, cacheCapacity int, sched busdev.Scheduler, tx busdev.Transmitter, args ArgResolver) *Bridge {
	return &Bridge{
		roles:  roles,
		cache:  regcache.New(cacheCapacity),
		sched:  sched,
		tx:     tx,
		args:   args,
		packet: wire.Packet{Data: make([]byte, 0, regcache.MaxRespSize)},
	}
}

// Packet exposes the shared packet buffer so the script runtime can
// stage an outgoing command's payload into it before calling SendCmd,
// and read a synthesized cache hit back out after GetRegister returns
// without waking the fiber — mirrors ctx->packet being directly
// addressable in jdiface.c.
func (b *Bridge) Packet() *wire.Packet { return &b.packet }

// NewFiber registers a fiber with the bridge so WakeRole can find it.
func (b *Bridge) NewFiber(resume func()) *Fiber {
	f := NewFiber(resume)
	b.fibers = append(b.fibers, f)
	return f
}

// RemoveFiber unregisters a fiber, e.g. once the script runtime tears
// it down; a no-op if f isn't currently registered.
func (b *Bridge) RemoveFiber(f *Fiber) {
	for i, x := range b.fibers {
		if x == f {
			b.fibers = append(b.fibers[:i], b.fibers[i+1:]...)
			return
		}
	}
}

func (b *Bridge) roleService(roleIdx int) busdev.Service {
	if roleIdx < 0 || roleIdx >= len(b.roles) || b.roles[roleIdx] == nil {
		return nil
	}
	return b.roles[roleIdx].Binding()
}

// GetRegister implements jacs_jd_get_register: serve a fresh cache hit
// synthetically (no bus traffic), evict a stale one, or park fib on the
// register and let the should-run loop send the request.
func (b *Bridge) GetRegister(fib *Fiber, roleIdx int, code uint16, timeoutMs int64, arg uint32) {
	if serv := b.roleService(roleIdx); serv != nil {
		if cached := b.cache.Lookup(roleIdx, code, arg); cached != nil {
			t := timeoutMs
			if t == 0 || t > MaxRegValidity {
				t = MaxRegValidity
			}
			if cached.LastRefresh()+t < b.sched.NowMs() {
				b.cache.Free(cached)
			} else {
				cached = b.cache.MarkUsed(cached)
				b.packet = wire.Packet{
					DeviceID:       serv.ParentDevice().DeviceIdentifier(),
					ServiceIndex:   serv.ServiceIndex(),
					ServiceCommand: cached.Cmd(),
					Kind:           wire.KindReport,
					Data:           append(b.packet.Data[:0], cached.Data()...),
				}
				return
			}
		}
	}

	fib.roleIdx = roleIdx
	fib.serviceCommand = code
	fib.commandArg = arg
	fib.resendTimeout = InitialResendMs
	fib.wakeTime = b.sched.NowMs() // jacs_fiber_sleep(fib, 0): run should-run again right away
}

// SendCmd implements jacs_jd_send_cmd: invalidate any cached read of
// the register this write targets, handle the CONDITION pseudo-class
// short-circuit, and otherwise park fib with the staged packet payload
// so should-run transmits it.
func (b *Bridge) SendCmd(fib *Fiber, roleIdx int, code uint16) {
	if regID, ok := wire.IsSetRegister(code); ok {
		getCmd := wire.GetRegisterCmd(regID)
		if cached := b.cache.Lookup(roleIdx, getCmd, 0); cached != nil {
			b.cache.Free(cached)
		}
	}

	role := roleOrNil(b.roles, roleIdx)
	if role != nil && role.ServiceClass() == wire.ServiceClassCondition {
		DBG("wake condition")
		fib.wakeTime = b.sched.NowMs()
		b.WakeRole(roleIdx)
		return
	}

	fib.roleIdx = roleIdx
	fib.serviceCommand = code
	fib.resendTimeout = InitialResendMs
	fib.payload = append([]byte(nil), b.packet.Data...)
	fib.wakeTime = b.sched.NowMs()
}

func roleOrNil(roles []*rolemgr.Role, idx int) *rolemgr.Role {
	if idx < 0 || idx >= len(roles) {
		return nil
	}
	return roles[idx]
}

// WakeRole resumes every fiber currently waiting on roleIdx
// (jacs_jd_wake_role).
func (b *Bridge) WakeRole(roleIdx int) {
	for _, f := range b.fibers {
		if f.roleIdx == roleIdx && f.serviceCommand != 0 && f.resume != nil {
			f.resume()
		}
	}
}

// packetMatchesRole implements jacs_jd_pkt_matches_role: the shared
// packet buffer addresses roleIdx's bound service directly, or is the
// bus-wide "any service on this device" wildcard.
func (b *Bridge) packetMatchesRole(roleIdx int) bool {
	serv := b.roleService(roleIdx)
	if serv == nil {
		return false
	}
	if serv.ParentDevice().DeviceIdentifier() != b.packet.DeviceID {
		return false
	}
	return b.packet.MatchesAnyAddress() || serv.ServiceIndex() == b.packet.ServiceIndex
}

// regArgLength implements jacs_jd_reg_arg_length: the current packet's
// data must begin with arg's bytes followed by a NUL, or the packet
// doesn't belong to this argument-indexed register at all.
func (b *Bridge) regArgLength(arg uint32) int {
	if b.args == nil {
		return 0
	}
	prefix := b.args.StringBytes(arg)
	slen := len(prefix)
	if len(b.packet.Data) < slen+1 || b.packet.Data[slen] != 0 || !bytes.Equal(b.packet.Data[:slen], prefix) {
		return 0
	}
	return slen + 1
}

// updateRegCache implements jacs_jd_update_regcache: fold the current
// packet's body into the cache entry for (roleIdx, packet command,
// arg), allocating or resizing it as needed. Returns nil if an
// argument-indexed register's prefix doesn't match the current packet.
func (b *Bridge) updateRegCache(roleIdx int, arg uint32) *regcache.Entry {
	data := b.packet.Data
	if arg != 0 {
		slen := b.regArgLength(arg)
		if slen == 0 {
			return nil
		}
		data = data[slen:]
	}
	respSize := len(data)

	q := b.cache.Lookup(roleIdx, b.packet.ServiceCommand, arg)
	if q != nil && len(q.Data()) != respSize {
		b.cache.Free(q)
		q = nil
	}
	if q == nil {
		q = b.cache.Alloc(roleIdx, b.packet.ServiceCommand, respSize)
		if arg != 0 {
			b.cache.SetArg(q, arg)
		}
	}
	q.SetData(data)
	q.Touch(b.sched.NowMs())
	return q
}

// ShouldRun implements jacs_jd_should_run: the decision table the
// scheduler consults for every parked fiber on each tick.
func (b *Bridge) ShouldRun(fib *Fiber) Decision {
	if fib.serviceCommand == 0 {
		return ResumeUserCode
	}

	serv := b.roleService(fib.roleIdx)
	if serv == nil {
		fib.wakeTime = 0 // wait indefinitely until the role is (re)bound
		return KeepWaiting
	}

	if fib.payload != nil {
		DBG("send pkt cmd=%#x", fib.serviceCommand)
		b.transmit(fib.roleIdx, fib.serviceCommand, fib.payload)
		fib.serviceCommand = 0
		fib.payload = nil
		return ResumeUserCode
	}

	if b.packet.IsReport() && b.packet.ServiceCommand != 0 &&
		b.packet.ServiceCommand == fib.serviceCommand && b.packetMatchesRole(fib.roleIdx) {
		if q := b.updateRegCache(fib.roleIdx, fib.commandArg); q != nil {
			b.cache.MarkUsed(q)
			return ResumeUserCode
		}
	}

	if now := b.sched.NowMs(); now >= fib.wakeTime {
		var arg []byte
		if fib.commandArg != 0 {
			arg = fib.argBytes
		}
		DBG("(re)send pkt cmd=%#x", fib.serviceCommand)
		b.transmit(fib.roleIdx, fib.serviceCommand, arg)

		if fib.resendTimeout < MaxResendMs {
			fib.resendTimeout *= 2
			if fib.resendTimeout > MaxResendMs {
				fib.resendTimeout = MaxResendMs
			}
		}
		fib.wakeTime = now + fib.resendTimeout
	}

	return KeepWaiting
}

// transmit implements jacs_jd_set_packet + jd_send_pkt: address the
// shared packet buffer at roleIdx's bound service and hand it to the
// transport.
func (b *Bridge) transmit(roleIdx int, cmd uint16, payload []byte) {
	serv := b.roleService(roleIdx)
	if serv == nil {
		BUG("transmit: role %d unbound", roleIdx)
		return
	}
	b.packet.DeviceID = serv.ParentDevice().DeviceIdentifier()
	b.packet.ServiceIndex = serv.ServiceIndex()
	b.packet.ServiceCommand = cmd
	b.packet.Kind = wire.KindCommand
	b.packet.Data = append(b.packet.Data[:0], payload...)
	b.tx.Send(&b.packet)
}

// updateAllRegCache implements jacs_jd_update_all_regcache: age the
// role's cache wholesale on a CHANGE event, otherwise update at most
// one matching cached entry (argument-indexed registers may have
// several cached variants; only the one whose prefix matches the
// current packet, if any, is refreshed).
func (b *Bridge) updateAllRegCache(roleIdx int) {
	if b.packet.IsCommand() {
		return
	}
	if b.packet.IsEvent() && b.packet.EventCode() == wire.EvChange {
		b.cache.Age(roleIdx, b.sched.NowMs()-ChangeAgeMs)
		return
	}
	var q *regcache.Entry
	for {
		q = b.cache.Next(roleIdx, b.packet.ServiceCommand, q)
		if q == nil {
			return
		}
		if b.updateRegCache(q.RoleIdx(), q.Arg()) != nil {
			return
		}
	}
}

// ProcessPkt implements jacs_jd_process_pkt: copy pkt into the shared
// buffer, then for every role it addresses, refresh the cache and wake
// its fibers.
func (b *Bridge) ProcessPkt(pkt *wire.Packet) {
	b.packet.CopyFrom(pkt)

	for idx := range b.roles {
		if b.packetMatchesRole(idx) {
			b.updateAllRegCache(idx)
			b.WakeRole(idx)
		}
	}

	if b.sched != nil {
		b.sched.Poke()
	}
}

// RoleChanged implements jacs_jd_role_changed: the rolemgr.Manager
// onRoleChanged hook. It evicts role's cached entries, resets the
// shared packet to its sentinel fill, wakes any fiber parked on role,
// and nudges the scheduler.
func (b *Bridge) RoleChanged(role *rolemgr.Role) {
	for idx, r := range b.roles {
		if r == role {
			b.cache.FreeRole(idx)
			b.packet.Reset()
			b.WakeRole(idx)
			break
		}
	}
	if b.sched != nil {
		b.sched.Poke()
	}
}
