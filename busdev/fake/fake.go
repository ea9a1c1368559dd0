// Package fake provides in-memory busdev collaborators for tests: a
// device/service list, a scripted pipe, and a manual-clock scheduler.
// None of this ships in production; it exists so rolemgr/regcache/bridge
// tests can drive the core without a real bus.
package fake

import (
	wire "github.com/busrole/rolebus"
	"github.com/busrole/rolebus/busdev"
	"github.com/google/uuid"
)

// Service is a fake busdev.Service.
type Service struct {
	Class  uint32
	Index  uint8
	flags  busdev.ServiceFlags
	Parent *Device
}

func (s *Service) ServiceClass() uint32 { return s.Class }
func (s *Service) ServiceIndex() uint8  { return s.Index }
func (s *Service) Flags() busdev.ServiceFlags {
	return s.flags
}
func (s *Service) SetFlags(f busdev.ServiceFlags)   { s.flags |= f }
func (s *Service) ClearFlags(f busdev.ServiceFlags) { s.flags &^= f }
func (s *Service) ParentDevice() busdev.Device       { return s.Parent }

// Device is a fake busdev.Device. Session is an opaque uuid handed out
// at construction so tests can tell two devices created with the same
// identifier (simulating a reconnect) apart without the core ever
// looking at it — it plays the same "opaque identity, compared not
// parsed" role here that it plays in aznet's session bookkeeping.
type Device struct {
	ID       uint64
	Session  uuid.UUID
	services []*Service
}

// NewDevice builds a device with numServices service slots (including
// the index-0 control service autobind must skip), each pre-assigned
// serviceClass 0 (unset) until the test configures otherwise.
func NewDevice(id uint64, numServices int) *Device {
	d := &Device{ID: id, Session: uuid.New()}
	d.services = make([]*Service, numServices)
	for i := range d.services {
		d.services[i] = &Service{Index: uint8(i), Parent: d}
	}
	return d
}

func (d *Device) DeviceIdentifier() uint64 { return d.ID }

func (d *Device) Services() []busdev.Service {
	out := make([]busdev.Service, len(d.services))
	for i, s := range d.services {
		out[i] = s
	}
	return out
}

// Service returns the concrete fake service at idx for test setup
// (e.g. to assign a ServiceClass before running autobind).
func (d *Device) Service(idx int) *Service { return d.services[idx] }

// Bus is a fake busdev.DeviceLookup: a flat, mutable device list.
type Bus struct {
	devices []*Device
}

func (b *Bus) Add(d *Device) { b.devices = append(b.devices, d) }

// Remove drops d from the bus, simulating device destruction; it does
// not itself notify the role manager — callers must still invoke
// rolemgr's Manager.OnDeviceDestroyed.
func (b *Bus) Remove(d *Device) {
	for i, x := range b.devices {
		if x == d {
			b.devices = append(b.devices[:i], b.devices[i+1:]...)
			return
		}
	}
}

func (b *Bus) Devices() []busdev.Device {
	out := make([]busdev.Device, len(b.devices))
	for i, d := range b.devices {
		out[i] = d
	}
	return out
}

func (b *Bus) DeviceByIdentifier(id uint64) (busdev.Device, bool) {
	for _, d := range b.devices {
		if d.ID == id {
			return d, true
		}
	}
	return nil, false
}

// Scheduler is a manually-advanced fake busdev.Scheduler.
type Scheduler struct {
	now   int64
	poked int
}

func (s *Scheduler) NowMs() int64 { return s.now }
func (s *Scheduler) Advance(ms int64) {
	s.now += ms
}
func (s *Scheduler) Set(ms int64) { s.now = ms }
func (s *Scheduler) Poke()        { s.poked++ }
func (s *Scheduler) PokeCount() int {
	return s.poked
}

// Pipe is a scripted busdev.Pipe: TryAgainOn lists the 1-based write
// attempt numbers (space-check calls) that should return PipeTryAgain;
// everything else succeeds until Err is set, after which CheckSpace
// returns PipeError.
type Pipe struct {
	TryAgainOn map[int]bool
	Err        error

	attempt int
	Written [][]byte
	Closed  bool
}

func (p *Pipe) CheckSpace(n int) busdev.PipeStatus {
	p.attempt++
	if p.Err != nil {
		return busdev.PipeError
	}
	if p.TryAgainOn[p.attempt] {
		return busdev.PipeTryAgain
	}
	return busdev.PipeOK
}

func (p *Pipe) Write(data []byte) error {
	cp := make([]byte, len(data))
	copy(cp, data)
	p.Written = append(p.Written, cp)
	return nil
}

func (p *Pipe) Close() {
	p.Closed = true
}

// Transmitter is a fake busdev.Transmitter: it just records every
// packet handed to Send, copying its Data so later packet reuse
// doesn't corrupt the recorded history.
type Transmitter struct {
	Sent []wire.Packet
}

func (tx *Transmitter) Send(pkt *wire.Packet) {
	cp := *pkt
	cp.Data = make([]byte, len(pkt.Data))
	copy(cp.Data, pkt.Data)
	tx.Sent = append(tx.Sent, cp)
}
