// Package busdev declares the external collaborator contracts the role
// manager and fiber/bus bridge consume: the device/service bus, the
// back-pressured pipe subsystem, and the scheduler. Per spec.md §1 these
// are out of scope for this module's implementation — only their
// interfaces live here. A fake in-memory implementation for tests lives
// in the sibling busdev/fake package.
package busdev

import wire "github.com/busrole/rolebus"

// ServiceFlags mirrors the device-service endpoint flags the core reads
// and writes. The core only ever touches RoleAssigned; any other bit is
// owned by the device subsystem and must be preserved across Set/Clear.
type ServiceFlags uint32

const (
	// RoleAssigned marks a service endpoint as currently bound to some
	// role. At most one role may hold a service with this bit set.
	RoleAssigned ServiceFlags = 1 << iota
)

// Service is a device-service endpoint as jacdac calls it: a typed
// sub-interface of a Device, addressed by an index within that device.
// The core holds weak references to these — the owning Device subsystem
// may destroy a Service (and its parent Device) at any time, which must
// trigger rolemgr's Manager.OnDeviceDestroyed.
type Service interface {
	ServiceClass() uint32
	ServiceIndex() uint8
	Flags() ServiceFlags
	SetFlags(ServiceFlags)
	ClearFlags(ServiceFlags)
	ParentDevice() Device
}

// Device is a bus device: an ordered list of service endpoints,
// index 0 being the device's own control service (skipped by autobind,
// per spec.md §4.2).
type Device interface {
	DeviceIdentifier() uint64
	Services() []Service
}

// DeviceLookup resolves devices by their wire identifier and lists all
// currently known devices, the two primitives the binder's autobind
// pass and the dispatcher's SET_ROLE handler need.
type DeviceLookup interface {
	Devices() []Device
	DeviceByIdentifier(id uint64) (Device, bool)
}

// PipeStatus is the tri-state result of a back-pressured pipe write
// attempt.
type PipeStatus int

const (
	PipeOK PipeStatus = iota
	PipeTryAgain
	PipeError
)

// Pipe is a back-pressured ordered byte stream opened in response to a
// command (LIST_ROLES). CheckSpace must be called before Write; a
// PipeTryAgain result means the caller should retry on the next
// scheduler tick without having written anything.
type Pipe interface {
	CheckSpace(n int) PipeStatus
	Write(data []byte) error
	Close()
}

// PipeOpener opens an output pipe addressed by the command packet that
// requested it (LIST_ROLES); it is the Go analogue of
// jd_opipe_open_cmd. Returning a nil Pipe and nil error means the
// command was malformed and should be silently ignored, matching the
// wire-peer error policy in spec.md §7.
type PipeOpener interface {
	OpenFromCommand(pkt *wire.Packet) (Pipe, error)
}

// Scheduler provides the monotonic clock and the wake-up nudge the
// registry and bridge need; the fiber run-loop itself belongs to the
// script runtime and is out of scope here (spec.md §1).
type Scheduler interface {
	// NowMs returns a monotonically increasing millisecond timestamp.
	NowMs() int64
	// Poke asks the scheduler to re-evaluate parked fibers as soon as
	// it next gets a chance, without waiting for their wake_time.
	Poke()
}

// Transmitter sends a fully-populated outgoing packet on the bus. The
// transport itself — framing, retries below the application layer,
// physical/radio concerns — is out of scope (spec.md §1); the bridge
// only ever calls Send with a packet it just finished building.
type Transmitter interface {
	Send(pkt *wire.Packet)
}

// ShouldSample is the jd_should_sample helper: given a pointer to the
// next-due timestamp and the current time, it reports whether periodMs
// has elapsed and, if so, moves *next to one full period after nowMs. Called
// once per scheduler tick by the autobind and change-event timers.
func ShouldSample(next *int64, nowMs int64, periodMs int64) bool {
	if nowMs < *next {
		return false
	}
	*next = nowMs + periodMs
	return true
}
