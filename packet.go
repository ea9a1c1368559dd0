package wire

// Packet is the decoded shape of a bus frame, generalizing the
// source's jd_packet_t: a device-addressed, service-addressed command,
// report or event, carrying up to len(Data) bytes of payload.
//
// Kind distinguishes the three frame flavours the bridge and dispatcher
// care about; a zero Kind is treated as a command for callers that
// never set it explicitly (mirrors JD_FRAME_FLAG_COMMAND being the
// common case on the wire).
type Kind uint8

const (
	KindCommand Kind = iota
	KindReport
	KindEvent
)

// Packet is reused across ingestion, cache synthesis, and egress; the
// owner is expected to overwrite Data in place rather than reallocate,
// mirroring the shared ctx->packet buffer design note in SPEC_FULL.md.
type Packet struct {
	DeviceID       uint64
	ServiceIndex   uint8
	ServiceCommand uint16
	Kind           Kind
	Data           []byte
}

// IsReport reports whether this packet is a register-read response.
func (p *Packet) IsReport() bool {
	return p.Kind == KindReport
}

// IsCommand reports whether this packet is a command (get/set/other).
func (p *Packet) IsCommand() bool {
	return p.Kind == KindCommand
}

// IsEvent reports whether this packet is an event notification.
func (p *Packet) IsEvent() bool {
	return p.Kind == KindEvent
}

// EventCode extracts the event id from an event packet's ServiceCommand,
// masking off the same bits JD_CMD_EVENT_CODE_MASK would on the wire.
const EventCodeMask = 0x00ff

func (p *Packet) EventCode() uint16 {
	return p.ServiceCommand & EventCodeMask
}

// Reset overwrites the entire packet — header fields included — with
// an all-ones sentinel, matching jacs_jd_reset_packet's
// memset(&ctx->packet, 0xff, sizeof ctx->packet) over the whole shared
// buffer, not just its data payload. That sentinel can never collide
// with a real device id, service index or service command, so a stale
// packet can never be mistaken for a fresh match.
func (p *Packet) Reset() {
	p.DeviceID = ^uint64(0)
	p.ServiceIndex = 0xff
	p.ServiceCommand = 0xffff
	p.Kind = Kind(0xff)
	for i := range p.Data {
		p.Data[i] = 0xff
	}
}

// CopyFrom overwrites the receiver's header and data from src, growing
// Data if necessary. This is the zero-copy-in-spirit (but not in Go)
// analogue of "memcpy(&ctx->packet, pkt, ...)" in jacs_jd_process_pkt.
func (p *Packet) CopyFrom(src *Packet) {
	p.DeviceID = src.DeviceID
	p.ServiceIndex = src.ServiceIndex
	p.ServiceCommand = src.ServiceCommand
	p.Kind = src.Kind
	if cap(p.Data) < len(src.Data) {
		p.Data = make([]byte, len(src.Data))
	} else {
		p.Data = p.Data[:len(src.Data)]
	}
	copy(p.Data, src.Data)
}

// MatchesAnyAddress reports whether this packet is the bus-addressed
// "any" packet (service index 0, command 0) used by should-run role
// matching to mean "any report on this device, regardless of service".
func (p *Packet) MatchesAnyAddress() bool {
	return p.ServiceIndex == 0 && p.ServiceCommand == 0
}
