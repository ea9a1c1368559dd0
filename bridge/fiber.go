package bridge

// Fiber is the subset of a script fiber's state the bridge owns: which
// role and register it is waiting on, the payload still to be sent (if
// any), and its resend backoff (spec.md §3 "Fiber State"). Everything
// else about a fiber — its bytecode stack, locals, scheduling among
// sibling fibers — belongs to the script runtime, out of scope here
// (spec.md §1); Resume is the one hook the runtime supplies back in so
// WakeRole can ask it to resume this fiber's user code.
type Fiber struct {
	roleIdx        int
	serviceCommand uint16 // 0 means "not waiting on anything"
	commandArg     uint32 // 0, or a string-table index disambiguating an indexed register
	payload        []byte // staged outgoing command body, cleared once sent
	resendTimeout  int64  // ms, doubles on every unanswered resend up to MaxResendMs
	wakeTime       int64  // ms; fiber is eligible to (re)transmit once now >= wakeTime
	argBytes       []byte // resolved bytes for commandArg, supplied by the script runtime

	resume func()
}

// NewFiber builds a Fiber whose Resume hook is resume. resume may be
// nil for tests that only inspect should-run decisions and never
// exercise WakeRole.
func NewFiber(resume func()) *Fiber {
	return &Fiber{resume: resume}
}

func (f *Fiber) RoleIdx() int           { return f.roleIdx }
func (f *Fiber) ServiceCommand() uint16 { return f.serviceCommand }
func (f *Fiber) CommandArg() uint32     { return f.commandArg }
func (f *Fiber) Waiting() bool          { return f.serviceCommand != 0 }
func (f *Fiber) ResendTimeout() int64   { return f.resendTimeout }
func (f *Fiber) WakeTime() int64        { return f.wakeTime }

// SetArgBytes lets the caller (the script runtime, which owns the
// string table jacs_img_get_string_ptr reads from) attach the resolved
// bytes for an argument-indexed register before the bridge transmits
// or re-transmits a GetRegister wait.
func (f *Fiber) SetArgBytes(b []byte) { f.argBytes = b }
