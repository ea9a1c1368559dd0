package wire

// Command, register and event identifiers for the role-manager
// service. `client/rolemgr.c`/`jacscript/jdiface.c` in
// original_source/ reference these by symbolic macro name only
// (JD_ROLE_MANAGER_REG_AUTO_BIND, JD_ROLE_MANAGER_CMD_SET_ROLE,
// JD_SERVICE_CLASS_ROLE_MANAGER, JD_EV_CHANGE, ...) — the macro
// definitions themselves aren't in the retrieved pack, so the
// concrete integer values below are modeled on jacdac's publicly
// documented role-manager service schema rather than lifted
// byte-for-byte from a source in original_source/. Treat them as
// plausible, internally-consistent placeholders, not a verified
// bit-exact transcription.

// ServiceClassRoleManager is the well-known service class the role
// manager registers under.
const ServiceClassRoleManager uint32 = 0x1e4b7e66

// Register ids served by the role manager. RegAutoBind sits in
// jacdac's read/write register band (0x80-0xff); RegAllRolesAllocated
// is read-only, so it sits in the read-only band (0x180-0x1ff)
// instead of immediately following RegAutoBind numerically — the two
// aren't adjacent because jacdac's register numbering convention
// groups registers by read/write-ability, not by declaration order.
const (
	// RegAutoBind is u8, read/write: enable/disable periodic autobind.
	RegAutoBind uint16 = 0x80
	// RegAllRolesAllocated is u8, read-only, recomputed on access.
	RegAllRolesAllocated uint16 = 0x180
)

// Command opcodes handled by the protocol dispatcher.
const (
	CmdClearAllRoles uint16 = 0x81
	CmdSetRole       uint16 = 0x82
	CmdListRoles     uint16 = 0x83
)

// CmdGetRegister / CmdSetRegister are the standard register-access
// command ranges every service (including the role manager's own
// AUTO_BIND/ALL_ROLES_ALLOCATED registers) shares; the dispatcher falls
// through to register I/O for any command that isn't one of the three
// role-manager-specific opcodes above.
const (
	cmdGetRegisterBase uint16 = 0x1000
	cmdSetRegisterBase uint16 = 0x2000
	cmdRegisterMask    uint16 = 0x0fff
)

// IsSetRegister reports whether cmd is in the set-register command
// range, and if so returns the register id it targets.
func IsSetRegister(cmd uint16) (regID uint16, ok bool) {
	if cmd >= cmdSetRegisterBase && cmd < cmdSetRegisterBase+cmdRegisterMask {
		return cmd & cmdRegisterMask, true
	}
	return 0, false
}

// IsGetRegister reports whether cmd is in the get-register command
// range, and if so returns the register id it targets.
func IsGetRegister(cmd uint16) (regID uint16, ok bool) {
	if cmd >= cmdGetRegisterBase && cmd < cmdGetRegisterBase+cmdRegisterMask {
		return cmd & cmdRegisterMask, true
	}
	return 0, false
}

// GetRegisterCmd builds the get-register command for regID.
func GetRegisterCmd(regID uint16) uint16 {
	return cmdGetRegisterBase | (regID & cmdRegisterMask)
}

// SetRegisterCmd builds the set-register command for regID.
func SetRegisterCmd(regID uint16) uint16 {
	return cmdSetRegisterBase | (regID & cmdRegisterMask)
}

// EvChange is emitted at most every 50ms when any role binding changed.
const EvChange uint16 = 0x3

// ServiceClassCondition is the pseudo service class jacscript uses for
// fiber condition variables: send_cmd on a role of this class never
// touches the bus, it sleeps the fiber and broadcast-wakes every fiber
// on that role.
const ServiceClassCondition uint32 = 0x1fffffff
