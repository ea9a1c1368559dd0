// Package wire implements the bus-protocol wire format consumed by the
// role manager and the fiber/bus bridge: command opcodes, the
// role-manager service class, register ids, the CHANGE event id, and
// the fixed-layout records used by SET_ROLE and LIST_ROLES.
//
// It holds no registry, binder, cache, or fiber state — those live in
// rolemgr, regcache and bridge. This package only knows how to decode
// and encode bytes.
package wire

// BuildTags records which build tags were active at init time (debug
// logging support), so a caller can tell whether the debug or the
// nodebug build is running.
var BuildTags []string
