package wire

import "encoding/binary"

// RoleRecordHeaderSize is the fixed portion of a role_manager_roles
// wire record: device_id(8) + service_idx(1) + pad(3) + service_class(4).
const RoleRecordHeaderSize = 8 + 1 + 3 + 4

// RoleRecord is the decoded form of the role_manager_roles wire record,
// shared verbatim (per spec.md §6) between the LIST_ROLES response and
// the SET_ROLE command body.
type RoleRecord struct {
	DeviceID     uint64
	ServiceIndex uint8
	ServiceClass uint32
	Name         []byte // no terminator; aliases the decode input when Decode is used
}

// Size returns the encoded wire size of r.
func (r *RoleRecord) Size() int {
	return RoleRecordHeaderSize + len(r.Name)
}

// Encode writes r into dst in the exact role_manager_roles layout and
// returns the number of bytes written. dst must be at least r.Size()
// bytes.
func (r *RoleRecord) Encode(dst []byte) int {
	binary.LittleEndian.PutUint64(dst[0:8], r.DeviceID)
	dst[8] = r.ServiceIndex
	dst[9], dst[10], dst[11] = 0, 0, 0
	binary.LittleEndian.PutUint32(dst[12:16], r.ServiceClass)
	n := copy(dst[RoleRecordHeaderSize:], r.Name)
	return RoleRecordHeaderSize + n
}

// DecodeRoleRecord parses a role_manager_roles record out of buf. The
// name is never NUL-terminated on the wire: whatever remains after the
// fixed header is the role name, verbatim. Returns false if buf is
// shorter than the fixed header.
func DecodeRoleRecord(buf []byte) (RoleRecord, bool) {
	if len(buf) < RoleRecordHeaderSize {
		return RoleRecord{}, false
	}
	var r RoleRecord
	r.DeviceID = binary.LittleEndian.Uint64(buf[0:8])
	r.ServiceIndex = buf[8]
	r.ServiceClass = binary.LittleEndian.Uint32(buf[12:16])
	r.Name = buf[RoleRecordHeaderSize:]
	return r, true
}
