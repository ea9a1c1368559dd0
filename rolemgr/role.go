package rolemgr

import "github.com/busrole/rolebus/busdev"

// Role is a named, typed placeholder for a service endpoint (spec.md
// §3). It is allocated, mutated and destroyed only through a Manager —
// there is no exported constructor.
type Role struct {
	name         string
	serviceClass uint32
	hidden       bool
	binding      busdev.Service // nullable
}

func (r *Role) Name() string          { return r.name }
func (r *Role) ServiceClass() uint32  { return r.serviceClass }
func (r *Role) Hidden() bool          { return r.hidden }
func (r *Role) SetHidden(hidden bool) { r.hidden = hidden }
func (r *Role) Binding() busdev.Service {
	return r.binding
}

// Bound reports whether the role currently has a service bound.
func (r *Role) Bound() bool { return r.binding != nil }
