package bridge

// MaxRegValidity caps how long a cached register reply may be handed
// out as fresh when GetRegister's own timeout argument is zero or
// larger than this (spec.md §4.7, grounded on JACS_MAX_REG_VALIDITY in
// jacscript/jdiface.c).
const MaxRegValidity int64 = 3000

// InitialResendMs is the first resend timeout a fiber waits before
// retransmitting an unanswered get/send (jacs_jd_get_register /
// jacs_jd_send_cmd both seed fiber->resend_timeout with this).
const InitialResendMs int64 = 20

// MaxResendMs caps the exponential backoff applied on every
// unanswered resend (jacs_jd_should_run: "if (resend_timeout < 1000)
// resend_timeout *= 2").
const MaxResendMs int64 = 1000

// ChangeAgeMs sets the cutoff jacs_jd_update_all_regcache ages a role's
// cache to when a CHANGE event arrives: entries last refreshed before
// now-ChangeAgeMs have their refresh time raised to that cutoff, and
// entries refreshed more recently are left alone.
const ChangeAgeMs int64 = 10000
