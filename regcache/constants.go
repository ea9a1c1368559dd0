package regcache

// MaxEntries bounds how many cached register replies the bridge keeps
// at once; once full, Alloc evicts the least-recently-used entry.
// Sized generously for a handful of roles each with a handful of
// distinct (command, argument) reads in flight — this is a cache, not
// a store of record, so a bound that's merely "big enough" is correct.
const MaxEntries = 256

// MaxRespSize caps a single cached response payload. Register replies
// on the bus are small (a handful of packed fields); this exists so a
// malformed resp_size can never make Alloc request an unbounded buffer.
const MaxRespSize = 236 // largest bus frame payload
