package dsp

// Flags is a bitfield passed to Plugin.Process on every block.
type Flags uint32

const (
	// Cut signals a time discontinuity. Every stage must reset its
	// persistent state (ring indices, followers, envelopes) when it
	// observes this flag, while keeping its configuration untouched.
	Cut Flags = 1 << iota
)

// Header is the common prefix every effect carries: display name,
// ownership/bypass/selection flags, the previous block's channel counts
// (used to detect channel-count changes between blocks), and a
// persistent error slot. When Err is non-nil the chain skips the stage;
// clearing it is an action the host takes explicitly.
type Header struct {
	Name     string
	Owned    bool   // true: the Chain is responsible for Close on removal
	Bypass   bool
	Selected uint64 // bitset consulted by meter-style plugins

	PrevDstChannels int
	PrevSrcChannels int

	Err     error
	ErrCode ErrorCode
}

// SetError records a persistent error on the header, causing the chain
// to skip this stage until the error is cleared.
func (h *Header) SetError(err error) {
	h.Err = err
	h.ErrCode = errorCodeFor(err)
}

// ClearError clears a persistent error. Callers should arrange for the
// next Chain.Process call to carry the Cut flag so the plugin resets its
// internal state cleanly.
func (h *Header) ClearError() {
	h.Err = nil
	h.ErrCode = ErrorNone
}

// Errored reports whether the stage currently has a persistent error.
func (h *Header) Errored() bool { return h.Err != nil }

// Plugin is the uniform capability every chain stage implements.
// GetSpecs, ResetChannels and Close are optional: a plugin that does not
// need to report latency, react to channel-count growth, or release
// resources simply doesn't implement the corresponding interface, and
// the chain treats the capability as absent (mirroring spec.md's "any of
// which may be absent" function pointers).
type Plugin interface {
	// Header returns the plugin's common header for chain bookkeeping.
	Header() *Header

	// Process transforms src into dst. dst and src may alias; an
	// implementation must read src before writing the same index of
	// dst, or side-copy explicitly via a SideBufferPool.
	Process(dst, src *Buffer, flags Flags) error
}

// SpecProvider is implemented by plugins that report a non-zero
// LatencySpec (delay-bearing or edge-context-hungry stages). Plugins
// that don't implement it are treated as having a zero LatencySpec.
type SpecProvider interface {
	GetSpecs(sampleRate int) LatencySpec
}

// ChannelResetter is implemented by plugins that hold per-channel state
// and need to zero it when the channel count grows between blocks.
// firstNew is the index of the first newly added channel; added is how
// many channels were appended.
type ChannelResetter interface {
	ResetChannels(firstNew, added int)
}

// Closer is implemented by plugins holding resources (voice tables,
// allocated ring buffers beyond their zero value) that must be released
// when the plugin is removed from a chain it does not own, or when an
// owning chain is torn down.
type Closer interface {
	Close() error
}
