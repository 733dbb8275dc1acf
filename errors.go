package dsp

import "errors"

// Sentinel errors returned by the public API. Plugin implementations may
// wrap these with additional context via fmt.Errorf("...: %w", ...).
var (
	// ErrInvalidArgument indicates a negative extent, mismatched channel
	// count, or other caller-supplied value outside its valid domain.
	ErrInvalidArgument = errors.New("dsp: invalid argument")

	// ErrOutOfMemory indicates a ring buffer or delay line failed to grow.
	// Not fatal: the caller is expected to deliver silence for the block.
	ErrOutOfMemory = errors.New("dsp: out of memory")

	// ErrInvalidFrameCount indicates a plugin's leading/trailing frame
	// requirement was not satisfied by the Buffer the chain presented it.
	ErrInvalidFrameCount = errors.New("dsp: invalid frame count")

	// ErrInvalidChannelCount indicates dst/src channel counts are
	// incompatible with a plugin's or Buffer's layout.
	ErrInvalidChannelCount = errors.New("dsp: invalid channel count")

	// ErrNullPointer indicates a required Plugin capability is absent.
	ErrNullPointer = errors.New("dsp: required capability not implemented")

	// ErrMixerRoutingCycle indicates a routing cycle was detected while
	// resolving a chain or sub-chain graph.
	ErrMixerRoutingCycle = errors.New("dsp: mixer routing cycle")
)

// ErrorCode classifies an error for plugin-header persistence. Plugins
// that need to record their own failure in Header.Err use these codes,
// or a plugin-specific code >= ErrorCodePluginSpecific.
type ErrorCode int

const (
	// ErrorNone indicates no error; the stage is eligible to run.
	ErrorNone ErrorCode = iota
	ErrorOutOfMemory
	ErrorInvalidFrameCount
	ErrorInvalidChannelCount
	ErrorNullPointer
	ErrorMixerRoutingCycle

	// ErrorCodePluginSpecific is the first value plugins may use for
	// their own error codes, disjoint from the core range above.
	ErrorCodePluginSpecific ErrorCode = 1000
)

// errorCodeFor maps a core sentinel error to its persisted ErrorCode.
func errorCodeFor(err error) ErrorCode {
	switch {
	case errors.Is(err, ErrOutOfMemory):
		return ErrorOutOfMemory
	case errors.Is(err, ErrInvalidFrameCount):
		return ErrorInvalidFrameCount
	case errors.Is(err, ErrInvalidChannelCount):
		return ErrorInvalidChannelCount
	case errors.Is(err, ErrNullPointer):
		return ErrorNullPointer
	case errors.Is(err, ErrMixerRoutingCycle):
		return ErrorMixerRoutingCycle
	default:
		return ErrorNone
	}
}
