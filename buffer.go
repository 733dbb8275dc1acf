package dsp

import (
	"fmt"
	"unsafe"
)

// ChannelRole identifies the physical or logical position of one channel
// in a Buffer's interleaved layout.
type ChannelRole int

const (
	ChannelUnknown ChannelRole = iota
	ChannelFrontLeft
	ChannelFrontRight
	ChannelCenter
	ChannelLFE
	ChannelSurroundLeft
	ChannelSurroundRight
)

// ChannelLayout describes the channel count and, optionally, the role of
// each channel within a Buffer.
type ChannelLayout struct {
	Count int
	Roles []ChannelRole // len(Roles) == Count, or nil if unspecified
}

// MonoLayout returns a single front-left channel layout.
func MonoLayout() ChannelLayout {
	return ChannelLayout{Count: 1, Roles: []ChannelRole{ChannelFrontLeft}}
}

// StereoLayout returns a standard left/right channel layout.
func StereoLayout() ChannelLayout {
	return ChannelLayout{Count: 2, Roles: []ChannelRole{ChannelFrontLeft, ChannelFrontRight}}
}

// Buffer is a view over interleaved, multi-channel floating point audio.
//
// A Buffer does not own its backing storage unless it was created with
// NewOwnedBuffer: Slice and SliceEdges always alias the original data.
// samples[-Leading*Stride ... (Frames+Trailing)*Stride) is readable;
// only samples[0, Frames*Stride) is the "body" a stage is expected to
// transform.
type Buffer struct {
	data       []float32 // backing storage; frame 0 starts at index base
	base       int       // index into data of frame 0, channel 0
	owned      bool      // true if Resize may reallocate data
	Frames     int
	Leading    int
	Trailing   int
	Stride     int // elements between consecutive frames, >= Layout.Count
	Layout     ChannelLayout
	SampleRate int
}

// NewBuffer wraps an existing interleaved sample slice as a Buffer view.
// data must be large enough to hold (leading+frames+trailing)*stride
// elements, with frame 0 beginning at data[leading*stride].
func NewBuffer(data []float32, leading, frames, trailing, stride int, layout ChannelLayout, sampleRate int) (Buffer, error) {
	if leading < 0 || frames < 0 || trailing < 0 {
		return Buffer{}, fmt.Errorf("%w: negative extent", ErrInvalidArgument)
	}
	if stride < layout.Count {
		return Buffer{}, fmt.Errorf("%w: stride %d smaller than channel count %d", ErrInvalidArgument, stride, layout.Count)
	}
	need := (leading + frames + trailing) * stride
	if len(data) < need {
		return Buffer{}, fmt.Errorf("%w: data has %d elements, need %d", ErrInvalidArgument, len(data), need)
	}
	return Buffer{
		data:       data,
		base:       leading * stride,
		Frames:     frames,
		Leading:    leading,
		Trailing:   trailing,
		Stride:     stride,
		Layout:     layout,
		SampleRate: sampleRate,
	}, nil
}

// NewOwnedBuffer allocates a zeroed Buffer with its own backing storage,
// one element of stride per channel.
func NewOwnedBuffer(frames, leading, trailing int, layout ChannelLayout, sampleRate int) (*Buffer, error) {
	if leading < 0 || frames < 0 || trailing < 0 {
		return nil, fmt.Errorf("%w: negative extent", ErrInvalidArgument)
	}
	stride := layout.Count
	data := make([]float32, (leading+frames+trailing)*stride)
	b, err := NewBuffer(data, leading, frames, trailing, stride, layout, sampleRate)
	if err != nil {
		return nil, err
	}
	b.owned = true
	return &b, nil
}

// frameIndex returns the data index of (frame, channel 0), without bounds
// checking against Leading/Trailing.
func (b *Buffer) frameIndex(frame int) int {
	return b.base + frame*b.Stride
}

// Frame returns the interleaved channel slice for a single frame. frame
// may range over [-Leading, Frames+Trailing).
func (b *Buffer) Frame(frame int) []float32 {
	i := b.frameIndex(frame)
	return b.data[i : i+b.Layout.Count]
}

// Body returns the interleaved samples for all body frames ([0, Frames)),
// as a single contiguous slice when Stride == Layout.Count.
func (b *Buffer) Body() []float32 {
	return b.data[b.base : b.base+b.Frames*b.Stride]
}

// Window returns the interleaved samples for every frame the receiver
// can see, body and edge context alike ([-Leading, Frames+Trailing)),
// as a single contiguous slice starting at frame -Leading. Kernel-based
// plugins use this as the flat source window for convolution.
func (b *Buffer) Window() []float32 {
	lo := b.base - b.Leading*b.Stride
	hi := b.base + (b.Frames+b.Trailing)*b.Stride
	return b.data[lo:hi]
}

// At returns one sample. frame may range over [-Leading, Frames+Trailing).
func (b *Buffer) At(frame, channel int) float32 {
	return b.data[b.frameIndex(frame)+channel]
}

// Set writes one sample.
func (b *Buffer) Set(frame, channel int, v float32) {
	b.data[b.frameIndex(frame)+channel] = v
}

// LengthMs returns the body length in milliseconds at the Buffer's
// configured sample rate.
func (b *Buffer) LengthMs() float64 {
	if b.SampleRate <= 0 {
		return 0
	}
	return float64(b.Frames) * 1000 / float64(b.SampleRate)
}

// Slice returns a view over body frames [start, end), with no edge
// context. It aliases the receiver's backing storage.
func (b *Buffer) Slice(start, end int) (Buffer, error) {
	return b.SliceEdges(start, end, 0, 0)
}

// SliceEdges returns a view over body frames [start, end) that also
// exposes up to `leading`/`trailing` frames of context on either side,
// clamped to what the receiver actually has available. Requesting more
// context than is available is not an error; the returned Buffer simply
// reports the clamped amount.
func (b *Buffer) SliceEdges(start, end, leading, trailing int) (Buffer, error) {
	if start < 0 || end > b.Frames || start > end {
		return Buffer{}, fmt.Errorf("%w: slice [%d:%d) out of bounds for %d frames", ErrInvalidArgument, start, end, b.Frames)
	}
	if leading < 0 || trailing < 0 {
		return Buffer{}, fmt.Errorf("%w: negative edge extent", ErrInvalidArgument)
	}
	availLeading := start + b.Leading
	if leading > availLeading {
		leading = availLeading
	}
	availTrailing := (b.Frames - end) + b.Trailing
	if trailing > availTrailing {
		trailing = availTrailing
	}
	return Buffer{
		data:       b.data,
		base:       b.frameIndex(start),
		owned:      false,
		Frames:     end - start,
		Leading:    leading,
		Trailing:   trailing,
		Stride:     b.Stride,
		Layout:     b.Layout,
		SampleRate: b.SampleRate,
	}, nil
}

// Resize grows or shrinks an owned Buffer in place. Indices in
// [-min(oldLeading, newLeading), min(oldFrames, newFrames) +
// min(oldTrailing, newTrailing)) keep their samples; every other index
// reads zero afterwards, including old trailing frames that a grown body
// now covers. It is an error to call Resize on a Buffer not created by
// NewOwnedBuffer.
func (b *Buffer) Resize(newFrames, newLeading, newTrailing int) error {
	if !b.owned {
		return fmt.Errorf("%w: Resize requires an owned buffer", ErrInvalidArgument)
	}
	if newFrames < 0 || newLeading < 0 || newTrailing < 0 {
		return fmt.Errorf("%w: negative extent", ErrInvalidArgument)
	}
	stride := b.Stride
	newData := make([]float32, (newLeading+newFrames+newTrailing)*stride)
	newBase := newLeading * stride

	lowOld := -b.Leading
	lowNew := -newLeading
	low := lowOld
	if lowNew > low {
		low = lowNew
	}
	high := min(b.Frames, newFrames) + min(b.Trailing, newTrailing)
	for i := low; i < high; i++ {
		srcOff := b.frameIndex(i)
		dstOff := newBase + i*stride
		copy(newData[dstOff:dstOff+stride], b.data[srcOff:srcOff+stride])
	}

	b.data = newData
	b.base = newBase
	b.Frames = newFrames
	b.Leading = newLeading
	b.Trailing = newTrailing
	return nil
}

// sameBacking reports whether two Buffers' body regions occupy the same
// backing storage (aliased or identical), per the Plugin ABI's "dst and
// src may alias" contract.
func sameBacking(a, b *Buffer) bool {
	if len(a.data) == 0 || len(b.data) == 0 {
		return false
	}
	return unsafe.SliceData(a.data) == unsafe.SliceData(b.data) && a.base == b.base
}
