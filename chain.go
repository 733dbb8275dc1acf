package dsp

import (
	"fmt"

	"github.com/nullframe/dsp/internal/sidebuffer"
)

const uninitializedOffset = -1

// step is one ordered entry in a Chain.
type step struct {
	plugin Plugin

	bufferOffset int // element offset into Chain.ring; uninitializedOffset before first use
	leading      int // frames; cached from the last GetSpecs query
	trailing     int // frames
	channels     int // channel count the region was sized for

	spec LatencySpec
}

func (s *step) regionLen() int {
	return (s.leading + s.trailing) * s.channels
}

// PluginErrorHandler is notified when a stage is skipped due to a
// persistent error (either newly set this block, or carried over from a
// previous one).
type PluginErrorHandler func(index int, plugin Plugin, err error)

// Chain is an ordered, serially-connected list of Plugin stages. It
// tracks each stage's LatencySpec, carries forward edge context between
// blocks, and presents every stage with a Buffer slice whose
// Leading/Trailing exactly satisfy that stage's declared spec.
//
// Chain mutation (Append/Insert/Remove) must not happen concurrently
// with Process; callers are responsible for synchronizing externally.
type Chain struct {
	steps []*step

	ring       []float32 // pooled scratch storage, partitioned by step.bufferOffset
	channels   int        // channel count the ring was last sized for
	sampleRate int

	pool sidebuffer.Pool
}

// NewChain returns an empty Chain.
func NewChain() *Chain {
	return &Chain{}
}

// Append adds a plugin as the last stage of the chain.
func (c *Chain) Append(p Plugin) {
	c.steps = append(c.steps, &step{plugin: p, bufferOffset: uninitializedOffset})
}

// Insert adds a plugin at the given stage index.
func (c *Chain) Insert(index int, p Plugin) error {
	if index < 0 || index > len(c.steps) {
		return fmt.Errorf("%w: insert index %d out of range", ErrInvalidArgument, index)
	}
	st := &step{plugin: p, bufferOffset: uninitializedOffset}
	c.steps = append(c.steps, nil)
	copy(c.steps[index+1:], c.steps[index:])
	c.steps[index] = st
	return nil
}

// Remove drops the stage at index, closing the plugin first if the
// chain owns it (Header.Owned) and it implements Closer.
func (c *Chain) Remove(index int) error {
	if index < 0 || index >= len(c.steps) {
		return fmt.Errorf("%w: remove index %d out of range", ErrInvalidArgument, index)
	}
	st := c.steps[index]
	if st.plugin.Header().Owned {
		if closer, ok := st.plugin.(Closer); ok {
			_ = closer.Close()
		}
	}
	c.steps = append(c.steps[:index], c.steps[index+1:]...)
	return nil
}

// Len reports the number of stages in the chain.
func (c *Chain) Len() int { return len(c.steps) }

// Stage returns the plugin at index, for inspection (e.g. draw, error
// clearing). It does not copy; mutating the returned Header affects the
// live chain.
func (c *Chain) Stage(index int) Plugin { return c.steps[index].plugin }

// GetSpecs returns the combined LatencySpec for the whole chain at the
// given sample rate, per spec.md's serial-combination formula:
// latency = Σ(stage.latency + stage.trailing) - last.trailing; leading
// and trailing are the max across all stages.
//
// This is computed directly rather than by folding SerialCombine stage
// by stage: SerialCombine's TrailingFrames result is already a running
// max across every stage seen so far, so feeding it back in as the next
// fold's "upstream" argument would subtract that max instead of the
// immediately preceding stage's own trailing requirement, overcounting
// latency for chains of three or more stages.
func (c *Chain) GetSpecs(sampleRate int) LatencySpec {
	if len(c.steps) == 0 {
		return LatencySpec{}
	}

	var sum, maxLeading, maxTrailing int
	var last LatencySpec
	for _, st := range c.steps {
		s := stageSpec(st.plugin, sampleRate)
		sum += s.LatencyFrames + s.TrailingFrames
		maxLeading = max(maxLeading, s.LeadingFrames)
		maxTrailing = max(maxTrailing, s.TrailingFrames)
		last = s
	}

	return LatencySpec{
		LatencyFrames:  sum - last.TrailingFrames,
		LeadingFrames:  maxLeading,
		TrailingFrames: maxTrailing,
	}
}

func stageSpec(p Plugin, sampleRate int) LatencySpec {
	if sp, ok := p.(SpecProvider); ok {
		return sp.GetSpecs(sampleRate)
	}
	return LatencySpec{}
}

// update recomputes every stage's current LatencySpec, grows the shared
// ring if needed, and zeroes any step's persisted edge region whose
// (offset, leading, trailing) changed since the last call. Called
// automatically from Process.
func (c *Chain) update(channels, sampleRate int) error {
	total := 0
	type want struct {
		leading, trailing int
	}
	wants := make([]want, len(c.steps))
	for i, st := range c.steps {
		spec := stageSpec(st.plugin, sampleRate)
		st.spec = spec
		wants[i] = want{spec.LeadingFrames, spec.TrailingFrames}
		total += (spec.LeadingFrames + spec.TrailingFrames) * channels
	}

	if total > len(c.ring) || channels != c.channels {
		newRing := make([]float32, total)
		c.ring = newRing
		c.channels = channels
		for _, st := range c.steps {
			st.bufferOffset = uninitializedOffset
		}
	}

	offset := 0
	for i, st := range c.steps {
		w := wants[i]
		changed := st.bufferOffset == uninitializedOffset || st.bufferOffset != offset ||
			st.leading != w.leading || st.trailing != w.trailing || st.channels != channels
		st.leading = w.leading
		st.trailing = w.trailing
		st.channels = channels
		st.bufferOffset = offset
		if changed {
			region := c.ring[offset : offset+st.regionLen()]
			for i := range region {
				region[i] = 0
			}
		}
		offset += st.regionLen()
	}
	c.sampleRate = sampleRate
	return nil
}

func (c *Chain) history(st *step) []float32 {
	return c.ring[st.bufferOffset : st.bufferOffset+st.regionLen()]
}

// Process runs every non-bypassed, error-free stage in order over src,
// producing dst. dst and src may alias. onPluginError, if non-nil, is
// invoked for every stage skipped due to a persistent error.
func (c *Chain) Process(dst, src *Buffer, flags Flags, onPluginError PluginErrorHandler) error {
	if src.Layout.Count != dst.Layout.Count {
		return fmt.Errorf("%w: dst has %d channels, src has %d", ErrInvalidChannelCount, dst.Layout.Count, src.Layout.Count)
	}
	if src.Frames != dst.Frames {
		return fmt.Errorf("%w: dst has %d frames, src has %d", ErrInvalidFrameCount, dst.Frames, src.Frames)
	}
	if err := c.update(src.Layout.Count, src.SampleRate); err != nil {
		return err
	}

	if !sameBacking(dst, src) {
		copy(dst.data[dst.base:dst.base+dst.Frames*dst.Stride], src.data[src.base:src.base+src.Frames*src.Stride])
	}

	cur := src
	for i, st := range c.steps {
		h := st.plugin.Header()
		if h.Bypass {
			continue
		}
		if h.Errored() {
			if onPluginError != nil {
				onPluginError(i, st.plugin, h.Err)
			}
			continue
		}
		if err := c.processStep(st, dst, cur, flags); err != nil {
			h.SetError(err)
			if onPluginError != nil {
				onPluginError(i, st.plugin, err)
			}
			continue
		}
		cur = dst
	}
	return nil
}

// processStep assembles the delayed, edge-context-bearing view a stage
// requires, invokes it, and rolls the stage's persisted history ring
// forward.
//
// The view is built by concatenating the stage's persisted history (its
// last leading+trailing frames as of the previous call) with the new
// body arriving this call, into one scratch buffer of
// (leading+trailing+N) frames. Slicing that scratch as
// [0:leading) / [leading:leading+N) / [leading+N:leading+N+trailing)
// yields exactly the buffer view spec.md describes: the body the stage
// actually transforms is "trailing" frames behind the freshest arrivals,
// which is how a positive TrailingFrames requirement becomes additional
// chain latency (see SerialCombine). After the call, the newest
// leading+trailing frames of the scratch become the new persisted
// history.
func (c *Chain) processStep(st *step, dst, src *Buffer, flags Flags) error {
	channels := src.Layout.Count
	n := src.Frames
	l, t := st.leading, st.trailing

	if flags&Cut != 0 {
		clearRegion(c.history(st))
	}

	if l == 0 && t == 0 {
		view, err := src.Slice(0, n)
		if err != nil {
			return err
		}
		return c.dispatch(st, dst, &view, flags, channels)
	}

	total := (l + t + n) * channels
	scratch, tag := c.pool.Push(total)
	defer func() { _ = c.pool.Pop(tag) }()

	hist := c.history(st)
	copy(scratch[:l*channels+t*channels], hist)
	copy(scratch[(l+t)*channels:], src.Body())

	view, err := NewBuffer(scratch, l, n, t, channels, src.Layout, src.SampleRate)
	if err != nil {
		return err
	}
	if err := c.dispatch(st, dst, &view, flags, channels); err != nil {
		return err
	}

	copy(hist, scratch[n*channels:])
	return nil
}

func (c *Chain) dispatch(st *step, dst, view *Buffer, flags Flags, channels int) error {
	h := st.plugin.Header()
	if channels > h.PrevDstChannels {
		if rc, ok := st.plugin.(ChannelResetter); ok && h.PrevDstChannels > 0 {
			rc.ResetChannels(h.PrevDstChannels, channels-h.PrevDstChannels)
		}
	}
	h.PrevDstChannels = channels
	h.PrevSrcChannels = channels

	dstView, err := dst.Slice(0, dst.Frames)
	if err != nil {
		return err
	}
	if view.Leading < st.leading || view.Trailing < st.trailing {
		return fmt.Errorf("%w: stage wants (%d,%d), got (%d,%d)", ErrInvalidFrameCount, st.leading, st.trailing, view.Leading, view.Trailing)
	}
	return st.plugin.Process(&dstView, view, flags)
}

func clearRegion(r []float32) {
	for i := range r {
		r[i] = 0
	}
}
