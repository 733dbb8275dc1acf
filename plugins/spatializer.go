package plugins

import (
	"github.com/nullframe/dsp"
	"github.com/nullframe/dsp/internal/follower"
	"github.com/nullframe/dsp/internal/world"
)

const spatializerDefaultEarDistance = 0.085 // half the average human head width, meters

// SpatializeChannelConfig gives one active source channel a target
// position (and base amplitude) in world space.
type SpatializeChannelConfig struct {
	Position  world.Vec3
	Amplitude float32
}

// SpatializeConfig configures a Spatializer.
type SpatializeConfig struct {
	// World is the listener's reference frame. The zero value is treated
	// as world.Default().
	World world.World

	// DoDoppler applies a per-source delay proportional to distance, so
	// a moving source pitch-bends instead of just changing volume.
	DoDoppler bool
	// DoFilter applies a per-source low-pass filter whose cutoff drops
	// with distance, mimicking air absorbing high frequencies.
	DoFilter bool

	// NumSrcChannelsActive is how many leading channels of src are
	// independent point sources to be spatialized; each channel beyond
	// this is added unspatialized to the dst channel with the same index,
	// where dst has one.
	NumSrcChannelsActive int

	// TargetFollowTimeMs is how long a position/amplitude change takes
	// to fully ramp in.
	TargetFollowTimeMs float32
	// DelayMaxMs bounds the doppler delay line. Zero picks a default
	// generous enough for room-scale distances.
	DelayMaxMs float32
	// EarDistance is the distance of each output channel's virtual ear
	// from the listener's origin, in the same units as World. Zero
	// defaults to spatializerDefaultEarDistance. Process pans every source
	// from the origin itself and does not use this distance.
	EarDistance float32

	Channels []SpatializeChannelConfig
}

type spatializeSourceData struct {
	position  follower.Linear3
	amplitude follower.Linear
	filter    *Filter
	delay     *DelayDynamic
}

// Spatializer turns up to NumSrcChannelsActive mono source channels into
// a directional mix across dst's output channels, based on their
// position in a shared World: amplitude falls off with distance, a
// cosine pan law spreads each source across the ears facing it, and
// optional per-source doppler delay / distance low-pass filtering can be
// enabled. It reports a LatencySpec equal to its busiest source's
// DelayDynamic, since that's the only internal stage with nonzero
// latency.
//
// Grounded on azaSpatialize.h (no azaSpatialize.c was present in the
// retrieved sources; per-source delay+filter pipelines driven by
// followers is this header's documented channelData shape, generalized
// here to treat channelData as per-SOURCE rather than per-ear state,
// since only a source has a single position/delay/filter pipeline in
// a typical spatializer architecture — panning across ears is a
// separate, stateless step applied after that pipeline).
type Spatializer struct {
	hdr    dsp.Header
	Config SpatializeConfig

	MetersInput  Meters
	MetersOutput Meters

	sources []spatializeSourceData
}

// NewSpatializer returns a Spatializer with the given configuration.
func NewSpatializer(cfg SpatializeConfig) *Spatializer {
	return &Spatializer{hdr: dsp.Header{Name: "Spatialize"}, Config: cfg}
}

// Header returns the plugin's common header.
func (s *Spatializer) Header() *dsp.Header { return &s.hdr }

func (s *Spatializer) world() world.World {
	w := s.Config.World
	if w.SpeedOfSound <= 0 {
		w = world.Default()
	}
	return w
}

func (s *Spatializer) earDistance() float32 {
	if s.Config.EarDistance != 0 {
		return s.Config.EarDistance
	}
	return spatializerDefaultEarDistance
}

// GetSpecs reports the worst-case latency across every source's doppler
// delay line.
func (s *Spatializer) GetSpecs(sampleRate int) dsp.LatencySpec {
	var spec dsp.LatencySpec
	for i := range s.sources {
		if s.sources[i].delay != nil {
			spec = dsp.ParallelCombine(spec, s.sources[i].delay.GetSpecs(sampleRate))
		}
	}
	return spec
}

func (s *Spatializer) ensureSources(n, sampleRate int) {
	delayMax := s.Config.DelayMaxMs
	if delayMax == 0 {
		delayMax = 50
	}
	for len(s.sources) < n {
		s.sources = append(s.sources, spatializeSourceData{
			filter: NewFilter(FilterConfig{Kind: FilterLowPass, FrequencyFollowTimeMs: 20, Frequency: 20000}),
			delay:  NewDelayDynamic(DelayDynamicConfig{DelayMaxMs: delayMax, DelayFollowTimeMs: s.Config.TargetFollowTimeMs, GainWetDB: 0, MuteDry: true}),
		})
	}
}

func (s *Spatializer) reset() {
	s.MetersInput.Reset()
	s.MetersOutput.Reset()
}

// ResetChannels resets meter state for the given channel range;
// per-source state is kept.
func (s *Spatializer) ResetChannels(firstNew, added int) {
	s.MetersInput.ResetChannels(firstNew, added)
	s.MetersOutput.ResetChannels(firstNew, added)
}

func earDirection(role dsp.ChannelRole) world.Vec3 {
	switch role {
	case dsp.ChannelFrontLeft:
		return world.Vec3{X: -0.707, Z: -0.707}
	case dsp.ChannelFrontRight:
		return world.Vec3{X: 0.707, Z: -0.707}
	case dsp.ChannelCenter:
		return world.Vec3{Z: -1}
	case dsp.ChannelLFE:
		return world.Vec3{}
	case dsp.ChannelSurroundLeft:
		return world.Vec3{X: -0.707, Z: 0.707}
	case dsp.ChannelSurroundRight:
		return world.Vec3{X: 0.707, Z: 0.707}
	default:
		return world.Vec3{Z: -1}
	}
}

func dot(a, b world.Vec3) float32 {
	return a.X*b.X + a.Y*b.Y + a.Z*b.Z
}

// Process spatializes each active source channel independently, then
// pans and sums the results across every output channel.
func (s *Spatializer) Process(dst, src *dsp.Buffer, flags dsp.Flags) error {
	if flags&dsp.Cut != 0 {
		s.reset()
	}
	channels := dst.Layout.Count
	if channels > s.hdr.PrevDstChannels {
		s.ResetChannels(s.hdr.PrevDstChannels, channels-s.hdr.PrevDstChannels)
	}
	s.hdr.PrevDstChannels = channels

	if s.hdr.Selected != 0 {
		s.MetersInput.Update(src, 1, s.hdr.Selected)
	}

	numSources := s.Config.NumSrcChannelsActive
	if numSources > src.Layout.Count {
		numSources = src.Layout.Count
	}
	s.ensureSources(numSources, dst.SampleRate)

	w := s.world()
	followFrames := msToSamples(s.Config.TargetFollowTimeMs, dst.SampleRate)
	if followFrames < 1 {
		followFrames = 1
	}
	deltaT := float32(1) / float32(followFrames)

	for i := 0; i < dst.Frames; i++ {
		for c := 0; c < channels; c++ {
			dst.Set(i, c, 0)
		}
	}

	monoSrc, err := dsp.NewOwnedBuffer(src.Frames, 0, 0, dsp.MonoLayout(), src.SampleRate)
	if err != nil {
		return err
	}
	monoDst, err := dsp.NewOwnedBuffer(src.Frames, 0, 0, dsp.MonoLayout(), src.SampleRate)
	if err != nil {
		return err
	}

	for srcCh := 0; srcCh < numSources; srcCh++ {
		sdata := &s.sources[srcCh]
		target := world.Vec3{}
		ampTarget := float32(1)
		if srcCh < len(s.Config.Channels) {
			target = s.Config.Channels[srcCh].Position
			ampTarget = s.Config.Channels[srcCh].Amplitude
		}
		sdata.position.SetTarget(target)

		for i := 0; i < src.Frames; i++ {
			monoSrc.Set(i, 0, src.At(i, srcCh))
		}

		if s.Config.DoDoppler {
			distance := world.Length(world.Sub(sdata.position.Value(), w.Origin))
			sdata.delay.Config.DelayMs = w.PropagationDelay(distance) * 1000
			if err := sdata.delay.Process(monoDst, monoSrc, flags); err != nil {
				return err
			}
			monoSrc, monoDst = monoDst, monoSrc
		}
		if s.Config.DoFilter {
			distance := world.Length(world.Sub(sdata.position.Value(), w.Origin))
			sdata.filter.Config.Frequency = clampf(20000-distance*400, 200, 20000)
			if err := sdata.filter.Process(monoDst, monoSrc, flags); err != nil {
				return err
			}
			monoSrc, monoDst = monoDst, monoSrc
		}

		for i := 0; i < dst.Frames && i < monoSrc.Frames; i++ {
			pos := sdata.position.Update(deltaT)
			amp := sdata.amplitude.UpdateTarget(ampTarget, deltaT)
			distance := world.Length(world.Sub(pos, w.Origin))
			falloff := 1 / maxf(distance, 0.1)
			dir := world.Sub(pos, w.Origin)
			dirLen := maxf(world.Length(dir), 0.0001)
			dirNorm := world.Vec3{X: dir.X / dirLen, Y: dir.Y / dirLen, Z: dir.Z / dirLen}

			sample := monoSrc.At(i, 0)
			for c := 0; c < channels; c++ {
				var role dsp.ChannelRole
				if dst.Layout.Roles != nil && c < len(dst.Layout.Roles) {
					role = dst.Layout.Roles[c]
				}
				earDir := earDirection(role)
				pan := 0.5 + 0.5*dot(dirNorm, earDir)
				dst.Set(i, c, dst.At(i, c)+sample*amp*falloff*pan)
			}
		}
	}

	for c := numSources; c < channels && c < src.Layout.Count; c++ {
		for i := 0; i < dst.Frames; i++ {
			dst.Set(i, c, dst.At(i, c)+src.At(i, c))
		}
	}

	if s.hdr.Selected != 0 {
		s.MetersOutput.Update(dst, 1, s.hdr.Selected)
	}
	return nil
}
