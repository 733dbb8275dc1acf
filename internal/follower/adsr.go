package follower

import "math"

// ADSRStage is one phase of an ADSR envelope's life cycle.
type ADSRStage int

const (
	ADSRStop ADSRStage = iota
	ADSRAttack
	ADSRDecay
	ADSRSustain
	ADSRRelease
)

// ADSRConfig holds an envelope's timing and level parameters. Attack,
// Decay and Release are durations in milliseconds; Sustain is a level in
// dB relative to full scale (0 is full volume).
type ADSRConfig struct {
	AttackMs  float32
	DecayMs   float32
	SustainDB float32
	ReleaseMs float32
}

// ADSR is one envelope's live state: its stage, its progress through that
// stage in [0,1], and the amplitude release started from (an early
// release does not necessarily start at the sustain level).
type ADSR struct {
	Stage           ADSRStage
	Progress        float32
	ReleaseStartAmp float32
}

// Start begins a new attack from silence.
func (a *ADSR) Start() {
	a.Stage = ADSRAttack
	a.Progress = 0
	a.ReleaseStartAmp = 0
}

// Stop transitions into release from wherever the envelope currently is,
// capturing its current amplitude as the level release ramps down from
// (an early release does not necessarily start at the sustain level).
func (a *ADSR) Stop(cfg *ADSRConfig) {
	a.ReleaseStartAmp = a.Value(cfg)
	a.Stage = ADSRRelease
	a.Progress = 0
}

func dbToAmp(db float32) float32 {
	return float32(math.Pow(10, float64(db)/20))
}

// Value returns the envelope's current amplitude without advancing it.
func (a *ADSR) Value(cfg *ADSRConfig) float32 {
	switch a.Stage {
	case ADSRStop:
		return 0
	case ADSRAttack:
		return lerp(0, 1, a.Progress)
	case ADSRDecay:
		return lerp(1, dbToAmp(cfg.SustainDB), a.Progress)
	case ADSRSustain:
		return dbToAmp(cfg.SustainDB)
	case ADSRRelease:
		return lerp(a.ReleaseStartAmp, 0, a.Progress)
	default:
		return 0
	}
}

func lerp(a, b, t float32) float32 { return a + (b-a)*t }

// Update returns the envelope's amplitude before advancing it by deltaMs
// and, if that advance crosses the current stage's duration, transitions
// to the next stage (Attack -> Decay -> Sustain; Release -> Stop).
// Sustain has no duration and holds until Stop is called.
func (a *ADSR) Update(cfg *ADSRConfig, deltaMs float32) float32 {
	result := a.Value(cfg)

	duration := a.stageDuration(cfg)
	if duration <= 0 {
		a.advanceStage()
		return result
	}

	a.Progress += deltaMs / duration
	for a.Progress >= 1 {
		overshoot := a.Progress - 1
		a.advanceStage()
		a.Progress = overshoot
		if a.stageDuration(cfg) <= 0 {
			break
		}
	}
	return result
}

func (a *ADSR) stageDuration(cfg *ADSRConfig) float32 {
	switch a.Stage {
	case ADSRAttack:
		return cfg.AttackMs
	case ADSRDecay:
		return cfg.DecayMs
	case ADSRRelease:
		return cfg.ReleaseMs
	default:
		return 0
	}
}

func (a *ADSR) advanceStage() {
	switch a.Stage {
	case ADSRAttack:
		a.Stage = ADSRDecay
		a.Progress = 0
	case ADSRDecay:
		a.Stage = ADSRSustain
		a.Progress = 0
	case ADSRSustain:
		// held externally until Stop
	case ADSRRelease:
		a.Stage = ADSRStop
		a.Progress = 0
	}
}
