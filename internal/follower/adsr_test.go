package follower

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestADSRAttackRampsFromZeroToOne(t *testing.T) {
	cfg := &ADSRConfig{AttackMs: 10, DecayMs: 10, SustainDB: -6, ReleaseMs: 10}
	var env ADSR
	env.Start()
	assert.Equal(t, ADSRAttack, env.Stage)
	assert.Equal(t, float32(0), env.Value(cfg))

	env.Update(cfg, 5)
	mid := env.Value(cfg)
	assert.Greater(t, mid, float32(0))
	assert.Less(t, mid, float32(1))
}

func TestADSRAdvancesThroughEveryStage(t *testing.T) {
	cfg := &ADSRConfig{AttackMs: 10, DecayMs: 10, SustainDB: -6, ReleaseMs: 10}
	var env ADSR
	env.Start()

	env.Update(cfg, 10) // exhausts attack
	assert.Equal(t, ADSRDecay, env.Stage)

	env.Update(cfg, 10) // exhausts decay
	assert.Equal(t, ADSRSustain, env.Stage)

	// Sustain holds indefinitely until Stop.
	for i := 0; i < 5; i++ {
		env.Update(cfg, 100)
		assert.Equal(t, ADSRSustain, env.Stage)
	}

	env.Stop(cfg)
	assert.Equal(t, ADSRRelease, env.Stage)
	env.Update(cfg, 10) // exhausts release
	assert.Equal(t, ADSRStop, env.Stage)
	assert.Equal(t, float32(0), env.Value(cfg))
}

func TestADSRStopCapturesCurrentAmplitudeNotSustainLevel(t *testing.T) {
	cfg := &ADSRConfig{AttackMs: 100, DecayMs: 100, SustainDB: -20, ReleaseMs: 50}
	var env ADSR
	env.Start()

	// Stop mid-attack, well before sustain is ever reached.
	env.Update(cfg, 40)
	preStopAmp := env.Value(cfg)
	env.Stop(cfg)

	assert.Equal(t, preStopAmp, env.ReleaseStartAmp, "release must ramp down from wherever the envelope actually was, not from the sustain level")
	assert.Equal(t, preStopAmp, env.Value(cfg), "release progress is 0 immediately after Stop, so value should equal the captured start amplitude")
}

func TestADSRUpdateCarriesOvershootAcrossStageBoundaries(t *testing.T) {
	cfg := &ADSRConfig{AttackMs: 10, DecayMs: 10, SustainDB: -6, ReleaseMs: 10}
	var env ADSR
	env.Start()

	// A single large update should cross both attack and decay in one call.
	env.Update(cfg, 25)
	assert.Equal(t, ADSRSustain, env.Stage)
}
