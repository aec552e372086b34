package risk

import "math/rand"

// jitterBound is the maximum absolute calibration offset.
const jitterBound = 0.05

// SeededJitter is a deterministic Jitter implementation for calibration
// experiments. It is never enabled by default: jitter is a presentation
// concern, and letting it move scores across classification bands would make
// verdicts non-reproducible.
type SeededJitter struct {
	rng *rand.Rand
}

// NewSeededJitter creates a jitter source from a fixed seed.
func NewSeededJitter(seed int64) *SeededJitter {
	return &SeededJitter{rng: rand.New(rand.NewSource(seed))}
}

// Offset returns a value in [-0.05, 0.05].
func (j *SeededJitter) Offset() float64 {
	return (j.rng.Float64()*2 - 1) * jitterBound
}
