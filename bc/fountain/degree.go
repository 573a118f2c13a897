package fountain

import "github.com/blockchaincommons/ur/bc/xoshiro256"

// degreeChooser draws fragment degrees from the harmonic distribution
// 1/1, 1/2, ..., 1/seqLen, caching the alias sampler for each seqLen it
// has seen so far. A chooser is owned by a single Encoder or Decoder
// instance; it is never shared across messages.
type degreeChooser struct {
	samplers map[int]*aliasSampler
}

func newDegreeChooser() *degreeChooser {
	return &degreeChooser{samplers: make(map[int]*aliasSampler)}
}

// choose draws a degree in [1, seqLen] using rng.
func (dc *degreeChooser) choose(seqLen int, rng *xoshiro256.Source) int {
	if seqLen <= 1 {
		return seqLen
	}
	s := dc.sampler(seqLen)
	r1 := rng.Float64()
	r2 := rng.Float64()
	return s.next(r1, r2) + 1
}

func (dc *degreeChooser) sampler(seqLen int) *aliasSampler {
	if s, ok := dc.samplers[seqLen]; ok {
		return s
	}
	weights := make([]float64, seqLen)
	for i := range weights {
		weights[i] = 1 / float64(i+1)
	}
	s := newAliasSampler(weights)
	dc.samplers[seqLen] = s
	return s
}

// reset discards all cached samplers. A Decoder calls this once its
// message has been fully reassembled; a solved Decoder does not accept
// parts of another message.
func (dc *degreeChooser) reset() {
	dc.samplers = make(map[int]*aliasSampler)
}
