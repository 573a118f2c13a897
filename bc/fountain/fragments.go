package fountain

import (
	"encoding/binary"

	"github.com/blockchaincommons/ur/bc/xoshiro256"
)

// chooseFragments returns the set of fragment indexes (0-based) mixed
// into the part with the given seqNum, for a message split into seqLen
// fragments with the given message checksum.
//
// The first seqLen parts (seqNum in [1, seqLen]) are "pure": they carry a
// single fragment, in order, so that a message can always be reassembled
// from its first seqLen parts with no fountain decoding at all. Parts
// beyond seqLen draw a pseudo-random degree and then a pseudo-random
// subset of that size, using a generator seeded deterministically from
// seqNum and checksum, so that any two parties computing the same seqNum
// for the same seqLen agree on the same fragment set.
func chooseFragments(seqNum uint32, seqLen int, checksum uint32, dc *degreeChooser) []int {
	if int(seqNum) <= seqLen {
		return []int{int(seqNum) - 1}
	}

	var seed [8]byte
	binary.BigEndian.PutUint32(seed[0:4], seqNum)
	binary.BigEndian.PutUint32(seed[4:8], checksum)
	rng := xoshiro256.New(seed[:])

	degree := dc.choose(seqLen, rng)
	if degree == seqLen {
		indexes := make([]int, seqLen)
		for i := range indexes {
			indexes[i] = i
		}
		return indexes
	}

	// Draw degree indexes without replacement from [0, seqLen), in the
	// same order an unbounded Fisher-Yates-style shuffle of all seqLen
	// indexes would produce them: each draw removes its pick from the
	// remaining candidates while preserving the relative order of what
	// is left, since only the first degree picks of the full shuffle
	// are ever used.
	remaining := make([]int, seqLen)
	for i := range remaining {
		remaining[i] = i
	}
	indexes := make([]int, 0, degree)
	for i := 0; i < degree; i++ {
		j := rng.Intn(len(remaining))
		indexes = append(indexes, remaining[j])
		remaining = append(remaining[:j], remaining[j+1:]...)
	}
	return indexes
}

// SeqNumFor returns the smallest seqNum greater than seqLen that would
// produce exactly the given (sorted, deduplicated) fragment set for a
// message of seqLen fragments and the given checksum. It exists mainly
// as a test helper for exercising chooseFragments against known
// fragment sets; callers that only need to generate parts should use
// Encoder or EncodePart instead.
func SeqNumFor(seqLen int, checksum uint32, fragments []int) int {
	dc := newDegreeChooser()
	for seqNum := uint32(seqLen + 1); ; seqNum++ {
		got := chooseFragments(seqNum, seqLen, checksum, dc)
		if sameFragmentSet(got, fragments) {
			return int(seqNum)
		}
		if seqNum > uint32(seqLen)*10000 {
			return -1
		}
	}
}

func sameFragmentSet(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	seen := make(map[int]bool, len(a))
	for _, v := range a {
		seen[v] = true
	}
	for _, v := range b {
		if !seen[v] {
			return false
		}
	}
	return true
}
