package fountain

import (
	"sort"
	"strconv"
	"strings"
)

// mixedFragment is a part whose mix has not yet been fully reduced to a
// single fragment: indexes holds the fragment indexes still unaccounted
// for, and data holds their running XOR.
type mixedFragment struct {
	indexes map[int]bool
	data    []byte
}

// Decoder reassembles a message from an unordered, possibly lossy,
// possibly duplicated stream of Parts. It is safe to feed parts in any
// order, including parts the decoder has already reduced away.
type Decoder struct {
	haveHeader bool
	seqLen     int
	messageLen int
	checksum   uint32

	simple map[int][]byte
	mixed  map[string]*mixedFragment

	degrees        *degreeChooser
	processedCount int

	solved bool
	result []byte
	err    error
}

// NewDecoder returns an empty Decoder ready to receive parts.
func NewDecoder() *Decoder {
	return &Decoder{
		simple:  make(map[int][]byte),
		mixed:   make(map[string]*mixedFragment),
		degrees: newDegreeChooser(),
	}
}

// Add feeds a single received part to the decoder. It returns an error
// only when the part is internally inconsistent with a previously seen
// part for the same message (different SeqLen, MessageLen, or
// Checksum); lost or duplicate parts are not errors.
func (d *Decoder) Add(p Part) error {
	if !d.haveHeader {
		d.haveHeader = true
		d.seqLen = p.SeqLen
		d.messageLen = p.MessageLen
		d.checksum = p.Checksum
	} else if p.SeqLen != d.seqLen || p.MessageLen != d.messageLen || p.Checksum != d.checksum {
		return ErrPartMismatch
	}

	if d.solved {
		return nil
	}

	d.processedCount++

	indexes := chooseFragments(p.SeqNum, d.seqLen, d.checksum, d.degrees)
	if len(indexes) == 1 {
		d.addSimple(indexes[0], p.Data)
	} else {
		d.addMixed(indexes, p.Data)
	}

	if len(d.simple) == d.seqLen {
		d.finalize()
	}
	return nil
}

// addSimple records a freshly learned pure fragment and reduces every
// stored mixed fragment that contains it, cascading through any mixed
// fragments that become pure, or simply smaller, as a result.
func (d *Decoder) addSimple(idx int, data []byte) {
	if _, ok := d.simple[idx]; ok {
		return
	}
	cp := append([]byte(nil), data...)
	d.simple[idx] = cp

	known := &mixedFragment{
		indexes: map[int]bool{idx: true},
		data:    cp,
	}
	d.reduceStoredMixedBy(known)
}

// addMixed reduces a newly received mixed part against every simple
// fragment already known, then, if still mixed, against every mixed
// fragment already known, matching process_mixed: reduce by known
// simple parts, then by known mixed parts, until the part is fully
// accounted for, settles as a pure fragment, or stops shrinking.
func (d *Decoder) addMixed(indexes []int, data []byte) {
	fp := &mixedFragment{
		indexes: make(map[int]bool, len(indexes)),
		data:    append([]byte(nil), data...),
	}
	for _, i := range indexes {
		fp.indexes[i] = true
	}
	d.reduceAndStore(fp)
}

// reduceAndStore peels fp against every known simple fragment and every
// known mixed fragment (strict-subset reduction) until fp stops
// shrinking, then settles it: dropped if fully accounted for, promoted
// to addSimple if exactly one index remains, or kept as a mixed
// fragment and used in turn to reduce every other stored mixed
// fragment (reduce_mixed_by), so a fragment learned later can still
// simplify fragments received earlier.
func (d *Decoder) reduceAndStore(fp *mixedFragment) {
	for {
		reduced := false
		for idx, known := range d.simple {
			if fp.indexes[idx] {
				xorInto(fp.data, known)
				delete(fp.indexes, idx)
				reduced = true
			}
		}
		if len(fp.indexes) <= 1 {
			break
		}
		for _, m := range d.mixed {
			if !isStrictSubset(m.indexes, fp.indexes) {
				continue
			}
			xorInto(fp.data, m.data)
			for idx := range m.indexes {
				delete(fp.indexes, idx)
			}
			reduced = true
		}
		if len(fp.indexes) <= 1 || !reduced {
			break
		}
	}

	switch len(fp.indexes) {
	case 0:
		return
	case 1:
		var idx int
		for i := range fp.indexes {
			idx = i
		}
		if _, ok := d.simple[idx]; !ok {
			d.addSimple(idx, fp.data)
		}
		return
	}

	key := fragmentKey(setToSlice(fp.indexes))
	if _, ok := d.mixed[key]; ok {
		return
	}
	d.mixed[key] = fp
	d.reduceStoredMixedBy(fp)
}

// reduceStoredMixedBy reduces every other stored mixed fragment by by:
// whenever by's index set is a strict subset of a stored fragment's,
// that fragment drops by's indexes and XORs in by's data. A fragment
// that shrinks this way is pulled from storage and re-settled through
// reduceAndStore, which may promote it to a pure fragment and cascade
// further, including reducing fragments that were themselves just
// stored during this same pass.
func (d *Decoder) reduceStoredMixedBy(by *mixedFragment) {
	keys := make([]string, 0, len(d.mixed))
	for key := range d.mixed {
		keys = append(keys, key)
	}
	for _, key := range keys {
		m, ok := d.mixed[key]
		if !ok || m == by {
			continue
		}
		if !isStrictSubset(by.indexes, m.indexes) {
			continue
		}
		delete(d.mixed, key)
		xorInto(m.data, by.data)
		for idx := range by.indexes {
			delete(m.indexes, idx)
		}
		d.reduceAndStore(m)
	}
}

func (d *Decoder) finalize() {
	var buf []byte
	for i := 0; i < d.seqLen; i++ {
		buf = append(buf, d.simple[i]...)
	}
	if len(buf) > d.messageLen {
		buf = buf[:d.messageLen]
	}
	if Checksum(buf) != d.checksum {
		d.err = ErrInvalidChecksum
	}
	d.result = buf
	d.solved = true
	d.degrees.reset()
	d.mixed = make(map[string]*mixedFragment)
}

// Progress estimates how close the decoder is to reassembling the
// message, as a value in [0, 1]. It is based on the number of parts
// processed so far relative to the number of fragments, not on how many
// fragments are actually resolved, so it is necessarily approximate: it
// never reports completion before the message is actually solved, and is
// capped short of 1 until then.
func (d *Decoder) Progress() float64 {
	if d.solved {
		return 1
	}
	if d.seqLen == 0 {
		return 0
	}
	p := float64(d.processedCount) / (float64(d.seqLen) * 1.75)
	if p > 0.99 {
		p = 0.99
	}
	return p
}

// IsComplete reports whether the message has been fully reassembled.
func (d *Decoder) IsComplete() bool {
	return d.solved
}

// Result returns the reassembled message once enough parts have been
// received. It returns ErrNotEnoughParts beforehand, and
// ErrInvalidChecksum if reassembly completed but the message's CRC-32 did
// not match the checksum carried in the part headers.
func (d *Decoder) Result() ([]byte, error) {
	if !d.solved {
		return nil, ErrNotEnoughParts
	}
	if d.err != nil {
		return nil, d.err
	}
	return d.result, nil
}

func xorInto(dst, src []byte) {
	n := len(dst)
	if len(src) < n {
		n = len(src)
	}
	for i := 0; i < n; i++ {
		dst[i] ^= src[i]
	}
}

// isStrictSubset reports whether every index in a is also in b, and a
// is strictly smaller than b. The fountain reduction rule only ever
// drops a fragment's indexes using a part whose own indexes are a
// proper subset of it; reducing by an equal or larger set would either
// do nothing or corrupt the mix.
func isStrictSubset(a, b map[int]bool) bool {
	if len(a) >= len(b) {
		return false
	}
	for idx := range a {
		if !b[idx] {
			return false
		}
	}
	return true
}

func setToSlice(s map[int]bool) []int {
	out := make([]int, 0, len(s))
	for i := range s {
		out = append(out, i)
	}
	return out
}

// fragmentKey returns a canonical string key for a fragment index set,
// independent of the order indexes were supplied in.
func fragmentKey(indexes []int) string {
	sorted := append([]int(nil), indexes...)
	sort.Ints(sorted)
	var b strings.Builder
	for i, idx := range sorted {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.Itoa(idx))
	}
	return b.String()
}
