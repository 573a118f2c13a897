package fountain

// Encoder produces an unbounded stream of Parts for a single message.
// Started at firstSeqNum 0, it first emits each of the message's pure
// fragments once, in order, so
// that a receiver holding only the first SeqLen parts can reassemble the
// message without any fountain decoding; after that it emits parts
// mixing a pseudo-random subset of fragments, forever.
type Encoder struct {
	message     []byte
	fragmentLen int
	seqLen      int
	checksum    uint32
	seqNum      uint32
	degrees     *degreeChooser
}

// NewEncoder creates an Encoder for message, choosing a fragment length
// no larger than maxFragmentLen (and no smaller than minFragmentLen)
// that divides the message into a whole number of fragments. The first
// call to NextPart produces seqNum firstSeqNum+1, per spec.
func NewEncoder(message []byte, maxFragmentLen, minFragmentLen int, firstSeqNum uint32) (*Encoder, error) {
	if len(message) > maxMessageLen {
		return nil, ErrMessageTooLong
	}
	if minFragmentLen <= 0 || maxFragmentLen <= 0 || minFragmentLen > maxFragmentLen {
		return nil, ErrInvalidFragmentLen
	}

	fragmentLen := findNominalFragmentLength(len(message), minFragmentLen, maxFragmentLen)
	seqLen := 1
	if len(message) > 0 {
		seqLen = ceilDiv(len(message), fragmentLen)
	}

	return &Encoder{
		message:     message,
		fragmentLen: fragmentLen,
		seqLen:      seqLen,
		checksum:    Checksum(message),
		seqNum:      firstSeqNum,
		degrees:     newDegreeChooser(),
	}, nil
}

// IsSinglePart reports whether the message fits in a single fragment, in
// which case every part carries the whole message and no fountain mixing
// ever occurs.
func (e *Encoder) IsSinglePart() bool {
	return e.seqLen <= 1
}

// IsComplete reports whether the encoder's seqNum has reached seqLen.
// For an encoder started at firstSeqNum 0 this means it has emitted each
// pure fragment at least once; parts produced after this point are
// redundant mixes intended to help a lossy receiver fill in gaps.
func (e *Encoder) IsComplete() bool {
	return int(e.seqNum) >= e.seqLen
}

// NextPart advances the encoder's seqNum and returns the part for it.
func (e *Encoder) NextPart() Part {
	e.seqNum++
	seqNum := e.seqNum

	indexes := chooseFragments(seqNum, e.seqLen, e.checksum, e.degrees)
	data := mix(e.message, e.fragmentLen, indexes)

	return Part{
		SeqNum:     seqNum,
		SeqLen:     e.seqLen,
		MessageLen: len(e.message),
		Checksum:   e.checksum,
		Data:       data,
	}
}

// EncodePart builds a single part with an explicit seqNum, independent
// of any Encoder's internal state. It is used where a caller already
// knows the fragmentation parameters of a message, such as when
// re-deriving a specific part for a test vector or a fixed single-part
// encoding.
func EncodePart(message []byte, seqNum uint32, seqLen int) Part {
	fragmentLen := 0
	if seqLen > 0 {
		fragmentLen = ceilDiv(len(message), seqLen)
	}
	checksum := Checksum(message)
	dc := newDegreeChooser()
	indexes := chooseFragments(seqNum, seqLen, checksum, dc)
	data := mix(message, fragmentLen, indexes)
	return Part{
		SeqNum:     seqNum,
		SeqLen:     seqLen,
		MessageLen: len(message),
		Checksum:   checksum,
		Data:       data,
	}
}
