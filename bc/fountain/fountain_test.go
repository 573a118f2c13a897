package fountain

import (
	"bytes"
	"testing"

	"github.com/blockchaincommons/ur/bc/xoshiro256"
)

func TestFindNominalFragmentLength(t *testing.T) {
	tests := []struct {
		messageLen, minLen, maxLen, want int
	}{
		{12345, 1005, 1955, 1764},
		{12345, 1005, 30000, 12345},
	}
	for _, test := range tests {
		got := findNominalFragmentLength(test.messageLen, test.minLen, test.maxLen)
		if got != test.want {
			t.Errorf("findNominalFragmentLength(%d, %d, %d) = %d, want %d",
				test.messageLen, test.minLen, test.maxLen, got, test.want)
		}
	}
}

func TestChooseFragmentsPureRange(t *testing.T) {
	const seqLen = 10
	dc := newDegreeChooser()
	checksum := uint32(0xabcdef01)
	for seqNum := uint32(1); seqNum <= seqLen; seqNum++ {
		got := chooseFragments(seqNum, seqLen, checksum, dc)
		if len(got) != 1 || got[0] != int(seqNum)-1 {
			t.Errorf("seqNum %d: got %v, want [%d]", seqNum, got, seqNum-1)
		}
	}
}

func TestChooseFragmentsMixedInvariants(t *testing.T) {
	const seqLen = 17
	dc := newDegreeChooser()
	checksum := uint32(0x12345678)
	for seqNum := uint32(seqLen + 1); seqNum <= uint32(seqLen*5); seqNum++ {
		got := chooseFragments(seqNum, seqLen, checksum, dc)
		if len(got) < 1 || len(got) > seqLen {
			t.Fatalf("seqNum %d: degree %d out of range [1, %d]", seqNum, len(got), seqLen)
		}
		seen := make(map[int]bool)
		for _, idx := range got {
			if idx < 0 || idx >= seqLen {
				t.Fatalf("seqNum %d: index %d out of range [0, %d)", seqNum, idx, seqLen)
			}
			if seen[idx] {
				t.Fatalf("seqNum %d: duplicate index %d in %v", seqNum, idx, got)
			}
			seen[idx] = true
		}
	}
}

func TestEncodePartDeterministic(t *testing.T) {
	message := []byte("the quick brown fox jumps over the lazy dog")
	a := EncodePart(message, 5, 4)
	b := EncodePart(message, 5, 4)
	if !bytes.Equal(a.Data, b.Data) {
		t.Errorf("EncodePart is not deterministic: %x != %x", a.Data, b.Data)
	}
}

func TestPartCBORRoundtrip(t *testing.T) {
	p := Part{SeqNum: 3, SeqLen: 7, MessageLen: 100, Checksum: 0xdeadbeef, Data: []byte("fragment")}
	got, err := PartFromCBOR(p.CBOR())
	if err != nil {
		t.Fatal(err)
	}
	if got.SeqNum != p.SeqNum || got.SeqLen != p.SeqLen || got.MessageLen != p.MessageLen || got.Checksum != p.Checksum {
		t.Errorf("got %+v, want %+v", got, p)
	}
	if !bytes.Equal(got.Data, p.Data) {
		t.Errorf("got data %q, want %q", got.Data, p.Data)
	}
}

// pseudoRandomMessage builds a deterministic message of n bytes, seeded
// the same way the fragment-selection RNG is, so this test has no
// dependency on the standard library's math/rand.
func pseudoRandomMessage(seed string, n int) []byte {
	src := xoshiro256.New([]byte(seed))
	buf := make([]byte, n)
	for i := range buf {
		buf[i] = byte(src.Uint64())
	}
	return buf
}

func TestEncodeDecodeSinglePart(t *testing.T) {
	message := []byte("short message")
	enc, err := NewEncoder(message, 1000, 10, 0)
	if err != nil {
		t.Fatal(err)
	}
	if !enc.IsSinglePart() {
		t.Fatal("expected a single-part encoding")
	}
	dec := NewDecoder()
	if err := dec.Add(enc.NextPart()); err != nil {
		t.Fatal(err)
	}
	if !dec.IsComplete() {
		t.Fatal("decoder did not complete after one part")
	}
	got, err := dec.Result()
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, message) {
		t.Errorf("got %q, want %q", got, message)
	}
}

// TestRoundtripWithLoss simulates receiving a fountain-encoded stream
// with every third part dropped, and checks the message is still
// recovered.
func TestRoundtripWithLoss(t *testing.T) {
	message := pseudoRandomMessage("Wolf", 32767)

	enc, err := NewEncoder(message, 1000, 10, 100)
	if err != nil {
		t.Fatal(err)
	}
	dec := NewDecoder()

	const maxParts = 500
	for i := 0; i < maxParts && !dec.IsComplete(); i++ {
		part := enc.NextPart()
		if i%3 == 2 {
			continue // simulate loss
		}
		if err := dec.Add(part); err != nil {
			t.Fatalf("part %d: %v", i, err)
		}
	}

	if !dec.IsComplete() {
		t.Fatalf("decoder failed to complete within %d parts", maxParts)
	}
	got, err := dec.Result()
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, message) {
		t.Error("reassembled message does not match original")
	}
}

func TestRoundtripExactPureParts(t *testing.T) {
	message := pseudoRandomMessage("Eel Fox", 5000)

	enc, err := NewEncoder(message, 500, 50, 0)
	if err != nil {
		t.Fatal(err)
	}
	dec := NewDecoder()
	for !dec.IsComplete() {
		if err := dec.Add(enc.NextPart()); err != nil {
			t.Fatal(err)
		}
		if enc.IsComplete() && !dec.IsComplete() {
			t.Fatal("encoder exhausted its pure fragments without the decoder completing")
		}
	}
	got, err := dec.Result()
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, message) {
		t.Error("reassembled message does not match original")
	}
}

func TestDecoderDetectsPartMismatch(t *testing.T) {
	dec := NewDecoder()
	if err := dec.Add(Part{SeqNum: 1, SeqLen: 3, MessageLen: 9, Checksum: 1, Data: []byte("abc")}); err != nil {
		t.Fatal(err)
	}
	err := dec.Add(Part{SeqNum: 2, SeqLen: 3, MessageLen: 9, Checksum: 2, Data: []byte("def")})
	if err != ErrPartMismatch {
		t.Errorf("got %v, want ErrPartMismatch", err)
	}
}

// TestMixedByMixedReduction exercises a received part set that is
// sufficient to recover a fragment only by reducing one stored mixed
// part against another, with no simple part available yet: a stored
// mixed fragment covering indexes {0, 1, 2} reduced by a second mixed
// fragment covering the strict subset {1, 2} must yield fragment 0.
// SeqNumFor locates real seqNums that chooseFragments maps to exactly
// these fragment sets, so the parts fed to the decoder are the same
// ones a real encoder could have produced.
func TestMixedByMixedReduction(t *testing.T) {
	const seqLen = 5
	message := pseudoRandomMessage("Newt", 60*seqLen)
	checksum := Checksum(message)

	seqNumA := SeqNumFor(seqLen, checksum, []int{0, 1, 2})
	seqNumB := SeqNumFor(seqLen, checksum, []int{1, 2})
	if seqNumA < 0 || seqNumB < 0 {
		t.Fatal("could not locate seqNums producing the requested fragment sets")
	}

	partA := EncodePart(message, uint32(seqNumA), seqLen)
	partB := EncodePart(message, uint32(seqNumB), seqLen)

	dec := NewDecoder()
	if err := dec.Add(partA); err != nil {
		t.Fatal(err)
	}
	if err := dec.Add(partB); err != nil {
		t.Fatal(err)
	}
	if dec.IsComplete() {
		t.Fatal("two mixed parts of a 5-fragment message should not be sufficient on their own")
	}

	got, ok := dec.simple[0]
	if !ok {
		t.Fatal("reducing stored mixed part {0,1,2} by {1,2} did not recover fragment 0")
	}
	fragmentLen := len(message) / seqLen
	if want := message[:fragmentLen]; !bytes.Equal(got, want) {
		t.Errorf("recovered fragment 0 = %x, want %x", got, want)
	}
}

func TestProgressMonotonic(t *testing.T) {
	message := pseudoRandomMessage("Tiger", 4000)
	enc, err := NewEncoder(message, 500, 50, 0)
	if err != nil {
		t.Fatal(err)
	}
	dec := NewDecoder()
	last := 0.0
	for !dec.IsComplete() {
		if err := dec.Add(enc.NextPart()); err != nil {
			t.Fatal(err)
		}
		p := dec.Progress()
		if p < last {
			t.Fatalf("progress decreased: %v after %v", p, last)
		}
		if p < 0 || p > 1 {
			t.Fatalf("progress out of range: %v", p)
		}
		last = p
	}
	if got := dec.Progress(); got != 1 {
		t.Errorf("completed decoder reports progress %v, want 1", got)
	}
}
