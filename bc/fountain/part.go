package fountain

import (
	"fmt"

	"github.com/blockchaincommons/ur/bc/cbor"
)

// Part is a single unit of the fountain-encoded stream: a CBOR array of
// [seqNum, seqLen, messageLen, checksum, data], where data is the XOR
// mix of the fragments chooseFragments selects for seqNum.
type Part struct {
	SeqNum     uint32
	SeqLen     int
	MessageLen int
	Checksum   uint32
	Data       []byte
}

// partFieldCount is the number of elements in the wire array.
const partFieldCount = 5

// CBOR encodes p as a 5-element CBOR array.
func (p Part) CBOR() []byte {
	var buf []byte
	buf = cbor.EncodeArrayHeader(buf, partFieldCount)
	buf = cbor.EncodeUint(buf, uint64(p.SeqNum))
	buf = cbor.EncodeUint(buf, uint64(p.SeqLen))
	buf = cbor.EncodeUint(buf, uint64(p.MessageLen))
	buf = cbor.EncodeUint(buf, uint64(p.Checksum))
	buf = cbor.EncodeBytes(buf, p.Data)
	return buf
}

// PartFromCBOR decodes a Part previously produced by Part.CBOR. The
// returned Data is a freshly allocated copy, independent of buf.
func PartFromCBOR(buf []byte) (Part, error) {
	var d cbor.Decoder
	n, off, err := d.DecodeArrayHeader(buf)
	if err != nil {
		return Part{}, fmt.Errorf("fountain: decoding part header: %w", err)
	}
	if n != partFieldCount {
		return Part{}, fmt.Errorf("%w: part array has %d elements, want %d", cbor.ErrArraySize, n, partFieldCount)
	}

	var fields [4]uint64
	for i := range fields {
		v, used, err := d.DecodeUint(buf[off:])
		if err != nil {
			return Part{}, fmt.Errorf("fountain: decoding part field %d: %w", i, err)
		}
		fields[i] = v
		off += used
	}

	data, used, err := d.DecodeBytes(buf[off:])
	if err != nil {
		return Part{}, fmt.Errorf("fountain: decoding part data: %w", err)
	}
	off += used

	return Part{
		SeqNum:     uint32(fields[0]),
		SeqLen:     int(fields[1]),
		MessageLen: int(fields[2]),
		Checksum:   uint32(fields[3]),
		Data:       append([]byte(nil), data...),
	}, nil
}
