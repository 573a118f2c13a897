// Package ur implements the Uniform Resources (UR) encoding
// specified in [BCR-2020-005]: a URI-like envelope around data encoded
// with the bytewords alphabet, optionally split across multiple parts
// by the fountain package.
//
// [BCR-2020-005]: https://github.com/BlockchainCommons/Research/blob/master/papers/bcr-2020-005-ur.md
package ur

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/blockchaincommons/ur/bc/bytewords"
	"github.com/blockchaincommons/ur/bc/fountain"
)

const schemePrefix = "ur:"

var (
	// ErrMissingPrefix is returned when the input does not start with
	// the "ur:" scheme prefix.
	ErrMissingPrefix = errors.New("ur: missing ur: prefix")
	// ErrIncompleteUR is returned when the input has fewer than the two
	// required path components (type and payload), or an empty type.
	ErrIncompleteUR = errors.New("ur: incomplete UR")
	// ErrInvalidSequenceComponent is returned when a multi-part UR's
	// "seqNum-seqLen" component is malformed.
	ErrInvalidSequenceComponent = errors.New("ur: invalid sequence component")
	// ErrIncompatibleType is returned when a Decoder receives parts
	// with different UR types.
	ErrIncompatibleType = errors.New("ur: incompatible fragment type")
	// ErrMultiPartRequiresDecoder is returned by Decode when given a
	// multi-part UR; callers must use a Decoder to reassemble it.
	ErrMultiPartRequiresDecoder = errors.New("ur: multi-part UR requires a Decoder")
)

// UR is a fully decoded single-part Uniform Resource.
type UR struct {
	Type    string
	Message []byte
}

// Decode parses a single-part UR string, such as "ur:bytes/...". It
// returns ErrMultiPartRequiresDecoder for a multi-part UR; reassembling
// those requires a Decoder fed every part.
func Decode(text string) (UR, error) {
	typ, seqAndLen, fragment, err := parseEnvelope(text)
	if err != nil {
		return UR{}, err
	}
	if seqAndLen != "" {
		return UR{}, ErrMultiPartRequiresDecoder
	}
	data, err := bytewords.Decode(fragment)
	if err != nil {
		return UR{}, fmt.Errorf("ur: invalid fragment: %w", err)
	}
	return UR{Type: typ, Message: data}, nil
}

// Encode formats message as a UR of the given type. A seqLen of 1 (or
// less) produces a single-part UR with no fountain framing; any larger
// seqLen produces part seqNum of a fountain-encoded stream.
func Encode(typ string, message []byte, seqNum, seqLen int) string {
	if seqLen <= 1 {
		return fmt.Sprintf("%s%s/%s", schemePrefix, typ, bytewords.Encode(message))
	}
	part := fountain.EncodePart(message, uint32(seqNum), seqLen)
	return fmt.Sprintf("%s%s/%d-%d/%s", schemePrefix, typ, seqNum, seqLen, bytewords.Encode(part.CBOR()))
}

// parseSeqAndLen parses a "seqNum-seqLen" sequence component strictly:
// both halves must be entirely decimal digits, with nothing trailing,
// and both must be at least 1.
func parseSeqAndLen(s string) (seqNum, seqLen int, err error) {
	dash := strings.IndexByte(s, '-')
	if dash < 0 {
		return 0, 0, fmt.Errorf("missing '-'")
	}
	n, err := strconv.ParseUint(s[:dash], 10, 32)
	if err != nil {
		return 0, 0, err
	}
	l, err := strconv.ParseUint(s[dash+1:], 10, 32)
	if err != nil {
		return 0, 0, err
	}
	if n < 1 || l < 1 {
		return 0, 0, fmt.Errorf("out of range")
	}
	return int(n), int(l), nil
}

// parseEnvelope splits a UR string into its type, its optional
// "seqNum-seqLen" component (empty for a single-part UR), and its
// bytewords-encoded fragment. The type must be non-empty and use only
// lowercase letters, digits and '-' (after the input is lowercased).
func parseEnvelope(text string) (typ, seqAndLen, fragment string, err error) {
	text = strings.ToLower(text)
	if !strings.HasPrefix(text, schemePrefix) {
		return "", "", "", ErrMissingPrefix
	}
	text = text[len(schemePrefix):]
	parts := strings.SplitN(text, "/", 3)
	if len(parts) < 2 {
		return "", "", "", ErrIncompleteUR
	}
	typ = parts[0]
	if typ == "" {
		return "", "", "", ErrIncompleteUR
	}
	for _, c := range typ {
		if !('a' <= c && c <= 'z' || '0' <= c && c <= '9' || c == '-') {
			return "", "", "", fmt.Errorf("ur: invalid type %q", typ)
		}
	}
	if len(parts) == 2 {
		return typ, "", parts[1], nil
	}
	return typ, parts[1], parts[2], nil
}

// Decoder reassembles a UR from a stream of parts, single- or
// multi-part alike. The zero value is ready to use.
type Decoder struct {
	typ      string
	data     []byte
	fountain *fountain.Decoder
}

// Progress reports reassembly progress in [0, 1]; see
// [fountain.Decoder.Progress] for multi-part URs. A single-part UR is
// either not yet seen (0) or complete (1).
func (d *Decoder) Progress() float64 {
	if d.data != nil {
		return 1
	}
	if d.fountain == nil {
		return 0
	}
	return d.fountain.Progress()
}

// Result returns the UR's type and reassembled message once enough
// parts have been added.
func (d *Decoder) Result() (string, []byte, error) {
	if d.data != nil {
		return d.typ, d.data, nil
	}
	if d.fountain == nil {
		return "", nil, fountain.ErrNotEnoughParts
	}
	v, err := d.fountain.Result()
	if err != nil {
		return "", nil, err
	}
	return d.typ, v, nil
}

// Add feeds a single UR string, single- or multi-part, to the decoder.
func (d *Decoder) Add(text string) error {
	typ, seqAndLen, fragment, err := parseEnvelope(text)
	if err != nil {
		return err
	}
	if d.typ != "" && d.typ != typ {
		return ErrIncompatibleType
	}
	d.typ = typ

	payload, err := bytewords.Decode(fragment)
	if err != nil {
		return fmt.Errorf("ur: invalid fragment: %w", err)
	}

	if seqAndLen == "" {
		d.data = payload
		return nil
	}

	seqNum, seqLen, err := parseSeqAndLen(seqAndLen)
	if err != nil {
		return fmt.Errorf("%w: %q", ErrInvalidSequenceComponent, seqAndLen)
	}
	part, err := fountain.PartFromCBOR(payload)
	if err != nil {
		return fmt.Errorf("ur: invalid part: %w", err)
	}
	if int(part.SeqNum) != seqNum || part.SeqLen != seqLen {
		return fmt.Errorf("%w: %q disagrees with part header", ErrInvalidSequenceComponent, seqAndLen)
	}
	if d.fountain == nil {
		d.fountain = fountain.NewDecoder()
	}
	return d.fountain.Add(part)
}
