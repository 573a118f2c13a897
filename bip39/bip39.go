// Package bip39 parses BIP-39 mnemonic phrases and derives the seed
// bytes they encode, for use as demo payload material: cmd/urtool's
// seed subcommand turns a mnemonic into a deterministic byte string
// that can then be framed as a UR and round-tripped through the
// fountain encoder/decoder without needing any other input source.
package bip39

import (
	"bytes"
	"crypto/sha256"
	"crypto/sha512"
	"errors"
	"fmt"
	"math/big"
	"sort"
	"strings"

	"golang.org/x/crypto/pbkdf2"
)

// Word indexes a single entry in the fixed 2048-word BIP-39 wordlist.
type Word int

// Mnemonic is a parsed sequence of wordlist entries; its length must be
// a multiple of three words for the trailing checksum bits to divide
// evenly.
type Mnemonic []Word

const wordBits = 11

// ErrInvalidChecksum is returned when a mnemonic's trailing checksum
// word does not match the entropy encoded by the words preceding it.
var ErrInvalidChecksum = errors.New("bip39: invalid checksum")

// LabelFor returns the wordlist entry for w, or "" if w is out of range.
func LabelFor(w Word) string {
	if !w.valid() {
		return ""
	}
	start := index[w]
	end := uint16(len(words))
	if int(w+1) < len(index) {
		end = index[w+1]
	}
	return words[start:end]
}

func (w Word) valid() bool {
	return w >= 0 && int(w) < len(index)
}

// ClosestWord returns the first wordlist entry at or after word in
// lexical order, and whether it is an exact or prefix match for word.
func ClosestWord(word string) (Word, bool) {
	i := sort.Search(len(index), func(i int) bool {
		return LabelFor(Word(i)) >= word
	})
	if i == len(index) {
		return -1, false
	}
	match := LabelFor(Word(i))
	return Word(i), strings.HasPrefix(match, word)
}

// Valid reports whether the mnemonic's trailing checksum word matches
// the entropy encoded by the rest of the mnemonic.
func (m Mnemonic) Valid() bool {
	if len(m) == 0 || len(m)%3 != 0 {
		return false
	}
	ent, _ := splitMnemonic(m)
	last := m[len(m)-1]
	return checksumWord(ent) == last
}

func (m Mnemonic) String() string {
	s := new(strings.Builder)
	for _, w := range m {
		if s.Len() > 0 {
			s.WriteByte(' ')
		}
		s.WriteString(LabelFor(w))
	}
	return s.String()
}

// splitMnemonic unpacks a mnemonic's words into its raw entropy bytes
// and trailing checksum bits.
func splitMnemonic(m Mnemonic) (entropy []byte, checksum byte) {
	if len(m)%3 != 0 {
		panic("bip39: mnemonic length not divisible by 3")
	}
	ent := big.NewInt(0)
	shift11 := big.NewInt(1 << wordBits)
	for _, w := range m {
		ent.Mul(ent, shift11)
		ent.Or(ent, big.NewInt(int64(w)))
	}
	checkBits := len(m) / 3
	check := big.NewInt(0).And(ent, big.NewInt(1<<checkBits-1)).Int64()
	ent.Div(ent, big.NewInt(1<<checkBits))
	// BIP-39's checksum is sensitive to leading zero bytes, so pad back
	// up to the full entropy width after extracting it from the big int.
	entBits := len(m)*wordBits - checkBits
	entBytes := ent.Bytes()
	padding := bytes.Repeat([]byte{0}, entBits/8-len(entBytes))
	entBytes = append(padding, entBytes...)
	return entBytes, byte(check)
}

func checksum(entropy []byte) byte {
	h := sha256.Sum256(entropy)
	checkBits := len(entropy) / 4
	if checkBits > 8 {
		panic("bip39: entropy too long")
	}
	return h[0] >> (8 - checkBits)
}

func checksumWord(entropy []byte) Word {
	checkBits := len(entropy) / 4
	last := entropy[len(entropy)-1]
	w := Word(last)<<checkBits | Word(checksum(entropy))
	return w % Word(len(index))
}

// MnemonicSeed derives the 64-byte seed BIP-39 defines for m, stretched
// with PBKDF2-HMAC-SHA512 over the mnemonic's own text and an optional
// passphrase. It does not validate m's checksum; callers that need that
// should call ParseMnemonic, which does.
func MnemonicSeed(m Mnemonic, passphrase string) []byte {
	return pbkdf2.Key([]byte(m.String()), []byte("mnemonic"+passphrase), 2048, 64, sha512.New)
}

// ParseMnemonic parses a space-separated mnemonic phrase, resolving
// each word against the wordlist and verifying the trailing checksum
// word.
func ParseMnemonic(mnemonic string) (Mnemonic, error) {
	fields := strings.Split(mnemonic, " ")
	m := make(Mnemonic, len(fields))
	for i, w := range fields {
		closest, valid := ClosestWord(w)
		if !valid || LabelFor(closest) != w {
			return nil, fmt.Errorf("bip39: unknown word: %q", w)
		}
		m[i] = closest
	}
	if !m.Valid() {
		return nil, ErrInvalidChecksum
	}
	return m, nil
}
