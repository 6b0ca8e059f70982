// Package z85 implements the Z85b base85 codec for binary payloads: a
// closed 85-character alphabet with a pad-to-4-byte-boundary encode step
// and a truncate-on-decode step that recovers the original length.
//
// This is a small, fully-specified leaf utility (see SPEC_FULL.md §1); no
// other package in this module imports it.
package z85

import (
	"encoding/binary"
	"fmt"
)

const alphabet = "0123456789abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ.-:+=^!/*?&<>()[]{}@%$#"

var reverse [256]int8

func init() {
	for i := range reverse {
		reverse[i] = -1
	}
	for i, c := range []byte(alphabet) {
		reverse[c] = int8(i)
	}
}

var powersOf85 = [5]uint64{1, 85, 85 * 85, 85 * 85 * 85, 85 * 85 * 85 * 85}

// Encode returns the Z85b encoding of raw. Input is padded with zero bytes
// to a 4-byte boundary before encoding, and the encoded output is
// truncated back down so it decodes to exactly len(raw) bytes.
func Encode(raw []byte) []byte {
	if len(raw) == 0 {
		return []byte{}
	}
	padding := 3 - ((len(raw) - 1) % 4)
	padded := make([]byte, len(raw)+padding)
	copy(padded, raw)

	encoded := make([]byte, 0, len(padded)/4*5)
	for i := 0; i < len(padded); i += 4 {
		word := uint64(binary.LittleEndian.Uint32(padded[i : i+4]))
		var chunk [5]byte
		for j, p := range powersOf85 {
			chunk[j] = alphabet[(word/p)%85]
		}
		encoded = append(encoded, chunk[:]...)
	}
	return encoded[:len(encoded)-padding]
}

// Decode converts Z85b-encoded bytes back to the original raw bytes. It
// rejects any byte outside the 85-character alphabet and any 5-character
// word whose decoded value exceeds the uint32 range.
func Decode(encoded []byte) ([]byte, error) {
	if len(encoded) == 0 {
		return []byte{}, nil
	}

	var values []uint32
	var padding int
	for start := 0; start < len(encoded); start += 5 {
		var value uint64
		padding = 0
		for offset, p := range powersOf85 {
			pos := start + offset
			if pos >= len(encoded) {
				padding = 5 - offset
				break
			}
			digit := reverse[encoded[pos]]
			if digit < 0 {
				return nil, fmt.Errorf("z85: invalid byte %q at position %d", encoded[pos], pos)
			}
			value += uint64(digit) * p
		}
		if value > 0xFFFFFFFF {
			return nil, fmt.Errorf("z85: word at position %d exceeds range of uint32", start)
		}
		values = append(values, uint32(value))
	}

	out := make([]byte, len(values)*4)
	for i, v := range values {
		binary.LittleEndian.PutUint32(out[i*4:], v)
	}
	return out[:len(out)-padding], nil
}
