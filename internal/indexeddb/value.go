package indexeddb

import (
	"encoding/binary"
	"math"
	"unicode/utf16"
)

// Serialization tags handled by decodeValue. Anything else falls back to a
// byte placeholder.
const (
	tagVersion       = 0xFF
	tagTrailerOffset = 0xFE
	tagPadding       = 0x00
	tagOneByteString = '"'
	tagTwoByteString = 'c'
	tagUTF8String    = 'S'
	tagInt32         = 'I'
	tagDouble        = 'N'
	tagTrue          = 'T'
	tagFalse         = 'F'
	tagNull          = '0'
	tagUndefined     = '_'
)

// decodeValue decodes an object store record value: a varint version
// followed by a serialized script value. Only top-level primitives are
// recovered; objects and arrays are reported by size.
func decodeValue(raw []byte) interface{} {
	_, b, err := decodeVarInt(raw)
	if err != nil {
		return bytesValue(raw)
	}
	v, ok := decodeScriptValue(b)
	if !ok {
		return bytesValue(b)
	}
	return v
}

func decodeScriptValue(b []byte) (interface{}, bool) {
	b = skipEnvelope(b)
	if len(b) == 0 {
		return nil, false
	}

	tag, b := b[0], b[1:]
	switch tag {
	case tagOneByteString:
		n, rest, ok := uvarint(b)
		if !ok || uint64(len(rest)) < n {
			return nil, false
		}
		runes := make([]rune, n)
		for i := range runes {
			runes[i] = rune(rest[i]) // latin1
		}
		return string(runes), true
	case tagTwoByteString:
		n, rest, ok := uvarint(b)
		if !ok || uint64(len(rest)) < n || n%2 != 0 {
			return nil, false
		}
		units := make([]uint16, n/2)
		for i := range units {
			units[i] = binary.LittleEndian.Uint16(rest[2*i:])
		}
		return string(utf16.Decode(units)), true
	case tagUTF8String:
		n, rest, ok := uvarint(b)
		if !ok || uint64(len(rest)) < n {
			return nil, false
		}
		return string(rest[:n]), true
	case tagInt32:
		n, _, ok := uvarint(b)
		if !ok {
			return nil, false
		}
		// zigzag
		return int64(int32(n>>1) ^ -int32(n&1)), true
	case tagDouble:
		if len(b) < 8 {
			return nil, false
		}
		return math.Float64frombits(binary.LittleEndian.Uint64(b)), true
	case tagTrue:
		return true, true
	case tagFalse:
		return false, true
	case tagNull, tagUndefined:
		return nil, true
	}
	return nil, false
}

// skipEnvelope drops the outer and inner version headers, an optional
// trailer offset and any padding.
func skipEnvelope(b []byte) []byte {
	for len(b) > 0 {
		switch b[0] {
		case tagVersion:
			_, rest, ok := uvarint(b[1:])
			if !ok {
				return nil
			}
			b = rest
		case tagTrailerOffset:
			// offset (8 bytes) and size (4 bytes)
			if len(b) < 13 {
				return nil
			}
			b = b[13:]
		case tagPadding:
			b = b[1:]
		default:
			return b
		}
	}
	return b
}

func uvarint(b []byte) (uint64, []byte, bool) {
	v, n := binary.Uvarint(b)
	if n <= 0 {
		return 0, nil, false
	}
	return v, b[n:], true
}
