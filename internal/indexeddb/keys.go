package indexeddb

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"unicode/utf16"
	"unicode/utf8"
)

var errShortKey = errors.New("truncated key")

// Metadata type bytes that follow a key prefix
const (
	databaseNameTypeByte    = 201
	objectStoreMetaTypeByte = 50
	objectStoreNameMeta     = 0
	objectStoreDataIndexID  = 1
)

// IDB key type bytes
const (
	keyTypeNull   = 0
	keyTypeString = 1
	keyTypeDate   = 2
	keyTypeNumber = 3
	keyTypeArray  = 4
	keyTypeMin    = 5
	keyTypeBinary = 6
)

// keyPrefix addresses a record: database, object store and index. All zero
// is global metadata; index 1 of a store holds its records.
type keyPrefix struct {
	DatabaseID    int64
	ObjectStoreID int64
	IndexID       int64
}

func (p keyPrefix) isGlobal() bool {
	return p.DatabaseID == 0 && p.ObjectStoreID == 0 && p.IndexID == 0
}

func (p keyPrefix) isDatabaseMeta() bool {
	return p.DatabaseID > 0 && p.ObjectStoreID == 0 && p.IndexID == 0
}

func (p keyPrefix) isObjectStoreData() bool {
	return p.DatabaseID > 0 && p.ObjectStoreID > 0 && p.IndexID == objectStoreDataIndexID
}

// decodeKeyPrefix reads the packed length byte followed by three
// little-endian integers of those lengths.
func decodeKeyPrefix(b []byte) (keyPrefix, []byte, error) {
	if len(b) == 0 {
		return keyPrefix{}, nil, errShortKey
	}
	first := b[0]
	dbLen := int(first>>5) + 1
	storeLen := int((first>>2)&0x07) + 1
	indexLen := int(first&0x03) + 1
	b = b[1:]
	if len(b) < dbLen+storeLen+indexLen {
		return keyPrefix{}, nil, errShortKey
	}

	p := keyPrefix{
		DatabaseID:    decodeInt(b[:dbLen]),
		ObjectStoreID: decodeInt(b[dbLen : dbLen+storeLen]),
		IndexID:       decodeInt(b[dbLen+storeLen : dbLen+storeLen+indexLen]),
	}
	return p, b[dbLen+storeLen+indexLen:], nil
}

// decodeInt reads a little-endian integer of any length up to 8 bytes
func decodeInt(b []byte) int64 {
	var v uint64
	for i := len(b) - 1; i >= 0; i-- {
		v = v<<8 | uint64(b[i])
	}
	return int64(v)
}

func decodeVarInt(b []byte) (int64, []byte, error) {
	v, n := binary.Uvarint(b)
	if n <= 0 {
		return 0, nil, errShortKey
	}
	return int64(v), b[n:], nil
}

// decodeUTF16BE decodes big-endian UTF-16 code units
func decodeUTF16BE(b []byte) string {
	units := make([]uint16, len(b)/2)
	for i := range units {
		units[i] = binary.BigEndian.Uint16(b[2*i:])
	}
	return string(utf16.Decode(units))
}

// decodeStringWithLength reads a varint count of UTF-16 units and the units
func decodeStringWithLength(b []byte) (string, []byte, error) {
	n, rest, err := decodeVarInt(b)
	if err != nil {
		return "", nil, err
	}
	if n < 0 || int64(len(rest)) < n*2 {
		return "", nil, errShortKey
	}
	return decodeUTF16BE(rest[:n*2]), rest[n*2:], nil
}

// decodeIDBKey decodes an encoded IndexedDB key into a JSON-friendly value
func decodeIDBKey(b []byte) (interface{}, []byte, error) {
	if len(b) == 0 {
		return nil, nil, errShortKey
	}
	kind, b := b[0], b[1:]
	switch kind {
	case keyTypeNull, keyTypeMin:
		return nil, b, nil
	case keyTypeString:
		return decodeStringWithLength(b)
	case keyTypeDate, keyTypeNumber:
		if len(b) < 8 {
			return nil, nil, errShortKey
		}
		f := math.Float64frombits(binary.LittleEndian.Uint64(b))
		return f, b[8:], nil
	case keyTypeArray:
		n, rest, err := decodeVarInt(b)
		if err != nil {
			return nil, nil, err
		}
		items := make([]interface{}, 0, n)
		for i := int64(0); i < n; i++ {
			var item interface{}
			item, rest, err = decodeIDBKey(rest)
			if err != nil {
				return nil, nil, err
			}
			items = append(items, item)
		}
		return items, rest, nil
	case keyTypeBinary:
		n, rest, err := decodeVarInt(b)
		if err != nil {
			return nil, nil, err
		}
		if n < 0 || int64(len(rest)) < n {
			return nil, nil, errShortKey
		}
		return bytesValue(rest[:n]), rest[n:], nil
	default:
		return nil, nil, fmt.Errorf("unknown key type %d", kind)
	}
}

// bytesValue returns b as a string when it is valid UTF-8, otherwise a
// placeholder naming its length.
func bytesValue(b []byte) string {
	if utf8.Valid(b) {
		return string(b)
	}
	return fmt.Sprintf("<bytes:%d>", len(b))
}
