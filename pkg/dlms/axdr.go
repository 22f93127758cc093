package dlms

import (
	"encoding/binary"
	"fmt"
	"math"
)

// ParseValue decodes one A-XDR data element at the start of b and returns it
// together with the number of bytes consumed.
func ParseValue(b []byte) (Value, int, error) {
	return parseValue(b, 0)
}

func parseValue(b []byte, depth int) (Value, int, error) {
	if depth > maxNesting {
		return Value{}, 0, fmt.Errorf("%w: nesting deeper than %d", ErrMalformed, maxNesting)
	}
	if len(b) == 0 {
		return Value{}, 0, fmt.Errorf("%w: missing type tag", ErrMalformed)
	}

	v := Value{Type: DataType(b[0])}
	pos := 1

	switch v.Type {
	case TypeNull:
		return v, pos, nil

	case TypeArray, TypeStructure:
		count, n, err := readLength(b[pos:])
		if err != nil {
			return Value{}, 0, err
		}
		pos += n
		// Every element needs at least its tag byte.
		if count > len(b)-pos {
			return Value{}, 0, fmt.Errorf("%w: %d elements declared, %d bytes remaining", ErrMalformed, count, len(b)-pos)
		}
		v.Items = make([]Value, 0, count)
		for i := 0; i < count; i++ {
			item, n, err := parseValue(b[pos:], depth+1)
			if err != nil {
				return Value{}, 0, err
			}
			v.Items = append(v.Items, item)
			pos += n
		}
		return v, pos, nil

	case TypeOctetString, TypeVisibleString, TypeUTF8String, TypeBCD:
		size, n, err := readLength(b[pos:])
		if err != nil {
			return Value{}, 0, err
		}
		pos += n
		if size > len(b)-pos {
			return Value{}, 0, fmt.Errorf("%w: string of %d bytes, %d remaining", ErrMalformed, size, len(b)-pos)
		}
		v.Bytes = b[pos : pos+size]
		return v, pos + size, nil

	case TypeBitString:
		bits, n, err := readLength(b[pos:])
		if err != nil {
			return Value{}, 0, err
		}
		pos += n
		size := (bits + 7) / 8
		if size > len(b)-pos {
			return Value{}, 0, fmt.Errorf("%w: bit-string of %d bits, %d bytes remaining", ErrMalformed, bits, len(b)-pos)
		}
		v.Bytes = b[pos : pos+size]
		return v, pos + size, nil
	}

	size, ok := fixedSize(v.Type)
	if !ok {
		return Value{}, 0, fmt.Errorf("%w: unknown type 0x%02X", ErrMalformed, byte(v.Type))
	}
	if size > len(b)-pos {
		return Value{}, 0, fmt.Errorf("%w: type 0x%02X needs %d bytes, %d remaining", ErrMalformed, byte(v.Type), size, len(b)-pos)
	}
	data := b[pos : pos+size]

	switch v.Type {
	case TypeBoolean:
		if data[0] != 0 {
			v.Int, v.Uint = 1, 1
		}
	case TypeInt8:
		v.Int = int64(int8(data[0]))
	case TypeInt16:
		v.Int = int64(int16(binary.BigEndian.Uint16(data)))
	case TypeInt32:
		v.Int = int64(int32(binary.BigEndian.Uint32(data)))
	case TypeInt64:
		v.Int = int64(binary.BigEndian.Uint64(data))
	case TypeUint8, TypeEnum:
		v.Uint = uint64(data[0])
		v.Int = int64(v.Uint)
	case TypeUint16:
		v.Uint = uint64(binary.BigEndian.Uint16(data))
		v.Int = int64(v.Uint)
	case TypeUint32:
		v.Uint = uint64(binary.BigEndian.Uint32(data))
		v.Int = int64(v.Uint)
	case TypeUint64:
		v.Uint = binary.BigEndian.Uint64(data)
		if v.Uint <= math.MaxInt64 {
			v.Int = int64(v.Uint)
		}
	case TypeFloat32:
		v.Float = float64(math.Float32frombits(binary.BigEndian.Uint32(data)))
	case TypeFloat64:
		v.Float = math.Float64frombits(binary.BigEndian.Uint64(data))
	default:
		v.Bytes = data
	}
	return v, pos + size, nil
}

func fixedSize(t DataType) (int, bool) {
	switch t {
	case TypeBoolean, TypeInt8, TypeUint8, TypeEnum:
		return 1, true
	case TypeInt16, TypeUint16:
		return 2, true
	case TypeInt32, TypeUint32, TypeFloat32, TypeTime:
		return 4, true
	case TypeDate:
		return 5, true
	case TypeInt64, TypeUint64, TypeFloat64:
		return 8, true
	case TypeDateTime:
		return dateTimeLength, true
	}
	return 0, false
}

// readLength decodes an A-XDR length: one byte below 0x80, otherwise 0x8N
// followed by N big endian length bytes.
func readLength(b []byte) (int, int, error) {
	if len(b) == 0 {
		return 0, 0, fmt.Errorf("%w: missing length", ErrMalformed)
	}
	if b[0] < 0x80 {
		return int(b[0]), 1, nil
	}
	n := int(b[0] & 0x7F)
	if n == 0 || n > 2 || len(b) < 1+n {
		return 0, 0, fmt.Errorf("%w: invalid length encoding 0x%02X", ErrMalformed, b[0])
	}
	length := 0
	for _, c := range b[1 : 1+n] {
		length = length<<8 | int(c)
	}
	return length, 1 + n, nil
}

// Numeric returns the value as a float for every numeric type.
func (v Value) Numeric() (float64, bool) {
	switch v.Type {
	case TypeBoolean, TypeInt8, TypeInt16, TypeInt32, TypeInt64:
		return float64(v.Int), true
	case TypeUint8, TypeUint16, TypeUint32, TypeUint64, TypeEnum:
		return float64(v.Uint), true
	case TypeFloat32, TypeFloat64:
		return v.Float, true
	}
	return 0, false
}
