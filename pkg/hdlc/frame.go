package hdlc

import (
	"encoding/binary"
	"fmt"

	"github.com/sigurn/crc16"
)

// HCS and FCS are both CRC-16/X-25, transmitted least significant byte first.
var crcTable = crc16.MakeTable(crc16.CRC16_X_25)

// Checksum computes the HDLC frame check sequence of data.
func Checksum(data []byte) uint16 {
	return crc16.Checksum(data, crcTable)
}

// ParseFrame decodes the bytes between two flags. When verifyChecksums is set
// a frame whose HCS or FCS does not match is rejected with ErrChecksum.
func ParseFrame(raw []byte, verifyChecksums bool) (Frame, error) {
	n := len(raw)
	if n < minFrameLength {
		return Frame{}, fmt.Errorf("%w: %d bytes is too short", ErrMalformedFrame, n)
	}
	if raw[0]&0xF0 != frameTypeA {
		return Frame{}, fmt.Errorf("%w: invalid frame format 0x%02X", ErrMalformedFrame, raw[0]&0xF0)
	}

	fr := Frame{
		Segmented: raw[0]&0x08 != 0,
		Length:    int(raw[0]&0x07)<<8 | int(raw[1]),
	}
	if fr.Length != n {
		return Frame{}, fmt.Errorf("%w: declared length %d does not match actual length %d", ErrMalformedFrame, fr.Length, n)
	}

	fr.FCS = binary.LittleEndian.Uint16(raw[n-fcsSize:])
	if verifyChecksums {
		if sum := Checksum(raw[:n-fcsSize]); sum != fr.FCS {
			return Frame{}, fmt.Errorf("%w: FCS 0x%04X, computed 0x%04X", ErrChecksum, fr.FCS, sum)
		}
	}

	pos := 2
	var err error
	if fr.Destination, pos, err = readAddress(raw[:n-fcsSize], pos); err != nil {
		return Frame{}, fmt.Errorf("destination address: %w", err)
	}
	if fr.Source, pos, err = readAddress(raw[:n-fcsSize], pos); err != nil {
		return Frame{}, fmt.Errorf("source address: %w", err)
	}
	if pos >= n-fcsSize {
		return Frame{}, fmt.Errorf("%w: missing control field", ErrMalformedFrame)
	}
	fr.Control = raw[pos]
	pos++

	if pos == n-fcsSize {
		// No information field, hence no HCS either.
		return fr, nil
	}
	if pos+hcsSize > n-fcsSize {
		return Frame{}, fmt.Errorf("%w: truncated header check sequence", ErrMalformedFrame)
	}
	fr.HCS = binary.LittleEndian.Uint16(raw[pos:])
	if verifyChecksums {
		if sum := Checksum(raw[:pos]); sum != fr.HCS {
			return Frame{}, fmt.Errorf("%w: HCS 0x%04X, computed 0x%04X", ErrChecksum, fr.HCS, sum)
		}
	}
	pos += hcsSize

	fr.Information = raw[pos : n-fcsSize]
	return fr, nil
}

// Encode builds the bytes between the flags for a single unsegmented frame,
// computing the length, HCS and FCS fields.
func Encode(destination, source []byte, control byte, information []byte) []byte {
	headerLen := 2 + len(destination) + len(source) + 1
	length := headerLen + fcsSize
	if len(information) > 0 {
		length += hcsSize + len(information)
	}

	out := make([]byte, 0, length)
	out = append(out, frameTypeA|byte(length>>8)&0x07, byte(length))
	out = append(out, destination...)
	out = append(out, source...)
	out = append(out, control)
	if len(information) > 0 {
		out = binary.LittleEndian.AppendUint16(out, Checksum(out))
		out = append(out, information...)
	}
	return binary.LittleEndian.AppendUint16(out, Checksum(out))
}

// The address field is 1 to 4 bytes; the byte with LSB set is the last one.
func readAddress(b []byte, pos int) ([]byte, int, error) {
	for i := pos; i < len(b) && i < pos+maxAddressSize; i++ {
		if b[i]&0x01 == 0x01 {
			return b[pos : i+1], i + 1, nil
		}
	}
	return nil, pos, fmt.Errorf("%w: unterminated address at offset %d", ErrMalformedFrame, pos)
}
