package dlms

import (
	"encoding/binary"
	"fmt"
	"time"
)

const (
	deviationUnspecified = -0x8000
	clockStatusInvalid   = 0x01
)

// ParseDateTime decodes a 12 byte COSEM date-time:
// year(2) month day weekday hour minute second hundredths deviation(2) status.
//
// Deviation is the offset of local time to UTC in minutes (UTC = local +
// deviation). When it is not specified the timestamp is interpreted in loc.
func ParseDateTime(b []byte, loc *time.Location) (time.Time, error) {
	if len(b) != dateTimeLength {
		return time.Time{}, fmt.Errorf("%w: date-time must be %d bytes, got %d", ErrMalformed, dateTimeLength, len(b))
	}
	year := int(binary.BigEndian.Uint16(b[0:2]))
	month, day := int(b[2]), int(b[3])
	hour, minute, second := int(b[5]), int(b[6]), int(b[7])
	if year == 0xFFFF || month < 1 || month > 12 || day < 1 || day > 31 || hour > 23 || minute > 59 {
		return time.Time{}, fmt.Errorf("%w: date-time %X is not fully specified", ErrMalformed, b)
	}
	if second == 0xFF {
		second = 0
	}
	nsec := 0
	if h := int(b[8]); h < 100 {
		nsec = h * int(10*time.Millisecond)
	}
	if b[11] != 0xFF && b[11]&clockStatusInvalid != 0 {
		return time.Time{}, fmt.Errorf("%w: clock status 0x%02X marks the time invalid", ErrMalformed, b[11])
	}

	deviation := int(int16(binary.BigEndian.Uint16(b[9:11])))
	if deviation != deviationUnspecified {
		loc = time.FixedZone("", -deviation*60)
	} else if loc == nil {
		loc = time.Local
	}
	return time.Date(year, time.Month(month), day, hour, minute, second, nsec, loc), nil
}
