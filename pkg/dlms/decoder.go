package dlms

import (
	"encoding/binary"
	"fmt"
	"math"
	"time"

	"github.com/NotCoffee418/han_reader/pkg/hdlc"
	"github.com/NotCoffee418/han_reader/pkg/obis"
	"github.com/sirupsen/logrus"
)

var log = logrus.WithField("component", "dlms")

// ParseNotification decodes the LLC header and the data-notification APDU
// carried in an HDLC information field.
//
//	E6 E7 00              LLC: destination/source LSAP, quality
//	0F                    data-notification tag
//	40 00 00 00           long-invoke-id-and-priority
//	00 | 0C <12> | 09 0C <12>   optional date-time
//	n <n>                 other header, skipped
//	<A-XDR value>         notification body
func ParseNotification(information []byte) (Notification, error) {
	var n Notification
	if len(information) < 3 || information[0] != llcDestination ||
		information[1]&0xFE != llcDestination || information[2] != llcQuality {
		return n, fmt.Errorf("%w: invalid LLC header", ErrMalformed)
	}
	apdu := information[3:]
	if len(apdu) == 0 {
		return n, fmt.Errorf("%w: empty APDU", ErrMalformed)
	}
	if apdu[0] != tagDataNotification {
		return n, fmt.Errorf("%w: APDU tag 0x%02X", ErrUnsupportedPDU, apdu[0])
	}
	if len(apdu) < 6 {
		return n, fmt.Errorf("%w: APDU header truncated", ErrMalformed)
	}
	n.InvokeID = binary.BigEndian.Uint32(apdu[1:5])

	pos := 5
	switch apdu[pos] {
	case 0x00:
		pos++
	case dateTimeLength:
		pos++
		if len(apdu) < pos+dateTimeLength {
			return n, fmt.Errorf("%w: date-time truncated", ErrMalformed)
		}
		n.HasTimestamp = true
		n.Timestamp = apdu[pos : pos+dateTimeLength]
		pos += dateTimeLength
	case byte(TypeOctetString):
		v, size, err := ParseValue(apdu[pos:])
		if err != nil {
			return n, err
		}
		if len(v.Bytes) != 0 {
			n.HasTimestamp = true
			n.Timestamp = v.Bytes
		}
		pos += size
	default:
		// Some meters send a header of another length here; it is skipped.
		skip := int(apdu[pos])
		pos++
		if len(apdu) < pos+skip {
			return n, fmt.Errorf("%w: notification header of %d bytes truncated", ErrMalformed, skip)
		}
		log.Debugf("Skipping %d byte notification header", skip)
		pos += skip
	}

	body, size, err := ParseValue(apdu[pos:])
	if err != nil {
		return n, fmt.Errorf("notification body: %w", err)
	}
	n.Body = body
	if rest := len(apdu) - pos - size; rest > 0 {
		log.Debugf("Stray bytes after notification body: %d", rest)
	}
	return n, nil
}

// Decoder turns HDLC frames into OBIS records.
type Decoder struct {
	// VerifyChecksums rejects frames with a bad HCS or FCS.
	VerifyChecksums bool
	// Location interprets date-time values without a UTC deviation.
	Location *time.Location

	defaults map[obis.Code]ScalerUnit
}

func NewDecoder(verifyChecksums bool, loc *time.Location) *Decoder {
	if loc == nil {
		loc = time.Local
	}
	return &Decoder{
		VerifyChecksums: verifyChecksums,
		Location:        loc,
		defaults:        make(map[obis.Code]ScalerUnit),
	}
}

// SetDefault declares the scaler and unit for a code whose frames do not
// carry a scaler-unit structure (e.g. Kamstrup lists).
func (d *Decoder) SetDefault(code obis.Code, su ScalerUnit) {
	d.defaults[code] = su
}

// DecodeFrame decodes the bytes between two HDLC flags. Any structural error
// rejects the whole frame; no partial record list is returned.
func (d *Decoder) DecodeFrame(raw []byte) ([]Record, error) {
	frame, err := hdlc.ParseFrame(raw, d.VerifyChecksums)
	if err != nil {
		return nil, err
	}
	if frame.Segmented {
		return nil, fmt.Errorf("%w: segmented frames are not supported", ErrUnsupportedPDU)
	}
	n, err := ParseNotification(frame.Information)
	if err != nil {
		return nil, err
	}
	return d.Records(n), nil
}

// Records walks the notification body and extracts every OBIS tagged value.
//
// Inside any array or structure, a 6 byte octet-string followed by a value is
// a record; a directly following {int8 scaler, enum unit} structure scales
// it. Other containers are searched recursively, and records whose value is
// not numeric (meter ids, list versions) are skipped.
func (d *Decoder) Records(n Notification) []Record {
	if n.Body.Type != TypeArray && n.Body.Type != TypeStructure {
		return nil
	}
	return d.collect(n.Body.Items, nil)
}

func (d *Decoder) collect(items []Value, out []Record) []Record {
	for i := 0; i < len(items); i++ {
		item := items[i]
		code, isCode := codeOf(item)
		if !isCode || i+1 >= len(items) {
			if item.Type == TypeArray || item.Type == TypeStructure {
				out = d.collect(item.Items, out)
			}
			continue
		}

		value := items[i+1]
		i++
		su, hasScaler := d.defaults[code]
		if i+1 < len(items) {
			if embedded, ok := scalerUnitOf(items[i+1]); ok {
				su, hasScaler = embedded, true
				i++
			}
		}

		rec, ok := d.record(code, value, su, hasScaler)
		if !ok {
			log.Debugf("Skipping non-numeric value for %s (type 0x%02X)", code, byte(value.Type))
			continue
		}
		out = append(out, rec)
	}
	return out
}

func (d *Decoder) record(code obis.Code, v Value, su ScalerUnit, hasScaler bool) (Record, bool) {
	rec := Record{Code: code}
	if hasScaler {
		rec.Scaler = su.Scaler
		rec.Unit = su.Unit
	}

	if raw, ok := v.Numeric(); ok {
		rec.Value = scale(raw, rec.Scaler)
		return rec, true
	}

	if isDateTime(v) {
		ts, err := ParseDateTime(v.Bytes, d.Location)
		if err != nil {
			log.Debugf("Ignoring date-time for %s: %v", code, err)
			return rec, false
		}
		rec.Value = float64(ts.Unix())
		rec.Scaler = 0
		rec.Unit = "s"
		return rec, true
	}
	return rec, false
}

// Negative scalers divide so that e.g. 2326 * 10^-1 is exactly 232.6.
func scale(raw float64, scaler int8) float64 {
	if scaler < 0 {
		return raw / math.Pow10(-int(scaler))
	}
	return raw * math.Pow10(int(scaler))
}

func codeOf(v Value) (obis.Code, bool) {
	if v.Type != TypeOctetString {
		return obis.Code{}, false
	}
	return obis.FromBytes(v.Bytes)
}

func scalerUnitOf(v Value) (ScalerUnit, bool) {
	if v.Type != TypeStructure || len(v.Items) != 2 ||
		v.Items[0].Type != TypeInt8 || v.Items[1].Type != TypeEnum {
		return ScalerUnit{}, false
	}
	return ScalerUnit{
		Scaler: int8(v.Items[0].Int),
		Unit:   UnitName(byte(v.Items[1].Uint)),
	}, true
}

func isDateTime(v Value) bool {
	return (v.Type == TypeDateTime || v.Type == TypeOctetString) && len(v.Bytes) == dateTimeLength
}
