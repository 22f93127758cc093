package dlms

import (
	"errors"

	"github.com/NotCoffee418/han_reader/pkg/obis"
)

var (
	ErrMalformed      = errors.New("malformed DLMS data")
	ErrUnsupportedPDU = errors.New("unsupported DLMS APDU")
)

// DataType is the A-XDR type tag of a COSEM data value.
type DataType byte

const (
	TypeNull          DataType = 0x00
	TypeArray         DataType = 0x01
	TypeStructure     DataType = 0x02
	TypeBoolean       DataType = 0x03
	TypeBitString     DataType = 0x04
	TypeInt32         DataType = 0x05
	TypeUint32        DataType = 0x06
	TypeOctetString   DataType = 0x09
	TypeVisibleString DataType = 0x0A
	TypeUTF8String    DataType = 0x0C
	TypeBCD           DataType = 0x0D
	TypeInt8          DataType = 0x0F
	TypeInt16         DataType = 0x10
	TypeUint8         DataType = 0x11
	TypeUint16        DataType = 0x12
	TypeInt64         DataType = 0x14
	TypeUint64        DataType = 0x15
	TypeEnum          DataType = 0x16
	TypeFloat32       DataType = 0x17
	TypeFloat64       DataType = 0x18
	TypeDateTime      DataType = 0x19
	TypeDate          DataType = 0x1A
	TypeTime          DataType = 0x1B
)

const (
	tagDataNotification = 0x0F
	llcDestination      = 0xE6
	llcQuality          = 0x00
	dateTimeLength      = 12
	maxNesting          = 16
)

// Value is one decoded A-XDR data element.
type Value struct {
	Type DataType
	// Int holds every signed and unsigned integer type, enum and boolean.
	// uint64 values above math.MaxInt64 are kept in Uint only.
	Int   int64
	Uint  uint64
	Float float64
	// Bytes holds string, bit-string, bcd and date/time payloads.
	Bytes []byte
	// Items holds array and structure elements in order.
	Items []Value
}

// Notification is a parsed data-notification APDU.
type Notification struct {
	InvokeID     uint32
	HasTimestamp bool
	Timestamp    []byte
	Body         Value
}

// ScalerUnit describes how a raw register value maps to a measurement:
// value = raw * 10^Scaler.
type ScalerUnit struct {
	Scaler int8
	Unit   string
}

// Record is a single OBIS tagged measurement extracted from a frame.
type Record struct {
	Code   obis.Code
	Value  float64
	Scaler int8
	Unit   string
}
