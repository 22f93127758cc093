package dlms

import (
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/stretchr/testify/require"
)

func TestParseValueIntegers(t *testing.T) {
	cases := []struct {
		hex  string
		want float64
		size int
	}{
		{"0f80", -128, 2},
		{"11ff", 255, 2},
		{"10fffe", -2, 3},
		{"12fffe", 65534, 3},
		{"05fffffffe", -2, 5},
		{"06fffffffe", 4294967294, 5},
		{"14fffffffffffffffe", -2, 9},
		{"1500000000000000ff", 255, 9},
		{"1603", 3, 2},
		{"0301", 1, 2},
		{"173fc00000", 1.5, 5},
		{"18bff8000000000000", -1.5, 9},
	}
	for _, c := range cases {
		v, n, err := ParseValue(decodeHex(t, c.hex))
		require.NoError(t, err, c.hex)
		require.Equal(t, c.size, n, c.hex)
		got, ok := v.Numeric()
		require.True(t, ok, c.hex)
		require.Equal(t, c.want, got, c.hex)
	}
}

func TestParseValueStrings(t *testing.T) {
	v, n, err := ParseValue(decodeHex(t, "0a034142430000"))
	require.NoError(t, err)
	require.Equal(t, 5, n)
	require.Equal(t, "ABC", string(v.Bytes))
	_, ok := v.Numeric()
	require.False(t, ok)

	v, n, err = ParseValue(decodeHex(t, "040cabcd"))
	require.NoError(t, err)
	require.Equal(t, 4, n)
	require.Equal(t, []byte{0xab, 0xcd}, v.Bytes)
}

func TestParseValueLongLength(t *testing.T) {
	raw := append([]byte{0x09, 0x81, 0x80}, make([]byte, 0x80)...)
	v, n, err := ParseValue(raw)
	require.NoError(t, err)
	require.Equal(t, len(raw), n)
	require.Len(t, v.Bytes, 0x80)

	_, _, err = ParseValue([]byte{0x09, 0x83, 0x00, 0x00, 0x01})
	require.ErrorIs(t, err, ErrMalformed)
}

func TestParseValueErrors(t *testing.T) {
	for _, in := range []string{
		"",
		"06000000",
		"0905414243",
		"0102",
		"020206",
		"07",
		"13",
	} {
		_, _, err := ParseValue(decodeHex(t, in))
		require.ErrorIs(t, err, ErrMalformed, in)
	}
}

func TestParseValueNestingLimit(t *testing.T) {
	var raw []byte
	for i := 0; i < maxNesting+2; i++ {
		raw = append(raw, 0x02, 0x01)
	}
	raw = append(raw, 0x00)
	_, _, err := ParseValue(raw)
	require.ErrorIs(t, err, ErrMalformed)
}

func TestParseDateTime(t *testing.T) {
	oslo, err := time.LoadLocation("Europe/Oslo")
	require.NoError(t, err)

	// Deviation unspecified: interpreted in the given location.
	ts, err := ParseDateTime(decodeHex(t, "07e30c1001073b28ff8000ff"), oslo)
	require.NoError(t, err)
	require.Equal(t, time.Date(2019, 12, 16, 6, 59, 40, 0, time.UTC), ts.UTC())

	// Deviation of -60 minutes: local time is UTC+1.
	ts, err = ParseDateTime(decodeHex(t, "07e4060f010c0000 00ffc400"), nil)
	require.NoError(t, err)
	require.Equal(t, time.Date(2020, 6, 15, 11, 0, 0, 0, time.UTC), ts.UTC())

	_, err = ParseDateTime(decodeHex(t, "ffff0c1001073b28ff8000ff"), time.UTC)
	require.ErrorIs(t, err, ErrMalformed)

	_, err = ParseDateTime(decodeHex(t, "07e30c10"), time.UTC)
	require.ErrorIs(t, err, ErrMalformed)
}

func TestUnitName(t *testing.T) {
	require.Equal(t, "W", UnitName(27))
	require.Equal(t, "Wh", UnitName(30))
	require.Equal(t, "varh", UnitName(32))
	require.Equal(t, "A", UnitName(33))
	require.Equal(t, "V", UnitName(35))
	require.Equal(t, "", UnitName(255))
	require.Equal(t, "", UnitName(200))
}
