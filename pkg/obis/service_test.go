package obis

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseSeparators(t *testing.T) {
	want := Code{1, 0, 1, 8, 0, 255}
	for _, in := range []string{
		"1.0.1.8.0.255",
		"1-0:1.8.0.255",
		"1,0,1,8,0,255",
		"1:0:1:8:0:255",
		" 1.0.1.8.0.255 ",
	} {
		got, err := Parse(in)
		require.NoError(t, err, in)
		require.Equal(t, want, got, in)
	}
}

func TestParseRoundTrip(t *testing.T) {
	for _, c := range []Code{{0, 0, 0, 0, 0, 0}, {255, 255, 255, 255, 255, 255}, {1, 0, 32, 7, 0, 255}, {7, 13, 99, 128, 1, 2}} {
		got, err := Parse(c.String())
		require.NoError(t, err)
		require.Equal(t, c, got)
	}
}

func TestParseRejects(t *testing.T) {
	for _, in := range []string{
		"",
		"1.0.1.8.0",
		"1.0.1.8.0.255.1",
		"1.0.1.8.0.256",
		"1.0.1.8.0.-1",
		"1..1.8.0.255",
		"a.0.1.8.0.255",
		"1.0.1.8.0.255.",
	} {
		_, err := Parse(in)
		require.ErrorIs(t, err, ErrInvalidCode, in)
	}
}

func TestMustParsePanics(t *testing.T) {
	require.Panics(t, func() { MustParse("1.2.3") })
	require.Equal(t, ActiveEnergyImport, MustParse("1.0.1.8.0.255"))
}

func TestFromBytes(t *testing.T) {
	c, ok := FromBytes([]byte{1, 0, 1, 7, 0, 255})
	require.True(t, ok)
	require.Equal(t, ActivePowerImport, c)

	_, ok = FromBytes([]byte{1, 0, 1})
	require.False(t, ok)
}

func TestReduced(t *testing.T) {
	require.Equal(t, "1-0:1.8.0", ActiveEnergyImport.Reduced())
	require.Equal(t, "1-1:0.2.129", ListVersion.Reduced())
	require.Equal(t, "0-0:96.1.0.1", Code{0, 0, 96, 1, 0, 1}.Reduced())
}

func TestTextMarshalling(t *testing.T) {
	var c Code
	require.NoError(t, c.UnmarshalText([]byte("1-0:32.7.0.255")))
	require.Equal(t, VoltageL1, c)

	text, err := c.MarshalText()
	require.NoError(t, err)
	require.Equal(t, "1.0.32.7.0.255", string(text))

	require.ErrorIs(t, c.UnmarshalText([]byte("300.0.0.0.0.0")), ErrInvalidCode)
}
