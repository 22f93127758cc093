package hdlc

import (
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/require"
)

const sampleFrame = "a055410883130b6ce6e7000f40000000000103020209060000010000ff090c07e30c1001073b28ff8000ff" +
	"020309060100010700ff060000046202020f00161b020309060100200700ff12091602020fff1623bca6"

func TestParseFrameSample(t *testing.T) {
	raw := decodeHex(t, sampleFrame)
	fr, err := ParseFrame(raw, true)
	require.NoError(t, err)

	require.False(t, fr.Segmented)
	require.Equal(t, 0x55, fr.Length)
	require.Equal(t, []byte{0x41}, fr.Destination)
	require.Equal(t, []byte{0x08, 0x83}, fr.Source)
	require.Equal(t, byte(0x13), fr.Control)
	require.Equal(t, uint16(0x6C0B), fr.HCS)
	require.Equal(t, uint16(0xA6BC), fr.FCS)
	require.Equal(t, []byte{0xE6, 0xE7, 0x00, 0x0F}, fr.Information[:4])
	require.Len(t, fr.Information, 0x55-2-1-2-1-2-2)
}

func TestChecksumKnownHeader(t *testing.T) {
	// Header of the Aidon sample in the IEC 62056-46 excerpt: HCS is 85 EB.
	require.Equal(t, uint16(0xEB85), Checksum([]byte{0xA2, 0x43, 0x41, 0x08, 0x83, 0x13}))
	require.Equal(t, uint16(0x906E), Checksum([]byte("123456789")))
}

func TestParseFrameWithoutInformation(t *testing.T) {
	raw := Encode([]byte{0x03}, []byte{0x21}, 0x93, nil)
	require.Len(t, raw, minFrameLength)

	fr, err := ParseFrame(raw, true)
	require.NoError(t, err)
	require.Empty(t, fr.Information)
	require.Equal(t, byte(0x93), fr.Control)
}

func TestParseFrameErrors(t *testing.T) {
	good := decodeHex(t, sampleFrame)

	badHCS := append([]byte(nil), good...)
	badHCS[6] ^= 0x01
	// keep the FCS valid so the HCS check is reached
	sum := Checksum(badHCS[:len(badHCS)-2])
	badHCS[len(badHCS)-2], badHCS[len(badHCS)-1] = byte(sum), byte(sum>>8)

	badType := append([]byte(nil), good...)
	badType[0] = 0x80 | badType[0]&0x0F

	shortLen := append([]byte(nil), good...)
	shortLen[1]--

	cases := []struct {
		name string
		raw  []byte
		want error
	}{
		{"too short", []byte{0xA0, 0x05, 0x03, 0x21, 0x93}, ErrMalformedFrame},
		{"bad type", badType, ErrMalformedFrame},
		{"length mismatch", shortLen, ErrMalformedFrame},
		{"bad hcs", badHCS, ErrChecksum},
		{"bad fcs", append(append([]byte(nil), good[:len(good)-1]...), good[len(good)-1]^0xFF), ErrChecksum},
	}
	for _, c := range cases {
		_, err := ParseFrame(c.raw, true)
		require.ErrorIs(t, err, c.want, c.name)
	}
}

func TestParseFrameUnterminatedAddress(t *testing.T) {
	// Destination address bytes never set the LSB.
	raw := []byte{0xA0, 0x09, 0x02, 0x04, 0x06, 0x08, 0x0A, 0x13}
	sum := Checksum(raw)
	raw = append(raw, byte(sum), byte(sum>>8))
	raw[1] = byte(len(raw))

	_, err := ParseFrame(raw, false)
	require.ErrorIs(t, err, ErrMalformedFrame)
}

func TestEncodeRoundTrip(t *testing.T) {
	info := []byte{0xE6, 0xE7, 0x00, 0x0F, 0x00, 0x00, 0x00, 0x01, 0x00, 0x00}
	fr, err := ParseFrame(Encode([]byte{0x41}, []byte{0x08, 0x83}, 0x13, info), true)
	require.NoError(t, err)
	require.Equal(t, info, fr.Information)
}

func decodeHex(t *testing.T, s string) []byte {
	t.Helper()
	b, err := hex.DecodeString(s)
	if err != nil {
		t.Fatalf("hex decode: %v", err)
	}
	return b
}
