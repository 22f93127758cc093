package hdlc

import (
	"bytes"
	"encoding/binary"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
)

func testFrame(info []byte) []byte {
	return Encode([]byte{0x41}, []byte{0x08, 0x83}, 0x13, info)
}

func wrap(frames ...[]byte) []byte {
	var out []byte
	for _, f := range frames {
		out = append(out, Flag)
		out = append(out, f...)
		out = append(out, Flag)
	}
	return out
}

func TestFramerSingleFrame(t *testing.T) {
	body := testFrame([]byte{0xE6, 0xE7, 0x00, 0x0F, 0x01, 0x02})
	f := NewFramer(0)

	frames := f.Feed(wrap(body))
	require.Len(t, frames, 1)
	require.Equal(t, body, frames[0])
	require.Equal(t, uint64(1), f.Stats().Frames)
	require.Equal(t, StateAccumulating, f.State())
	require.Zero(t, f.Buffered())
}

func TestFramerFlagInsideBody(t *testing.T) {
	body := testFrame([]byte{0xE6, 0xE7, 0x00, Flag, Flag, 0x7D, Flag})
	frames := NewFramer(0).Feed(wrap(body))
	require.Equal(t, [][]byte{body}, frames)
}

func TestFramerSharedFlag(t *testing.T) {
	a := testFrame([]byte{0x01, 0x02, 0x03})
	b := testFrame([]byte{0x04, 0x05})

	stream := []byte{Flag}
	stream = append(stream, a...)
	stream = append(stream, Flag)
	stream = append(stream, b...)
	stream = append(stream, Flag)

	require.Equal(t, [][]byte{a, b}, NewFramer(0).Feed(stream))
}

func TestFramerGarbageBeforeStart(t *testing.T) {
	body := testFrame([]byte{0xAA, 0xBB, 0xCC})
	garbage := []byte{0x00, 0x13, 0xA2, 0x43, 0xFF, 0x01, 0x55}

	f := NewFramer(0)
	frames := f.Feed(append(garbage, wrap(body)...))
	require.Equal(t, [][]byte{body}, frames)
	require.Equal(t, uint64(len(garbage)), f.Stats().DiscardedBytes)
}

func TestFramerFalseStartInGarbage(t *testing.T) {
	a := testFrame([]byte{0xAA, 0xBB, 0xCC})
	b := testFrame([]byte{0xDD})
	// A flag followed by a type 3 format announcing 800 bytes.
	garbage := []byte{0x13, Flag, 0xA3, 0x20, 0x55}

	f := NewFramer(0)
	frames := f.Feed(append(append(garbage, wrap(a)...), wrap(b)...))
	require.Equal(t, [][]byte{a, b}, frames)
	require.NotZero(t, f.Stats().Resyncs)
	require.Equal(t, StateAccumulating, f.State())
	require.Zero(t, f.Buffered())
}

func TestFramerFalseStartWithoutChecksums(t *testing.T) {
	good := testFrame([]byte{0x01, 0x02})

	cases := map[string][]byte{
		"flag in address":     {0x13, Flag, 0xA3, 0x20, 0x55},
		"implausible control": {Flag, 0xA0, 0x40, 0x41, 0x03, 0xFF},
	}
	for name, garbage := range cases {
		t.Run(name, func(t *testing.T) {
			f := NewFramer(0)
			f.VerifyChecksums = false
			frames := f.Feed(append(append([]byte{}, garbage...), wrap(good)...))
			require.Equal(t, [][]byte{good}, frames)
		})
	}
}

func TestFramerRejectsBadHeaderChecksumEarly(t *testing.T) {
	bad := testFrame(bytes.Repeat([]byte{0x11}, 200))
	bad[6] ^= 0xFF

	f := NewFramer(0)
	require.Empty(t, f.Feed(append([]byte{Flag}, bad[:20]...)))
	require.Equal(t, uint64(1), f.Stats().Resyncs)
	require.Equal(t, StateSeekingStart, f.State())
	require.Zero(t, f.Buffered())

	good := testFrame([]byte{0x01})
	require.Equal(t, [][]byte{good}, f.Feed(wrap(good)))
}

func TestFramerHeaderChecksumOptional(t *testing.T) {
	body := testFrame([]byte{0x01, 0x02})
	body[6] ^= 0xFF

	require.Empty(t, NewFramer(0).Feed(wrap(body)))

	f := NewFramer(0)
	f.VerifyChecksums = false
	require.Equal(t, [][]byte{body}, f.Feed(wrap(body)))
}

func TestFramerGarbageBetweenFrames(t *testing.T) {
	a := testFrame([]byte{0x01})
	b := testFrame([]byte{0x02})

	stream := wrap(a)
	stream = append(stream, 0x10, 0x20, 0x30)
	stream = append(stream, wrap(b)...)

	require.Equal(t, [][]byte{a, b}, NewFramer(0).Feed(stream))
}

func TestFramerChunkingIndependence(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	var stream []byte
	for i := 0; i < 50; i++ {
		switch rng.Intn(4) {
		case 0:
			garbage := make([]byte, rng.Intn(20))
			rng.Read(garbage)
			stream = append(stream, garbage...)
		case 1:
			// truncated frame
			body := wrap(testFrame(randomInfo(rng)))
			stream = append(stream, body[:rng.Intn(len(body))]...)
		default:
			stream = append(stream, wrap(testFrame(randomInfo(rng)))...)
		}
	}

	whole := NewFramer(0).Feed(stream)

	var single [][]byte
	f := NewFramer(0)
	for _, b := range stream {
		single = append(single, f.Feed([]byte{b})...)
	}
	require.Equal(t, whole, single)

	var chunked [][]byte
	f = NewFramer(0)
	for rest := stream; len(rest) > 0; {
		n := 1 + rng.Intn(64)
		if n > len(rest) {
			n = len(rest)
		}
		chunked = append(chunked, f.Feed(rest[:n])...)
		rest = rest[n:]
	}
	require.Equal(t, whole, chunked)
}

func TestFramerOverflowRecovers(t *testing.T) {
	big := testFrame(bytes.Repeat([]byte{0x11}, 100))
	small := testFrame([]byte{0x22, 0x33})

	f := NewFramer(64)
	frames := f.Feed(append(wrap(big), wrap(small)...))
	require.Equal(t, [][]byte{small}, frames)
	require.Equal(t, uint64(1), f.Stats().Overflows)
	require.LessOrEqual(t, f.Buffered(), 64)
}

func TestFramerNeverBuffersPastMaximum(t *testing.T) {
	// A valid header announcing a long frame followed by endless body bytes.
	header := []byte{0xA0, 0x1F, 0x41, 0x08, 0x83, 0x13}
	header = binary.LittleEndian.AppendUint16(header, Checksum(header))
	f := NewFramer(32)
	f.Feed(append([]byte{Flag}, header...))
	require.Equal(t, StateAccumulating, f.State())
	for i := 0; i < 10_000; i++ {
		f.Feed([]byte{0x55})
		require.LessOrEqual(t, f.Buffered(), 32)
	}

	good := testFrame([]byte{0x01})
	require.Equal(t, [][]byte{good}, f.Feed(wrap(good)))
}

func TestFramerCorruptedLengthLonger(t *testing.T) {
	bad := testFrame([]byte{0x01, 0x02, 0x03, 0x04})
	bad[1] += 40
	good := testFrame([]byte{0x05, 0x06})

	stream := append(wrap(bad), wrap(good)...)
	stream = append(stream, bytes.Repeat([]byte{0x00}, 64)...)

	f := NewFramer(0)
	require.Equal(t, [][]byte{good}, f.Feed(stream))
	require.NotZero(t, f.Stats().Resyncs)
}

func TestFramerCorruptedLengthShorter(t *testing.T) {
	bad := testFrame([]byte{0x01, 0x02, 0x03, 0x04, 0x05, 0x06})
	bad[1] -= 3
	good := testFrame([]byte{0x07})

	f := NewFramer(0)
	require.Equal(t, [][]byte{good}, f.Feed(append(wrap(bad), wrap(good)...)))
}

func TestFramerInvalidFormatType(t *testing.T) {
	good := testFrame([]byte{0x01})
	stream := []byte{Flag, 0x12, 0x34, 0x56}
	stream = append(stream, wrap(good)...)

	require.Equal(t, [][]byte{good}, NewFramer(0).Feed(stream))
}

func TestFramerReset(t *testing.T) {
	good := testFrame([]byte{0x01, 0x02})
	full := wrap(good)

	f := NewFramer(0)
	require.Empty(t, f.Feed(full[:6]))
	require.Equal(t, StateAccumulating, f.State())
	require.NotZero(t, f.Buffered())

	f.Reset()
	require.Equal(t, StateSeekingStart, f.State())
	require.Zero(t, f.Buffered())

	// The rest of the interrupted frame is noise now.
	require.Empty(t, f.Feed(full[6:len(full)-1]))
	require.Equal(t, [][]byte{good}, f.Feed(wrap(good)))
}

func TestStateString(t *testing.T) {
	require.Equal(t, "seeking_start", StateSeekingStart.String())
	require.Equal(t, "accumulating", StateAccumulating.String())
	require.Equal(t, "frame_ready", StateFrameReady.String())
}

func randomInfo(rng *rand.Rand) []byte {
	info := make([]byte, 1+rng.Intn(40))
	rng.Read(info)
	return info
}
