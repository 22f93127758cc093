package main

import (
	"bufio"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/NotCoffee418/han_reader/pkg/dlms"
	"github.com/NotCoffee418/han_reader/pkg/hdlc"
	"github.com/NotCoffee418/han_reader/pkg/obis"
	"github.com/spf13/cobra"
)

var (
	decodeCmd = &cobra.Command{
		Use:   "decode [hex]",
		Short: "Decode a captured HAN byte stream",
		Long:  "decode reads a hex dump of HAN traffic (argument or stdin), splits it into HDLC frames and prints every OBIS record found.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var input string
			if len(args) == 1 {
				input = args[0]
			} else {
				b, err := io.ReadAll(bufio.NewReader(os.Stdin))
				if err != nil {
					return err
				}
				input = string(b)
			}
			loc, err := time.LoadLocation(decodeTimeZone)
			if err != nil {
				return err
			}
			return runDecode(cmd.OutOrStdout(), input, !noVerify, loc)
		},
	}

	noVerify       bool
	decodeTimeZone string
)

func init() {
	decodeCmd.Flags().BoolVar(&noVerify, "no-verify", false, "skip HCS/FCS verification")
	decodeCmd.Flags().StringVar(&decodeTimeZone, "tz", "UTC", "meter time zone for timestamps without deviation")
}

func runDecode(w io.Writer, input string, verify bool, loc *time.Location) error {
	stream, err := hex.DecodeString(strings.Join(strings.Fields(input), ""))
	if err != nil {
		return fmt.Errorf("invalid hex input: %w", err)
	}
	// Accept a single frame without its flags
	if len(stream) > 0 && stream[0] != hdlc.Flag {
		stream = append(append([]byte{hdlc.Flag}, stream...), hdlc.Flag)
	}

	framer := hdlc.NewFramer(0)
	framer.VerifyChecksums = verify
	decoder := dlms.NewDecoder(verify, loc)
	frames := framer.Feed(stream)
	if len(frames) == 0 {
		return fmt.Errorf("%w: no complete frame in input", hdlc.ErrMalformedFrame)
	}

	for i, raw := range frames {
		records, err := decoder.DecodeFrame(raw)
		if err != nil {
			fmt.Fprintf(w, "frame %d (%d bytes): %v\n", i+1, len(raw), err)
			continue
		}
		fmt.Fprintf(w, "frame %d (%d bytes): %d records\n", i+1, len(raw), len(records))
		for _, rec := range records {
			fmt.Fprintf(w, "  %-16s %s\n", rec.Code.Reduced(), formatRecord(rec, loc))
		}
	}
	return nil
}

func formatRecord(rec dlms.Record, loc *time.Location) string {
	if rec.Code == obis.Clock && rec.Unit == "s" {
		return time.Unix(int64(rec.Value), 0).In(loc).Format(time.RFC3339)
	}
	if rec.Unit == "" {
		return fmt.Sprintf("%v", rec.Value)
	}
	return fmt.Sprintf("%v %s", rec.Value, rec.Unit)
}
