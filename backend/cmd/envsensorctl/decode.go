package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"envsensor/backend/internal/services"
	"envsensor/backend/pkg/payload"
	"envsensor/backend/pkg/utils"
)

type decodedFrame struct {
	payload.Payload
	Power float64 `json:"power"`
}

func newDecodeCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "decode <hex>...",
		Short: "Decode a sensor payload",
		Long: "Decode a 16 byte sensor payload, or 18 bytes including the 0xFFFF vendor prefix.\n" +
			"Spaces and colons between bytes are ignored, so the payload may span several arguments.",
		Example: "  envsensorctl decode 010064095016701B0000900100040000\n" +
			"  envsensorctl decode FF FF 01 00 64 09 50 16 70 1B 00 00 90 01 00 04 00 00",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := services.DecodeFrame(strings.Join(args, ""))
			if err != nil {
				return err
			}

			if asJSON {
				out, err := utils.ToJSONIndent(decodedFrame{Payload: p, Power: p.Power()})
				if err != nil {
					return err
				}

				_, err = fmt.Fprintln(cmd.OutOrStdout(), string(out))

				return err
			}

			return printPayload(cmd.OutOrStdout(), p)
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON instead of a table")

	return cmd
}

func printPayload(w io.Writer, p payload.Payload) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "nonce\t0x%04X\n", p.Nonce)
	fmt.Fprintf(tw, "temperature\t%.2f °C\n", p.Temperature)
	fmt.Fprintf(tw, "humidity\t%.2f %%\n", p.Humidity)
	fmt.Fprintf(tw, "pressure\t%.1f hPa\n", p.Pressure)
	fmt.Fprintf(tw, "voltage\t%.2f V\n", p.Voltage)
	fmt.Fprintf(tw, "current\t%.2f mA\n", p.Current)
	fmt.Fprintf(tw, "power\t%.2f mW\n", p.Power())

	return tw.Flush()
}
