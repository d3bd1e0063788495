package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"envsensor/backend/internal/readings"
	"envsensor/backend/internal/shared/types"
	"envsensor/backend/pkg/utils"
)

const requestTimeout = 10 * time.Second

func newReadingsCmd(v *viper.Viper) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "readings",
		Short: "List the readings held by a running gateway",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			resp, err := fetchReadings(cmd.Context(), http.DefaultClient, v.GetString("server"))
			if err != nil {
				return err
			}

			if asJSON {
				out, err := utils.ToJSONIndent(resp)
				if err != nil {
					return err
				}

				_, err = fmt.Fprintln(cmd.OutOrStdout(), string(out))

				return err
			}

			return printReadings(cmd.OutOrStdout(), resp.Readings)
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON instead of a table")

	return cmd
}

func fetchReadings(ctx context.Context, client *http.Client, server string) (types.ReadingsResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	url := strings.TrimSuffix(server, "/") + "/api/readings"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return types.ReadingsResponse{}, err
	}

	res, err := client.Do(req)
	if err != nil {
		return types.ReadingsResponse{}, fmt.Errorf("failed to reach %s: %w", url, err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(res.Body, 1024))
		return types.ReadingsResponse{}, fmt.Errorf("unexpected status %s: %s", res.Status, strings.TrimSpace(string(body)))
	}

	out, err := utils.FromJSONStream[types.ReadingsResponse](res.Body)
	if err != nil {
		return types.ReadingsResponse{}, fmt.Errorf("failed to decode readings: %w", err)
	}

	return out, nil
}

// printReadings mirrors the gateway's console line per reading.
func printReadings(w io.Writer, rs []readings.Reading) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "TIME\tDEVICE\tNONCE\tT °C\tH %\tP hPa\tV\tmA\tmW\tRSSI\t")

	for _, r := range rs {
		device := r.DeviceID
		if r.Name != "" {
			device = r.Name + " " + r.DeviceID
		}

		fmt.Fprintf(tw, "%s\t%s\t0x%04X\t%.2f\t%.2f\t%.1f\t%.2f\t%.2f\t%.2f\t%d\t\n",
			r.TimestampString(), device, r.Nonce,
			r.Temperature, r.Humidity, r.Pressure,
			r.Voltage, r.Current, r.Power, r.RSSI)
	}

	return tw.Flush()
}
