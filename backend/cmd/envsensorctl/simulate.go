package main

import (
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"math/rand/v2"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"envsensor/backend/internal/admission"
	mqttapi "envsensor/backend/internal/mqtt"
	"envsensor/backend/internal/shared/types"
	"envsensor/backend/pkg/generate"
	"envsensor/backend/pkg/mqtt"
	"envsensor/backend/pkg/payload"
	"envsensor/backend/pkg/utils"
)

const opSimulateAdvertisement = "simulateAdvertisement"

type simulateOptions struct {
	gateway  string
	devices  int
	interval time.Duration
	repeat   int
	count    int
	seed     uint64
}

func newSimulateCmd(v *viper.Viper) *cobra.Command {
	var opts simulateOptions

	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Publish synthetic sensor advertisements to MQTT",
		Long: "Acts as a gateway forwarding advertisements from simulated sensors.\n" +
			"Every frame is sent --repeat times, the way a beacon repeats its broadcast, so the gateway's deduplication can be observed.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if opts.devices < 1 || opts.repeat < 1 {
				return errors.New("--devices and --repeat must be at least 1")
			}

			if opts.interval <= 0 {
				return errors.New("--interval must be positive")
			}

			ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			l := newLogger(v).With(slog.String("component", "simulator"))

			mb, err := mqtt.NewMQTTBuilder(l, generate.NoopCollector{}, mqtt.MQTTClientOptions{
				BrokerURL: v.GetString("broker"),
				ClientID:  "envsensorctl-" + utils.NewUUID()[:8],
				Username:  v.GetString("username"),
				Password:  v.GetString("password"),
			})
			if err != nil {
				return err
			}

			mb.MustRegisterPublish(mqttapi.TopicAdvertisements, mqtt.PublicationSpec{
				OperationID: opSimulateAdvertisement,
				Summary:     "Simulated advertisement",
				Description: "Synthetic sensor advertisement forwarded on behalf of a fake gateway.",
				Group:       mqttapi.GatewaysGroup,
				TopicParameters: []mqtt.TopicParameter{
					{Name: "gatewayID", Description: "Identifier of the simulated gateway", Type: new(string)},
				},
				MessageType: types.Advertisement{},
				QoS:         mqtt.QoSAtLeastOnce,
			})

			if err := mb.Connect(ctx); err != nil {
				return err
			}
			defer mb.Disconnect()

			sim := newSimulator(opts.devices, opts.seed)
			client := mb.Client()

			ticker := time.NewTicker(opts.interval)
			defer ticker.Stop()

			for sent := 0; opts.count == 0 || sent < opts.count; sent++ {
				for _, adv := range sim.Next() {
					for range opts.repeat {
						if err := client.Publish(opSimulateAdvertisement, adv, opts.gateway); err != nil {
							l.Warn("Failed to publish advertisement", slog.String("device", adv.DeviceID), utils.ErrAttr(err))
						}
					}
				}

				l.Info("Published frames", slog.Int("round", sent+1), slog.Int("devices", opts.devices), slog.Int("repeat", opts.repeat))

				select {
				case <-ctx.Done():
					return nil
				case <-ticker.C:
				}
			}

			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.gateway, "gateway", "envsensorctl", "gateway ID used in the topic")
	f.IntVar(&opts.devices, "devices", 3, "number of simulated sensors")
	f.DurationVar(&opts.interval, "interval", 2*time.Second, "time between frames")
	f.IntVar(&opts.repeat, "repeat", 3, "times each frame is sent")
	f.IntVar(&opts.count, "count", 0, "frames per sensor, 0 runs until interrupted")
	f.Uint64Var(&opts.seed, "seed", uint64(time.Now().UnixNano()), "random seed")

	return cmd
}

// simDevice drifts its measurements a little on every frame.
type simDevice struct {
	id          string
	name        string
	nonce       uint16
	temperature float64
	humidity    float64
	pressure    float64
	voltage     float64
	current     float64
}

type simulator struct {
	rng     *rand.Rand
	devices []*simDevice
}

func newSimulator(n int, seed uint64) *simulator {
	rng := rand.New(rand.NewPCG(seed, seed^0x9E3779B97F4A7C15))

	devices := make([]*simDevice, n)
	for i := range devices {
		devices[i] = &simDevice{
			id:          fmt.Sprintf("E5:0C:00:00:00:%02X", i+1),
			name:        fmt.Sprintf("EnvSim-%02d", i+1),
			nonce:       uint16(rng.IntN(math.MaxUint16)),
			temperature: 18 + rng.Float64()*8,
			humidity:    35 + rng.Float64()*30,
			pressure:    990 + rng.Float64()*40,
			voltage:     3.0 + rng.Float64()*1.2,
			current:     5 + rng.Float64()*10,
		}
	}

	return &simulator{rng: rng, devices: devices}
}

// Next advances every device by one frame.
func (s *simulator) Next() []types.Advertisement {
	out := make([]types.Advertisement, len(s.devices))
	for i, d := range s.devices {
		out[i] = d.frame(s.rng)
	}

	return out
}

func (d *simDevice) frame(rng *rand.Rand) types.Advertisement {
	d.nonce++
	d.temperature += rng.NormFloat64() * 0.05
	d.humidity = clamp(d.humidity+rng.NormFloat64()*0.1, 0, 100)
	d.pressure += rng.NormFloat64() * 0.2
	d.voltage = clamp(d.voltage-rng.Float64()*0.001, 0, 5)
	d.current = clamp(d.current+rng.NormFloat64()*0.3, -50, 50)

	raw := payload.Raw{
		Nonce:       d.nonce,
		Temperature: int16(math.Round(d.temperature * 100)),
		Humidity:    uint16(math.Round(d.humidity * 100)),
		Pressure:    uint32(math.Round(d.pressure * 10)),
		Voltage:     uint16(math.Round(d.voltage * 100)),
		Current:     int32(math.Round(d.current * 100)),
	}

	vendor := admission.VendorID
	data := make([]byte, 0, admission.VendorPrefixLen+payload.Size)
	data = append(data, byte(vendor), byte(vendor>>8))
	data = append(data, payload.Encode(raw)...)

	return types.Advertisement{
		DeviceID:         d.id,
		ManufacturerData: strings.ToUpper(hex.EncodeToString(data)),
		RSSI:             -45 - rng.IntN(45),
		Name:             d.name,
	}
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
