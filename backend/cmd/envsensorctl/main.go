// envsensorctl is the operator CLI of the envsensor gateway.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"envsensor/backend/pkg/utils"
)

const envPrefix = "ENVSENSOR"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// newRootCmd builds the command tree. Every persistent flag can also be set
// through ENVSENSOR_<FLAG>, dashes replaced by underscores.
func newRootCmd() *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	rootCmd := &cobra.Command{
		Use:           "envsensorctl",
		Short:         "Operate an envsensor gateway",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := rootCmd.PersistentFlags()
	pf.String("server", "http://localhost:8080", "base URL of the envsensor HTTP API")
	pf.String("broker", "tcp://127.0.0.1:1883", "MQTT broker URL")
	pf.String("username", "", "MQTT username")
	pf.String("password", "", "MQTT password")
	pf.String("log-level", "info", "log level (debug, info, warn, error)")

	if err := v.BindPFlags(pf); err != nil {
		panic(err)
	}

	rootCmd.AddCommand(
		newVersionCmd(),
		newDecodeCmd(),
		newSimulateCmd(v),
		newReadingsCmd(v),
	)

	return rootCmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version number",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), utils.GetBuildVersion())
		},
	}
}

func newLogger(v *viper.Viper) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(v.GetString("log-level"))); err != nil {
		level = slog.LevelInfo
	}

	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level:       level,
		ReplaceAttr: utils.SlogReplacer,
	}))
}
