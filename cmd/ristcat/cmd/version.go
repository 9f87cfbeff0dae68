package cmd

import (
	"fmt"

	"github.com/opd-ai/rist/native/factory"
	"github.com/spf13/cobra"
)

// version is set at build time via -ldflags "-X github.com/opd-ai/rist/cmd/ristcat/cmd.ristcatVersion=x.y.z"
var ristcatVersion = "0.1.0"

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show ristcat version and engine",
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Fprintf(cmd.OutOrStdout(), "ristcat version %s\n", ristcatVersion)

		engine := "simulated"
		if factory.NativeAvailable() && !factory.DefaultConfig().UseSimulation {
			engine = "librist"
		}
		fmt.Fprintf(cmd.OutOrStdout(), "engine: %s\n", engine)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
