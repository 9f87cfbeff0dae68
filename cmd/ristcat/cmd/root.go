package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/opd-ai/rist"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	// Global flags
	profileName   string
	logLevelName  string
	optionsPath   string
	metricsAddr   string
	statsInterval time.Duration
	useAsync      bool

	// Set during PersistentPreRunE
	env *runEnv
)

// runEnv is everything a subcommand needs besides its own flags.
type runEnv struct {
	profile     rist.Profile
	config      *rist.Config
	options     *optionsFile
	metricsAddr string
	async       bool
}

// rootCmd is the base command for ristcat.
var rootCmd = &cobra.Command{
	Use:   "ristcat",
	Short: "Send and receive RIST streams",
	Long: `ristcat moves a byte stream over RIST. "send" reads a file, stdin or a
generated MPEG-TS null stream and transmits it; "recv" writes what arrives
to a file or stdout. Flow statistics are logged periodically and can be
exported to Prometheus with --metrics-addr.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		profile, err := rist.ParseProfile(profileName)
		if err != nil {
			return err
		}
		level, err := rist.ParseLogLevel(logLevelName)
		if err != nil {
			return err
		}
		logrus.SetLevel(logrusLevel(level))

		opts, err := loadOptions(optionsPath)
		if err != nil {
			return fmt.Errorf("failed to load options: %w", err)
		}

		cfg := rist.NewConfig()
		if statsInterval > 0 {
			cfg.StatsInterval = statsInterval
		}
		if err := rist.SetLibraryLogging(cfg.Library, level); err != nil {
			return err
		}

		env = &runEnv{
			profile:     profile,
			config:      cfg,
			options:     opts,
			metricsAddr: metricsAddr,
			async:       useAsync,
		}
		return nil
	},
}

// logrusLevel keeps the process log level in step with the engine's.
func logrusLevel(l rist.LogLevel) logrus.Level {
	switch l {
	case rist.LogDisable, rist.LogError:
		return logrus.ErrorLevel
	case rist.LogWarn:
		return logrus.WarnLevel
	case rist.LogNotice, rist.LogInfo:
		return logrus.InfoLevel
	}
	return logrus.DebugLevel
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// RootCmd returns the root cobra.Command for testing purposes.
func RootCmd() *cobra.Command {
	return rootCmd
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&profileName, "profile", "p", rist.DefaultProfile.String(), "RIST profile: simple, main, advanced")
	rootCmd.PersistentFlags().StringVar(&logLevelName, "log-level", rist.DefaultLogLevel.String(), "engine log level: disable, error, warn, notice, info, debug")
	rootCmd.PersistentFlags().StringVar(&optionsPath, "options", "", "YAML file with sender and receiver peer options")
	rootCmd.PersistentFlags().StringVar(&metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address, e.g. :9100")
	rootCmd.PersistentFlags().DurationVar(&statsInterval, "stats-interval", 0, "statistics period (default from RIST_STATS_INTERVAL_MS or 1s)")
	rootCmd.PersistentFlags().BoolVar(&useAsync, "async", false, "use the asynchronous session API")
}
