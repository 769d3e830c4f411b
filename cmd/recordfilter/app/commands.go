// Package app provides the commands of the recordfilter CLI.
package app

import (
	"fmt"
	"io"
	"log/slog"
	"runtime"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/hugr-lab/recordfilter"
	"github.com/hugr-lab/recordfilter/filter"
)

// EnvPrefix is the prefix of environment variables overriding flags, for
// example RECORDFILTER_LOG_LEVEL or RECORDFILTER_SKIP_UNDEFINED.
const EnvPrefix = "RECORDFILTER"

// Build information, set with -ldflags "-X".
var (
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"
)

// cli holds the state shared by the commands of one invocation.
type cli struct {
	v      *viper.Viper
	logger *slog.Logger
}

// NewRootCmd creates the root command with all subcommands.
func NewRootCmd() *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()

	c := &cli{v: v, logger: slog.Default()}

	root := &cobra.Command{
		Use:               "recordfilter",
		DisableAutoGenTag: true,
		Short:             "Declarative record filtering",
		Long: `recordfilter applies declarative filter sets to record collections.

Filter sets and records are read from JSON, YAML or MessagePack files,
optionally zstd-compressed. Records can also come from Arrow IPC streams or
DuckDB queries, and the serve command exposes filtering over Arrow Flight.`,
		SilenceUsage:      true,
		PersistentPreRunE: c.setup,
		Run: func(cmd *cobra.Command, _ []string) {
			if err := cmd.Help(); err != nil {
				c.logger.Error("Error displaying help", "error", err)
			}
		},
	}

	root.PersistentFlags().String("log-level", "info", "Log level (debug, info, warn, error)")

	root.AddCommand(
		newApplyCmd(c),
		newValidateCmd(c),
		newTypesCmd(c),
		newServeCmd(c),
		newVersionCmd(c),
	)
	return root
}

// setup binds the flags of the executing command and configures logging.
func (c *cli) setup(cmd *cobra.Command, _ []string) error {
	if err := c.v.BindPFlags(cmd.Flags()); err != nil {
		return fmt.Errorf("failed to bind flags: %w", err)
	}
	level, err := parseLevel(c.v.GetString("log-level"))
	if err != nil {
		return err
	}
	c.logger = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
	return nil
}

func parseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return 0, fmt.Errorf("invalid log level %q", s)
}

// engineConfig builds the engine configuration from the common flags.
func (c *cli) engineConfig() (recordfilter.Config, error) {
	skip := c.v.GetBool("skip-undefined")
	config := recordfilter.Config{
		Logger:         c.logger,
		SkipUndefined:  &skip,
		MaxPayloadSize: c.v.GetUint64("max-payload-size"),
	}
	if tz := c.v.GetString("timezone"); tz != "" {
		loc, err := time.LoadLocation(tz)
		if err != nil {
			return config, fmt.Errorf("invalid timezone: %w", err)
		}
		config.Location = loc
	}
	return config, nil
}

// addEngineFlags registers the flags read by engineConfig.
func addEngineFlags(cmd *cobra.Command) {
	cmd.Flags().Bool("skip-undefined", true, "Let records missing a filtered field pass")
	cmd.Flags().String("timezone", "", "IANA time zone of date ranges (default: local)")
	cmd.Flags().Uint64("max-payload-size", 0, "Decoded size limit of zstd payloads in bytes (default 256 MiB)")
}

// encodeFunc serializes a value in a payload format.
type encodeFunc func(v any, format recordfilter.Format) ([]byte, error)

// writeOutput encodes v in the named format: json, yaml or msgpack,
// optionally followed by +zstd.
func writeOutput(w io.Writer, format string, v any) error {
	return writeEncoded(w, format, v, recordfilter.Encode)
}

func writeEncoded(w io.Writer, name string, v any, encode encodeFunc) error {
	format, err := recordfilter.ParseFormat(name)
	if err != nil {
		return fmt.Errorf("output: %w", err)
	}
	data, err := encode(v, format)
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}

func newTypesCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "types",
		Short: "List the recognized filter types",
		RunE: func(cmd *cobra.Command, _ []string) error {
			kinds := filter.Kinds()
			if format := c.v.GetString("format"); format != "" {
				return writeOutput(cmd.OutOrStdout(), format, kinds)
			}
			for _, k := range kinds {
				fmt.Fprintln(cmd.OutOrStdout(), k)
			}
			return nil
		},
	}
	cmd.Flags().String("format", "", "Output format (json, yaml, msgpack, +zstd)")
	return cmd
}

// versionInfo is the output of the version command.
type versionInfo struct {
	Version   string `json:"version" yaml:"version" msgpack:"version"`
	Commit    string `json:"commit" yaml:"commit" msgpack:"commit"`
	BuildDate string `json:"build_date" yaml:"build_date" msgpack:"build_date"`
	GoVersion string `json:"go_version" yaml:"go_version" msgpack:"go_version"`
	Platform  string `json:"platform" yaml:"platform" msgpack:"platform"`
}

func newVersionCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		RunE: func(cmd *cobra.Command, _ []string) error {
			info := versionInfo{
				Version:   Version,
				Commit:    Commit,
				BuildDate: BuildDate,
				GoVersion: runtime.Version(),
				Platform:  runtime.GOOS + "/" + runtime.GOARCH,
			}
			if format := c.v.GetString("format"); format != "" {
				return writeOutput(cmd.OutOrStdout(), format, info)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "recordfilter %s (commit %s, built %s, %s %s)\n",
				info.Version, info.Commit, info.BuildDate, info.GoVersion, info.Platform)
			return nil
		},
	}
	cmd.Flags().String("format", "", "Output format (json, yaml, msgpack, +zstd)")
	return cmd
}
