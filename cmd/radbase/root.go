package main

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/hupe1980/radbase"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

func newRootCmd(v *viper.Viper) *cobra.Command {
	var cfgPath string

	root := &cobra.Command{
		Use:          "radbase",
		Short:        "Generate radiative-property datasets with the RADCAL simulator",
		SilenceUsage: true,
	}

	pf := root.PersistentFlags()
	pf.StringVar(&cfgPath, "config", "", "YAML configuration file")
	pf.String("log-level", "info", "log level (debug, info, warn, error)")
	pf.String("log-format", "text", "log format (text, json)")
	bindFlags(v, pf, map[string]string{
		"log.level":  "log-level",
		"log.format": "log-format",
	})

	load := func() (*Config, error) {
		return loadConfig(v, cfgPath)
	}

	root.AddCommand(
		newGenerateCmd(v, load),
		newInspectCmd(),
		newScalerCmd(),
	)

	return root
}

// bindFlags binds each configuration key to the named flag.
func bindFlags(v *viper.Viper, fs *pflag.FlagSet, keys map[string]string) {
	for key, name := range keys {
		if err := v.BindPFlag(key, fs.Lookup(name)); err != nil {
			panic(fmt.Sprintf("bind flag %s: %v", name, err))
		}
	}
}

func newLogger(w io.Writer, cfg LogConfig) (*radbase.Logger, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
	}

	opts := &slog.HandlerOptions{Level: level}
	switch cfg.Format {
	case "", "text":
		return radbase.NewLogger(slog.NewTextHandler(w, opts)), nil
	case "json":
		return radbase.NewLogger(slog.NewJSONHandler(w, opts)), nil
	default:
		return nil, fmt.Errorf("invalid log format %q", cfg.Format)
	}
}
