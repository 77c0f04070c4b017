package cli

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/bruttobar/pos-client/internal/config"
	"github.com/bruttobar/pos-client/internal/logger"
	"github.com/spf13/cobra"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose bool
	EnvFile string
}

// NewRootCommand creates the root command for the POS client.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "pos",
		Short: "Bruttobar point of sale",
		Long:  "Point-of-sale client for Bruttobar: log in, browse the catalog, build a cart and confirm orders.",
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "debug logging")
	cmd.PersistentFlags().StringVar(&opts.EnvFile, "env-file", ".env", "optional dotenv file")

	cmd.AddCommand(NewShellCommand(opts))
	cmd.AddCommand(NewProxyCommand(opts))

	return cmd
}

// setup loads configuration and builds the logger shared by every command.
func setup(opts *RootOptions, w io.Writer) (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load(opts.EnvFile)
	if err != nil {
		return nil, nil, WrapExitError(ExitCommandError, "invalid configuration", err)
	}
	if opts.Verbose {
		cfg.LogLevel = "debug"
	}
	log := logger.New(cfg.LogLevel, cfg.LogFormat, w)
	slog.SetDefault(log)
	return cfg, log, nil
}

func printf(w io.Writer, format string, args ...interface{}) {
	_, _ = fmt.Fprintf(w, format, args...)
}
