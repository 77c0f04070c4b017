package cli

import (
	"os/signal"
	"syscall"
	"time"

	poshttp "github.com/bruttobar/pos-client/internal/http"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
)

// NewProxyCommand creates the proxy command.
func NewProxyCommand(rootOpts *RootOptions) *cobra.Command {
	var port string

	cmd := &cobra.Command{
		Use:   "proxy",
		Short: "Run the development proxy",
		Long: `Serve /api/* on localhost and forward it to API_BASE_URL with the /api prefix removed.

Run the shell with DEV_MODE=true to route client requests through it.

Example:
  pos proxy
  pos proxy --port 8080`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := setup(rootOpts, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			if port != "" {
				cfg.ProxyPort = port
			}

			reg := prometheus.NewRegistry()
			reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

			handler, err := poshttp.NewProxyRouter(poshttp.ProxyConfig{
				Target:         cfg.APIBaseURL,
				RequestTimeout: cfg.RequestTimeout,
				Logger:         log.With("component", "proxy"),
				Registry:       reg,
			})
			if err != nil {
				return WrapExitError(ExitCommandError, "invalid proxy target", err)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			log.Info("proxying", "target", cfg.APIBaseURL, "prefix", poshttp.APIPrefix)
			return poshttp.Serve(ctx, ":"+cfg.ProxyPort, handler, 5*time.Second, log)
		},
	}

	cmd.Flags().StringVar(&port, "port", "", "listen port (overrides PROXY_PORT)")
	return cmd
}
