package cli

import (
	"context"
	"strings"

	"github.com/abiosoft/ishell/v2"
	"github.com/bruttobar/pos-client/internal/app"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
)

// NewShellCommand creates the interactive shell command.
func NewShellCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "shell",
		Short: "Start the interactive point of sale",
		Long: `Restore the saved session, then open an interactive prompt.

Type help inside the shell for the list of actions.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := setup(rootOpts, cmd.ErrOrStderr())
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			reg := prometheus.NewRegistry()
			a, err := app.NewFromConfig(ctx, cfg, reg, log)
			if err != nil {
				return WrapExitError(ExitCommandError, "failed to start", err)
			}
			defer a.Close()

			a.Start(ctx)
			a.Wait()

			shell := ishell.New()
			console := NewConsole(a, cmd.OutOrStdout())
			registerShellCommands(ctx, shell, console, reg)

			shell.Println("Bruttobar POS. Type help for commands.")
			console.Status()
			shell.Run()
			return nil
		},
	}
	return cmd
}

func registerShellCommands(ctx context.Context, shell *ishell.Shell, console *Console, reg *prometheus.Registry) {
	shell.AddCmd(&ishell.Cmd{
		Name: "status",
		Help: "show screen, catalog and cart state",
		Func: func(c *ishell.Context) { console.Status() },
	})
	shell.AddCmd(&ishell.Cmd{
		Name: "login",
		Help: "log in with username and password",
		Func: func(c *ishell.Context) {
			c.ShowPrompt(false)
			defer c.ShowPrompt(true)

			var username string
			if len(c.Args) > 0 {
				username = c.Args[0]
			} else {
				c.Print("Username: ")
				username = strings.TrimSpace(c.ReadLine())
			}
			c.Print("Password: ")
			password := c.ReadPassword()
			console.Login(ctx, username, password)
		},
	})
	shell.AddCmd(&ishell.Cmd{
		Name: "logout",
		Help: "forget the saved session",
		Func: func(c *ishell.Context) { console.Logout(ctx) },
	})
	shell.AddCmd(&ishell.Cmd{
		Name:    "catalog",
		Aliases: []string{"ls"},
		Help:    "list products",
		Func:    func(c *ishell.Context) { console.Catalog() },
	})
	shell.AddCmd(&ishell.Cmd{
		Name: "refresh",
		Help: "reload the catalog",
		Func: func(c *ishell.Context) { console.Refresh(ctx) },
	})
	shell.AddCmd(&ishell.Cmd{
		Name:    "add",
		Aliases: []string{"+"},
		Help:    "add <product id> to the cart",
		Func: func(c *ishell.Context) {
			if len(c.Args) != 1 {
				c.Println("usage: add <product id>")
				return
			}
			console.Add(c.Args[0])
		},
	})
	shell.AddCmd(&ishell.Cmd{
		Name:    "remove",
		Aliases: []string{"-"},
		Help:    "remove one <product id> from the cart",
		Func: func(c *ishell.Context) {
			if len(c.Args) != 1 {
				c.Println("usage: remove <product id>")
				return
			}
			console.Remove(c.Args[0])
		},
	})
	shell.AddCmd(&ishell.Cmd{
		Name: "cart",
		Help: "show the cart",
		Func: func(c *ishell.Context) { console.Cart() },
	})
	shell.AddCmd(&ishell.Cmd{
		Name:    "buy",
		Aliases: []string{"review"},
		Help:    "review the cart before confirming",
		Func:    func(c *ishell.Context) { console.Review() },
	})
	shell.AddCmd(&ishell.Cmd{
		Name: "confirm",
		Help: "submit the reviewed order",
		Func: func(c *ishell.Context) { console.Confirm(ctx) },
	})
	shell.AddCmd(&ishell.Cmd{
		Name: "cancel",
		Help: "close the review, keep the cart",
		Func: func(c *ishell.Context) { console.Cancel() },
	})
	shell.AddCmd(&ishell.Cmd{
		Name: "clear",
		Help: "empty the cart",
		Func: func(c *ishell.Context) { console.Clear() },
	})
	shell.AddCmd(&ishell.Cmd{
		Name: "stats",
		Help: "order counters for this run",
		Func: func(c *ishell.Context) { console.Stats(reg) },
	})
}
