package cli

import (
	"context"
	"io"

	"github.com/dmitrijs2005/continu/internal/config"
	"github.com/spf13/cobra"
)

type appFactory func(ctx context.Context, cfg *config.Config, out io.Writer) (*App, error)

type command struct {
	root    *cobra.Command
	app     *App
	factory appFactory
	out     io.Writer
}

// Execute runs the continu command line with args (without the program
// name) and releases the App afterwards.
func Execute(ctx context.Context, version string, args []string, out io.Writer) error {
	c := newCommand(out, NewApp)
	c.root.Version = version
	return c.execute(ctx, args)
}

func (c *command) execute(ctx context.Context, args []string) error {
	c.root.SetArgs(args)
	err := c.root.ExecuteContext(ctx)
	if c.app != nil {
		if cerr := c.app.Close(); err == nil {
			err = cerr
		}
		c.app = nil
	}
	return err
}

func newCommand(out io.Writer, factory appFactory) *command {
	c := &command{factory: factory, out: out}

	c.root = &cobra.Command{
		Use:   "continu",
		Short: "Encrypted backup of your configuration files",
		Long: `continu backs up your personal configuration files and the list of
installed packages to Supabase, encrypted on this machine before upload.

Without a subcommand an interactive dashboard starts, with the backup
service running in the background.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		Args:              cobra.NoArgs,
		PersistentPreRunE: c.setup,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.app.Dashboard(cmd.Context())
		},
	}
	c.root.SetOut(out)
	c.root.SetErr(out)
	config.RegisterFlags(c.root.PersistentFlags())

	c.root.AddCommand(
		&cobra.Command{
			Use:   "login [email]",
			Short: "Sign in and keep the session on this machine",
			Args:  cobra.MaximumNArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return c.app.Login(cmd.Context(), firstArg(args))
			},
		},
		&cobra.Command{
			Use:   "signup [email]",
			Short: "Create an account",
			Args:  cobra.MaximumNArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return c.app.Signup(cmd.Context(), firstArg(args))
			},
		},
		&cobra.Command{
			Use:   "logout",
			Short: "Forget the stored session",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return c.app.Logout(cmd.Context())
			},
		},
		&cobra.Command{
			Use:   "status",
			Short: "Show session, backup service and last runs",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return c.app.Status(cmd.Context())
			},
		},
		&cobra.Command{
			Use:   "reset <email>",
			Short: "Send a password reset email",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return c.app.Reset(cmd.Context(), args[0])
			},
		},
		&cobra.Command{
			Use:   "backup",
			Short: "Back up now (requires root and a session)",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return c.app.Backup(cmd.Context())
			},
		},
		&cobra.Command{
			Use:   "restore",
			Short: "Restore the latest backup (requires root and a session)",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return c.app.Restore(cmd.Context())
			},
		},
		c.historyCommand(),
		&cobra.Command{
			Use:   "daemon",
			Short: "Run the backup service in the foreground",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return c.app.Daemon(cmd.Context())
			},
		},
	)
	return c
}

func (c *command) historyCommand() *cobra.Command {
	var (
		limit  int
		remote bool
	)
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recent backup and restore runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.app.History(cmd.Context(), limit, remote)
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "number of entries to show")
	cmd.Flags().BoolVar(&remote, "remote", false, "list the uploaded blobs recorded for the account")
	return cmd
}

// setup loads the configuration, including flags inherited from the root,
// and builds the App.
func (c *command) setup(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(cmd.Flags())
	if err != nil {
		return err
	}
	app, err := c.factory(cmd.Context(), cfg, c.out)
	if err != nil {
		return err
	}
	c.app = app
	return nil
}

func firstArg(args []string) string {
	if len(args) == 0 {
		return ""
	}
	return args[0]
}
