package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/dmitrijs2005/docsync/internal/auth"
	"github.com/dmitrijs2005/docsync/internal/common"
	"github.com/dmitrijs2005/docsync/internal/config"
	"github.com/dmitrijs2005/docsync/internal/logging"
)

// runtime is what PersistentPreRunE prepares for every subcommand.
type runtime struct {
	cfg      *config.Config
	log      logging.Logger
	closeLog io.Closer

	in  io.Reader
	out io.Writer
}

func (r *runtime) newApp(ctx context.Context) (*App, error) {
	return NewApp(ctx, r.cfg, r.log, r.in, r.out)
}

// NewRootCommand builds the docsync command tree reading from in and
// writing to out.
func NewRootCommand(in io.Reader, out io.Writer) *cobra.Command {
	var configPath string
	rt := &runtime{in: in, out: out}

	flagDefaults := &config.Config{}
	flagDefaults.LoadDefaults()

	root := &cobra.Command{
		Use:   "docsync",
		Short: "Collect and validate client documents against a shared tabular store",
		Long: `docsync keeps a session-local cache of a shared tabular store (Google
Sheets, CSV objects on S3, or PostgreSQL). Collaborators stage documents
locally and push the ones they choose; administrators validate them and
manage which collaborator serves which client.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig(configPath, cmd.Flags())
			if err != nil {
				return err
			}
			log, closer := logging.New(logging.Options{Level: cfg.LogLevel, File: cfg.LogFile})
			rt.cfg, rt.log, rt.closeLog = cfg, log, closer
			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if rt.closeLog != nil {
				return rt.closeLog.Close()
			}
			return nil
		},
	}
	root.SetIn(in)
	root.SetOut(out)
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file (.json or .toml)")
	flagDefaults.Bind(root.PersistentFlags())

	root.AddCommand(
		newShellCommand(rt),
		newLoginCommand(rt),
		newLogoutCommand(rt),
		newReportCommand(rt),
		newBootstrapCommand(rt),
		newMigrateCommand(rt),
	)
	return root
}

// Execute runs the command tree against the process stdio.
func Execute(ctx context.Context) error {
	return NewRootCommand(os.Stdin, os.Stdout).ExecuteContext(ctx)
}

func newShellCommand(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "shell",
		Short: "Sign in, pull, and start the interactive shell",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			app, err := rt.newApp(ctx)
			if err != nil {
				return err
			}
			defer app.Close()

			if err := app.ensureLogin(ctx); err != nil {
				return err
			}
			if err := app.Pull(ctx); err != nil {
				return fmt.Errorf("initial pull: %w", err)
			}
			app.printf("Type 'help' for commands\n")
			runREPL(ctx, app, app.getStatus, app.reader)
			return nil
		},
	}
}

func newLoginCommand(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "login",
		Short: "Sign in and save a session token",
		RunE: func(cmd *cobra.Command, args []string) error {
			if rt.cfg.SessionSecret == "" {
				return errors.New("login needs --session-secret to save a session")
			}
			app, err := rt.newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer app.Close()
			return app.Login(cmd.Context())
		},
	}
}

func newLogoutCommand(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the saved session",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := auth.RemoveToken(rt.cfg.SessionFile); err != nil {
				return err
			}
			fmt.Fprintln(rt.out, "Signed out")
			return nil
		},
	}
}

func newReportCommand(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "report [key=value...]",
		Short: "Pull and print status counts and the collaborator ranking",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			app, err := rt.newApp(ctx)
			if err != nil {
				return err
			}
			defer app.Close()

			if err := app.ensureLogin(ctx); err != nil {
				return err
			}
			if err := app.Pull(ctx); err != nil {
				return err
			}
			if err := app.KPI(ctx, args); err != nil {
				return err
			}
			fmt.Fprintln(rt.out)
			return app.Scores(ctx)
		},
	}
}

func newBootstrapCommand(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "bootstrap",
		Short: "Create the central collections and the default admin",
		Long: `bootstrap creates the users, clients and assignment collections that are
missing and adds the default admin. Without --admin-password a random
password is generated and printed once.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			password, generated := rt.cfg.DefaultAdminPassword, false
			if password == "" {
				var err error
				if password, err = common.MakeRandHexString(8); err != nil {
					return err
				}
				generated = true
			}
			app, err := rt.newApp(ctx)
			if err != nil {
				return err
			}
			defer app.Close()

			created, err := app.admin.EnsureCentralCollections(ctx)
			if err != nil {
				return err
			}
			for _, c := range created {
				fmt.Fprintf(rt.out, "created collection %s\n", c)
			}
			added, err := app.admin.EnsureDefaultAdmin(ctx, rt.cfg.DefaultAdminUser, password)
			if err != nil {
				return err
			}
			switch {
			case added && generated:
				fmt.Fprintf(rt.out, "created admin %s with password %s\n", rt.cfg.DefaultAdminUser, password)
			case added:
				fmt.Fprintf(rt.out, "created admin %s\n", rt.cfg.DefaultAdminUser)
			default:
				fmt.Fprintf(rt.out, "admin %s already exists\n", rt.cfg.DefaultAdminUser)
			}
			return nil
		},
	}
}

func newMigrateCommand(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the schema of the postgres backend",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := migrateRemote(cmd.Context(), rt.cfg); err != nil {
				return err
			}
			fmt.Fprintln(rt.out, "migrations applied")
			return nil
		},
	}
}
