package main

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	auth "github.com/salesreport/go-auth"
	"github.com/salesreport/go-auth/config"
	"github.com/salesreport/go-auth/repository"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Long: `Open the store, apply pending migrations and serve the
authentication and salesperson directory routes until interrupted.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			cfg, err := config.Load(envFiles...)
			if err != nil {
				return err
			}

			app, err := NewApp(cfg)
			if err != nil {
				return err
			}
			defer app.Close()

			if err := WithPersistence(ctx, app); err != nil {
				return err
			}
			if err := WithActivity(app); err != nil {
				return err
			}
			if err := WithHTTPAuth(app); err != nil {
				return err
			}
			if err := WithHTTPServer(app); err != nil {
				return err
			}
			Routes(app)

			return app.Serve(ctx)
		},
	}
}

func newMigrateCmd() *cobra.Command {
	var rollback bool

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply or roll back database migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			cfg, err := config.LoadStore(envFiles...)
			if err != nil {
				return err
			}

			db, err := repository.Open(storeOptions(*cfg))
			if err != nil {
				return err
			}
			defer db.Close()

			var names []string
			if rollback {
				names, err = repository.Rollback(ctx, db)
			} else {
				names, err = repository.Migrate(ctx, db)
			}
			if err != nil {
				return err
			}

			verb := "applied"
			if rollback {
				verb = "rolled back"
			}
			if len(names) == 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "nothing to do, no migrations %s\n", verb)
				return nil
			}
			for _, n := range names {
				fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", verb, n)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&rollback, "rollback", false, "roll back the last migration group")
	return cmd
}

func newSeedCmd() *cobra.Command {
	var (
		file string
		cost int
	)

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Insert development principals",
		Long: `Insert the principals from a YAML fixtures file. Principals whose
email already exists are left untouched. Without --file the embedded
development fixtures are used.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			cfg, err := config.LoadStore(envFiles...)
			if err != nil {
				return err
			}

			var fixtures *repository.Fixtures
			if file == "" {
				fixtures, err = repository.LoadDefaultFixtures()
			} else {
				abs, aerr := filepath.Abs(file)
				if aerr != nil {
					return aerr
				}
				fixtures, err = repository.LoadFixtures(os.DirFS(filepath.Dir(abs)), filepath.Base(abs))
			}
			if err != nil {
				return err
			}

			db, err := repository.Open(storeOptions(*cfg))
			if err != nil {
				return err
			}
			defer db.Close()

			if _, err := repository.Migrate(ctx, db); err != nil {
				return err
			}

			seeded, err := repository.Seed(ctx, auth.NewRepositoryManager(db), auth.NewBcryptHasher(cost), fixtures)
			if err != nil {
				return err
			}

			for _, p := range seeded {
				fmt.Fprintf(cmd.OutOrStdout(), "%-4d %-8s %s\n", p.ID, p.Role, p.Email)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "fixtures file, defaults to the embedded development set")
	cmd.Flags().IntVar(&cost, "cost", auth.DefaultPasswordCost, "bcrypt cost for seeded passwords")
	return cmd
}

func newHashPasswordCmd() *cobra.Command {
	var cost int

	cmd := &cobra.Command{
		Use:   "hash-password [password]",
		Short: "Print the bcrypt hash of a password",
		Long: `Print the bcrypt hash of a password, read from the argument or
from the first line of standard input.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var password string
			if len(args) == 1 {
				password = args[0]
			} else {
				line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				if err != nil && line == "" {
					return errors.New("no password given")
				}
				password = strings.TrimRight(line, "\r\n")
			}

			hash, err := auth.NewBcryptHasher(cost).HashPassword(password)
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), hash)
			return nil
		},
	}

	cmd.Flags().IntVar(&cost, "cost", auth.DefaultPasswordCost, "bcrypt cost, at least 10")
	return cmd
}
