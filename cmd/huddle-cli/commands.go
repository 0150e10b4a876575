package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/spf13/cobra"
	"github.com/victorivanov/huddle/internal/auth"
	"github.com/victorivanov/huddle/internal/database"
)

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "huddle-cli",
		Short:         "Operator tooling for the huddle message engine",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.AddCommand(
		newMigrateCommand(),
		newHealthCommand(),
		newTokenCommand(),
		newJobsCommand(),
		newVersionCommand(),
	)
	return cmd
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func requireEnv(key string) (string, error) {
	v := os.Getenv(key)
	if v == "" {
		return "", fmt.Errorf("%s environment variable is required", key)
	}
	return v, nil
}

// --- migrate ---

func newMigrateCommand() *cobra.Command {
	var dir string
	var down bool
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
		Long:  "Apply the SQL migrations in --dir to DATABASE_URL. Use --down to roll everything back.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			dbURL, err := requireEnv("DATABASE_URL")
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			m, err := migrate.New("file://"+dir, dbURL)
			if err != nil {
				return fmt.Errorf("migration init failed: %w", err)
			}
			defer m.Close()

			if down {
				err = m.Down()
			} else {
				err = m.Up()
			}
			if errors.Is(err, migrate.ErrNoChange) {
				v, _, _ := m.Version()
				fmt.Fprintf(out, "no new migrations (current version: %d)\n", v)
				return nil
			}
			if err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}

			v, dirty, _ := m.Version()
			fmt.Fprintf(out, "migrations applied (version: %d, dirty: %v)\n", v, dirty)
			return nil
		},
	}
	cmd.Flags().StringVar(&dir, "dir", "migrations", "directory holding migration files")
	cmd.Flags().BoolVar(&down, "down", false, "roll back all migrations")
	return cmd
}

// --- health ---

func newHealthCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check if the server is running",
		Long:  "GET $SERVER_URL/health (default http://localhost:8080) and print the result.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			url := envOr("SERVER_URL", "http://localhost:8080") + "/health"

			client := &http.Client{Timeout: 5 * time.Second}
			resp, err := client.Get(url)
			if err != nil {
				return fmt.Errorf("server unreachable: %w", err)
			}
			defer resp.Body.Close()
			body, _ := io.ReadAll(resp.Body)

			if resp.StatusCode != http.StatusOK {
				return fmt.Errorf("server unhealthy (status %d): %s", resp.StatusCode, body)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "server is healthy")
			return nil
		},
	}
}

// --- token ---

func newTokenCommand() *cobra.Command {
	var ttl time.Duration
	cmd := &cobra.Command{
		Use:   "token <user-id>",
		Short: "Issue an access token for a user",
		Long:  "Sign an access token with JWT_SECRET. Membership lives outside huddle, so this is how operators mint credentials.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			secret, err := requireEnv("JWT_SECRET")
			if err != nil {
				return err
			}
			userID, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil || userID <= 0 {
				return fmt.Errorf("invalid user id %q", args[0])
			}
			token, err := auth.NewTokenService(secret).IssueToken(userID, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "token lifetime")
	return cmd
}

// --- jobs ---

func newJobsCommand() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "jobs",
		Short: "List pending scheduled jobs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			dbURL, err := requireEnv("DATABASE_URL")
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
			defer cancel()

			pool, err := database.NewPostgresPool(ctx, dbURL)
			if err != nil {
				return fmt.Errorf("database connection failed: %w", err)
			}
			defer pool.Close()

			jobs, err := database.NewJobRepository(pool).ListPending(ctx)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(jobs)
			}
			if len(jobs) == 0 {
				fmt.Fprintln(out, "no pending jobs")
				return nil
			}
			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tKIND\tFIRE AT\tCREATED BY")
			for _, j := range jobs {
				fmt.Fprintf(w, "%s\t%s\t%s\t%d\n", j.ID, j.Kind, j.FireAt.UTC().Format(time.RFC3339), j.CreatedBy)
			}
			return w.Flush()
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print as JSON")
	return cmd
}

// --- version ---

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version info",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "huddle-cli %s\n", version)
		},
	}
}
