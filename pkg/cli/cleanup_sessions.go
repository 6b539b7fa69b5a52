package cli

import (
	"context"
	"database/sql"
	"flag"
	"fmt"

	"github.com/janusgate/janus/pkg/auth"
	"github.com/janusgate/janus/pkg/config"
)

func newCleanupSessionsCommand() *Command {
	cmd := &Command{
		Name:        "cleanup-sessions",
		Description: "Delete expired sessions from the session store",
		Flags:       flag.NewFlagSet("cleanup-sessions", flag.ExitOnError),
	}

	cmd.Run = func(args []string) error {
		if err := cmd.Flags.Parse(args); err != nil {
			return err
		}

		cfg, err := config.LoadConfig()
		if err != nil {
			return err
		}
		db, err := sql.Open("postgres", cfg.Database.URL)
		if err != nil {
			return fmt.Errorf("opening database: %w", err)
		}
		defer db.Close()

		return cleanupSessions(context.Background(), auth.NewPostgresSessionStore(db))
	}

	return cmd
}

func cleanupSessions(ctx context.Context, sessions auth.SessionStore) error {
	removed, err := sessions.DeleteExpired(ctx)
	if err != nil {
		return fmt.Errorf("deleting expired sessions: %w", err)
	}
	fmt.Printf("Removed %d expired sessions.\n", removed)
	return nil
}
