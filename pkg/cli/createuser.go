package cli

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/janusgate/janus/pkg/cas"
	"github.com/janusgate/janus/pkg/config"
	"github.com/janusgate/janus/pkg/observability"
	"github.com/janusgate/janus/pkg/provision"
)

// stringSliceFlag collects repeated occurrences of a flag
type stringSliceFlag []string

func (f *stringSliceFlag) String() string { return strings.Join(*f, ",") }

func (f *stringSliceFlag) Set(value string) error {
	*f = append(*f, value)
	return nil
}

// createUserOptions carries the optional account fields; nil means the
// corresponding flag was not given
type createUserOptions struct {
	DisplayName *string
	Email       *string
	Groups      []string
	Quota       *string
	Enabled     *bool
}

func newCreateUserCommand() *Command {
	cmd := &Command{
		Name:        "create-user",
		Description: "Provision a user account in the host application",
		Flags:       flag.NewFlagSet("create-user", flag.ExitOnError),
	}

	displayName := cmd.Flags.String("display-name", "", "Display name for the new user")
	email := cmd.Flags.String("email", "", "Email address for the new user")
	quota := cmd.Flags.String("quota", "", `Storage quota, e.g. "5GB", "default" or "none"`)
	enabled := cmd.Flags.Bool("enabled", true, "Whether the account starts enabled")
	var groups stringSliceFlag
	cmd.Flags.Var(&groups, "group", "Group to add the user to (repeatable)")

	cmd.Run = func(args []string) error {
		if err := cmd.Flags.Parse(args); err != nil {
			return err
		}
		if cmd.Flags.NArg() != 1 {
			return fmt.Errorf("usage: %s create-user [flags] <uid>", os.Args[0])
		}
		uid := cmd.Flags.Arg(0)

		opts := createUserOptions{Groups: groups}
		cmd.Flags.Visit(func(f *flag.Flag) {
			switch f.Name {
			case "display-name":
				opts.DisplayName = displayName
			case "email":
				opts.Email = email
			case "quota":
				opts.Quota = quota
			case "enabled":
				opts.Enabled = enabled
			}
		})

		backend, db, err := hostBackend()
		if err != nil {
			return err
		}
		defer db.Close()

		return createUser(context.Background(), backend, provision.DefaultMailValidator(), os.Stdout, uid, opts)
	}

	return cmd
}

// createUser provisions uid with the given optional fields. The email
// address is validated before any record is written so a typo cannot
// leave a half-configured account behind.
func createUser(ctx context.Context, backend provision.Backend, mail provision.MailValidator, out io.Writer, uid string, opts createUserOptions) error {
	exists, err := backend.Exists(ctx, uid)
	if err != nil {
		return fmt.Errorf("checking user %s: %w", uid, err)
	}
	if exists {
		return fmt.Errorf("user %q already exists", uid)
	}

	if opts.Email != nil && *opts.Email != "" && !mail(*opts.Email) {
		return fmt.Errorf("invalid email address %q", *opts.Email)
	}
	if opts.Quota != nil {
		if _, err := provision.ParseQuota(*opts.Quota); err != nil {
			return fmt.Errorf("invalid quota %q", *opts.Quota)
		}
	}

	if err := backend.CreateUser(ctx, uid); err != nil {
		return fmt.Errorf("creating user %s: %w", uid, err)
	}
	fmt.Fprintf(out, "User %q created.\n", uid)

	identity := cas.Identity{
		UID:         uid,
		DisplayName: opts.DisplayName,
		Email:       opts.Email,
		Groups:      opts.Groups,
		Quota:       opts.Quota,
		Enabled:     opts.Enabled,
	}
	if err := backend.ApplyIdentity(ctx, uid, identity); err != nil {
		return fmt.Errorf("configuring user %s: %w", uid, err)
	}

	if opts.DisplayName != nil {
		fmt.Fprintf(out, "Display name set to %q.\n", *opts.DisplayName)
	}
	if opts.Email != nil && *opts.Email != "" {
		fmt.Fprintf(out, "Email address set to %q.\n", *opts.Email)
	}
	for _, group := range opts.Groups {
		fmt.Fprintf(out, "Added to group %q.\n", group)
	}
	if opts.Quota != nil {
		fmt.Fprintf(out, "Quota set to %q.\n", *opts.Quota)
	}
	if opts.Enabled != nil {
		if *opts.Enabled {
			fmt.Fprintln(out, "Account enabled.")
		} else {
			fmt.Fprintln(out, "Account disabled.")
		}
	}
	return nil
}

// hostBackend builds the provisioning backend from the ambient
// configuration. The caller owns the returned database handle.
func hostBackend() (provision.Backend, *sql.DB, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, nil, err
	}

	db, err := sql.Open("postgres", cfg.Database.URL)
	if err != nil {
		return nil, nil, fmt.Errorf("opening database: %w", err)
	}

	logger := observability.NewLogger(cfg.Observability.LogLevel, os.Stderr)
	version := provision.DetectHostVersion(cfg.Host.Framework, cfg.Host.MajorVersion)
	backend := provision.NewBackend(
		version,
		provision.NewSQLUserManager(db),
		provision.NewSQLGroupManager(db),
		db,
		logger,
		nil,
	)
	return backend, db, nil
}
