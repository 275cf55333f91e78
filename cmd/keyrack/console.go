// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Keyrack Contributors

package main

import (
	"bufio"
	"encoding/json"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/keyrack/keyrack/internal/auth"
	"github.com/keyrack/keyrack/internal/auth/memory"
	"github.com/keyrack/keyrack/internal/config"
	"github.com/keyrack/keyrack/internal/logging"
)

const consoleHelp = `Commands:
  signup <name> <email> <password> <admin-email>
  login <email> <password>
  passwd <email> <old-password> <new-password>
  logout <email>
  whoami <email>
  help
  quit`

// NewConsoleCmd creates the console subcommand: an interactive driver over an
// in-memory authenticator. Results are printed as one JSON envelope per line.
func NewConsoleCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "console",
		Short: "Run an interactive authenticator console",
		Long: `Start an interactive console over a fresh in-memory authenticator.
The bootstrap admin from the configuration is seeded first; every account
operation prints its result envelope as a line of JSON. State is not
persisted and dies with the process.`,
		RunE: runConsole,
	}

	cmd.Flags().String("log-format", "json", "log format (json or text)")
	cmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")
	cmd.Flags().Int("token-length", auth.DefaultTokenLength, "session token length")
	cmd.Flags().String("admin-name", "Administrator", "bootstrap admin display name")
	cmd.Flags().String("admin-email", "admin@localhost", "bootstrap admin email")
	cmd.Flags().String("admin-password", "", "bootstrap admin password (empty skips seeding)")

	return cmd
}

func runConsole(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(configFile, cmd.Flags())
	if err != nil {
		return err
	}

	logging.SetDefault("keyrack", version, cfg.Log.Format, logging.ParseLevel(cfg.Log.Level))

	svc, err := auth.NewService(
		memory.NewUserStore(),
		memory.NewSessionStore(),
		auth.NewDigestHasher(),
		auth.WithTokenLength(cfg.Token.Length),
		auth.WithLogger(slog.Default()),
	)
	if err != nil {
		return err
	}

	ctx := cmd.Context()

	if cfg.Admin.Password != "" {
		admin, err := svc.Bootstrap(ctx, cfg.Admin.Name, cfg.Admin.Email, cfg.Admin.Password)
		if err != nil {
			return err
		}
		cmd.Printf("seeded admin %s\n", admin.Email)
	} else {
		cmd.Println("no admin password configured; signup will be unavailable")
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	scanner := bufio.NewScanner(cmd.InOrStdin())

	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}

		var result auth.Result
		switch fields[0] {
		case "signup":
			if len(fields) != 5 {
				cmd.Println("usage: signup <name> <email> <password> <admin-email>")
				continue
			}
			view, err := svc.SignUp(ctx, fields[1], fields[2], fields[3], fields[4])
			if err != nil {
				result = auth.FailureFromError(err)
			} else {
				result = auth.SignUpResult(view)
			}

		case "login":
			if len(fields) != 3 {
				cmd.Println("usage: login <email> <password>")
				continue
			}
			token, err := svc.Login(ctx, fields[1], fields[2])
			if err != nil {
				result = auth.FailureFromError(err)
			} else {
				result = auth.LoginResult(token)
			}

		case "passwd":
			if len(fields) != 4 {
				cmd.Println("usage: passwd <email> <old-password> <new-password>")
				continue
			}
			if err := svc.ChangePassword(ctx, fields[1], fields[2], fields[3]); err != nil {
				result = auth.FailureFromError(err)
			} else {
				result = auth.OK("password changed")
			}

		case "logout":
			if len(fields) != 2 {
				cmd.Println("usage: logout <email>")
				continue
			}
			if err := svc.Logout(ctx, fields[1]); err != nil {
				result = auth.FailureFromError(err)
			} else {
				result = auth.OK("logged out")
			}

		case "whoami":
			if len(fields) != 2 {
				cmd.Println("usage: whoami <email>")
				continue
			}
			view, loggedIn, err := svc.Whoami(ctx, fields[1])
			if err != nil {
				result = auth.FailureFromError(err)
			} else {
				result = auth.WhoamiResult(view, loggedIn)
			}

		case "help":
			cmd.Println(consoleHelp)
			continue

		case "quit", "exit":
			return nil

		default:
			cmd.Printf("unknown command %q (try 'help')\n", fields[0])
			continue
		}

		if err := enc.Encode(result); err != nil {
			return err
		}
	}

	//nolint:wrapcheck // Scanner errors carry enough context on their own
	return scanner.Err()
}
