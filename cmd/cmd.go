// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

// setupCommand handles setup operations for configuration and the local database.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Setup and configuration commands",
		Commands: []*cli.Command{
			{
				Name:   "config",
				Usage:  "Write the default configuration file to --config",
				Action: r.SetupConfig,
			},
			{
				Name:   "database",
				Usage:  "Initialize the local database and run migrations",
				Action: r.SetupDatabase,
			},
			{
				Name:   "rollback",
				Usage:  "Roll back the most recent database migration",
				Action: r.SetupRollback,
			},
		},
	}
}

// authCommand handles account sign-in operations
func authCommand(r *Runner) *cli.Command {
	emailFlag := func() cli.Flag {
		return &cli.StringFlag{
			Name:     "email",
			Aliases:  []string{"e"},
			Usage:    "Account email address",
			Required: true,
		}
	}
	passwordFlag := func() cli.Flag {
		return &cli.StringFlag{
			Name:     "password",
			Aliases:  []string{"p"},
			Usage:    "Account password",
			Required: true,
			Sources:  cli.EnvVars("PRICEPAL_PASSWORD"),
		}
	}

	return &cli.Command{
		Name:  "auth",
		Usage: "Manage authentication",
		Commands: []*cli.Command{
			{
				Name:   "login",
				Usage:  "Sign in with email and password",
				Flags:  []cli.Flag{emailFlag(), passwordFlag()},
				Action: r.AuthLogin,
			},
			{
				Name:  "signup",
				Usage: "Create an account",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "name",
						Aliases:  []string{"n"},
						Usage:    "Display name",
						Required: true,
					},
					emailFlag(),
					passwordFlag(),
				},
				Action: r.AuthSignup,
			},
			{
				Name:   "logout",
				Usage:  "Sign out and forget the stored session",
				Action: r.AuthLogout,
			},
			{
				Name:   "reset",
				Usage:  "Send a password reset email",
				Flags:  []cli.Flag{emailFlag()},
				Action: r.AuthReset,
			},
			{
				Name:  "status",
				Usage: "Show the signed-in user and token expiry",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
				},
				Action: r.AuthStatus,
			},
		},
	}
}

// productCommand handles product lookup and tracking
func productCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "product",
		Aliases: []string{"p"},
		Usage:   "Look up and track Amazon products",
		Commands: []*cli.Command{
			{
				Name:  "lookup",
				Usage: "Fetch current product details",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "url"},
				},
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
				},
				Action: r.ProductLookup,
			},
			{
				Name:  "track",
				Usage: "Start tracking a product at a target price",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "url"},
				},
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "target",
						Aliases:  []string{"t"},
						Usage:    "Target price in rupees",
						Required: true,
					},
				},
				Action: r.ProductTrack,
			},
			{
				Name:  "open",
				Usage: "Open a tracked product's Amazon page",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "id"},
				},
				Action: r.ProductOpen,
			},
		},
	}
}

// cartCommand handles tracked product list operations
func cartCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "cart",
		Usage: "Manage tracked products",
		Commands: []*cli.Command{
			{
				Name:    "list",
				Aliases: []string{"ls"},
				Usage:   "List tracked products",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "offline",
						Usage: "Show the last synced cart without contacting the backend",
					},
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
					&cli.BoolFlag{
						Name:  "pretty",
						Usage: "Pretty-print output",
						Value: true,
					},
				},
				Action: r.CartList,
			},
			{
				Name:    "remove",
				Aliases: []string{"rm"},
				Usage:   "Stop tracking a product",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "id"},
				},
				Action: r.CartRemove,
			},
			{
				Name:  "export",
				Usage: "Export tracked products to a file",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "format",
						Aliases: []string{"f"},
						Usage:   "Export format (csv, markdown, txt)",
						Value:   "csv",
					},
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Output file, or directory for markdown",
					},
					&cli.BoolFlag{
						Name:  "images",
						Usage: "Download product images alongside a markdown export",
					},
					&cli.BoolFlag{
						Name:  "offline",
						Usage: "Export the last synced cart without contacting the backend",
					},
				},
				Action: r.CartExport,
			},
		},
	}
}

// accountCommand handles profile and stats operations
func accountCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "account",
		Usage: "View and update your account",
		Commands: []*cli.Command{
			{
				Name:  "profile",
				Usage: "Update display name or email",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "name",
						Usage: "New display name",
					},
					&cli.StringFlag{
						Name:  "email",
						Usage: "New email address",
					},
				},
				Action: r.AccountProfile,
			},
			{
				Name:  "stats",
				Usage: "Show tracking statistics",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
				},
				Action: r.AccountStats,
			},
		},
	}
}

// apiCommand handles direct backend calls
func apiCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "api",
		Usage: "Direct calls to the price tracker backend",
		Commands: []*cli.Command{
			{
				Name:  "get",
				Usage: "Direct GET to the backend, prints raw JSON",
				Arguments: []cli.Argument{
					&cli.StringArg{
						Name: "path",
					},
				},
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "auth",
						Usage: "Send the signed-in user's bearer token",
					},
					&cli.BoolFlag{
						Name:  "pretty",
						Usage: "Pretty-print output",
						Value: true,
					},
				},
				Action: r.APIGet,
			},
		},
	}
}

// healthCommand checks the backend
func healthCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "health",
		Usage:  "Check that the price tracker backend is reachable",
		Action: r.Health,
	}
}

// tuiCommand returns the top-level TUI command for interactive cart management.
func tuiCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "tui",
		Aliases: []string{"interactive", "ui"},
		Usage:   "Launch interactive TUI for tracked products",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "log-file",
				Usage: "Where TUI logs are written",
				Value: "./tmp/pricepal-tui.log",
			},
		},
		Action: r.TUI,
	}
}
