// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

// app returns the root command. Without a subcommand it starts the TUI.
func (r *Runner) app() *cli.Command {
	return &cli.Command{
		Name:    "facescan",
		Usage:   "Find photos of a person in a Google Drive folder",
		Version: "0.1.0",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to configuration file",
				Value:   "config.toml",
			},
			&cli.BoolFlag{
				Name:    "verbose",
				Aliases: []string{"v"},
				Usage:   "Log at debug level",
			},
		},
		Before:   r.before,
		Action:   r.TUI,
		Commands: r.register(),
	}
}

// healthCommand probes the scanning backend.
func healthCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "health",
		Usage: "Check whether the scanning backend is up",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Output raw JSON",
			},
		},
		Action: r.Health,
	}
}

// loginCommand runs the Google sign-in and stores the credential.
func loginCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "login",
		Usage: "Sign in with Google and save the credential used for scans",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "Where to write the credential",
				Value:   defaultCredentialFile,
			},
			&cli.BoolFlag{
				Name:  "no-browser",
				Usage: "Print the consent URL instead of opening a browser",
			},
		},
		Action: r.Login,
	}
}

// scanCommand runs one scan without the TUI.
func scanCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "scan",
		Usage: "Scan a Drive folder for faces matching a reference image",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "link",
				Aliases: []string{"l"},
				Usage:   "Google Drive folder link",
			},
			&cli.StringFlag{
				Name:    "image",
				Aliases: []string{"i"},
				Usage:   "Path to the reference image",
			},
			&cli.StringFlag{
				Name:  "credential-file",
				Usage: "Credential written by 'facescan login'",
				Value: defaultCredentialFile,
			},
			&cli.StringFlag{
				Name:    "format",
				Aliases: []string{"f"},
				Usage:   "Report format: text, json, csv or md",
				Value:   "text",
			},
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "Write the report to a file instead of stdout",
			},
		},
		Action: r.Scan,
	}
}

// historyCommand lists recorded scans.
func historyCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "history",
		Usage: "List previous scans",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:  "limit",
				Usage: "Maximum number of scans to list",
				Value: 20,
			},
			&cli.StringFlag{
				Name:  "status",
				Usage: "Only list scans with this status (success or failed)",
			},
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Output raw JSON",
			},
		},
		Action: r.History,
	}
}

// setupCommand handles setup operations for configuration and the database.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Setup and configuration commands",
		Commands: []*cli.Command{
			{
				Name:   "config",
				Usage:  "Write a config.toml with default values",
				Action: r.SetupConfig,
			},
			{
				Name:   "database",
				Usage:  "Initialize the history database and run migrations",
				Action: r.SetupDatabase,
			},
		},
	}
}

// serveCommand starts the web front-end.
func serveCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Serve the scan form over HTTP",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "host",
				Usage: "Interface to listen on (default from config)",
			},
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Usage:   "Port to listen on (default from config)",
			},
		},
		Action: r.Serve,
	}
}

// tuiCommand returns the top-level TUI command.
func tuiCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "tui",
		Aliases: []string{"interactive", "ui"},
		Usage:   "Launch the interactive scanner",
		Action:  r.TUI,
	}
}
