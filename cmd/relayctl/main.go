// Command relayctl is a terminal frontend for the contact relay: a visitor
// chat and an operator dashboard, both polling the HTTP API.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v3"

	"ContactRelay/pkg/client"
	"ContactRelay/pkg/logger"
	"ContactRelay/pkg/poller"
)

type flags struct {
	server    string
	stateFile string
	logLevel  string
}

func (f *flags) client() *client.Client {
	return client.New(f.server, log.With().Str("component", "client").Logger())
}

func (f *flags) state() *poller.FileState {
	return poller.NewFileState(f.stateFile)
}

func defaultStateFile() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		home, _ := os.UserHomeDir()
		dir = filepath.Join(home, ".config")
	}
	return filepath.Join(dir, "relayctl", "state.json")
}

func main() {
	f := &flags{}

	app := &cli.Command{
		Name:  "relayctl",
		Usage: "Chat with the contact relay from a terminal",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "server",
				Aliases:     []string{"s"},
				Usage:       "relay base URL",
				Sources:     cli.EnvVars("RELAY_URL"),
				Value:       "http://localhost:5000",
				Destination: &f.server,
			},
			&cli.StringFlag{
				Name:        "state",
				Usage:       "path to the client state file",
				Sources:     cli.EnvVars("RELAY_STATE_FILE"),
				Value:       defaultStateFile(),
				Destination: &f.stateFile,
			},
			&cli.StringFlag{
				Name:        "log-level",
				Usage:       "log level (debug, info, warn, error)",
				Sources:     cli.EnvVars("RELAY_LOG_LEVEL"),
				Value:       "warn",
				Destination: &f.logLevel,
			},
		},
		Before: func(ctx context.Context, c *cli.Command) (context.Context, error) {
			return ctx, logger.Setup(f.logLevel, false)
		},
		Commands: []*cli.Command{
			chatCmd(f),
			dashboardCmd(f),
			credentialsCmd(),
		},
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := app.Run(ctx, os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		stop()
		os.Exit(1)
	}
}
