package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v3"

	"ContactRelay/models"
	"ContactRelay/pkg/poller"
)

func dashboardCmd(f *flags) *cli.Command {
	var username, password string
	return &cli.Command{
		Name:  "dashboard",
		Usage: "Open the operator dashboard",
		Description: `Lists every conversation and refreshes it on an interval.

Commands:
  /open <session>  select a session and show it
  /logout          revoke the token and leave
  /quit            leave, keeping the token
Any other line is sent as a reply to the selected session.`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "username",
				Aliases:     []string{"u"},
				Sources:     cli.EnvVars("RELAY_ADMIN_USERNAME"),
				Destination: &username,
			},
			&cli.StringFlag{
				Name:        "password",
				Aliases:     []string{"p"},
				Sources:     cli.EnvVars("RELAY_ADMIN_PASSWORD"),
				Destination: &password,
			},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			return runDashboard(ctx, f, username, password, os.Stdin, os.Stdout)
		},
	}
}

func runDashboard(ctx context.Context, f *flags, username, password string, in io.Reader, out io.Writer) error {
	d := poller.NewDashboard(f.client(), f.state(), log.With().Str("component", "dashboard").Logger(), poller.Options[models.Message]{})

	if !d.LoggedIn() {
		if username == "" || password == "" {
			return errors.New("not logged in: pass --username and --password")
		}
		if err := d.Login(ctx, username, password); err != nil {
			return fmt.Errorf("login: %w", err)
		}
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var mu sync.Mutex
	d.OnRender = func(sessions []poller.Session) {
		mu.Lock()
		defer mu.Unlock()
		printSessions(out, sessions, d.Selected())
	}
	d.OnLogout = func() {
		mu.Lock()
		fmt.Fprintln(out, "! session expired, log in again")
		mu.Unlock()
		cancel()
	}

	// first render happens before any command is read
	if err := d.Refresh(ctx); err != nil {
		return err
	}
	if err := d.Start(ctx); err != nil {
		return err
	}
	defer d.Stop()

	return readLines(ctx, in, func(line string) (bool, error) {
		switch {
		case line == "/quit":
			return true, nil
		case line == "/logout":
			return true, d.Logout(context.WithoutCancel(ctx))
		case strings.HasPrefix(line, "/open "):
			s, ok := d.Select(strings.TrimSpace(strings.TrimPrefix(line, "/open ")))
			mu.Lock()
			defer mu.Unlock()
			if !ok {
				fmt.Fprintln(out, "! no such session")
				return false, nil
			}
			printConversation(out, s)
			return false, nil
		}

		if err := d.Reply(ctx, line); err != nil {
			mu.Lock()
			fmt.Fprintln(out, "! reply failed:", err)
			mu.Unlock()
		}
		return false, nil
	})
}

func printSessions(out io.Writer, sessions []poller.Session, selected string) {
	fmt.Fprintln(out, "==== conversations")
	for _, s := range sessions {
		marker := " "
		if s.ID == selected {
			marker = ">"
		}
		unread := ""
		if s.Unread > 0 {
			unread = fmt.Sprintf(" (%d unread)", s.Unread)
		}
		fmt.Fprintf(out, "%s %s  %s%s: %s\n", marker, s.ID, s.Name, unread, s.LastMessage.Content)
	}
}

func printConversation(out io.Writer, s poller.Session) {
	fmt.Fprintf(out, "==== %s (%s)\n", s.Name, s.ID)
	for _, m := range s.Messages {
		fmt.Fprintf(out, "%s [%s] %s\n", m.CreatedAt.Local().Format("15:04"), m.Name, m.Content)
	}
}
