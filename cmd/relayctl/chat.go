package main

import (
	"bufio"
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

func chatCmd(f *flags) *cli.Command {
	var name string
	return &cli.Command{
		Name:  "chat",
		Usage: "Open the visitor chat",
		Description: `Starts (or resumes) a chat session and polls for replies.

Every line typed is sent as a message. Commands:
  /close   hide the conversation, only announce new replies
  /open    show the conversation again
  /quit    leave`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "name",
				Aliases:     []string{"n"},
				Usage:       "name shown to the operator (first session only)",
				Destination: &name,
			},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			return runChat(ctx, f, name, os.Stdin, os.Stdout)
		},
	}
}

func runChat(ctx context.Context, f *flags, name string, in io.Reader, out io.Writer) error {
	w := poller.NewWidget(f.client(), f.state(), log.With().Str("component", "widget").Logger(), poller.Options[models.Message]{})

	var (
		mu        sync.Mutex
		hidden    bool
		announced bool
	)
	w.OnRender = func(entries []poller.Entry) {
		mu.Lock()
		defer mu.Unlock()
		if hidden {
			if w.Unseen() && !announced {
				fmt.Fprintln(out, "* new reply, type /open to read")
				announced = true
			}
			return
		}
		printEntries(out, entries)
	}

	w.Open()
	if err := w.Start(ctx, name); err != nil {
		return err
	}
	defer w.Stop()

	mu.Lock()
	fmt.Fprintf(out, "session %s\n", w.SessionID())
	mu.Unlock()

	return readLines(ctx, in, func(line string) (bool, error) {
		switch line {
		case "/quit":
			return true, nil
		case "/close":
			mu.Lock()
			hidden, announced = true, false
			mu.Unlock()
			w.Close()
			return false, nil
		case "/open":
			w.Open()
			mu.Lock()
			hidden = false
			printEntries(out, w.Entries())
			mu.Unlock()
			return false, nil
		}

		if err := w.Send(ctx, line); err != nil {
			if errors.Is(err, poller.ErrSendFailed) {
				mu.Lock()
				fmt.Fprintln(out, "! Failed to send message")
				mu.Unlock()
				return false, nil
			}
			return true, err
		}
		return false, nil
	})
}

func printEntries(out io.Writer, entries []poller.Entry) {
	fmt.Fprintln(out, "----")
	for _, e := range entries {
		who := "you"
		if e.Message.SenderType.IsOperator() {
			who = e.Message.Name
			if who == "" {
				who = "operator"
			}
		}
		line := fmt.Sprintf("[%s] %s", who, e.Message.Content)
		if e.Status != poller.Delivered {
			line += " (" + e.Status.String() + ")"
		}
		fmt.Fprintln(out, line)
	}
}

// readLines feeds trimmed non-empty lines to fn until it asks to stop, the
// input ends or ctx is cancelled.
func readLines(ctx context.Context, in io.Reader, fn func(line string) (stop bool, err error)) error {
	lines := make(chan string)
	done := make(chan struct{})
	defer close(done)

	go func() {
		defer close(lines)
		sc := bufio.NewScanner(in)
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-done:
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			line = strings.TrimSpace(line)
			if line == "" {
				continue
			}
			stop, err := fn(line)
			if err != nil || stop {
				return err
			}
		}
	}
}
