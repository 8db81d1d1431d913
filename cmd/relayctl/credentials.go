package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/urfave/cli/v3"

	"ContactRelay/pkg/auth"
	"ContactRelay/pkg/config"
)

func credentialsCmd() *cli.Command {
	return &cli.Command{
		Name:  "credentials",
		Usage: "Generate ADMIN_PASSWORD_HASH and JWT_SECRET_KEY for the server",
		Description: `Reads the desired operator password from stdin and prints the
environment lines to add to the server's .env file.`,
		Action: func(ctx context.Context, c *cli.Command) error {
			fmt.Fprint(os.Stderr, "admin password: ")
			return runCredentials(os.Stdin, os.Stdout)
		},
	}
}

func runCredentials(in io.Reader, out io.Writer) error {
	sc := bufio.NewScanner(in)
	if !sc.Scan() {
		if err := sc.Err(); err != nil {
			return err
		}
		return errors.New("no password given")
	}
	pw := strings.TrimRight(sc.Text(), "\r")

	if err := auth.ValidatePassword(pw); err != nil {
		return err
	}
	hash, err := auth.HashPassword(pw)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	fmt.Fprintf(out, "ADMIN_PASSWORD_HASH=%s\n", hash)
	fmt.Fprintf(out, "JWT_SECRET_KEY=%s\n", config.RandomSecret())
	return nil
}
