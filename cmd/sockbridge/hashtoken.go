package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/sockbridge/sockbridge/internal/auth"
)

func newHashTokenCmd() *cobra.Command {
	var random bool
	var interactive bool

	cmd := &cobra.Command{
		Use:   "hash-token [TOKEN]",
		Short: "Generate an auth token hash for AUTH_TOKEN_HASH",
		Long: `Generate a hex-encoded SHA-256 token hash for the bridge's
authentication. Pass the token as an argument, use --random to generate a
fresh token, or --interactive to type it without shell-history exposure.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			token, showToken, err := resolveToken(args, random, interactive)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if showToken {
				fmt.Fprintf(out, "Token: %s\n", token)
			}
			hash := auth.HashToken(token)
			fmt.Fprintf(out, "Token hash: %s\n", hash)
			fmt.Fprintln(out)
			fmt.Fprintln(out, "export AUTH_ENABLED=true")
			fmt.Fprintf(out, "export AUTH_TOKEN_HASH=%s\n", hash)
			return nil
		},
	}

	cmd.Flags().BoolVar(&random, "random", false, "generate a secure random token and print it with its hash")
	cmd.Flags().BoolVar(&interactive, "interactive", false, "prompt for the token without echoing it")
	return cmd
}

func resolveToken(args []string, random, interactive bool) (token string, showToken bool, err error) {
	switch {
	case random && interactive:
		return "", false, errors.New("--random and --interactive are mutually exclusive")
	case random:
		token, err := auth.GenerateToken()
		return token, true, err
	case interactive:
		token, err := promptToken()
		return token, false, err
	case len(args) == 1:
		if args[0] == "" {
			return "", false, errors.New("token must not be empty")
		}
		return args[0], false, nil
	default:
		return "", false, errors.New("pass a token, or use --random or --interactive")
	}
}

func promptToken() (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", errors.New("--interactive requires a terminal")
	}

	fmt.Fprint(os.Stderr, "Token: ")
	first, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", err
	}
	if len(first) == 0 {
		return "", errors.New("token must not be empty")
	}

	fmt.Fprint(os.Stderr, "Confirm token: ")
	second, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", err
	}
	if string(first) != string(second) {
		return "", errors.New("tokens do not match")
	}

	return string(first), nil
}
