package main

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/sockbridge/sockbridge/internal/protocol"
)

type clientFlags struct {
	socketPath string
	timeout    int
}

func (f *clientFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.socketPath, "socket", "", "path to the bridge socket (required)")
	cmd.Flags().IntVar(&f.timeout, "timeout", 10, "request timeout in seconds")
	cmd.MarkFlagRequired("socket") //nolint:errcheck
}

func (f *clientFlags) client() *protocol.Client {
	return protocol.NewClient(f.socketPath, time.Duration(f.timeout)*time.Second)
}

func newCallCmd() *cobra.Command {
	var flags clientFlags
	var params []string
	var tokenHash string
	var requestID string
	var rawJSON bool

	cmd := &cobra.Command{
		Use:   "call COMMAND",
		Short: "Execute a whitelisted command",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := &protocol.Request{Command: args[0], AuthTokenHash: tokenHash}
			if requestID != "" {
				req.RequestID = json.RawMessage(strconv.Quote(requestID))
			}
			if len(params) > 0 {
				req.Parameters = make(map[string]any, len(params))
				for _, p := range params {
					name, raw, ok := strings.Cut(p, "=")
					if !ok {
						return fmt.Errorf("invalid --param %q, want NAME=VALUE", p)
					}
					req.Parameters[name] = parseParamValue(raw)
				}
			}

			resp, err := flags.client().Send(req)
			if err != nil {
				return err
			}
			return printCallResponse(cmd.OutOrStdout(), cmd.ErrOrStderr(), resp, rawJSON)
		},
	}

	flags.register(cmd)
	cmd.Flags().StringArrayVar(&params, "param", nil, "parameter as NAME=VALUE (repeatable)")
	cmd.Flags().StringVar(&tokenHash, "token-hash", "", "hex-encoded SHA-256 auth token hash")
	cmd.Flags().StringVar(&requestID, "request-id", "", "request id echoed back by the server")
	cmd.Flags().BoolVar(&rawJSON, "json", false, "print the raw JSON response")
	return cmd
}

func newListCmd() *cobra.Command {
	var flags clientFlags

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List available commands",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := flags.client().Introspect()
			if err != nil {
				return err
			}
			if !resp.Success || resp.ServerInfo == nil {
				return fmt.Errorf("%s", errorText(resp))
			}

			names := make([]string, 0, len(resp.ServerInfo.Commands))
			for name := range resp.ServerInfo.Commands {
				names = append(names, name)
			}
			sort.Strings(names)
			for _, name := range names {
				fmt.Fprintln(cmd.OutOrStdout(), name)
			}
			return nil
		},
	}

	flags.register(cmd)
	return cmd
}

func newPingCmd() *cobra.Command {
	var flags clientFlags

	cmd := &cobra.Command{
		Use:   "ping",
		Short: "Check that the server is responding",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := flags.client().Ping()
			if err != nil {
				return err
			}
			if !resp.Success {
				return fmt.Errorf("%s", errorText(resp))
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Server is responding")
			return nil
		},
	}

	flags.register(cmd)
	return cmd
}

func newIntrospectCmd() *cobra.Command {
	var flags clientFlags
	var rawJSON bool

	cmd := &cobra.Command{
		Use:   "introspect",
		Short: "Show server information and available commands",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := flags.client().Introspect()
			if err != nil {
				return err
			}
			if rawJSON {
				data, err := json.MarshalIndent(resp, "", "  ")
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), string(data))
				return nil
			}
			if !resp.Success || resp.ServerInfo == nil {
				return fmt.Errorf("%s", errorText(resp))
			}
			printServerInfo(cmd.OutOrStdout(), resp.ServerInfo)
			return nil
		},
	}

	flags.register(cmd)
	cmd.Flags().BoolVar(&rawJSON, "json", false, "print the raw JSON response")
	return cmd
}

// parseParamValue interprets a --param value as JSON so numbers and booleans
// keep their types, falling back to a plain string.
func parseParamValue(raw string) any {
	var v any
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return raw
	}
	return v
}

func printCallResponse(out, errOut io.Writer, resp *protocol.Response, rawJSON bool) error {
	if rawJSON {
		data, err := json.MarshalIndent(resp, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(out, string(data))
		return nil
	}

	if !resp.Success {
		return fmt.Errorf("%s", errorText(resp))
	}
	if resp.Stdout != nil && *resp.Stdout != "" {
		fmt.Fprintln(out, *resp.Stdout)
	} else {
		fmt.Fprintln(out, "Command executed successfully")
	}
	if resp.Stderr != nil && *resp.Stderr != "" {
		fmt.Fprintln(errOut, *resp.Stderr)
	}
	return nil
}

func printServerInfo(w io.Writer, info *protocol.ServerInfo) {
	fmt.Fprintf(w, "Server: %s\n", info.Name)
	if info.Description != "" {
		fmt.Fprintf(w, "Description: %s\n", info.Description)
	}
	fmt.Fprintf(w, "Version: %s\n", info.Version)
	fmt.Fprintln(w)

	if len(info.Commands) == 0 {
		fmt.Fprintln(w, "No commands configured")
		return
	}

	names := make([]string, 0, len(info.Commands))
	for name := range info.Commands {
		names = append(names, name)
	}
	sort.Strings(names)

	fmt.Fprintln(w, "Available commands:")
	for _, name := range names {
		cmd := info.Commands[name]
		desc := cmd.Description
		if desc == "" {
			desc = "No description"
		}
		fmt.Fprintf(w, "  %s: %s\n", name, desc)
	}
}

func errorText(resp *protocol.Response) string {
	if resp.Error != "" {
		if resp.Details != "" {
			return resp.Error + ": " + resp.Details
		}
		return resp.Error
	}
	if resp.Stderr != nil && *resp.Stderr != "" {
		return *resp.Stderr
	}
	return "unknown error"
}
