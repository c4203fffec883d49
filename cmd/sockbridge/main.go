// Command sockbridge runs a configurable unix-socket command bridge: a
// daemon that executes a whitelisted set of external programs on behalf of
// local clients, plus client and operator utilities for talking to it.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var version = "1.0.0"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "sockbridge: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "sockbridge",
		Short:         "Configurable unix socket command bridge",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(
		newServeCmd(),
		newValidateCmd(),
		newExampleCmd(),
		newHashTokenCmd(),
		newCallCmd(),
		newListCmd(),
		newPingCmd(),
		newIntrospectCmd(),
	)
	return root
}
