package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/tkoeppen/taskwire/cmd/msg"
	"github.com/tkoeppen/taskwire/cmd/serve"
)

const (
	Version = "0.3.1"
)

var (

	// RootCmd represents the base command when called without any subcommands
	RootCmd = &cobra.Command{
		Use:   "taskwire",
		Short: "message transport for distributed workers",
		Long: fmt.Sprintf(`taskwire (v%s)

A message transport library written in Go: pluggable comms (tcp,
in-process), length-prefixed framing with per-frame compression and an
extensible serialization registry.`, Version),
	}
	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print the version number of taskwire",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("taskwire v%s\n", Version)
		},
	}
)

func init() {
	// Add Commands
	RootCmd.AddCommand(serve.ServeCmd)
	RootCmd.AddCommand(msg.MsgCommands)
	RootCmd.AddCommand(versionCmd)
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the RootCmd.
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
