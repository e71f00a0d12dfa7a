package cmd

import (
	"fmt"
	"os"

	"github.com/buzzblog/postrpc/cmd/posts"
	"github.com/buzzblog/postrpc/cmd/serve"
	"github.com/buzzblog/postrpc/cmd/util"
	"github.com/spf13/cobra"
)

const (
	Version = "0.3.0"
)

var (

	// RootCmd represents the base command when called without any subcommands
	RootCmd = &cobra.Command{
		Use:   "postctl",
		Short: "client for the post service",
		Long: fmt.Sprintf(`postctl (v%s)

Command line client for the post service. Every remote call is timed and
traced with one log line carrying the request id, server, function and latency.`, Version),
		SilenceUsage: true,
	}
	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print the version number of postctl",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("postctl v%s\n", Version)
		},
	}
)

func init() {
	// Add Commands
	RootCmd.AddCommand(serve.ServeCmd)
	RootCmd.AddCommand(posts.PostCommands)
	RootCmd.AddCommand(versionCmd)

	// Add Flags
	key := "serializer"
	RootCmd.PersistentFlags().String(key, "binary", util.WrapString("serializer to use (json, gob, binary)"))
	key = "transport"
	RootCmd.PersistentFlags().String(key, "tcp", util.WrapString("transport to use (tcp, unix)"))
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the RootCmd.
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
