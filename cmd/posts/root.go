package posts

import (
	"fmt"

	"github.com/VictoriaMetrics/metrics"
	"github.com/buzzblog/postrpc/cmd/util"
	"github.com/buzzblog/postrpc/lib/post"
	"github.com/buzzblog/postrpc/rpc/client"
	"github.com/buzzblog/postrpc/rpc/common"
	"github.com/buzzblog/postrpc/rpc/serializer"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	clientConfig  *common.ClientConfig
	rpcSerializer serializer.IRPCSerializer

	// PostCommands represents the post command group
	PostCommands = &cobra.Command{
		Use:               "post",
		Short:             "Call the remote post service",
		Long:              `Call the remote post service. Every call prints one trace line with its request id, server, function and latency. The format of the environment variables is POST_<flag> (e.g. POST_ENDPOINT=localhost:9000)`,
		PersistentPreRunE: setupPostClient,
		PersistentPostRun: printMetrics,
	}
)

func init() {
	// Initialize viper
	cobra.OnInitialize(util.InitConfig)

	// Add common RPC flags to the post command
	util.SetupRPCClientFlags(PostCommands)

	key := "request-id"
	PostCommands.PersistentFlags().String(key, "", util.WrapString("The request id sent with the call (default: a new uuid)"))
	key = "requester"
	PostCommands.PersistentFlags().Int32(key, -1, util.WrapString("The account id of the requester (-1 = anonymous)"))
	key = "log-level"
	PostCommands.PersistentFlags().String(key, "info", util.WrapString("LogLevel is the level at which logs will be output (debug, info, warn, error)"))
	key = "print-metrics"
	PostCommands.PersistentFlags().Bool(key, false, util.WrapString("Print the client metrics in Prometheus text format after the command"))

	// Add subcommands
	PostCommands.AddCommand(createCmd)
	PostCommands.AddCommand(getCmd)
	PostCommands.AddCommand(expandedCmd)
	PostCommands.AddCommand(deleteCmd)
	PostCommands.AddCommand(listCmd)
	PostCommands.AddCommand(countCmd)
	PostCommands.AddCommand(perfTestCmd)
}

// setupPostClient reads the client configuration shared by all post commands
func setupPostClient(cmd *cobra.Command, _ []string) error {
	// Bind command flags to viper
	if err := util.BindCommandFlags(cmd); err != nil {
		return err
	}

	if err := common.InitLoggers(viper.GetString("log-level")); err != nil {
		return err
	}

	// Get client configuration components
	var err error
	clientConfig, err = util.GetClientConfig()
	if err != nil {
		return err
	}

	rpcSerializer, err = util.GetSerializer()
	if err != nil {
		return err
	}

	// Fail early on an unknown transport
	_, err = util.GetTransport()
	return err
}

// withClient connects a new client for the duration of fn
func withClient(fn func(c *client.PostClient) error) error {
	t, err := util.GetTransport()
	if err != nil {
		return err
	}

	return client.WithPostClient(*clientConfig, t, rpcSerializer, nil, fn)
}

// printMetrics dumps the call metrics if requested
func printMetrics(cmd *cobra.Command, _ []string) {
	if viper.GetBool("print-metrics") {
		out := cmd.OutOrStdout()
		fmt.Fprintln(out)
		metrics.WritePrometheus(out, false)
	}
}

// requestMetadata builds the metadata of the next call from the flags
func requestMetadata() post.RequestMetadata {
	id := viper.GetString("request-id")
	if id == "" {
		id = uuid.NewString()
	}

	meta := post.NewRequestMetadata(id)
	if requester := viper.GetInt32("requester"); requester >= 0 {
		meta = meta.WithRequester(requester)
	}
	return meta
}
