package serve

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	cmdUtil "github.com/buzzblog/postrpc/cmd/util"
	"github.com/buzzblog/postrpc/lib/post"
	"github.com/buzzblog/postrpc/lib/post/mockpost"
	"github.com/buzzblog/postrpc/rpc/common"
	"github.com/buzzblog/postrpc/rpc/server"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	serveCmdConfig = &common.ServerConfig{}
	ServeCmd       = &cobra.Command{
		Use:     "serve",
		Short:   "Start an in-memory post service",
		Long:    `Start an RPC server backed by an in-memory post service, for local testing of clients. The configuration can be set via command line flags or environment variables. The format of the environment variables is POST_<flag> (e.g. POST_TIMEOUT=15)`,
		PreRunE: processConfig,
		RunE:    run,
	}
)

func init() {
	// initialize viper
	cobra.OnInitialize(cmdUtil.InitConfig)

	// add flags
	key := "timeout"
	ServeCmd.PersistentFlags().Int64(key, 5, cmdUtil.WrapString("Read/write timeout of a connection in seconds (0 = no limit)"))

	key = "endpoint"
	ServeCmd.PersistentFlags().String(key, "0.0.0.0:9000", cmdUtil.WrapString("The address on which the server will listen (e.g. localhost:9000, /tmp/post.sock, ...)"))

	key = "buffer-size"
	ServeCmd.PersistentFlags().Int(key, 64, cmdUtil.WrapString("Size of the pooled read buffers (in KB)"))

	key = "workers"
	ServeCmd.PersistentFlags().Int(key, 1, cmdUtil.WrapString("Maximum number of requests processed concurrently per connection"))

	key = "seed"
	ServeCmd.PersistentFlags().Int(key, 0, cmdUtil.WrapString("Number of demo posts to create on startup"))

	key = "log-level"
	ServeCmd.PersistentFlags().String(key, "info", cmdUtil.WrapString("LogLevel is the level at which logs will be output (debug, info, warn, error)"))
}

// processConfig reads the configuration from the command line flags and environment variables and converts them to the server configuration
func processConfig(cmd *cobra.Command, _ []string) error {
	// bind the flags to viper
	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return err
	}

	serveCmdConfig.TimeoutSecond = viper.GetInt64("timeout")
	serveCmdConfig.LogLevel = viper.GetString("log-level")
	serveCmdConfig.Transport = common.ServerTransportConfig{
		Endpoint:          viper.GetString("endpoint"),
		BufferSize:        viper.GetInt("buffer-size") * 1024,
		MaxWorkersPerConn: viper.GetInt("workers"),
		TCPConf:           common.TCPConf{TCPNoDelay: true, TCPLingerSec: -1},
	}

	if serveCmdConfig.Transport.Endpoint == "" {
		return fmt.Errorf("endpoint must not be empty")
	}

	// dragonboat binds a logger to the factory on its first call, so the
	// factory has to be in place before the server logs anything
	return common.InitLoggers(serveCmdConfig.LogLevel)
}

// run starts the server and blocks until it is stopped by a signal
func run(_ *cobra.Command, _ []string) error {
	s, err := cmdUtil.GetSerializer()
	if err != nil {
		return err
	}

	t, err := cmdUtil.GetServerTransport(serveCmdConfig.Transport.BufferSize, serveCmdConfig.Transport.MaxWorkersPerConn)
	if err != nil {
		return err
	}

	service := mockpost.New()
	if err := seed(service, viper.GetInt("seed")); err != nil {
		return err
	}

	serv := server.NewRPCServer(*serveCmdConfig, t, s, service)

	// stop on SIGINT / SIGTERM
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sig
		server.Logger.Infof("Shutting down")
		_ = serv.Close()
	}()

	return serv.Serve()
}

// seed creates n demo posts spread over three accounts
func seed(service *mockpost.Service, n int) error {
	for i := 0; i < n; i++ {
		author := int32(i%3 + 1)
		meta := post.NewRequestMetadata(fmt.Sprintf("seed-%d", i)).WithRequester(author)
		if _, err := service.CreatePost(meta, fmt.Sprintf("demo post %d from %s", i+1, time.Now().Format(time.DateOnly))); err != nil {
			return fmt.Errorf("failed to seed post %d: %w", i, err)
		}
	}
	return nil
}
