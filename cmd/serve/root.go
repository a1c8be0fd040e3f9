package serve

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	cmdUtil "github.com/tkoeppen/taskwire/cmd/util"
	"github.com/tkoeppen/taskwire/internal/logging"
	"github.com/tkoeppen/taskwire/rpc"

	// transport backends register themselves on import
	_ "github.com/tkoeppen/taskwire/comm/inproc"
	_ "github.com/tkoeppen/taskwire/comm/tcp"
)

var (
	serveCmdConfig = rpc.DefaultServerConfig()
	ServeCmd       = &cobra.Command{
		Use:     "serve",
		Short:   "Start a taskwire server",
		Long:    `Start a taskwire server with the specified configuration. The configuration can be set via command line flags or environment variables. The format of the environment variables is TASKWIRE_<flag> (e.g. TASKWIRE_LISTEN=tcp://:9000)`,
		PreRunE: processConfig,
		RunE:    run,
	}
)

func init() {
	// initialize viper
	cobra.OnInitialize(initConfig)

	// add flags
	key := "listen"
	ServeCmd.PersistentFlags().String(key, "tcp://:8787", cmdUtil.WrapString("The address on which the server will listen (e.g. tcp://0.0.0.0:8787, inproc://...)"))

	key = "workers"
	ServeCmd.PersistentFlags().Int(key, 16, cmdUtil.WrapString("Maximum number of requests processed concurrently per connection"))

	key = "timeout"
	ServeCmd.PersistentFlags().Int64(key, 5, cmdUtil.WrapString("Timeout in seconds for handling a single request (0 disables)"))

	key = "log-level"
	ServeCmd.PersistentFlags().String(key, "info", cmdUtil.WrapString("LogLevel is the level at which logs will be output (debug, info, warn, error)"))
}

// processConfig reads the configuration from the command line flags and environment variables and converts them to the server configuration
func processConfig(cmd *cobra.Command, _ []string) error {
	// bind the flags to viper
	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return err
	}

	serveCmdConfig.ListenAddr = viper.GetString("listen")
	serveCmdConfig.WorkersPerConn = viper.GetInt("workers")
	serveCmdConfig.Timeout = time.Duration(viper.GetInt64("timeout")) * time.Second

	return logging.Init(viper.GetString("log-level"))
}

// run starts the server and blocks until interrupted
func run(_ *cobra.Command, _ []string) error {
	s := rpc.NewServer(serveCmdConfig)
	registerOps(s)

	if err := s.Serve(); err != nil {
		return err
	}
	defer s.Close()

	// block until SIGINT/SIGTERM
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	return nil
}

// registerOps installs the built-in operations: ping answers with pong,
// echo returns the request payload, sink swallows it.
func registerOps(s *rpc.Server) {
	s.Handle("ping", func(ctx context.Context, msg rpc.Message) (rpc.Message, error) {
		return rpc.Message{"op": "ping", "status": "ok", "result": "pong"}, nil
	})
	s.Handle("echo", func(ctx context.Context, msg rpc.Message) (rpc.Message, error) {
		return rpc.Message{"op": "echo", "status": "ok", "result": msg["data"]}, nil
	})
	s.Handle("sink", func(ctx context.Context, msg rpc.Message) (rpc.Message, error) {
		return rpc.Message{"op": "sink", "status": "ok"}, nil
	})
}

// initConfig reads in serveCmdConfig file and ENV variables if set.
func initConfig() {
	// load env files
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")

	// initialize viper
	viper.SetEnvPrefix("taskwire")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv() // read in environment variables that match
}
