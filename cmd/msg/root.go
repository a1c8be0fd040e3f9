package msg

import (
	"github.com/spf13/cobra"

	"github.com/tkoeppen/taskwire/cmd/util"
	"github.com/tkoeppen/taskwire/rpc"

	// transport backends register themselves on import
	_ "github.com/tkoeppen/taskwire/comm/tcp"
)

var (
	rpcClient *rpc.Client

	// MsgCommands represents the msg command group
	MsgCommands = &cobra.Command{
		Use:               "msg",
		Short:             "Send messages to a taskwire server",
		PersistentPreRunE: setupClient,
	}
)

func init() {
	// Initialize viper
	cobra.OnInitialize(util.InitClientConfig)

	// Add common client flags to the msg command
	util.SetupClientFlags(MsgCommands)

	// Add subcommands
	MsgCommands.AddCommand(pingCmd)
	MsgCommands.AddCommand(sendCmd)
	MsgCommands.AddCommand(perfTestCmd)
}

// setupClient initializes the rpc client from the bound flags
func setupClient(cmd *cobra.Command, _ []string) error {
	if err := util.BindCommandFlags(cmd); err != nil {
		return err
	}
	rpcClient = rpc.NewClient(util.GetClientConfig())
	return nil
}
