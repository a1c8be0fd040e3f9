package msg

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tkoeppen/taskwire/cmd/util"
	"github.com/tkoeppen/taskwire/rpc"
)

var (
	pingCmd = &cobra.Command{
		Use:   "ping",
		Short: "Ping the server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			defer rpcClient.Close()
			resp, err := rpcClient.SendRecv(context.Background(), util.GetServerAddr(), rpc.Message{"op": "ping"})
			if err != nil {
				return err
			}
			fmt.Println(resp["result"])
			return nil
		},
	}
	sendCmd = &cobra.Command{
		Use:   "send [op] [data]",
		Short: "Send a message and print the reply",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			defer rpcClient.Close()
			req := rpc.Message{"op": args[0]}
			if len(args) == 2 {
				req["data"] = []byte(args[1])
			}
			resp, err := rpcClient.SendRecv(context.Background(), util.GetServerAddr(), req)
			if err != nil {
				return err
			}
			if data, ok := resp["result"].([]byte); ok {
				fmt.Println(string(data))
			} else if resp["result"] != nil {
				fmt.Println(resp["result"])
			} else {
				fmt.Println(resp["status"])
			}
			return nil
		},
	}
)
