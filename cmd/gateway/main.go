package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	gatewaygrpc "github.com/amr-saas/gateway/internal/grpc"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "gateway",
		Short: "Fleet Gateway - WebSocket and gRPC front door for AMR fleets",
		Long:  "Mediates between browser operators and robot adapters with a mandatory safety pipeline on every actuation command",
	}

	rootCmd.AddCommand(
		serveCmd(),
		versionCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the gateway version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println(gatewaygrpc.Version)
		},
	}
}
