// Command kissctl is a thin cobra client for a running kissd's Facade RPC.
package main

import (
	"os"

	"github.com/spf13/cobra"
)

func main() {
	rootCmd := &cobra.Command{Use: "kissctl"}
	rootCmd.PersistentFlags().StringVar(&facadeAddr, "addr", "127.0.0.1:7070", "kissd gRPC address")
	rootCmd.AddCommand(storeCmd, retrieveCmd, verifyFileCmd, verifyCmd, providersCmd, closestPeersCmd, putToCmd, startProvidingCmd)
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
