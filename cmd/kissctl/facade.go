package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"kiss/internal/rpc"
	"kiss/internal/rpcclient"
)

var facadeAddr string

func dialFacade(cmd *cobra.Command, _ []string) error {
	client, err := rpcclient.Dial(facadeAddr)
	if err != nil {
		return err
	}
	facade = client
	return nil
}

var facade *rpcclient.Client

func storeRun(cmd *cobra.Command, args []string) error {
	value, err := os.ReadFile(args[1])
	if err != nil {
		return err
	}
	ttl, _ := cmd.Flags().GetInt64("ttl")
	resp, err := facade.Store(cmd.Context(), rpc.StoreRequest{Key: args[0], Value: value, Publisher: "kissctl", TTLSeconds: ttl})
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), resp.FileUUID)
	return nil
}

func retrieveRun(cmd *cobra.Command, args []string) error {
	resp, err := facade.Retrieve(cmd.Context(), rpc.RetrieveRequest{Key: args[0]})
	if err != nil {
		return err
	}
	_, err = cmd.OutOrStdout().Write(resp.Value)
	return err
}

func verifyFileRun(cmd *cobra.Command, args []string) error {
	resp, err := facade.VerifyFile(cmd.Context(), rpc.VerifyFileRequest{FileUUID: args[0]})
	if err != nil {
		return err
	}
	for _, v := range resp.Verifications {
		fmt.Fprintf(cmd.OutOrStdout(), "%s\t%v\n", v.PeerID, v.Verified)
	}
	return nil
}

func verifyRun(cmd *cobra.Command, args []string) error {
	resp, err := facade.Verify(cmd.Context(), rpc.VerifyRequest{ContractUUID: args[0]})
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), resp.Passed)
	return nil
}

func providersRun(cmd *cobra.Command, args []string) error {
	resp, err := facade.GetProviders(cmd.Context(), rpc.GetProvidersRequest{Key: args[0]})
	if err != nil {
		return err
	}
	for _, id := range resp.PeerIDs {
		fmt.Fprintln(cmd.OutOrStdout(), id)
	}
	return nil
}

func closestPeersRun(cmd *cobra.Command, args []string) error {
	resp, err := facade.GetClosestPeers(cmd.Context(), rpc.GetClosestPeersRequest{Key: args[0]})
	if err != nil {
		return err
	}
	for _, id := range resp.PeerIDs {
		fmt.Fprintln(cmd.OutOrStdout(), id)
	}
	return nil
}

func putToRun(cmd *cobra.Command, args []string) error {
	value, err := os.ReadFile(args[2])
	if err != nil {
		return err
	}
	_, err = facade.PutTo(cmd.Context(), rpc.PutToRequest{PeerID: args[0], Key: args[1], Value: value})
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), "ok")
	return nil
}

func startProvidingRun(cmd *cobra.Command, args []string) error {
	_, err := facade.StartProviding(cmd.Context(), rpc.StartProvidingRequest{Key: args[0]})
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), "ok")
	return nil
}

var storeCmd = &cobra.Command{Use: "store <key> <file>", Short: "upload a file for custody", Args: cobra.ExactArgs(2), PersistentPreRunE: dialFacade, RunE: storeRun}
var retrieveCmd = &cobra.Command{Use: "retrieve <key>", Short: "fetch a stored file", Args: cobra.ExactArgs(1), PersistentPreRunE: dialFacade, RunE: retrieveRun}
var verifyFileCmd = &cobra.Command{Use: "verify-file <file-uuid>", Short: "challenge every custodian of a file immediately", Args: cobra.ExactArgs(1), PersistentPreRunE: dialFacade, RunE: verifyFileRun}
var verifyCmd = &cobra.Command{Use: "verify <contract-uuid>", Short: "check whether a contract's custodian has a non-negative reputation", Args: cobra.ExactArgs(1), PersistentPreRunE: dialFacade, RunE: verifyRun}
var providersCmd = &cobra.Command{Use: "providers <key>", Short: "list peers advertising a key", Args: cobra.ExactArgs(1), PersistentPreRunE: dialFacade, RunE: providersRun}
var closestPeersCmd = &cobra.Command{Use: "closest-peers <key>", Short: "list the DHT's closest peers to a key", Args: cobra.ExactArgs(1), PersistentPreRunE: dialFacade, RunE: closestPeersRun}
var putToCmd = &cobra.Command{Use: "put-to <peer-id> <key> <file>", Short: "replicate a value toward a specific peer", Args: cobra.ExactArgs(3), PersistentPreRunE: dialFacade, RunE: putToRun}
var startProvidingCmd = &cobra.Command{Use: "start-providing <key>", Short: "advertise this node as a provider for key", Args: cobra.ExactArgs(1), PersistentPreRunE: dialFacade, RunE: startProvidingRun}

func init() {
	storeCmd.Flags().Int64("ttl", 0, "custody lease in seconds, 0 for no expiry")
}
