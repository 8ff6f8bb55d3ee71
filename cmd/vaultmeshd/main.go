// Command vaultmeshd is the node and wallet CLI for a vaultmesh network: it
// starts a swarm participant and exposes wallet, chunk, register and audit
// operations against it. A single cobra root with one-file-per-domain
// command grouping.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	rootCmd := &cobra.Command{Use: "vaultmeshd", Short: "vaultmesh node and wallet CLI"}
	rootCmd.PersistentFlags().String("env", "", "environment overlay to merge into the base config (e.g. local, staging)")
	rootCmd.PersistentFlags().String("wallet-dir", "", "override the wallet directory from config")

	rootCmd.AddCommand(swarmCmd)
	rootCmd.AddCommand(walletCmd)
	rootCmd.AddCommand(chunkCmd)
	rootCmd.AddCommand(registerCmd)
	rootCmd.AddCommand(auditCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
