package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var swarmCmd = &cobra.Command{Use: "swarm", Short: "join the storage network as a swarm participant"}

var swarmStartCmd = &cobra.Command{
	Use:   "start",
	Short: "start a long-running swarm participant (libp2p host, gossipsub, mDNS)",
	RunE:  swarmStartHandler,
}

func swarmStartHandler(cmd *cobra.Command, _ []string) error {
	cfg, err := loadAppConfig(cmd)
	if err != nil {
		return err
	}
	log := newLogger(cfg)

	sw, _, err := dialNode(cfg, log)
	if err != nil {
		return err
	}
	defer sw.Close()

	fmt.Fprintf(cmd.OutOrStdout(), "swarm listening on %s (gossip=%v mdns=%v)\n",
		cfg.Swarm.ListenAddr, cfg.Swarm.EnableGossip, cfg.Swarm.EnableMDNS)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	fmt.Fprintln(cmd.OutOrStdout(), "shutting down")
	return nil
}

func init() {
	swarmCmd.AddCommand(swarmStartCmd)
}
