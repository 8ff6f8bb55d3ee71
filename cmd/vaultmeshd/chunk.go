package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/vaultmesh/vaultmesh/core"
)

var chunkCmd = &cobra.Command{Use: "chunk", Short: "store and fetch immutable content-addressed chunks"}

var chunkPutCmd = &cobra.Command{
	Use:   "put <file>",
	Short: "store a file as a chunk on the network and print its address",
	Args:  cobra.ExactArgs(1),
	RunE:  chunkPutHandler,
}

var chunkGetCmd = &cobra.Command{
	Use:   "get <address-hex>",
	Short: "fetch a chunk by address, writing it to --out or stdout",
	Args:  cobra.ExactArgs(1),
	RunE:  chunkGetHandler,
}

func chunkPutHandler(cmd *cobra.Command, args []string) error {
	content, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("read %s: %w", args[0], err)
	}

	cfg, err := loadAppConfig(cmd)
	if err != nil {
		return err
	}
	log := newLogger(cfg)
	sw, client, err := dialNode(cfg, log)
	if err != nil {
		return err
	}
	defer sw.Close()

	rec, err := core.NewChunkRecord(content)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(cmd.Context(), cfg.ConnectionTimeout())
	defer cancel()
	if err := client.PutRecord(ctx, rec, core.DefaultPutConfig()); err != nil {
		return fmt.Errorf("put chunk: %s", protocolErrMessage(err))
	}

	cs, err := core.NewChunkStore(cfg.Storage.ChunkStoreDir, cfg.Storage.ChunkCacheEntries, newChunkLogger(cfg))
	if err != nil {
		return err
	}
	addr, _, err := cs.Put(content)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), addr)
	return nil
}

func chunkGetHandler(cmd *cobra.Command, args []string) error {
	addr, err := core.ParseNetworkAddress(args[0])
	if err != nil {
		return err
	}

	cfg, err := loadAppConfig(cmd)
	if err != nil {
		return err
	}
	log := newLogger(cfg)
	sw, client, err := dialNode(cfg, log)
	if err != nil {
		return err
	}
	defer sw.Close()

	ctx, cancel := context.WithTimeout(cmd.Context(), cfg.ConnectionTimeout())
	defer cancel()
	rec, err := client.GetRecord(ctx, addr, core.DefaultGetConfig())
	if err != nil {
		return fmt.Errorf("get chunk: %s", protocolErrMessage(err))
	}
	content, err := rec.AsChunk()
	if err != nil {
		return err
	}

	out, _ := cmd.Flags().GetString("out")
	if out == "" {
		_, err = cmd.OutOrStdout().Write(content)
		return err
	}
	return os.WriteFile(out, content, 0o644)
}

func init() {
	chunkGetCmd.Flags().String("out", "", "write the chunk to this file instead of stdout")
	chunkCmd.AddCommand(chunkPutCmd, chunkGetCmd)
}
