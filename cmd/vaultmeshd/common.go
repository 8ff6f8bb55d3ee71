package main

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/vaultmesh/vaultmesh/core"
	pkgconfig "github.com/vaultmesh/vaultmesh/pkg/config"
)

// loadAppConfig merges the base config with the --env overlay flag, honoring
// --wallet-dir as a final override for commands that only touch the wallet
// and never need a swarm.
func loadAppConfig(cmd *cobra.Command) (*pkgconfig.Config, error) {
	env, _ := cmd.Flags().GetString("env")
	cfg, err := pkgconfig.Load(env)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if dir, _ := cmd.Flags().GetString("wallet-dir"); dir != "" {
		cfg.Wallet.Dir = dir
	}
	return cfg, nil
}

func newLogger(cfg *pkgconfig.Config) *logrus.Logger {
	log := logrus.New()
	if lvl, err := logrus.ParseLevel(cfg.Logging.Level); err == nil {
		log.SetLevel(lvl)
	}
	return log
}

// newChunkLogger builds the zap logger for ChunkStore's hot put/get path,
// matching storage.go's zap/logrus split (see core/chunkstore.go).
func newChunkLogger(cfg *pkgconfig.Config) *zap.Logger {
	zcfg := zap.NewProductionConfig()
	if lvl, err := zap.ParseAtomicLevel(cfg.Logging.Level); err == nil {
		zcfg.Level = lvl
	}
	log, err := zcfg.Build()
	if err != nil {
		return zap.NewNop()
	}
	return log
}

// dialNode brings up a Swarm and the DHT Client facade over it, the same
// pairing core/dht_client.go and core/swarm.go are designed for. Callers
// must Close the returned swarm once done.
func dialNode(cfg *pkgconfig.Config, log *logrus.Logger) (*core.Swarm, *core.Client, error) {
	sw, err := core.NewSwarm(core.SwarmConfig{
		ListenAddr:     cfg.Swarm.ListenAddr,
		BootstrapPeers: cfg.Swarm.BootstrapPeers,
		EnableGossip:   cfg.Swarm.EnableGossip,
		EnableMDNS:     cfg.Swarm.EnableMDNS,
	}, log)
	if err != nil {
		return nil, nil, fmt.Errorf("start swarm: %w", err)
	}
	client, err := core.NewClient(sw, cfg.Network.RecordCacheSize, log)
	if err != nil {
		sw.Close()
		return nil, nil, fmt.Errorf("new dht client: %w", err)
	}
	return sw, client, nil
}

// protocolErrMessage renders err using core's error taxonomy when possible,
// falling back to err.Error() for anything else.
func protocolErrMessage(err error) string {
	if err == nil {
		return ""
	}
	if kind, ok := core.Classify(err); ok {
		return fmt.Sprintf("[%s] %s", kind, err.Error())
	}
	return err.Error()
}
