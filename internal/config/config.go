// Package config wires the CLI surface from §6 onto gocore's config-driven
// key/value store, the single source of runtime configuration every
// service constructor reads from (teacher convention, util/logger.go).
package config

import (
	"fmt"

	"github.com/ordishs/gocore"
	"github.com/urfave/cli/v2"

	qnetErrors "github.com/qnet-xyz/qnet-core/errors"
	"github.com/qnet-xyz/qnet-core/model"
)

// NodeConfig is the resolved configuration for one node process.
type NodeConfig struct {
	BootstrapID       string
	NodeType          model.NodeType
	Region            string
	AggressivePruning bool
	MaxStorageGB      int
	P2PPort           int
}

var genesisIDs = map[string]bool{
	"001": true, "002": true, "003": true, "004": true, "005": true,
}

// Flags declares the CLI surface from §6.
func Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "bootstrap-id", Usage: "Genesis identity, 001-005"},
		&cli.StringFlag{Name: "node-type", Value: "full", Usage: "light|full|super"},
		&cli.StringFlag{Name: "region", Usage: "deployment region"},
		&cli.BoolFlag{Name: "aggressive-pruning", Usage: "prune more aggressively"},
		&cli.IntFlag{Name: "max-storage-gb", Value: 100, Usage: "storage ceiling in GB"},
		&cli.IntFlag{Name: "health-port", Value: 8080, Usage: "health check HTTP port"},
		&cli.IntFlag{Name: "p2p-port", Value: 9090, Usage: "P2P HTTP transport port"},
	}
}

// FromCLI resolves a NodeConfig from a urfave/cli context, validating
// every field per §6/§7 (BadGenesisId, UnknownRegion are fatal config
// errors, exit code 2).
func FromCLI(c *cli.Context) (NodeConfig, error) {
	cfg := NodeConfig{
		BootstrapID:       c.String("bootstrap-id"),
		Region:            c.String("region"),
		AggressivePruning: c.Bool("aggressive-pruning"),
		MaxStorageGB:      c.Int("max-storage-gb"),
		P2PPort:           c.Int("p2p-port"),
	}

	if cfg.BootstrapID != "" && !genesisIDs[cfg.BootstrapID] {
		return cfg, qnetErrors.New(qnetErrors.ERR_BAD_GENESIS_ID, "unknown bootstrap id %q", cfg.BootstrapID)
	}

	switch c.String("node-type") {
	case "light":
		cfg.NodeType = model.NodeTypeLight
	case "full":
		cfg.NodeType = model.NodeTypeFull
	case "super":
		cfg.NodeType = model.NodeTypeSuper
	default:
		return cfg, qnetErrors.New(qnetErrors.ERR_BAD_KEY, "unknown node-type %q", c.String("node-type"))
	}

	if cfg.Region == "" {
		return cfg, qnetErrors.New(qnetErrors.ERR_UNKNOWN_REGION, "region must be set")
	}

	return cfg, nil
}

// Seed reads a typed default out of gocore.Config(), falling back to def
// when unset — the pattern every teacher service constructor uses.
func Seed(key string, def string) string {
	v, ok := gocore.Config().Get(key)
	if !ok {
		return def
	}
	return v
}

// Describe renders a one-line human summary of the resolved config, the
// same shape teranode logs at startup before wiring services.
func (c NodeConfig) Describe() string {
	return fmt.Sprintf("bootstrap=%s node_type=%s region=%s aggressive_pruning=%v max_storage_gb=%d p2p_port=%d",
		c.BootstrapID, c.NodeType, c.Region, c.AggressivePruning, c.MaxStorageGB, c.P2PPort)
}
