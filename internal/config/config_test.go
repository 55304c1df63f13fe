package config

import (
	"flag"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"

	qnetErrors "github.com/qnet-xyz/qnet-core/errors"
	"github.com/qnet-xyz/qnet-core/model"
)

func ctxWith(t *testing.T, args map[string]string) *cli.Context {
	t.Helper()
	set := flag.NewFlagSet("test", flag.ContinueOnError)
	set.String("bootstrap-id", "", "")
	set.String("node-type", "full", "")
	set.String("region", "", "")
	set.Bool("aggressive-pruning", false, "")
	set.Int("max-storage-gb", 100, "")
	set.Int("p2p-port", 9090, "")

	for k, v := range args {
		require.NoError(t, set.Set(k, v))
	}
	return cli.NewContext(cli.NewApp(), set, nil)
}

func TestFromCLIValidConfig(t *testing.T) {
	ctx := ctxWith(t, map[string]string{
		"bootstrap-id": "001",
		"node-type":    "super",
		"region":       "us-east",
	})
	cfg, err := FromCLI(ctx)
	require.NoError(t, err)
	require.Equal(t, "001", cfg.BootstrapID)
	require.Equal(t, model.NodeTypeSuper, cfg.NodeType)
	require.Equal(t, "us-east", cfg.Region)
}

func TestFromCLIRejectsBadGenesisID(t *testing.T) {
	ctx := ctxWith(t, map[string]string{
		"bootstrap-id": "999",
		"region":       "us-east",
	})
	_, err := FromCLI(ctx)
	require.Error(t, err)
	qerr, ok := err.(*qnetErrors.Error)
	require.True(t, ok)
	require.Equal(t, qnetErrors.ERR_BAD_GENESIS_ID, qerr.Code)
}

func TestFromCLIRejectsUnknownNodeType(t *testing.T) {
	ctx := ctxWith(t, map[string]string{
		"node-type": "quantum",
		"region":    "us-east",
	})
	_, err := FromCLI(ctx)
	require.Error(t, err)
	qerr, ok := err.(*qnetErrors.Error)
	require.True(t, ok)
	require.Equal(t, qnetErrors.ERR_BAD_KEY, qerr.Code)
}

func TestFromCLIRejectsMissingRegion(t *testing.T) {
	ctx := ctxWith(t, map[string]string{
		"node-type": "full",
	})
	_, err := FromCLI(ctx)
	require.Error(t, err)
	qerr, ok := err.(*qnetErrors.Error)
	require.True(t, ok)
	require.Equal(t, qnetErrors.ERR_UNKNOWN_REGION, qerr.Code)
}

func TestDescribeIncludesFields(t *testing.T) {
	cfg := NodeConfig{BootstrapID: "001", NodeType: model.NodeTypeFull, Region: "eu-west", MaxStorageGB: 50, P2PPort: 9090}
	s := cfg.Describe()
	require.Contains(t, s, "001")
	require.Contains(t, s, "eu-west")
	require.Contains(t, s, "full")
}
