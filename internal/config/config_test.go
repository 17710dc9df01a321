package config_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/covenant-labs/vaultd/common"
	"github.com/covenant-labs/vaultd/internal/config"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := config.LoadConfig()
	require.NoError(t, err)

	require.Equal(t, common.Regtest, cfg.Network)
	require.Equal(t, "file", cfg.StoreType)
	require.Equal(t, uint16(20), cfg.Timelock)
	require.NotEmpty(t, cfg.Datadir)
}

func TestLoadConfigFromEnv(t *testing.T) {
	t.Setenv("VAULTD_NETWORK", "signet")
	t.Setenv("VAULTD_STORE_TYPE", "badger")
	t.Setenv("VAULTD_TIMELOCK", "144")

	cfg, err := config.LoadConfig()
	require.NoError(t, err)

	require.Equal(t, common.SigNet, cfg.Network)
	require.Equal(t, "badger", cfg.StoreType)
	require.Equal(t, uint16(144), cfg.Timelock)
}

func TestLoadConfigRejectsBadValues(t *testing.T) {
	t.Setenv("VAULTD_NETWORK", "liquid")
	_, err := config.LoadConfig()
	require.Error(t, err)

	t.Setenv("VAULTD_NETWORK", "regtest")
	t.Setenv("VAULTD_STORE_TYPE", "postgres")
	_, err = config.LoadConfig()
	require.Error(t, err)

	t.Setenv("VAULTD_STORE_TYPE", "file")
	t.Setenv("VAULTD_TIMELOCK", "0")
	_, err = config.LoadConfig()
	require.Error(t, err)
}
