package config

import (
	"encoding/json"
	"fmt"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/spf13/viper"

	"github.com/covenant-labs/vaultd/common"
)

type supportedType map[string]struct{}

func (t supportedType) supports(typeStr string) bool {
	_, ok := t[typeStr]
	return ok
}

var supportedStores = supportedType{
	"file":   {},
	"badger": {},
}

// Config carries everything the daemon needs: where to keep state, which
// chain to talk to and how to reach the bitcoind node used for funding
// and broadcasting.
type Config struct {
	Datadir   string
	Network   common.Network
	StoreType string
	LogLevel  int
	Timelock  uint16

	RpcHost string
	RpcUser string
	RpcPass string
}

func (c *Config) String() string {
	buf, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Sprintf("error while marshalling config JSON: %s", err)
	}
	return string(buf)
}

var (
	Datadir   = "DATADIR"
	Network   = "NETWORK"
	StoreType = "STORE_TYPE"
	LogLevel  = "LOG_LEVEL"
	Timelock  = "TIMELOCK"
	RpcHost   = "RPC_HOST"
	RpcUser   = "RPC_USER"
	RpcPass   = "RPC_PASS"

	defaultDatadir   = btcutil.AppDataDir("vaultd", false)
	defaultNetwork   = common.Regtest.Name
	defaultStoreType = "file"
	defaultLogLevel  = 4
	defaultTimelock  = 20
	defaultRpcHost   = "localhost:18443"
)

// LoadConfig reads the environment with the VAULTD_ prefix and validates
// the result.
func LoadConfig() (*Config, error) {
	viper.SetEnvPrefix("VAULTD")
	viper.AutomaticEnv()

	viper.SetDefault(Datadir, defaultDatadir)
	viper.SetDefault(Network, defaultNetwork)
	viper.SetDefault(StoreType, defaultStoreType)
	viper.SetDefault(LogLevel, defaultLogLevel)
	viper.SetDefault(Timelock, defaultTimelock)
	viper.SetDefault(RpcHost, defaultRpcHost)

	network, err := common.NetworkFromString(viper.GetString(Network))
	if err != nil {
		return nil, err
	}

	storeType := viper.GetString(StoreType)
	if !supportedStores.supports(storeType) {
		return nil, fmt.Errorf("store type not supported, please select one of: %v", supportedStores)
	}

	timelock := viper.GetUint16(Timelock)
	if timelock == 0 {
		return nil, fmt.Errorf("timelock must be at least 1 block")
	}

	return &Config{
		Datadir:   viper.GetString(Datadir),
		Network:   network,
		StoreType: storeType,
		LogLevel:  viper.GetInt(LogLevel),
		Timelock:  timelock,
		RpcHost:   viper.GetString(RpcHost),
		RpcUser:   viper.GetString(RpcUser),
		RpcPass:   viper.GetString(RpcPass),
	}, nil
}
