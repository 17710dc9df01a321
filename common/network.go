package common

import (
	"fmt"

	"github.com/btcsuite/btcd/chaincfg"
)

type Network struct {
	Name string
}

var Bitcoin = Network{
	Name: "bitcoin",
}

var TestNet = Network{
	Name: "testnet",
}

var SigNet = Network{
	Name: "signet",
}

var Regtest = Network{
	Name: "regtest",
}

func NetworkFromString(name string) (Network, error) {
	switch name {
	case Bitcoin.Name:
		return Bitcoin, nil
	case TestNet.Name:
		return TestNet, nil
	case SigNet.Name:
		return SigNet, nil
	case Regtest.Name:
		return Regtest, nil
	default:
		return Network{}, fmt.Errorf("unknown network: %s", name)
	}
}

// ChainParams maps the network to the chaincfg params used for address
// encoding.
func (n Network) ChainParams() *chaincfg.Params {
	switch n.Name {
	case Bitcoin.Name:
		return &chaincfg.MainNetParams
	case TestNet.Name:
		return &chaincfg.TestNet3Params
	case SigNet.Name:
		return &chaincfg.SigNetParams
	default:
		return &chaincfg.RegressionNetParams
	}
}
