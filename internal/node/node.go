// Package node wraps the bitcoind RPC connection used for broadcasting
// vault transactions and inspecting their confirmation status.
package node

import (
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/rpcclient"
	"github.com/btcsuite/btcd/wire"
	log "github.com/sirupsen/logrus"
)

var ErrOutputNotFound = errors.New("output not found or already spent")

type Client struct {
	rpc *rpcclient.Client
}

// Connect opens an HTTP POST mode connection to bitcoind.
func Connect(host, user, pass string) (*Client, error) {
	rpc, err := rpcclient.New(&rpcclient.ConnConfig{
		Host:         host,
		User:         user,
		Pass:         pass,
		HTTPPostMode: true,
		DisableTLS:   true,
	}, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to bitcoind: %s", err)
	}
	return &Client{rpc}, nil
}

// Broadcast submits the transaction to the mempool and returns its txid.
func (c *Client) Broadcast(tx *wire.MsgTx) (*chainhash.Hash, error) {
	txid, err := c.rpc.SendRawTransaction(tx, false)
	if err != nil {
		return nil, fmt.Errorf("failed to broadcast transaction: %s", err)
	}
	log.WithField("txid", txid.String()).Info("broadcasted transaction")
	return txid, nil
}

// FetchOutput looks up an unspent output, mempool included.
func (c *Client) FetchOutput(outpoint *wire.OutPoint) (*wire.TxOut, error) {
	result, err := c.rpc.GetTxOut(&outpoint.Hash, outpoint.Index, true)
	if err != nil {
		return nil, err
	}
	if result == nil {
		return nil, fmt.Errorf("%w: %s", ErrOutputNotFound, outpoint.String())
	}

	pkScript, err := hex.DecodeString(result.ScriptPubKey.Hex)
	if err != nil {
		return nil, err
	}
	amount, err := btcutil.NewAmount(result.Value)
	if err != nil {
		return nil, err
	}

	return wire.NewTxOut(int64(amount), pkScript), nil
}

// Confirmations returns how many blocks deep the transaction is, zero
// while it sits in the mempool.
func (c *Client) Confirmations(txid *chainhash.Hash) (int64, error) {
	result, err := c.rpc.GetTransaction(txid)
	if err != nil {
		return 0, err
	}
	return result.Confirmations, nil
}

func (c *Client) Close() {
	c.rpc.Shutdown()
}
