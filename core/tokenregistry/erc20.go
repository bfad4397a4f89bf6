package tokenregistry

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	"github.com/synnergy-network/marketengine/core/venue"
)

const erc20MetadataABI = `[
	{"constant":true,"inputs":[],"name":"name","outputs":[{"name":"","type":"string"}],"type":"function"},
	{"constant":true,"inputs":[],"name":"symbol","outputs":[{"name":"","type":"string"}],"type":"function"},
	{"constant":true,"inputs":[],"name":"decimals","outputs":[{"name":"","type":"uint8"}],"type":"function"}
]`

// EthCaller is the minimal eth_call surface an Introspector needs; an RPC
// client (e.g. ethclient.Client) satisfies it directly.
type EthCaller interface {
	CallContract(ctx context.Context, call ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
}

// RPCIntrospector reads name/symbol/decimals via three eth_call round
// trips against a per-chain RPC client set.
type RPCIntrospector struct {
	abi     abi.ABI
	clients map[venue.ChainID]EthCaller
}

func NewRPCIntrospector() (*RPCIntrospector, error) {
	parsed, err := abi.JSON(strings.NewReader(erc20MetadataABI))
	if err != nil {
		return nil, fmt.Errorf("tokenregistry: parse erc20 abi: %w", err)
	}
	return &RPCIntrospector{abi: parsed, clients: make(map[venue.ChainID]EthCaller)}, nil
}

// RegisterClient wires the RPC client used for a given chain.
func (r *RPCIntrospector) RegisterClient(chainID venue.ChainID, client EthCaller) {
	r.clients[chainID] = client
}

func (r *RPCIntrospector) ReadERC20Metadata(ctx context.Context, chainID venue.ChainID, addr common.Address) (string, string, uint8, error) {
	client, ok := r.clients[chainID]
	if !ok {
		return "", "", 0, fmt.Errorf("tokenregistry: no rpc client for chain %d: %w", chainID, venue.ErrRpc)
	}

	name, err := r.call(ctx, client, addr, "name")
	if err != nil {
		return "", "", 0, err
	}
	symbol, err := r.call(ctx, client, addr, "symbol")
	if err != nil {
		return "", "", 0, err
	}
	decRaw, err := r.call(ctx, client, addr, "decimals")
	if err != nil {
		return "", "", 0, err
	}

	var nameOut, symbolOut string
	if err := r.abi.UnpackIntoInterface(&nameOut, "name", name); err != nil {
		return "", "", 0, fmt.Errorf("tokenregistry: unpack name: %w", err)
	}
	if err := r.abi.UnpackIntoInterface(&symbolOut, "symbol", symbol); err != nil {
		return "", "", 0, fmt.Errorf("tokenregistry: unpack symbol: %w", err)
	}
	var decOut uint8
	if err := r.abi.UnpackIntoInterface(&decOut, "decimals", decRaw); err != nil {
		return "", "", 0, fmt.Errorf("tokenregistry: unpack decimals: %w", err)
	}
	return nameOut, symbolOut, decOut, nil
}

func (r *RPCIntrospector) call(ctx context.Context, client EthCaller, addr common.Address, method string) ([]byte, error) {
	data, err := r.abi.Pack(method)
	if err != nil {
		return nil, fmt.Errorf("tokenregistry: pack %s: %w", method, err)
	}
	out, err := client.CallContract(ctx, ethereum.CallMsg{To: &addr, Data: data}, nil)
	if err != nil {
		return nil, fmt.Errorf("tokenregistry: call %s: %w", method, venue.ErrRpc)
	}
	return out, nil
}
