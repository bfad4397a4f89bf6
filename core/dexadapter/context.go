package dexadapter

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/synnergy-network/marketengine/core/tokenregistry"
)

// EthCaller is the minimal eth_call surface adapters need.
type EthCaller interface {
	CallContract(ctx context.Context, call ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
}

// ChainContext is the explicit context struct every adapter call takes,
// per spec.md §9 ("shared state... passed as an explicit context struct")
// instead of ambient globals: the RPC handle, the shared token registry
// and the per-chain RPC rate limiter.
type ChainContext struct {
	ChainID  uint64
	Client   EthCaller
	Tokens   *tokenregistry.Registry
	Limiter  *rate.Limiter
	Log      *logrus.Entry
}

// Call blocks for a rate-limiter reservation before issuing the eth_call,
// enforcing the shared per-chain token bucket from spec.md §5.
func (c *ChainContext) Call(ctx context.Context, to common.Address, data []byte) ([]byte, error) {
	if c.Limiter != nil {
		if err := c.Limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}
	return c.Client.CallContract(ctx, ethereum.CallMsg{To: &to, Data: data}, nil)
}
