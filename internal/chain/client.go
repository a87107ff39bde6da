// Package chain provides read access to the settlement chain: contract-code
// checks for the game registry and the block-height feed that paces the
// oracle gateway.
package chain

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/stakeworks/gosp/internal/config"
	"github.com/stakeworks/gosp/pkg/circuit"
	"github.com/stakeworks/gosp/pkg/errors"
	"github.com/stakeworks/gosp/pkg/log"
	"github.com/stakeworks/gosp/pkg/retry"
)

// Client wraps an ethclient connection behind a circuit breaker and the
// network retry policy. It implements games.ContractVerifier.
type Client struct {
	eth         *ethclient.Client
	breaker     *circuit.Breaker
	retryConfig *retry.Config
	logger      *log.Logger
}

// NewClient dials the chain RPC endpoint.
func NewClient(ctx context.Context, cfg *config.ChainConfig, logger *log.Logger) (*Client, error) {
	eth, err := ethclient.DialContext(ctx, cfg.RPCURL)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeChain, "chain_dial",
			"failed to dial chain rpc").WithContext("url", cfg.RPCURL)
	}

	return &Client{
		eth:         eth,
		breaker:     circuit.New(circuit.DefaultConfig()),
		retryConfig: retry.NetworkConfig(),
		logger:      logger.WithComponent("chain"),
	}, nil
}

// IsContract reports whether the address carries deployed code at head.
func (c *Client) IsContract(ctx context.Context, addr common.Address) (bool, error) {
	code, err := retry.DoWithResult(ctx, c.retryConfig, func() ([]byte, error) {
		return circuit.ExecuteWithResult(ctx, c.breaker, func() ([]byte, error) {
			code, err := c.eth.CodeAt(ctx, addr, nil)
			if err != nil {
				return nil, errors.Wrap(err, errors.ErrorTypeChain, "code_at",
					"code lookup failed").WithContext("address", addr.Hex())
			}
			return code, nil
		})
	})
	if err != nil {
		return false, err
	}
	return len(code) > 0, nil
}

// BlockNumber returns the current head height.
func (c *Client) BlockNumber(ctx context.Context) (uint64, error) {
	return retry.DoWithResult(ctx, c.retryConfig, func() (uint64, error) {
		return circuit.ExecuteWithResult(ctx, c.breaker, func() (uint64, error) {
			n, err := c.eth.BlockNumber(ctx)
			if err != nil {
				return 0, errors.Wrap(err, errors.ErrorTypeChain, "block_number",
					"head lookup failed")
			}
			return n, nil
		})
	})
}

// Close releases the underlying connection.
func (c *Client) Close() {
	c.eth.Close()
}
