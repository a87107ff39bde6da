package oracle

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/rpc"

	"github.com/stakeworks/gosp/internal/config"
	"github.com/stakeworks/gosp/pkg/circuit"
	"github.com/stakeworks/gosp/pkg/errors"
	"github.com/stakeworks/gosp/pkg/log"
	"github.com/stakeworks/gosp/pkg/retry"
)

// RPCClient talks JSON-RPC to the randomness provider. Calls run behind a
// circuit breaker and the oracle retry policy.
type RPCClient struct {
	rpc         *rpc.Client
	breaker     *circuit.Breaker
	retryConfig *retry.Config
	logger      *log.Logger
}

// randomResult is the provider's response to vrf_getRandom. Ready stays
// false until the value has been produced and proven.
type randomResult struct {
	Ready bool   `json:"ready"`
	Value uint64 `json:"value"`
}

// NewRPCClient dials the randomness provider.
func NewRPCClient(ctx context.Context, cfg *config.OracleConfig, logger *log.Logger) (*RPCClient, error) {
	client, err := rpc.DialContext(ctx, cfg.RPCURL)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeOracle, "oracle_dial",
			"failed to dial randomness provider").WithContext("url", cfg.RPCURL)
	}

	return &RPCClient{
		rpc:         client,
		breaker:     circuit.New(circuit.DefaultConfig()),
		retryConfig: retry.OracleConfig(),
		logger:      logger.WithComponent("oracle_rpc"),
	}, nil
}

// RequestRandomNumber implements Client.
func (c *RPCClient) RequestRandomNumber(ctx context.Context) (RequestID, error) {
	id, err := retry.DoWithResult(ctx, c.retryConfig, func() (string, error) {
		return circuit.ExecuteWithResult(ctx, c.breaker, func() (string, error) {
			var id string
			if err := c.rpc.CallContext(ctx, &id, "vrf_requestRandom"); err != nil {
				return "", errors.Wrap(err, errors.ErrorTypeOracle, "vrf_requestRandom",
					"randomness request failed")
			}
			return id, nil
		})
	})
	if err != nil {
		return "", err
	}
	if id == "" {
		return "", errors.New(errors.ErrorTypeOracle, "vrf_requestRandom",
			"provider returned an empty request id")
	}
	return RequestID(id), nil
}

// GetVerifiedRandomNumber implements Client. An unready result maps to
// ErrNotReady without tripping the breaker or burning retries.
func (c *RPCClient) GetVerifiedRandomNumber(ctx context.Context, id RequestID) (uint64, error) {
	var res randomResult
	err := c.breaker.Execute(ctx, func() error {
		if err := c.rpc.CallContext(ctx, &res, "vrf_getRandom", string(id)); err != nil {
			return errors.Wrap(err, errors.ErrorTypeOracle, "vrf_getRandom",
				"randomness fetch failed").WithContext("request_id", string(id))
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	if !res.Ready {
		return 0, fmt.Errorf("%w: request %s", ErrNotReady, id)
	}
	return res.Value, nil
}

// Close releases the underlying RPC connection.
func (c *RPCClient) Close() {
	c.rpc.Close()
}
