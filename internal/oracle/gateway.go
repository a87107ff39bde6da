package oracle

import (
	"context"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/stakeworks/gosp/internal/messaging"
	"github.com/stakeworks/gosp/internal/pool"
	"github.com/stakeworks/gosp/pkg/log"
)

// MaxBatchInterval caps how many blocks a batch may span.
const MaxBatchInterval = 3

// Per-caller request budget enforced when a limiter is configured.
const (
	requestRateLimit  = 60
	requestRateWindow = time.Minute
)

// Gateway batches randomness requests by block height and memoizes verified
// results. Like the pool it is a single-logical-thread state machine.
type Gateway struct {
	client      Client
	cache       Cache
	limiter     Limiter
	distributor Distributor
	approver    pool.Approver
	notifier    pool.Notifier
	logger      *log.Logger
	admin       common.Address

	batchInterval uint64
	batchHeight   uint64
	batchID       RequestID
	haveBatch     bool

	resolved map[RequestID]uint64
}

// NewGateway creates a gateway with the given batching window. A nil cache
// keeps results in memory only; a nil limiter disables rate limiting; a nil
// approver admits only the admin.
func NewGateway(client Client, cache Cache, limiter Limiter, distributor Distributor, approver pool.Approver, notifier pool.Notifier, admin common.Address, batchInterval uint64, logger *log.Logger) (*Gateway, error) {
	if batchInterval < 1 || batchInterval > MaxBatchInterval {
		return nil, fmt.Errorf("%w: %d", ErrBadBatchInterval, batchInterval)
	}
	return &Gateway{
		client:        client,
		cache:         cache,
		limiter:       limiter,
		distributor:   distributor,
		approver:      approver,
		notifier:      notifier,
		logger:        logger.WithComponent("oracle"),
		admin:         admin,
		batchInterval: batchInterval,
		resolved:      make(map[RequestID]uint64),
	}, nil
}

// Request returns the randomness request covering the given block height.
// Only approved games and the admin may call it. Heights at most
// batchInterval blocks past the current batch share its request; a height
// beyond the window drives one distribution tick and then opens a new batch
// upstream.
func (g *Gateway) Request(ctx context.Context, caller common.Address, height uint64) (RequestID, error) {
	if caller != g.admin && (g.approver == nil || !g.approver.IsApproved(caller)) {
		return "", ErrUnauthorized
	}

	if g.limiter != nil {
		ok, err := g.limiter.CheckRateLimit(ctx, "oracle_rate:"+caller.Hex(), requestRateLimit, requestRateWindow)
		if err != nil {
			g.logger.WithError(err).Warn("rate limit check failed")
		} else if !ok {
			return "", fmt.Errorf("%w: %s", ErrRateLimited, caller.Hex())
		}
	}

	if g.haveBatch && height-g.batchHeight <= g.batchInterval {
		g.logger.LogOracleRequest(string(g.batchID), height, true)
		g.emitRequest(ctx, g.batchID, height, true, 0)
		return g.batchID, nil
	}

	// each new batch advances the payout scheduler by one tick before the
	// upstream request goes out; a failed tick does not fail the request
	if g.distributor != nil {
		if err := g.distributor.Distribute(ctx); err != nil {
			g.logger.WithError(err).Warn("distribution tick failed")
		}
	}

	start := time.Now()
	id, err := g.client.RequestRandomNumber(ctx)
	if err != nil {
		return "", fmt.Errorf("request random number: %w", err)
	}
	g.batchID = id
	g.batchHeight = height
	g.haveBatch = true

	g.logger.LogOracleRequest(string(id), height, false)
	g.emitRequest(ctx, id, height, false, time.Since(start))
	return id, nil
}

// emitRequest publishes one oracle request event, feeding the request
// latency metrics.
func (g *Gateway) emitRequest(ctx context.Context, id RequestID, height uint64, batched bool, latency time.Duration) {
	if g.notifier == nil {
		return
	}
	g.notifier.Notify(ctx, messaging.Event{
		Kind: messaging.EventOracleRequested,
		Key:  string(id),
		At:   time.Now().UTC(),
		Payload: messaging.OracleRequestPayload{
			RequestID:   string(id),
			BlockHeight: height,
			Batched:     batched,
			LatencyMS:   latency.Milliseconds(),
		},
	})
}

// Resolve returns the verified random number for a request. Results are
// memoized in memory and in the durable cache, so the upstream provider is
// asked at most once per request. ErrNotReady passes through untouched.
func (g *Gateway) Resolve(ctx context.Context, id RequestID) (uint64, error) {
	if v, ok := g.resolved[id]; ok {
		return v, nil
	}

	if g.cache != nil {
		v, ok, err := g.cache.GetResolvedRandom(ctx, string(id))
		if err != nil {
			g.logger.WithRequest(string(id)).WithError(err).Warn("resolved-random cache read failed")
		} else if ok {
			g.resolved[id] = v
			return v, nil
		}
	}

	v, err := g.client.GetVerifiedRandomNumber(ctx, id)
	if err != nil {
		return 0, err
	}
	g.resolved[id] = v

	if g.cache != nil {
		if err := g.cache.SetResolvedRandom(ctx, string(id), v); err != nil {
			g.logger.WithRequest(string(id)).WithError(err).Warn("resolved-random cache write failed")
		}
	}
	return v, nil
}

// SetBatchInterval retunes the batching window. Privileged; the window is
// capped so batches cannot be stretched to starve the scheduler.
func (g *Gateway) SetBatchInterval(ctx context.Context, caller common.Address, blocks uint64) error {
	if caller != g.admin {
		return ErrUnauthorized
	}
	if blocks < 1 || blocks > MaxBatchInterval {
		return fmt.Errorf("%w: %d", ErrBadBatchInterval, blocks)
	}

	g.batchInterval = blocks
	g.logger.Info("batch interval changed", "blocks", blocks)
	if g.notifier != nil {
		g.notifier.Notify(ctx, messaging.Event{
			Kind:    messaging.EventBatchIntervalChanged,
			Key:     caller.Hex(),
			At:      time.Now().UTC(),
			Payload: messaging.BatchIntervalPayload{Blocks: blocks},
		})
	}
	return nil
}

// BatchInterval returns the current batching window.
func (g *Gateway) BatchInterval() uint64 {
	return g.batchInterval
}
