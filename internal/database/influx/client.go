// Package influx provides InfluxDB client and time-series operations for the
// GOSP staking pool. It records stake flow, distribution payouts, prize
// volume, and oracle latency metrics.
package influx

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/holiman/uint256"
	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// Client wraps InfluxDB operations for time-series metrics
type Client struct {
	client   influxdb2.Client
	writeAPI api.WriteAPI
	queryAPI api.QueryAPI
	bucket   string
	org      string
}

// Config holds InfluxDB connection configuration
type Config struct {
	URL    string
	Token  string
	Org    string
	Bucket string
}

// NewClient creates a new InfluxDB client
func NewClient(cfg *Config) (*Client, error) {
	client := influxdb2.NewClient(cfg.URL, cfg.Token)

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	health, err := client.Health(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to check InfluxDB health: %w", err)
	}

	if health.Status != "pass" {
		msg := ""
		if health.Message != nil {
			msg = *health.Message
		}
		return nil, fmt.Errorf("InfluxDB health check failed: %s", msg)
	}

	writeAPI := client.WriteAPI(cfg.Org, cfg.Bucket)
	queryAPI := client.QueryAPI(cfg.Org)

	return &Client{
		client:   client,
		writeAPI: writeAPI,
		queryAPI: queryAPI,
		bucket:   cfg.Bucket,
		org:      cfg.Org,
	}, nil
}

// Close closes the InfluxDB connection
func (c *Client) Close() {
	c.writeAPI.Flush()
	c.client.Close()
}

// Health checks InfluxDB connectivity
func (c *Client) Health(ctx context.Context) error {
	health, err := c.client.Health(ctx)
	if err != nil {
		return fmt.Errorf("failed to check health: %w", err)
	}

	if health.Status != "pass" {
		msg := ""
		if health.Message != nil {
			msg = *health.Message
		}
		return fmt.Errorf("health check failed: %s", msg)
	}

	return nil
}

// amountField renders a 256-bit amount as a float64 gauge value. Precision
// loss is acceptable for dashboards; the journal keeps exact values.
func amountField(v *uint256.Int) float64 {
	f, _ := new(big.Float).SetInt(v.ToBig()).Float64()
	return f
}

// Staking metrics

// WriteStakeMetric writes a stake or exit flow metric
func (c *Client) WriteStakeMetric(operation, staker string, amount, shares *uint256.Int) {
	tags := map[string]string{
		"operation": operation,
		"staker":    staker,
	}

	fields := map[string]interface{}{
		"amount": amountField(amount),
		"shares": amountField(shares),
		"count":  1,
	}

	point := write.NewPoint("stake_flow", tags, fields, time.Now())
	c.writeAPI.WritePoint(point)
}

// WriteDistributionMetric writes a scheduler payout metric
func (c *Client) WriteDistributionMetric(recipient string, amount *uint256.Int, cursor int, cleanup bool) {
	tags := map[string]string{
		"recipient": recipient,
		"cleanup":   fmt.Sprintf("%t", cleanup),
	}

	fields := map[string]interface{}{
		"amount": amountField(amount),
		"cursor": int64(cursor),
		"count":  1,
	}

	point := write.NewPoint("distributions", tags, fields, time.Now())
	c.writeAPI.WritePoint(point)
}

// WritePrizeMetric writes a prize payout metric
func (c *Client) WritePrizeMetric(game, winner string, amount *uint256.Int) {
	tags := map[string]string{
		"game":   game,
		"winner": winner,
	}

	fields := map[string]interface{}{
		"amount": amountField(amount),
		"count":  1,
	}

	point := write.NewPoint("prizes", tags, fields, time.Now())
	c.writeAPI.WritePoint(point)
}

// WriteOracleMetric writes a randomness request metric
func (c *Client) WriteOracleMetric(requestID string, blockHeight uint64, batched bool, latency time.Duration) {
	tags := map[string]string{
		"batched": fmt.Sprintf("%t", batched),
	}

	fields := map[string]interface{}{
		"request_id":   requestID,
		"block_height": int64(blockHeight),
		"latency_ms":   latency.Milliseconds(),
		"count":        1,
	}

	point := write.NewPoint("oracle_requests", tags, fields, time.Now())
	c.writeAPI.WritePoint(point)
}

// Pool statistics

// WritePoolStatsMetric writes an overall pool state snapshot
func (c *Client) WritePoolStatsMetric(reserve, totalShares, dividendTotal, currentWeight *uint256.Int, entries, cursor int, stakingActive bool) {
	fields := map[string]interface{}{
		"reserve":        amountField(reserve),
		"total_shares":   amountField(totalShares),
		"dividend_total": amountField(dividendTotal),
		"current_weight": amountField(currentWeight),
		"entries":        int64(entries),
		"cursor":         int64(cursor),
		"staking_active": stakingActive,
	}

	point := write.NewPoint("pool_stats", map[string]string{}, fields, time.Now())
	c.writeAPI.WritePoint(point)
}

// Query methods

// GetDistributionVolume retrieves total distribution volume over a period
func (c *Client) GetDistributionVolume(ctx context.Context, duration time.Duration) (float64, error) {
	query := fmt.Sprintf(`
		from(bucket: "%s")
		|> range(start: -%s)
		|> filter(fn: (r) => r._measurement == "distributions")
		|> filter(fn: (r) => r._field == "amount")
		|> group()
		|> sum()
	`, c.bucket, duration.String())

	result, err := c.queryAPI.Query(ctx, query)
	if err != nil {
		return 0, fmt.Errorf("failed to query distribution volume: %w", err)
	}
	defer func() {
		_ = result.Close()
	}()

	if result.Next() {
		record := result.Record()
		if volume, ok := record.Value().(float64); ok {
			return volume, nil
		}
	}

	if result.Err() != nil {
		return 0, fmt.Errorf("error reading query result: %w", result.Err())
	}

	return 0, nil
}

// GetPrizeVolume retrieves total prize volume over a period
func (c *Client) GetPrizeVolume(ctx context.Context, duration time.Duration) (float64, error) {
	query := fmt.Sprintf(`
		from(bucket: "%s")
		|> range(start: -%s)
		|> filter(fn: (r) => r._measurement == "prizes")
		|> filter(fn: (r) => r._field == "amount")
		|> group()
		|> sum()
	`, c.bucket, duration.String())

	result, err := c.queryAPI.Query(ctx, query)
	if err != nil {
		return 0, fmt.Errorf("failed to query prize volume: %w", err)
	}
	defer func() {
		_ = result.Close()
	}()

	if result.Next() {
		record := result.Record()
		if volume, ok := record.Value().(float64); ok {
			return volume, nil
		}
	}

	if result.Err() != nil {
		return 0, fmt.Errorf("error reading query result: %w", result.Err())
	}

	return 0, nil
}

// Flush forces a write of all pending points
func (c *Client) Flush() {
	c.writeAPI.Flush()
}
