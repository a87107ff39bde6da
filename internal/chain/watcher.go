package chain

import (
	"context"
	"encoding/binary"
	"fmt"
	"sync/atomic"

	zmq "github.com/pebbe/zmq4"

	"github.com/stakeworks/gosp/pkg/log"
)

// TopicBlockHeight is the ZMQ topic carrying new head heights.
const TopicBlockHeight = "blockheight"

// HeightHandler receives each new block height in arrival order.
type HeightHandler func(ctx context.Context, height uint64) error

// Watcher subscribes to the node's ZMQ block feed and fans new heights out
// to a handler. The latest seen height is also kept for polling callers.
type Watcher struct {
	socket   *zmq.Socket
	endpoint string
	logger   *log.Logger
	height   atomic.Uint64
}

// NewWatcher creates a watcher for the given ZMQ endpoint.
func NewWatcher(endpoint string, logger *log.Logger) (*Watcher, error) {
	socket, err := zmq.NewSocket(zmq.SUB)
	if err != nil {
		return nil, fmt.Errorf("create zmq socket: %w", err)
	}

	return &Watcher{
		socket:   socket,
		endpoint: endpoint,
		logger:   logger.WithComponent("chain_watcher"),
	}, nil
}

// Connect connects and subscribes to the block-height topic.
func (w *Watcher) Connect() error {
	if err := w.socket.Connect(w.endpoint); err != nil {
		return fmt.Errorf("connect zmq endpoint %s: %w", w.endpoint, err)
	}
	if err := w.socket.SetSubscribe(TopicBlockHeight); err != nil {
		return fmt.Errorf("subscribe topic %s: %w", TopicBlockHeight, err)
	}
	w.logger.Info("connected to block feed", "endpoint", w.endpoint)
	return nil
}

// Listen consumes the feed until the context ends. Handler errors are
// logged; the feed keeps running.
func (w *Watcher) Listen(ctx context.Context, handler HeightHandler) error {
	w.logger.Info("starting block feed listener")

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("block feed listener stopping")
			return ctx.Err()
		default:
		}

		msg, err := w.socket.RecvMessageBytes(zmq.DONTWAIT)
		if err != nil {
			if err.Error() == "resource temporarily unavailable" {
				continue
			}
			w.logger.Error("failed to receive block feed message", "error", err)
			continue
		}

		height, err := parseHeightMessage(msg)
		if err != nil {
			w.logger.Warn("malformed block feed message", "error", err)
			continue
		}

		w.height.Store(height)
		w.logger.Debug("new block", "height", height)

		if handler != nil {
			if err := handler(ctx, height); err != nil {
				w.logger.Error("block handler failed", "height", height, "error", err)
			}
		}
	}
}

// Height returns the latest height seen on the feed, 0 before the first.
func (w *Watcher) Height() uint64 {
	return w.height.Load()
}

// Close closes the ZMQ socket.
func (w *Watcher) Close() error {
	if w.socket != nil {
		return w.socket.Close()
	}
	return nil
}

// parseHeightMessage decodes a [topic, payload] frame pair where the payload
// is the height as an 8-byte big-endian integer.
func parseHeightMessage(msg [][]byte) (uint64, error) {
	if len(msg) < 2 {
		return 0, fmt.Errorf("expected 2 frames, got %d", len(msg))
	}
	if topic := string(msg[0]); topic != TopicBlockHeight {
		return 0, fmt.Errorf("unexpected topic %q", topic)
	}
	if len(msg[1]) != 8 {
		return 0, fmt.Errorf("invalid height payload length %d", len(msg[1]))
	}
	return binary.BigEndian.Uint64(msg[1]), nil
}
